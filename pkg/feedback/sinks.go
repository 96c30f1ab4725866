package feedback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/muesli/termenv"
)

var (
	_ Indicator = (*TerminalIndicator)(nil)
	_ Haptics   = (*BellHaptics)(nil)
	_ Notifier  = (*ExecNotifier)(nil)
)

// TerminalIndicator paints the terminal background through termenv. The
// neutral color restores the terminal default with OSC 111, which termenv
// has no call for.
type TerminalIndicator struct {
	W     io.Writer
	Alert string // Hex color for the alert state (default "#8b0000").

	mu  sync.Mutex
	out *termenv.Output
}

// SetColor implements Indicator.
func (t *TerminalIndicator) SetColor(c Color) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.out == nil {
		t.out = termenv.NewOutput(t.W, termenv.WithProfile(termenv.TrueColor))
	}

	if c == ColorAlert {
		col := t.Alert
		if col == "" {
			col = "#8b0000"
		}
		t.out.SetBackgroundColor(termenv.RGBColor(col))
		return
	}

	_, _ = io.WriteString(t.W, termenv.OSC+"111"+string(termenv.BEL))
}

// BellHaptics approximates a vibration pulse by ringing the terminal bell
// every Interval for the pulse duration.
type BellHaptics struct {
	W        io.Writer
	Interval time.Duration // Default 1s.

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartPulse implements Haptics. A running pulse is replaced.
func (b *BellHaptics) StartPulse(d time.Duration) {
	b.Cancel()

	interval := b.Interval
	if interval <= 0 {
		interval = time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), d)

	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	b.wg.Go(func() {
		defer cancel()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		b.ring()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.ring()
			}
		}
	})
}

func (b *BellHaptics) ring() {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, _ = io.WriteString(b.W, "\a")
}

// Cancel implements Haptics. It waits for the pulse goroutine to exit and is
// a no-op when no pulse is running.
func (b *BellHaptics) Cancel() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	b.wg.Wait()
}

// ExecNotifier fires notifications by running an external command such as
// notify-send with the title and body as arguments. The command runs in the
// background; Fire only reports start failures.
type ExecNotifier struct {
	Command string
	Logger  *slog.Logger

	mu      sync.Mutex
	granted bool
}

// NewExecNotifier creates a notifier. granted restores a permission given
// in an earlier run.
func NewExecNotifier(command string, granted bool, logger *slog.Logger) *ExecNotifier {
	if logger == nil {
		logger = slog.Default()
	}

	return &ExecNotifier{Command: command, Logger: logger, granted: granted}
}

// PermissionGranted implements Notifier.
func (n *ExecNotifier) PermissionGranted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.granted
}

// RequestPermission implements Notifier. Permission is granted when the
// command can be found on PATH.
func (n *ExecNotifier) RequestPermission(_ context.Context) bool {
	_, err := exec.LookPath(n.Command)

	n.mu.Lock()
	n.granted = err == nil
	n.mu.Unlock()

	if err != nil {
		n.Logger.Info("feedback: notifications unavailable", "command", n.Command, "error", err)
	}

	return err == nil
}

// Fire implements Notifier.
func (n *ExecNotifier) Fire(_ context.Context, note Notification) error {
	cmd := exec.Command(n.Command, note.Title, note.Body) //nolint:gosec // command comes from configuration
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("feedback: start %s: %w", n.Command, err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			n.Logger.Warn("feedback: notification command failed", "id", note.ID, "error", err)
		}
	}()

	return nil
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/JesseRWeigel/stay-focused/pkg/engine"
	"github.com/JesseRWeigel/stay-focused/pkg/provider"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// controller is the engine surface the TUI drives.
type controller interface {
	Snapshot() engine.Snapshot
	Events() *engine.EventBus
	Link(deviceID string, c provider.Credentials) error
	Logout() error
	RequestNotificationPermission(ctx context.Context) bool
}

// screen is what the model renders for the current snapshot.
type screen int

const (
	screenLoading screen = iota
	screenPairing
	screenSigningIn
	screenFocus
)

// appModel is the root bubbletea model.
type appModel struct {
	ctx        context.Context
	eng        controller
	cfg        engine.Config
	configPath string

	snap     engine.Snapshot
	spinner  spinner.Model
	progress progress.Model
	help     help.Model
	keys     keyMap

	form     *huh.Form
	input    *pairingInput
	awaiting string // device ID submitted and not yet answered by the engine
	notice   string
	showHelp bool
	granted  bool // notification permission

	cancelBridge context.CancelFunc
	width        int
	height       int
}

func newAppModel(ctx context.Context, eng controller, cfg engine.Config, configPath string) appModel {
	m := appModel{
		ctx:        ctx,
		eng:        eng,
		cfg:        cfg,
		configPath: configPath,
		snap:       eng.Snapshot(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		progress:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:       help.New(),
		keys:       newKeyMap(),
		granted:    cfg.Feedback.Notifications,
	}
	m.syncForm()

	return m
}

func (m appModel) Init() tea.Cmd {
	if m.form != nil {
		return tea.Batch(m.spinner.Tick, m.form.Init())
	}
	return m.spinner.Tick
}

func (m appModel) screen() screen {
	switch {
	case m.snap.Loading:
		return screenLoading
	case m.snap.Linked():
		return screenFocus
	case m.snap.Phase == engine.PhaseAuthenticating || m.awaiting != "":
		return screenSigningIn
	default:
		return screenPairing
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case programReadyMsg:
		m.cancelBridge = startBridge(m.ctx, msg.program, m.eng.Events())
		return m, nil

	case snapshotMsg:
		m.snap = msg.snap
		if m.awaiting != "" && m.answered() {
			m.awaiting = ""
		}
		if m.snap.Linked() {
			m.notice = ""
		}
		cmd := m.syncForm()
		return m, cmd

	case loginFailedMsg:
		m.awaiting = ""
		m.notice = "Login failed. Check your email and password."
		cmd := m.syncForm()
		return m, cmd

	case streamLostMsg:
		m.notice = "Lost the focus stream. Sign in again to resume."
		cmd := m.syncForm()
		return m, cmd

	case pairSubmittedMsg:
		if msg.err != nil {
			m.awaiting = ""
			m.notice = "error: " + msg.err.Error()
		}
		cmd := m.syncForm()
		return m, cmd

	case permissionMsg:
		m.granted = msg.granted
		switch {
		case msg.err != nil:
			m.notice = "could not save notification setting: " + msg.err.Error()
		case !msg.granted:
			m.notice = fmt.Sprintf("Notifications unavailable (%s not found).", m.cfg.Feedback.NotifyCommand)
		}
		return m, nil

	case logoutDoneMsg:
		if msg.err != nil {
			m.notice = "error: " + msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	return m, nil
}

// answered reports whether the engine has reacted to the last submission.
func (m appModel) answered() bool {
	s := m.snap
	if s.DeviceID != m.awaiting || s.Loading {
		return false
	}
	return s.Linked() || s.Phase == engine.PhaseAuthenticating || s.LastError != ""
}

func (m *appModel) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	initMarkdownRenderer(min(m.width-4, 100))
	m.progress.Width = max(min(m.width-16, 60), 10)
	m.help.Width = m.width

	if m.form != nil {
		m.form = m.form.WithWidth(min(m.width-4, 60))
	}

	return *m, nil
}

func (m *appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		cmd := m.quit()
		return *m, cmd
	}

	if m.form != nil && !m.showHelp {
		return m.updateForm(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		cmd := m.quit()
		return *m, cmd
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return *m, nil
	case msg.Type == tea.KeyEsc && m.showHelp:
		m.showHelp = false
		return *m, nil
	case key.Matches(msg, m.keys.Logout) && m.snap.DeviceID != "":
		eng := m.eng
		return *m, func() tea.Msg {
			return logoutDoneMsg{err: eng.Logout()}
		}
	}

	return *m, nil
}

func (m *appModel) quit() tea.Cmd {
	if m.cancelBridge != nil {
		m.cancelBridge()
		m.cancelBridge = nil
	}
	return tea.Quit
}

// syncForm creates the pairing form when the pairing screen becomes active
// and drops it otherwise.
func (m *appModel) syncForm() tea.Cmd {
	if m.screen() != screenPairing {
		m.form = nil
		return nil
	}

	if m.form != nil {
		return nil
	}

	deviceID := m.snap.DeviceID
	if deviceID == "" && m.input != nil {
		deviceID = m.input.deviceID
	}

	m.input = &pairingInput{deviceID: deviceID, notify: true}
	m.form = newPairingForm(m.input, m.cfg.Demo.DeviceID, !m.granted)
	if m.width > 0 {
		m.form = m.form.WithWidth(min(m.width-4, 60))
	}

	return m.form.Init()
}

func (m *appModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := m.form.Update(msg)
	if f, ok := updated.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		submit := m.submit()
		return *m, tea.Batch(cmd, submit)
	case huh.StateAborted:
		quit := m.quit()
		return *m, quit
	}

	return *m, cmd
}

// submit hands the completed form to the engine and, when asked for,
// requests notification permission.
func (m *appModel) submit() tea.Cmd {
	in := *m.input
	in.deviceID = strings.TrimSpace(in.deviceID)

	m.form = nil
	m.notice = ""
	m.awaiting = in.deviceID

	eng := m.eng
	cmds := []tea.Cmd{func() tea.Msg {
		return pairSubmittedMsg{err: eng.Link(in.deviceID, in.credentials())}
	}}

	if in.notify && !m.granted {
		ctx, path := m.ctx, m.configPath
		cmds = append(cmds, func() tea.Msg {
			granted := eng.RequestNotificationPermission(ctx)
			if !granted {
				return permissionMsg{}
			}
			return permissionMsg{granted: true, err: persistNotifications(path, true)}
		})
	}

	return tea.Batch(cmds...)
}

func (m appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return renderMarkdown(fmt.Sprintf(helpMarkdown, m.cfg.Demo.DeviceID)) + "\n\n" +
			dimStyle.Render("esc or ? to go back")
	}

	var body string
	switch m.screen() {
	case screenLoading:
		body = m.spinner.View() + " Restoring your session..."
	case screenSigningIn:
		device := m.awaiting
		if device == "" {
			device = m.snap.DeviceID
		}
		body = m.spinner.View() + " Signing in to " + device + "..."
	case screenPairing:
		body = m.pairingView()
	case screenFocus:
		return m.focusView()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, body),
		statusStyle.Render(statusLine(m.snap, m.width)),
	)
}

func (m appModel) pairingView() string {
	parts := []string{titleStyle.Render("Pair your headset")}

	if m.notice != "" {
		parts = append(parts, errorStyle.Render(m.notice))
	} else if m.snap.LastError != "" {
		parts = append(parts, errorStyle.Render(m.snap.LastError))
	}

	if m.form != nil {
		parts = append(parts, m.form.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m appModel) focusView() string {
	pct := engine.Percent(m.snap.Focus)
	threshold := engine.Percent(m.cfg.Feedback.Threshold)

	var state string
	if m.snap.Alert {
		state = alertStyle.Render(fmt.Sprintf("Focus dropped below %d%%", threshold))
	} else {
		state = calmStyle.Render("Focused")
	}

	title := "stay focused"
	if m.snap.Demo {
		title += " (demo)"
	}

	lines := []string{
		titleStyle.Render(title),
		"",
		percentStyle.Render(fmt.Sprintf("%d%%", pct)),
		m.progress.ViewAs(m.snap.Focus),
		"",
		state,
	}
	if m.notice != "" {
		lines = append(lines, "", errorStyle.Render(m.notice))
	}

	panel := panelStyle.Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
	footer := statusStyle.Render(statusLine(m.snap, m.width)) + "\n" + m.help.View(m.keys)

	var opts []lipgloss.WhitespaceOption
	if m.snap.Alert {
		bg := lipgloss.Color(m.cfg.Feedback.AlertColor)
		panel = panelStyle.Background(bg).Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
		opts = append(opts, lipgloss.WithWhitespaceBackground(bg))
	}

	height := max(m.height-lipgloss.Height(footer), 1)

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, panel, opts...),
		footer,
	)
}

package engine

import (
	"errors"
	"math"
	"time"

	"github.com/JesseRWeigel/stay-focused/pkg/feedback"
	"github.com/JesseRWeigel/stay-focused/pkg/provider"
)

const maxReconnectDelay = 30 * time.Second

// startFocus subscribes to the focus stream when a user and a real session
// exist and no stream is active.
func (e *Engine) startFocus() {
	b := e.st.b
	if b == nil || b.demo || b.prov == nil || e.st.user == nil || b.focusSub != nil {
		return
	}

	b.focusSeq++
	gen, seq := b.gen, b.focusSeq

	sub := b.prov.Focus(b.ctx)
	b.focusSub = sub

	relay(e, sub,
		func(r provider.FocusReading) input { return focusReceived{gen: gen, seq: seq, reading: r} },
		func(err error) input { return focusEnded{gen: gen, seq: seq, err: err} },
	)
}

// stopFocus disposes the focus subscription and any pending reconnect. The
// sequence number is bumped so that the end event of the disposed stream is
// ignored.
func (e *Engine) stopFocus() {
	b := e.st.b
	if b == nil {
		return
	}

	if b.reconnect != nil {
		b.reconnect.Stop()
		b.reconnect = nil
	}

	if b.focusSub != nil {
		b.focusSub.Unsubscribe()
		b.focusSub = nil
		b.focusSeq++
	}

	b.attempts = 0
}

// onFocus handles one sample from the provider stream (seq > 0) or the demo
// generator (seq == 0).
func (e *Engine) onFocus(gen, seq uint64, p float64) {
	b := e.st.b
	if b == nil || gen != b.gen || e.st.user == nil {
		return
	}

	if !b.demo && (seq != b.focusSeq || b.focusSub == nil) {
		return
	}

	if math.IsNaN(p) || p < 0 || p > 1 {
		e.logger.Debug("engine: dropping out-of-range focus sample", "value", p)
		return
	}

	b.attempts = 0

	focus := RoundFocus(p)
	e.st.focus = focus
	e.metrics.RecordFocusSample(focus)
	e.emit(EventFocusSample, focus)

	st, changed := e.feedback.Observe(focus, true)
	if changed {
		alert := st == feedback.StateAlert
		e.metrics.RecordAlert(alert)
		e.emit(EventAlertChanged, alert)
	}
}

// RoundFocus rounds a probability to two decimals.
func RoundFocus(p float64) float64 {
	return math.Round(p*100) / 100
}

func (e *Engine) onFocusEnded(in focusEnded) {
	b := e.st.b
	if b == nil || in.gen != b.gen || in.seq != b.focusSeq || b.focusSub == nil {
		return
	}

	b.focusSub = nil

	if e.st.user == nil {
		return
	}

	err := in.err
	if err == nil {
		err = provider.ErrStreamClosed
	}

	if errors.Is(err, provider.ErrNotAuthenticated) || b.attempts >= e.cfg.Stream.ReconnectAttempts {
		e.loseStream(err)
		return
	}

	b.attempts++
	delay := e.reconnectDelay(b.attempts)

	e.logger.Warn("engine: focus stream dropped, reconnecting",
		"device_id", b.deviceID,
		"attempt", b.attempts,
		"delay", delay,
		"error", err,
	)
	e.metrics.RecordReconnect()

	gen, seq := b.gen, b.focusSeq
	b.reconnect = time.AfterFunc(delay, func() {
		_ = e.post(reconnectDue{gen: gen, seq: seq})
	})
}

func (e *Engine) onReconnectDue(in reconnectDue) {
	b := e.st.b
	if b == nil || in.gen != b.gen || in.seq != b.focusSeq || b.focusSub != nil {
		return
	}

	b.reconnect = nil
	e.startFocus()
}

// loseStream gives up on the focus stream: the error is recorded and the
// session falls back to Bound without a user.
func (e *Engine) loseStream(err error) {
	b := e.st.b

	e.logger.Error("engine: focus stream lost", "device_id", b.deviceID, "error", err)
	e.metrics.RecordStreamLost()

	e.st.lastErr = "focus stream lost: " + err.Error()
	e.clearUser()
	e.emit(EventStreamLost, err)
}

// reconnectDelay doubles the base delay per attempt up to a cap and applies
// ±25% jitter.
func (e *Engine) reconnectDelay(attempt int) time.Duration {
	base := e.cfg.Stream.ReconnectDelay
	ceiling := max(maxReconnectDelay, base)

	d := base
	for i := 1; i < attempt && d < ceiling; i++ {
		d *= 2
	}
	d = min(d, ceiling)

	factor := 0.75 + e.jitterFunc()*0.5 //nolint:mnd // jitter range: ±25%

	return time.Duration(float64(d) * factor)
}

// startDemo runs the synthetic focus generator for a demo binding until the
// binding is torn down.
func (e *Engine) startDemo(b *binding) {
	ctx, gen, interval := b.ctx, b.gen, e.cfg.Demo.Interval

	e.wg.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := e.post(demoTick{gen: gen, probability: e.randFunc()}); err != nil {
					return
				}
			}
		}
	})
}

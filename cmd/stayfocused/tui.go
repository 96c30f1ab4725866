package main

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

func runTUI(ctx context.Context, a *app) error {
	model := newAppModel(ctx, a.engine, a.cfg, a.configPath)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	// Send the program reference so the model can start the bridge goroutine.
	go func() {
		p.Send(programReadyMsg{program: p})
	}()

	final, err := p.Run()
	if m, ok := final.(appModel); ok && m.cancelBridge != nil {
		m.cancelBridge()
	}

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}

	return err
}

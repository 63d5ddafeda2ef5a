package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ownc/internal/driver"
	"ownc/internal/ui"
)

type checkOutcome struct {
	results []*driver.Result
	err     error
}

func checkWithUI(ctx context.Context, title string, paths []string, opts driver.Options) ([]*driver.Result, error) {
	events := make(chan driver.ProgressEvent, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		o := opts
		o.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.CheckFiles(ctx, paths, o)
		outcomeCh <- checkOutcome{results: res, err: err}
		close(events)
	}()

	program := tea.NewProgram(ui.NewProgressModel(title, paths, events), tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// после выхода из UI воркеры не должны блокироваться на канале
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}

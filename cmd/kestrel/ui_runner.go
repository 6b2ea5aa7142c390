package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"kestrel/internal/interp"
	"kestrel/internal/loader"
	"kestrel/internal/ui"
)

// preloadWithUI creates the runtime and imports s.targets on one goroutine
// while a Bubble Tea program renders the loader's progress events. The
// runtime is only touched by the import goroutine until both finish.
func (s *session) preloadWithUI(ctx context.Context, opts []interp.Option) error {
	events := make(chan loader.Event, 256)
	rt, err := interp.New(append(opts, interp.WithProgress(loader.ChannelSink{Ch: events}))...)
	if err != nil {
		return err
	}
	s.rt = rt

	return pumpProgress(events,
		func() error { return s.preload(ctx) },
		func() error {
			model := ui.NewProgressModel("importing modules", s.targets, events)
			program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
			_, err := program.Run()
			return err
		})
}

// pumpProgress runs load, which reports into events, alongside render, which
// consumes them. Once render returns the rest of events is drained, so load
// never blocks on a full channel after the renderer quit early.
func pumpProgress(events chan loader.Event, load, render func() error) error {
	var g errgroup.Group
	g.Go(func() error {
		defer close(events)
		return load()
	})
	g.Go(func() error {
		err := render()
		for range events {
		}
		return err
	})
	return g.Wait()
}

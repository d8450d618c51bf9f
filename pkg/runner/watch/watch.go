// Package watch runs the headless auto-apply loop over one stored workflow.
package watch

import (
	"context"
	"errors"
	"log/slog"

	"tableflip.dev/presetswitch/pkg/config"
	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/store"
	"tableflip.dev/presetswitch/pkg/workflow"
)

// Watch re-applies presets whenever the effective index of a control node
// changes, whether by an edit in the editor or by an upstream value.
type Watch struct {
	Persistence store.Persistence
	Config      *config.Config
	Log         *slog.Logger

	Workflow string
	// Ready is called once the initial state is applied and changes are
	// being watched.
	Ready func()
}

func (w *Watch) Do(ctx context.Context) error {
	log := w.Log
	if log == nil {
		log = slog.Default()
	}
	s, err := workflow.Open(w.Persistence, w.Config, w.Workflow, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := w.Persistence.Watch(ctx)
	if err != nil {
		return err
	}

	poller := s.Poller()
	poller.OnApply = func(ids []graph.NodeID) {
		for _, id := range ids {
			s.Log.Info("applied preset", "node", id)
		}
		if _, err := s.Save(); err != nil {
			s.Log.Error("saving workflow failed", "error", err)
		}
	}
	poller.Tick()
	if _, err := s.Save(); err != nil {
		return err
	}
	if w.Ready != nil {
		w.Ready()
	}

	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			<-done
			return nil
		case err := <-done:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Type == store.EventWorkflowChanged && ev.Name != w.Workflow {
				continue
			}
			if err := s.Reload(); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					s.Log.Warn("workflow removed, stopping")
					return err
				}
				// Usually a half-written file; the next write brings another
				// event.
				s.Log.Warn("reload failed", "error", err)
				continue
			}
			for _, id := range s.ControlNodes() {
				poller.Notify(id)
			}
		}
	}
}

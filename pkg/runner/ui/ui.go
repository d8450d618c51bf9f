package ui

import (
	"context"
	"log/slog"

	"tableflip.dev/presetswitch/pkg/config"
	"tableflip.dev/presetswitch/pkg/store"
	teaui "tableflip.dev/presetswitch/pkg/tui/app"
	"tableflip.dev/presetswitch/pkg/workflow"
)

// UI opens the interactive preset panel of one control node.
type UI struct {
	Persistence store.Persistence
	Config      *config.Config
	Log         *slog.Logger

	Workflow string
	Node     int
}

func (u *UI) Do(ctx context.Context) error {
	s, err := workflow.Open(u.Persistence, u.Config, u.Workflow, u.Log)
	if err != nil {
		return err
	}
	id, err := s.Node(u.Node)
	if err != nil {
		return err
	}
	return teaui.Run(ctx, s, id)
}

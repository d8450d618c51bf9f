package list

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"

	"tableflip.dev/presetswitch/pkg/config"
	"tableflip.dev/presetswitch/pkg/printers"
	"tableflip.dev/presetswitch/pkg/store"
	"tableflip.dev/presetswitch/pkg/workflow"
)

// List prints the presets of a workflow as a control node shows them.
type List struct {
	Persistence store.Persistence
	Config      *config.Config
	Log         *slog.Logger

	Workflow string
	Node     int
	// Report adds node counts and missing nodes per preset.
	Report      bool
	ShowMissing bool

	Out  io.Writer
	JSON bool
}

func (l *List) Do(ctx context.Context) error {
	out := l.Out
	if out == nil {
		out = color.Output
	}

	s, err := workflow.Open(l.Persistence, l.Config, l.Workflow, l.Log)
	if err != nil {
		return err
	}
	// A missing control node still lists the presets, just without an
	// active one.
	id, _ := s.Node(l.Node)

	result, err := s.Service.Report(id)
	if err != nil {
		return err
	}

	if l.JSON {
		b, err := json.Marshal(result)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(b))
		return nil
	}

	pp := &printers.PrettyPrint{Out: out, ShowMissing: l.ShowMissing}
	pp.TitleWithCount(l.Workflow, result.Total)
	if l.Report || id == 0 {
		pp.Report(result)
		return nil
	}
	view, err := s.Service.Panel(id)
	if err != nil {
		return err
	}
	pp.Panel(view)
	return nil
}

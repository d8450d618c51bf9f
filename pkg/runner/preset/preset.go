// Package preset runs the control-node buttons against a stored workflow.
package preset

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"

	"tableflip.dev/presetswitch/pkg/app"
	"tableflip.dev/presetswitch/pkg/config"
	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/index"
	presets "tableflip.dev/presetswitch/pkg/preset"
	"tableflip.dev/presetswitch/pkg/printers"
	"tableflip.dev/presetswitch/pkg/store"
	"tableflip.dev/presetswitch/pkg/workflow"
)

// Action names one button or operation.
type Action string

const (
	Add     Action = "add"
	Record  Action = "record"
	Apply   Action = "apply"
	Delete  Action = "delete"
	Move    Action = "move"
	Rename  Action = "rename"
	Next    Action = "next"
	Prev    Action = "prev"
	Options Action = "options"
	Migrate Action = "migrate"
)

type Preset struct {
	Persistence store.Persistence
	Config      *config.Config
	Log         *slog.Logger

	Workflow string
	Node     int
	Action   Action

	// Index is the preset an action targets; -1 means the node's current one.
	Index int
	To    int
	Name  string
	Prune bool
	// Policy holds the flags to set for Options; empty values keep the
	// current ones.
	Policy presets.Options

	// Prompter asks for the new name when Name is empty. Nil reads one
	// line from In.
	Prompter app.Prompter
	In       io.Reader
	Out  io.Writer
	JSON bool
}

// Result is what an action did, as printed with --json.
type Result struct {
	Workflow  string           `json:"workflow"`
	Node      graph.NodeID     `json:"node"`
	Action    Action           `json:"action"`
	Index     int              `json:"index"`
	Applied   int              `json:"applied,omitempty"`
	Missing   int              `json:"missing,omitempty"`
	Pruned    int              `json:"pruned,omitempty"`
	Compacted bool             `json:"compacted,omitempty"`
	Options   *presets.Options `json:"options,omitempty"`
	Saved     bool             `json:"saved"`
	Presets   []Entry          `json:"presets"`
}

// Entry is one preset in a Result.
type Entry struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func (p *Preset) out() io.Writer {
	if p.Out == nil {
		return color.Output
	}
	return p.Out
}

func (p *Preset) Do(ctx context.Context) error {
	s, res, err := p.execute(ctx)
	if err != nil {
		return err
	}
	return p.print(s, res)
}

// Run performs the action, saves the workflow and returns what it did
// without printing.
func (p *Preset) Run(ctx context.Context) (Result, error) {
	_, res, err := p.execute(ctx)
	return res, err
}

func (p *Preset) execute(ctx context.Context) (*workflow.Session, Result, error) {
	s, err := workflow.Open(p.Persistence, p.Config, p.Workflow, p.Log)
	if err != nil {
		return nil, Result{}, err
	}
	id, err := s.Node(p.Node)
	if err != nil && p.Action != Migrate && p.Action != Options {
		return nil, Result{}, err
	}

	res := Result{Workflow: p.Workflow, Node: id, Action: p.Action, Index: p.Index}
	if err := p.run(ctx, s, id, &res); err != nil {
		return nil, Result{}, err
	}

	saved, err := s.Save()
	if err != nil {
		return nil, Result{}, err
	}
	res.Saved = saved

	report, err := s.Service.Report(id)
	if err != nil {
		return nil, Result{}, err
	}
	res.Presets = make([]Entry, 0, len(report.Items))
	for _, item := range report.Items {
		res.Presets = append(res.Presets, Entry{Index: item.Index, Name: item.Name, Active: item.Active})
	}
	return s, res, nil
}

func (p *Preset) run(ctx context.Context, s *workflow.Session, id graph.NodeID, res *Result) error {
	svc := s.Service
	var err error
	switch p.Action {
	case Add:
		res.Index, err = svc.AddPreset(id)
	case Record:
		if p.Index < 0 {
			res.Index, err = svc.RecordCurrent(id)
			break
		}
		res.Index, err = svc.Record(p.Index)
	case Apply:
		var ar app.ApplyResult
		ar, err = svc.SwitchTo(id, p.Index, true)
		res.Index, res.Applied, res.Missing = ar.Index, ar.Applied, ar.Missing
	case Delete:
		if p.Index < 0 {
			res.Index, err = svc.DeleteSelected(id)
			break
		}
		if err = svc.Store.Delete(p.Index); err == nil {
			_, err = svc.Refresh(id)
		}
	case Move:
		if err = svc.Store.Move(p.Index, p.To); err == nil {
			// The store clamps the destination to the last position.
			res.Index = min(index.Normalize(p.To), svc.Store.Len()-1)
			_, err = svc.SwitchTo(id, res.Index, true)
		}
	case Rename:
		err = p.rename(ctx, svc, id)
	case Next:
		res.Index, err = svc.NextPreset(id)
	case Prev:
		res.Index, err = svc.PrevPreset(id)
	case Options:
		opts := svc.Store.Options()
		if p.Policy.OnMissingNode != "" {
			opts.OnMissingNode = p.Policy.OnMissingNode
		}
		if p.Policy.IndexOutOfRange != "" {
			opts.IndexOutOfRange = p.Policy.IndexOutOfRange
		}
		if opts != svc.Store.Options() {
			err = svc.Store.SetOptions(opts)
		}
		res.Options = &opts
	case Migrate:
		var mr app.MigrationResult
		mr, err = svc.Migrate(p.Prune)
		res.Compacted, res.Pruned = mr.Compacted, mr.Pruned
	default:
		err = fmt.Errorf("unknown action %q", p.Action)
	}
	return err
}

func (p *Preset) rename(ctx context.Context, svc *app.Service, id graph.NodeID) error {
	if p.Name != "" {
		if p.Index < 0 {
			view, err := svc.Panel(id)
			if err != nil {
				return err
			}
			p.Index = view.Current
		}
		return svc.Rename(id, p.Index, p.Name)
	}

	svc.Prompter = p.Prompter
	if svc.Prompter == nil {
		in := p.In
		if in == nil {
			in = os.Stdin
		}
		svc.Prompter = LinePrompter(in, p.out())
	}
	if p.Index < 0 {
		return svc.RenameSelected(ctx, id)
	}
	return svc.RenamePrompt(ctx, id, p.Index)
}

// LinePrompter answers rename prompts with one line read from in. An empty
// answer keeps the current name.
func LinePrompter(in io.Reader, out io.Writer) app.Prompter {
	r := bufio.NewReader(in)
	return app.PrompterFunc(func(ctx context.Context, req app.PromptRequest) error {
		_, _ = fmt.Fprintf(out, "%s [%s]: ", req.Title, req.Initial)
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return nil
		}
		return req.Submit(line)
	})
}

func (p *Preset) print(s *workflow.Session, res Result) error {
	id := res.Node
	if p.JSON {
		b, err := json.Marshal(res)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(p.out(), string(b))
		return nil
	}

	pp := &printers.PrettyPrint{Out: p.out()}
	switch p.Action {
	case Migrate:
		_, _ = fmt.Fprintf(p.out(), "compacted: %t, pruned node snapshots: %d\n", res.Compacted, res.Pruned)
	case Options:
		_, _ = fmt.Fprintf(p.out(), "onMissingNode: %s\nindexOutOfRange: %s\n", res.Options.OnMissingNode, res.Options.IndexOutOfRange)
		return nil
	}
	view, err := s.Service.Panel(id)
	if err != nil {
		if errors.Is(err, app.ErrNoControlNode) {
			return nil
		}
		return err
	}
	pp.TitleWithCount(s.Name, s.Service.Store.Len())
	pp.Panel(view)
	return nil
}

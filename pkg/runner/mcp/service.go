// Package mcp provides the Model Context Protocol server integration for presetswitch.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"tableflip.dev/presetswitch/pkg/app"
	"tableflip.dev/presetswitch/pkg/config"
	"tableflip.dev/presetswitch/pkg/graph"
	presets "tableflip.dev/presetswitch/pkg/preset"
	"tableflip.dev/presetswitch/pkg/runner/preset"
	"tableflip.dev/presetswitch/pkg/store"
	"tableflip.dev/presetswitch/pkg/workflow"
)

// Service coordinates persistence-backed operations that are shared by the MCP server.
type Service struct {
	Persistence store.Persistence
	Config      *config.Config
	Log         *slog.Logger

	// Tool calls may arrive concurrently; each one loads and saves the whole
	// workflow, so mutations are serialized.
	mu sync.Mutex
}

// WorkflowSummary describes a stored workflow.
type WorkflowSummary struct {
	Name         string         `json:"name"`
	ControlNodes []graph.NodeID `json:"controlNodes"`
	PresetCount  int            `json:"presetCount"`
	Error        string         `json:"error,omitempty"`
}

// PresetDTO is a transport-friendly projection of a preset.
type PresetDTO struct {
	Index      int            `json:"index"`
	Name       string         `json:"name"`
	Active     bool           `json:"active"`
	Nodes      int            `json:"nodes"`
	Missing    int            `json:"missing,omitempty"`
	MissingIDs []graph.NodeID `json:"missingIds,omitempty"`
	Updated    string         `json:"updated,omitempty"`
}

// PresetList is the presets of a workflow as seen from one control node.
type PresetList struct {
	Workflow string       `json:"workflow"`
	Node     graph.NodeID `json:"node,omitempty"`
	Current  int          `json:"current"`
	Linked   bool         `json:"linked"`
	Presets  []PresetDTO  `json:"presets"`
}

// ActionOptions captures the parameters of a preset mutation.
type ActionOptions struct {
	Workflow string
	Node     int
	Action   preset.Action
	// Index is the preset the action targets; -1 means the node's current one.
	Index int
	To    int
	Name  string
	Prune bool

	OnMissingNode   string
	IndexOutOfRange string
}

// NewService builds a service wrapper using the provided persistence layer.
func NewService(p store.Persistence, cfg *config.Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{Persistence: p, Config: cfg, Log: log}
}

// ListWorkflows summarizes every workflow in the library. Workflows that fail
// to open are listed with their error.
func (s *Service) ListWorkflows(ctx context.Context) ([]WorkflowSummary, error) {
	if s.Persistence == nil {
		return nil, errors.New("persistence is not configured")
	}
	names := s.Persistence.Names(ctx)
	out := make([]WorkflowSummary, 0, len(names))
	for _, name := range names {
		sum := WorkflowSummary{Name: name, ControlNodes: []graph.NodeID{}}
		sess, err := workflow.Open(s.Persistence, s.Config, name, s.Log)
		if err != nil {
			sum.Error = err.Error()
			out = append(out, sum)
			continue
		}
		sum.ControlNodes = append(sum.ControlNodes, sess.ControlNodes()...)
		sum.PresetCount = sess.Service.Store.Len()
		out = append(out, sum)
	}
	return out, nil
}

// ListPresets reports the presets of workflow name from control node node, or
// the first control node when node is 0. Workflows without a control node are
// reported without an active preset.
func (s *Service) ListPresets(ctx context.Context, name string, node int) (PresetList, error) {
	if s.Persistence == nil {
		return PresetList{}, errors.New("persistence is not configured")
	}
	sess, err := workflow.Open(s.Persistence, s.Config, name, s.Log)
	if err != nil {
		return PresetList{}, err
	}
	id, err := sess.Node(node)
	if err != nil && (node != 0 || !errors.Is(err, app.ErrNoControlNode)) {
		return PresetList{}, err
	}

	report, err := sess.Service.Report(id)
	if err != nil {
		return PresetList{}, err
	}
	list := PresetList{
		Workflow: name,
		Node:     id,
		Current:  report.Current,
		Linked:   report.Linked,
		Presets:  make([]PresetDTO, 0, len(report.Items)),
	}
	for _, item := range report.Items {
		list.Presets = append(list.Presets, toDTO(item))
	}
	return list, nil
}

// Do runs one preset action and saves the workflow.
func (s *Service) Do(ctx context.Context, opts ActionOptions) (preset.Result, error) {
	if s.Persistence == nil {
		return preset.Result{}, errors.New("persistence is not configured")
	}
	if opts.Action == preset.Rename && opts.Name == "" {
		return preset.Result{}, errors.New("a name is required to rename a preset")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := &preset.Preset{
		Persistence: s.Persistence,
		Config:      s.Config,
		Log:         s.Log,
		Workflow:    opts.Workflow,
		Node:        opts.Node,
		Action:      opts.Action,
		Index:       opts.Index,
		To:          opts.To,
		Name:        opts.Name,
		Prune:       opts.Prune,
	}
	r.Policy = presets.Options{
		OnMissingNode:   presets.Policy(opts.OnMissingNode),
		IndexOutOfRange: presets.Policy(opts.IndexOutOfRange),
	}
	return r.Run(ctx)
}

func toDTO(item app.ReportItem) PresetDTO {
	dto := PresetDTO{
		Index:      item.Index,
		Name:       item.Name,
		Active:     item.Active,
		Nodes:      item.Nodes,
		Missing:    item.Missing,
		MissingIDs: item.MissingIDs,
	}
	if !item.UpdatedAt.IsZero() {
		dto.Updated = item.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

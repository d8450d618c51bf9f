package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/index"
	"tableflip.dev/presetswitch/pkg/panel"
	"tableflip.dev/presetswitch/pkg/preset"
	"tableflip.dev/presetswitch/pkg/reorder"
	"tableflip.dev/presetswitch/pkg/resolve"
)

var (
	// ErrNoControlNode is returned when a control node id is not in the graph.
	ErrNoControlNode = errors.New("app: control node not found")
	// ErrNoPrompter is returned when a rename needs a prompt and none is
	// available.
	ErrNoPrompter = errors.New("app: prompt unavailable, rename aborted")

	errNoStore = errors.New("app: no preset store configured")
)

// DefaultControlTypes are the node types that host the preset panel.
func DefaultControlTypes() []string {
	return []string{"PresetSwitch", "WorkflowPresetSwitch"}
}

// Service records and applies presets against a graph and keeps the panel
// state of every control node. UIs and CLIs share it.
//
// All methods serialize on one lock. Prompter callbacks are invoked with the
// lock released.
type Service struct {
	Graph    graph.Graph
	Store    *preset.Store
	Resolver *resolve.Resolver
	Prompter Prompter
	Log      *slog.Logger

	// Now drives the double-click window of the panel controllers.
	Now          func() time.Time
	DoubleClick  time.Duration
	ControlTypes []string

	mu       sync.Mutex
	sessions map[graph.NodeID]*session
}

// session is the unpersisted state a control node carries.
type session struct {
	applied     bool
	lastApplied int

	drag      *reorder.Controller
	rows      []panel.Row
	signature string
}

// ApplyResult describes one apply.
type ApplyResult struct {
	Index   int
	Applied int
	Missing int
}

// PanelView is what a host needs to draw one control node.
type PanelView struct {
	Node      graph.NodeID
	Current   int
	Linked    bool
	Rows      []panel.Row
	Signature string
	Drag      reorder.State
}

func (s *Service) log() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func (s *Service) resolver() *resolve.Resolver {
	if s.Resolver == nil {
		s.Resolver = resolve.New(s.Graph)
	}
	return s.Resolver
}

func (s *Service) session(id graph.NodeID) *session {
	if s.sessions == nil {
		s.sessions = map[graph.NodeID]*session{}
	}
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{drag: &reorder.Controller{Now: s.Now, DoubleClick: s.DoubleClick}}
		s.sessions[id] = sess
	}
	return sess
}

func (s *Service) controlNode(id graph.NodeID) (graph.Node, *session, error) {
	if s.Store == nil {
		return nil, nil, errNoStore
	}
	n, ok := s.Graph.NodeByID(id)
	if !ok {
		return nil, nil, fmt.Errorf("%w: node %d", ErrNoControlNode, id)
	}
	return n, s.session(id), nil
}

// IsControl reports whether n hosts a preset panel.
func (s *Service) IsControl(n graph.Node) bool {
	types := s.ControlTypes
	if types == nil {
		types = DefaultControlTypes()
	}
	for _, t := range types {
		if n.Type() == t {
			return true
		}
	}
	return false
}

// ControlNodes returns the ids of every control node in the graph.
func (s *Service) ControlNodes() []graph.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []graph.NodeID
	for _, n := range s.Graph.Nodes() {
		if s.IsControl(n) {
			out = append(out, n.ID())
		}
	}
	return out
}

// FirstControlNode returns the first control node in file order.
func (s *Service) FirstControlNode() (graph.NodeID, error) {
	ids := s.ControlNodes()
	if len(ids) == 0 {
		return 0, ErrNoControlNode
	}
	return ids[0], nil
}

// Apply pushes the preset at i onto the live nodes.
func (s *Service) Apply(i int) error {
	_, err := s.ApplyDetailed(i)
	return err
}

// ApplyDetailed is Apply with counts.
func (s *Service) ApplyDetailed(i int) (ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(i)
}

func (s *Service) apply(i int) (ApplyResult, error) {
	if s.Store == nil {
		return ApplyResult{}, errNoStore
	}
	idx := index.Normalize(i)
	res := ApplyResult{Index: idx}
	p, ok := s.Store.Get(idx)
	if !ok {
		if s.Store.Options().ReportOutOfRange() {
			s.log().Warn("preset not found", "index", idx)
		}
		return res, fmt.Errorf("%w: #%d", preset.ErrNotFound, idx)
	}

	ids := make([]graph.NodeID, 0, len(p.Nodes))
	for id := range p.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	for _, id := range ids {
		n, ok := s.Graph.NodeByID(id)
		if !ok {
			res.Missing++
			continue
		}
		p.Nodes[id].ApplyTo(n)
		res.Applied++
	}
	if res.Missing > 0 && s.Store.Options().ReportMissing() {
		s.log().Warn("preset skipped missing nodes", "index", idx, "missing", res.Missing)
	}
	s.Graph.MarkDirty()
	s.log().Debug("applied preset", "index", idx, "nodes", res.Applied)
	return res, nil
}

// Record snapshots every live node into the preset at i and returns the index
// actually written.
func (s *Service) Record(i int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(i)
}

func (s *Service) record(i int) (int, error) {
	if s.Store == nil {
		return 0, errNoStore
	}
	nodes := map[graph.NodeID]preset.NodeState{}
	for _, n := range s.Graph.Nodes() {
		nodes[n.ID()] = preset.Capture(n)
	}
	written, err := s.Store.Record(i, nodes)
	if err != nil {
		return 0, err
	}
	s.log().Info("recorded preset", "index", written, "nodes", len(nodes))
	return written, nil
}

// SwitchTo makes i the active preset of control node id: optionally writes it
// into the node's local field (never when the index input is linked), applies
// it and updates the last-applied marker.
func (s *Service) SwitchTo(id graph.NodeID, i int, syncLocal bool) (ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, sess, err := s.controlNode(id)
	if err != nil {
		return ApplyResult{}, err
	}
	return s.switchTo(n, sess, i, syncLocal)
}

func (s *Service) switchTo(n graph.Node, sess *session, i int, syncLocal bool) (ApplyResult, error) {
	idx := index.Normalize(i)
	if syncLocal && !s.resolver().Linked(n) {
		s.resolver().SetLocal(n, idx)
	}
	res, err := s.apply(idx)
	sess.applied = true
	sess.lastApplied = idx
	s.refresh(n, sess)
	return res, err
}

// AutoApply applies the effective index of control node id when it differs
// from the last one applied. present is false when the node is gone.
func (s *Service) AutoApply(id graph.NodeID) (applied, present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, sess, err := s.controlNode(id)
	if err != nil {
		return false, false
	}
	current := s.resolver().Effective(n)
	if sess.applied && sess.lastApplied == current {
		s.refresh(n, sess)
		return false, true
	}
	// The marker moves even when the preset is absent so a missing index is
	// reported once, not on every tick.
	_, _ = s.apply(current)
	sess.applied = true
	sess.lastApplied = current
	s.refresh(n, sess)
	return true, true
}

// Forget drops the session state of a control node that left the graph.
func (s *Service) Forget(id graph.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Reload swaps in the store of a reloaded document. Sessions keep their
// last-applied markers so only a changed index is re-applied.
func (s *Service) Reload(st *preset.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Store = st
	for _, sess := range s.sessions {
		sess.signature = ""
		sess.drag.Reset()
	}
}

// Refresh rebuilds the rows of control node id and reports whether they
// changed.
func (s *Service) Refresh(id graph.NodeID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, sess, err := s.controlNode(id)
	if err != nil {
		return false, err
	}
	return s.refresh(n, sess), nil
}

func (s *Service) refresh(n graph.Node, sess *session) bool {
	rows, sig := panel.Build(s.resolver().Effective(n), s.Store)
	if sig == sess.signature && sess.rows != nil {
		return false
	}
	sess.rows = rows
	sess.signature = sig
	return true
}

// Panel returns the current panel of control node id.
func (s *Service) Panel(id graph.NodeID) (PanelView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, sess, err := s.controlNode(id)
	if err != nil {
		return PanelView{}, err
	}
	s.refresh(n, sess)
	return PanelView{
		Node:      id,
		Current:   s.resolver().Effective(n),
		Linked:    s.resolver().Linked(n),
		Rows:      append([]panel.Row(nil), sess.rows...),
		Signature: sess.signature,
		Drag:      sess.drag.State(),
	}, nil
}

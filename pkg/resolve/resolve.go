// Package resolve works out which preset index a control node currently
// selects, following its index input upstream when it is linked.
package resolve

import (
	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/index"
)

const (
	// DefaultInput is the name of the control node's index input and field.
	DefaultInput = "preset_index"
)

// DefaultCandidates are the field names checked first on an upstream node.
func DefaultCandidates() []string {
	return []string{"preset_index", "value", "index"}
}

// Resolver reads effective preset indexes from a graph. The zero value of
// Input and Candidates means the defaults.
type Resolver struct {
	Graph      graph.Graph
	Input      string
	Candidates []string
}

// New returns a Resolver over g with the default input and candidates.
func New(g graph.Graph) *Resolver {
	return &Resolver{Graph: g, Input: DefaultInput, Candidates: DefaultCandidates()}
}

func (r *Resolver) input() string {
	if r.Input == "" {
		return DefaultInput
	}
	return r.Input
}

func (r *Resolver) candidates() []string {
	if r.Candidates == nil {
		return DefaultCandidates()
	}
	return r.Candidates
}

// Linked reports whether the index input of n is driven by a link.
func (r *Resolver) Linked(n graph.Node) bool {
	in, ok := graph.FindInput(n, r.input())
	return ok && in.Linked()
}

// Effective returns the index n selects: the upstream value when the index
// input is linked and resolves, else the local field, else 0.
func (r *Resolver) Effective(n graph.Node) int {
	if in, ok := graph.FindInput(n, r.input()); ok && in.Linked() {
		if v, ok := r.FromLink(*in.Link); ok {
			return index.Normalize(v)
		}
	}
	f, ok := graph.FindField(n, r.input())
	if !ok {
		return 0
	}
	return index.Normalize(f.Value)
}

// Local returns the index stored in the local field of n, ignoring links.
func (r *Resolver) Local(n graph.Node) int {
	f, ok := graph.FindField(n, r.input())
	if !ok {
		return 0
	}
	return index.Normalize(f.Value)
}

// SetLocal writes i into the local field of n. It reports false when n has
// no such field.
func (r *Resolver) SetLocal(n graph.Node, i int) bool {
	return n.SetField(r.input(), index.Normalize(i))
}

// FromLink walks upstream from link id and returns the first finite number
// found. Cycles and dangling links are unresolved. The graph is not modified.
func (r *Resolver) FromLink(id graph.LinkID) (float64, bool) {
	w := walk{
		r:     r,
		links: map[graph.LinkID]bool{},
		nodes: map[graph.NodeID]bool{},
	}
	return w.fromLink(id)
}

type walk struct {
	r     *Resolver
	links map[graph.LinkID]bool
	nodes map[graph.NodeID]bool
}

func (w *walk) fromLink(id graph.LinkID) (float64, bool) {
	if w.r.Graph == nil || w.links[id] {
		return 0, false
	}
	w.links[id] = true

	l, ok := w.r.Graph.LinkByID(id)
	if !ok {
		return 0, false
	}
	src, ok := w.r.Graph.NodeByID(l.OriginID)
	if !ok || w.nodes[src.ID()] {
		return 0, false
	}
	w.nodes[src.ID()] = true

	if relay, ok := src.(graph.Relay); ok && relay.IsRelay() {
		up, ok := relay.Upstream()
		if !ok {
			return 0, false
		}
		return w.fromLink(up)
	}
	return w.r.valueOf(src)
}

// valueOf reads a number from a value source: candidate fields in order, then
// any finite field, then any finite raw value.
func (r *Resolver) valueOf(n graph.Node) (float64, bool) {
	fields := n.Fields()
	for _, name := range r.candidates() {
		for _, f := range fields {
			if f.Name != name {
				continue
			}
			if v, ok := index.Finite(f.Value); ok {
				return v, true
			}
			break
		}
	}
	for _, f := range fields {
		if v, ok := index.Finite(f.Value); ok {
			return v, true
		}
	}
	for _, raw := range n.RawValues() {
		if v, ok := index.Finite(raw); ok {
			return v, true
		}
	}
	return 0, false
}

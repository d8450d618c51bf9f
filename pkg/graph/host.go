// Package graph describes the node-graph host that presets operate on.
//
// The interfaces in this file are the capabilities the preset engine consumes
// from an editor: enumerable nodes, lookup by id, link lookup and a redraw
// signal. Document is the workflow-file implementation used by the CLI and
// the terminal panel.
package graph

// NodeID identifies a node inside one graph.
type NodeID int

// LinkID identifies a data link inside one graph.
type LinkID int

// Field is a named value on a node (a widget in the editor).
type Field struct {
	Name  string
	Value any
}

// Input is a node input slot. Link is nil when nothing is connected.
type Input struct {
	Name string
	Link *LinkID
}

// Linked reports whether the input is driven by a link.
func (i Input) Linked() bool {
	return i.Link != nil
}

// Link is a directed data link between two node slots.
type Link struct {
	ID         LinkID
	OriginID   NodeID
	OriginSlot int
	TargetID   NodeID
	TargetSlot int
	Type       string
}

// Graph is the live node graph.
type Graph interface {
	Nodes() []Node
	NodeByID(id NodeID) (Node, bool)
	LinkByID(id LinkID) (Link, bool)
	// MarkDirty signals that node state changed and the host should redraw
	// (and, for file-backed hosts, save).
	MarkDirty()
}

// Node is a live graph node.
type Node interface {
	ID() NodeID
	Type() string

	// Fields lists named values in declaration order.
	Fields() []Field
	// SetField writes a named value. It reports false when the node has no
	// field with that name.
	SetField(name string, value any) bool
	Inputs() []Input
	// RawValues is the positional serialized value list, used as a last
	// resort when reading numbers from nodes with unknown fields.
	RawValues() []any

	Mode() (int, bool)
	SetMode(mode int)
	Bypass() (bool, bool)
	SetBypass(bypass bool)
}

// Relay is implemented by nodes that may pass a single upstream value through
// unchanged (reroute points). Traversals continue through a relay instead of
// reading values from it.
type Relay interface {
	IsRelay() bool
	// Upstream returns the link feeding the relay, if one is connected.
	Upstream() (LinkID, bool)
}

// FindInput returns the input with the given name.
func FindInput(n Node, name string) (Input, bool) {
	for _, in := range n.Inputs() {
		if in.Name == name {
			return in, true
		}
	}
	return Input{}, false
}

// FindField returns the field with the given name.
func FindField(n Node, name string) (Field, bool) {
	for _, f := range n.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

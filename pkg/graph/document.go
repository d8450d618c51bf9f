package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrMalformed is returned when a workflow file cannot be understood.
var ErrMalformed = errors.New("graph: malformed workflow")

type object map[string]json.RawMessage

func (o object) clone() object {
	out := make(object, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

func (o object) decode(key string, v any) (bool, error) {
	raw, ok := o[key]
	if !ok || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return true, nil
}

func (o object) set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	o[key] = raw
	return nil
}

// Document is a workflow file held in memory. It implements Graph and keeps
// every key it does not interpret so a load/save cycle does not lose data.
//
// A Document is not safe for concurrent use; app.Service serializes access.
type Document struct {
	schema *Schema

	rest  object
	extra object

	nodes []*DocNode
	byID  map[NodeID]*DocNode

	links        map[LinkID]Link
	linkOrder    []LinkID
	linksRaw     json.RawMessage
	linksChanged bool

	dirty bool
}

// NewDocument returns an empty workflow. A nil schema means DefaultSchema.
func NewDocument(schema *Schema) *Document {
	if schema == nil {
		schema = DefaultSchema()
	}
	return &Document{
		schema: schema,
		rest:   object{},
		extra:  object{},
		byID:   map[NodeID]*DocNode{},
		links:  map[LinkID]Link{},
	}
}

// Parse reads a workflow file.
func Parse(data []byte, schema *Schema) (*Document, error) {
	d := NewDocument(schema)
	var top object
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var rawNodes []json.RawMessage
	if _, err := top.decode("nodes", &rawNodes); err != nil {
		return nil, err
	}
	for _, raw := range rawNodes {
		n, err := parseNode(d, raw)
		if err != nil {
			return nil, err
		}
		if _, dup := d.byID[n.id]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %d", ErrMalformed, n.id)
		}
		d.nodes = append(d.nodes, n)
		d.byID[n.id] = n
	}

	if raw, ok := top["links"]; ok {
		if err := d.parseLinks(raw); err != nil {
			return nil, err
		}
		d.linksRaw = raw
	}

	if _, err := top.decode("extra", &d.extra); err != nil {
		return nil, err
	}
	if d.extra == nil {
		d.extra = object{}
	}

	delete(top, "nodes")
	delete(top, "links")
	delete(top, "extra")
	d.rest = top
	return d, nil
}

func (d *Document) parseLinks(raw json.RawMessage) error {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("%w: links: %v", ErrMalformed, err)
	}
	for _, item := range items {
		l, err := parseLink(item)
		if err != nil {
			return err
		}
		d.links[l.ID] = l
		d.linkOrder = append(d.linkOrder, l.ID)
	}
	return nil
}

func parseLink(raw json.RawMessage) (Link, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var parts []json.RawMessage
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return Link{}, fmt.Errorf("%w: link: %v", ErrMalformed, err)
		}
		if len(parts) < 5 {
			return Link{}, fmt.Errorf("%w: link has %d elements", ErrMalformed, len(parts))
		}
		var l Link
		targets := []any{&l.ID, &l.OriginID, &l.OriginSlot, &l.TargetID, &l.TargetSlot}
		for i, target := range targets {
			if err := json.Unmarshal(parts[i], target); err != nil {
				return Link{}, fmt.Errorf("%w: link element %d: %v", ErrMalformed, i, err)
			}
		}
		if len(parts) > 5 {
			_ = json.Unmarshal(parts[5], &l.Type)
		}
		return l, nil
	}

	var o object
	if err := json.Unmarshal(trimmed, &o); err != nil {
		return Link{}, fmt.Errorf("%w: link: %v", ErrMalformed, err)
	}
	var l Link
	if ok, err := o.decode("id", &l.ID); err != nil || !ok {
		return Link{}, fmt.Errorf("%w: link without id", ErrMalformed)
	}
	if _, err := o.decode("origin_id", &l.OriginID); err != nil {
		return Link{}, err
	}
	if _, err := o.decode("origin_slot", &l.OriginSlot); err != nil {
		return Link{}, err
	}
	if _, err := o.decode("target_id", &l.TargetID); err != nil {
		return Link{}, err
	}
	if _, err := o.decode("target_slot", &l.TargetSlot); err != nil {
		return Link{}, err
	}
	_, _ = o.decode("type", &l.Type)
	return l, nil
}

// MarshalJSON writes the workflow back in the editor's format.
func (d *Document) MarshalJSON() ([]byte, error) {
	top := d.rest.clone()

	nodes := make([]json.RawMessage, 0, len(d.nodes))
	for _, n := range d.nodes {
		raw, err := n.marshal()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, raw)
	}
	if err := top.set("nodes", nodes); err != nil {
		return nil, err
	}

	switch {
	case d.linksChanged || d.linksRaw == nil:
		links := make([][]any, 0, len(d.linkOrder))
		for _, id := range d.linkOrder {
			l := d.links[id]
			links = append(links, []any{l.ID, l.OriginID, l.OriginSlot, l.TargetID, l.TargetSlot, l.Type})
		}
		if err := top.set("links", links); err != nil {
			return nil, err
		}
	default:
		top["links"] = d.linksRaw
	}

	if err := top.set("extra", d.extra); err != nil {
		return nil, err
	}
	return json.Marshal(top)
}

// Nodes returns the live nodes in file order.
func (d *Document) Nodes() []Node {
	out := make([]Node, 0, len(d.nodes))
	for _, n := range d.nodes {
		out = append(out, n)
	}
	return out
}

// NodeByID looks a node up by id.
func (d *Document) NodeByID(id NodeID) (Node, bool) {
	n, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	return n, true
}

// LinkByID looks a link up by id.
func (d *Document) LinkByID(id LinkID) (Link, bool) {
	l, ok := d.links[id]
	return l, ok
}

// MarkDirty flags the document as changed.
func (d *Document) MarkDirty() { d.dirty = true }

// Dirty reports whether the document changed since the last ClearDirty.
func (d *Document) Dirty() bool { return d.dirty }

// ClearDirty resets the change flag, typically after a save.
func (d *Document) ClearDirty() { d.dirty = false }

// Schema returns the schema used to interpret node values.
func (d *Document) Schema() *Schema { return d.schema }

// Extra returns a value from the document's extension storage.
func (d *Document) Extra(key string) (json.RawMessage, bool) {
	raw, ok := d.extra[key]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), raw...), true
}

// SetExtra writes a value into the document's extension storage.
func (d *Document) SetExtra(key string, raw json.RawMessage) error {
	if !json.Valid(raw) {
		return fmt.Errorf("graph: extra %q: invalid json", key)
	}
	d.extra[key] = append(json.RawMessage(nil), raw...)
	d.dirty = true
	return nil
}

// Replace swaps the contents of d for those of other, keeping d's identity so
// holders of d observe the reloaded graph.
func (d *Document) Replace(other *Document) {
	schema := d.schema
	*d = *other
	d.schema = schema
	for _, n := range d.nodes {
		n.doc = d
	}
}

// AddNode appends a node with the given positional widget values.
func (d *Document) AddNode(id NodeID, nodeType string, values ...any) *DocNode {
	mode := 0
	n := &DocNode{
		doc:    d,
		id:     id,
		typ:    nodeType,
		mode:   &mode,
		values: append([]any(nil), values...),
		rest:   object{},
	}
	if old, ok := d.byID[id]; ok {
		d.removeNode(old.id)
	}
	d.nodes = append(d.nodes, n)
	d.byID[id] = n
	d.bumpCounter("last_node_id", int(id))
	d.dirty = true
	return n
}

// RemoveNode deletes a node. Links touching it are left dangling, as an editor
// would leave them until it cleans up.
func (d *Document) RemoveNode(id NodeID) bool {
	if _, ok := d.byID[id]; !ok {
		return false
	}
	d.removeNode(id)
	d.dirty = true
	return true
}

func (d *Document) removeNode(id NodeID) {
	delete(d.byID, id)
	for i, n := range d.nodes {
		if n.id == id {
			d.nodes = append(d.nodes[:i], d.nodes[i+1:]...)
			return
		}
	}
}

// Connect links origin's first output to the named input of target, creating
// the input if needed, and returns the new link id.
func (d *Document) Connect(origin, target NodeID, input string) (LinkID, error) {
	t, ok := d.byID[target]
	if !ok {
		return 0, fmt.Errorf("graph: connect: target %d not found", target)
	}
	id := d.nextLinkID()
	slot := -1
	for i, in := range t.inputs {
		if in.Name == input {
			slot = i
			break
		}
	}
	if slot < 0 {
		t.inputs = append(t.inputs, Input{Name: input})
		t.inputsRaw = append(t.inputsRaw, object{})
		slot = len(t.inputs) - 1
	}
	linkID := id
	t.inputs[slot].Link = &linkID

	d.links[id] = Link{ID: id, OriginID: origin, TargetID: target, TargetSlot: slot, Type: "*"}
	d.linkOrder = append(d.linkOrder, id)
	d.linksChanged = true
	d.bumpCounter("last_link_id", int(id))
	d.dirty = true
	return id, nil
}

// Disconnect clears the named input of target.
func (d *Document) Disconnect(target NodeID, input string) bool {
	t, ok := d.byID[target]
	if !ok {
		return false
	}
	for i, in := range t.inputs {
		if in.Name == input && in.Link != nil {
			t.inputs[i].Link = nil
			d.dirty = true
			return true
		}
	}
	return false
}

func (d *Document) nextLinkID() LinkID {
	ids := make([]int, 0, len(d.links))
	for id := range d.links {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	if len(ids) == 0 {
		return 1
	}
	return LinkID(ids[len(ids)-1] + 1)
}

func (d *Document) bumpCounter(key string, v int) {
	var current int
	if _, err := d.rest.decode(key, &current); err != nil {
		current = 0
	}
	if v > current {
		_ = d.rest.set(key, v)
	}
}

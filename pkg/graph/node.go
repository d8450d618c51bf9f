package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DocNode is a node of a Document.
type DocNode struct {
	doc *Document

	id     NodeID
	typ    string
	mode   *int
	bypass *bool

	inputs    []Input
	inputsRaw []object

	values     []any
	named      []Field
	objectForm bool

	rest object
}

var (
	_ Node  = (*DocNode)(nil)
	_ Relay = (*DocNode)(nil)
	_ Graph = (*Document)(nil)
)

func parseNode(d *Document, raw json.RawMessage) (*DocNode, error) {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("%w: node: %v", ErrMalformed, err)
	}
	n := &DocNode{doc: d}
	if ok, err := o.decode("id", &n.id); err != nil || !ok {
		return nil, fmt.Errorf("%w: node without numeric id", ErrMalformed)
	}
	if _, err := o.decode("type", &n.typ); err != nil {
		return nil, err
	}

	var mode int
	if ok, err := o.decode("mode", &mode); err == nil && ok {
		n.mode = &mode
	}
	var bypass bool
	if ok, err := o.decode("bypass", &bypass); err == nil && ok {
		n.bypass = &bypass
	}

	var inputs []object
	if _, err := o.decode("inputs", &inputs); err != nil {
		return nil, err
	}
	for _, in := range inputs {
		var name string
		_, _ = in.decode("name", &name)
		var link LinkID
		input := Input{Name: name}
		if ok, err := in.decode("link", &link); err == nil && ok {
			l := link
			input.Link = &l
		}
		n.inputs = append(n.inputs, input)
		n.inputsRaw = append(n.inputsRaw, in)
	}

	if raw, ok := o["widgets_values"]; ok {
		if err := n.parseValues(raw); err != nil {
			return nil, err
		}
	}

	for _, k := range []string{"id", "type", "mode", "bypass", "inputs", "widgets_values"} {
		delete(o, k)
	}
	n.rest = o
	return n, nil
}

func (n *DocNode) parseValues(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if trimmed[0] == '[' {
		if err := dec.Decode(&n.values); err != nil {
			return fmt.Errorf("%w: node %d widgets_values: %v", ErrMalformed, n.id, err)
		}
		return nil
	}

	// Object form keeps key order, which is declaration order in the editor.
	n.objectForm = true
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: node %d widgets_values: %v", ErrMalformed, n.id, err)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: node %d widgets_values: %v", ErrMalformed, n.id, err)
		}
		key, _ := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("%w: node %d widgets_values[%q]: %v", ErrMalformed, n.id, key, err)
		}
		n.named = append(n.named, Field{Name: key, Value: v})
	}
	return nil
}

func (n *DocNode) marshal() (json.RawMessage, error) {
	o := n.rest.clone()
	if err := o.set("id", n.id); err != nil {
		return nil, err
	}
	if err := o.set("type", n.typ); err != nil {
		return nil, err
	}
	if n.mode != nil {
		if err := o.set("mode", *n.mode); err != nil {
			return nil, err
		}
	}
	if n.bypass != nil {
		if err := o.set("bypass", *n.bypass); err != nil {
			return nil, err
		}
	}

	if len(n.inputs) > 0 {
		inputs := make([]object, 0, len(n.inputs))
		for i, in := range n.inputs {
			obj := object{}
			if i < len(n.inputsRaw) && n.inputsRaw[i] != nil {
				obj = n.inputsRaw[i].clone()
			}
			if err := obj.set("name", in.Name); err != nil {
				return nil, err
			}
			if err := obj.set("link", in.Link); err != nil {
				return nil, err
			}
			inputs = append(inputs, obj)
		}
		if err := o.set("inputs", inputs); err != nil {
			return nil, err
		}
	}

	switch {
	case n.objectForm:
		raw, err := marshalOrdered(n.named)
		if err != nil {
			return nil, err
		}
		o["widgets_values"] = raw
	case n.values != nil:
		if err := o.set("widgets_values", n.values); err != nil {
			return nil, err
		}
	}
	return json.Marshal(o)
}

func marshalOrdered(fields []Field) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ID implements Node.
func (n *DocNode) ID() NodeID { return n.id }

// Type implements Node.
func (n *DocNode) Type() string { return n.typ }

// Fields pairs widgets_values with the widget names the schema knows for
// this node type. Object-form values are already named.
func (n *DocNode) Fields() []Field {
	if n.objectForm {
		return append([]Field(nil), n.named...)
	}
	names := n.doc.schema.widgetNames(n.typ)
	fields := make([]Field, 0, len(names))
	for i, name := range names {
		if i >= len(n.values) {
			break
		}
		fields = append(fields, Field{Name: name, Value: n.values[i]})
	}
	return fields
}

// SetField implements Node.
func (n *DocNode) SetField(name string, value any) bool {
	if n.objectForm {
		for i, f := range n.named {
			if f.Name == name {
				n.named[i].Value = value
				n.doc.dirty = true
				return true
			}
		}
		return false
	}
	for i, candidate := range n.doc.schema.widgetNames(n.typ) {
		if candidate != name {
			continue
		}
		for len(n.values) <= i {
			n.values = append(n.values, nil)
		}
		n.values[i] = value
		n.doc.dirty = true
		return true
	}
	return false
}

// Inputs implements Node.
func (n *DocNode) Inputs() []Input {
	return append([]Input(nil), n.inputs...)
}

// RawValues implements Node.
func (n *DocNode) RawValues() []any {
	if n.objectForm {
		out := make([]any, 0, len(n.named))
		for _, f := range n.named {
			out = append(out, f.Value)
		}
		return out
	}
	return append([]any(nil), n.values...)
}

// Mode implements Node.
func (n *DocNode) Mode() (int, bool) {
	if n.mode == nil {
		return 0, false
	}
	return *n.mode, true
}

// SetMode implements Node.
func (n *DocNode) SetMode(mode int) {
	n.mode = &mode
	n.doc.dirty = true
}

// Bypass implements Node.
func (n *DocNode) Bypass() (bool, bool) {
	if n.bypass == nil {
		return false, false
	}
	return *n.bypass, true
}

// SetBypass implements Node.
func (n *DocNode) SetBypass(bypass bool) {
	n.bypass = &bypass
	n.doc.dirty = true
}

// IsRelay implements Relay.
func (n *DocNode) IsRelay() bool {
	return n.doc.schema.isRelay(n.typ)
}

// Upstream implements Relay: a relay forwards its first input.
func (n *DocNode) Upstream() (LinkID, bool) {
	if len(n.inputs) == 0 || n.inputs[0].Link == nil {
		return 0, false
	}
	return *n.inputs[0].Link, true
}

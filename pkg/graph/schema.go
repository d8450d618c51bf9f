package graph

// Schema carries the per-type knowledge a workflow file does not: the widget
// names behind each position of widgets_values, and which node types relay
// their input.
type Schema struct {
	Widgets map[string][]string
	Relays  map[string]bool
}

// DefaultSchema knows the preset control node, the common primitive value
// nodes and the Reroute relay.
func DefaultSchema() *Schema {
	return &Schema{
		Widgets: map[string][]string{
			"PresetSwitch":         {"preset_index"},
			"WorkflowPresetSwitch": {"preset_index"},
			"PrimitiveNode":        {"value", "control_after_generate"},
			"PrimitiveInt":         {"value", "control_after_generate"},
			"Int":                  {"value"},
		},
		Relays: map[string]bool{
			"Reroute": true,
		},
	}
}

// WithRelays returns a copy of s whose relay set is replaced by types.
func (s *Schema) WithRelays(types ...string) *Schema {
	out := s.clone()
	out.Relays = make(map[string]bool, len(types))
	for _, t := range types {
		out.Relays[t] = true
	}
	return out
}

// WithWidgets returns a copy of s that names the widgets of nodeType.
func (s *Schema) WithWidgets(nodeType string, names ...string) *Schema {
	out := s.clone()
	out.Widgets[nodeType] = append([]string(nil), names...)
	return out
}

func (s *Schema) clone() *Schema {
	out := &Schema{
		Widgets: make(map[string][]string, len(s.Widgets)),
		Relays:  make(map[string]bool, len(s.Relays)),
	}
	for k, v := range s.Widgets {
		out.Widgets[k] = v
	}
	for k, v := range s.Relays {
		out.Relays[k] = v
	}
	return out
}

func (s *Schema) widgetNames(nodeType string) []string {
	if s == nil {
		return nil
	}
	return s.Widgets[nodeType]
}

func (s *Schema) isRelay(nodeType string) bool {
	if s == nil {
		return false
	}
	return s.Relays[nodeType]
}

// Package preset keeps the ordered, contiguously indexed collection of node
// state snapshots stored inside a workflow document.
package preset

import (
	"fmt"

	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/index"
)

const (
	// ExtraKey is the document extension key the store lives under.
	ExtraKey = "comfyui_workflow_state_presets"
	// Version is the schema tag written with the store.
	Version = 1
	// DefaultNameFormat is the auto-generated preset name. Documents written by
	// the editor extension use this exact text, so it doubles as the marker for
	// "never renamed".
	DefaultNameFormat = "Preset %d 预设"
)

// Policy selects how a recoverable problem is reported.
type Policy string

const (
	// PolicySkip skips missing nodes and reports how many were skipped.
	PolicySkip Policy = "skip"
	// PolicyWarn reports the problem as a warning.
	PolicyWarn Policy = "warn"
	// PolicySilent does not report.
	PolicySilent Policy = "silent"
)

// Options are the store-wide policy flags.
type Options struct {
	OnMissingNode   Policy `json:"onMissingNode"`
	IndexOutOfRange Policy `json:"indexOutOfRange"`
}

// DefaultOptions returns the options a new store starts with.
func DefaultOptions() Options {
	return Options{OnMissingNode: PolicySkip, IndexOutOfRange: PolicyWarn}
}

// ReportMissing reports whether skipped nodes should be reported.
func (o Options) ReportMissing() bool {
	return o.OnMissingNode == PolicySkip
}

// ReportOutOfRange reports whether applying an absent preset should warn.
func (o Options) ReportOutOfRange() bool {
	return o.IndexOutOfRange == PolicyWarn
}

// NodeState is the captured mode/bypass of one node. A nil field was not
// captured and is left alone on apply.
type NodeState struct {
	Mode   *int  `json:"mode"`
	Bypass *bool `json:"bypass"`
}

// Capture snapshots the state of a live node.
func Capture(n graph.Node) NodeState {
	var s NodeState
	if mode, ok := n.Mode(); ok {
		s.Mode = &mode
	}
	if bypass, ok := n.Bypass(); ok {
		s.Bypass = &bypass
	}
	return s
}

// ApplyTo writes the captured fields onto n.
func (s NodeState) ApplyTo(n graph.Node) {
	if s.Mode != nil {
		n.SetMode(*s.Mode)
	}
	if s.Bypass != nil {
		n.SetBypass(*s.Bypass)
	}
}

// Preset is one named snapshot.
type Preset struct {
	Name      string                     `json:"name"`
	Nodes     map[graph.NodeID]NodeState `json:"nodes"`
	UpdatedAt int64                      `json:"updated_at"`
}

// Data is the persisted layout of the store.
type Data struct {
	Version int            `json:"version"`
	Presets map[int]Preset `json:"presets"`
	Options Options        `json:"options"`
}

// DefaultName returns the generated name for index using format.
func DefaultName(format string, i int) string {
	if format == "" {
		format = DefaultNameFormat
	}
	return fmt.Sprintf(format, index.Normalize(i))
}

// IsDefaultName reports whether name is exactly the generated name for i.
// A custom name that happens to match another index's pattern is not special
// cased; it is treated like any other custom name.
func IsDefaultName(format, name string, i int) bool {
	return name == DefaultName(format, i)
}

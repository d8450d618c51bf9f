package teaui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/muesli/reflow/ansi"

	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/store"
	"tableflip.dev/presetswitch/pkg/workflow"
)

const sample = `{
  "nodes": [
    {"id": 1, "type": "KSampler", "mode": 0},
    {"id": 10, "type": "PresetSwitch", "mode": 0, "widgets_values": [0]}
  ],
  "links": [],
  "extra": {}
}`

func stripANSI(s string) string {
	var b strings.Builder
	ansiSeq := false
	for _, r := range s {
		if r == ansi.Marker {
			ansiSeq = true
			continue
		}
		if ansiSeq {
			if ansi.IsTerminator(r) {
				ansiSeq = false
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

// newModel opens a workflow with presets 0 (sampler on) and 1 (sampler
// muted), selecting preset 0.
func newModel(t *testing.T) (*Model, store.Persistence, *fixedClock) {
	t.Helper()
	p, err := store.Load(store.Dir(t.TempDir()))
	if err != nil {
		t.Fatalf("load persistence: %v", err)
	}
	if err := p.Import("scene", []byte(sample), nil); err != nil {
		t.Fatalf("import: %v", err)
	}
	s, err := workflow.Open(p, nil, "scene", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	clock := &fixedClock{t: time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)}
	s.Service.Now = clock.now

	if _, err := s.Service.Record(0); err != nil {
		t.Fatalf("record: %v", err)
	}
	n, _ := s.Doc.NodeByID(1)
	n.SetMode(2)
	if _, err := s.Service.Record(1); err != nil {
		t.Fatalf("record: %v", err)
	}
	n.SetMode(0)

	m := New(context.Background(), s, 10)
	t.Cleanup(m.cancel)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, p, clock
}

func press(m *Model, key tea.KeyPressMsg) {
	m.Update(key)
}

func runeKey(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func click(m *Model, row int) {
	y := rowsTop + row
	m.Update(tea.MouseClickMsg(tea.Mouse{X: 4, Y: y, Button: tea.MouseLeft}))
	m.Update(tea.MouseReleaseMsg(tea.Mouse{X: 4, Y: y, Button: tea.MouseLeft}))
}

func storedMode(t *testing.T, p store.Persistence, id graph.NodeID) int {
	t.Helper()
	d, err := p.Load("scene", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	n, ok := d.NodeByID(id)
	if !ok {
		t.Fatalf("node %d missing", id)
	}
	mode, _ := n.Mode()
	return mode
}

func TestViewRendersRows(t *testing.T) {
	m, _, _ := newModel(t)

	view := stripANSI(m.View())
	lines := strings.Split(view, "\n")
	if !strings.Contains(lines[0], "scene · node 10") {
		t.Fatalf("expected title on first line; view=%q", view)
	}
	if !strings.Contains(lines[1], "index 0") {
		t.Fatalf("expected status on second line; view=%q", view)
	}
	if !strings.Contains(lines[rowsTop], "▶ 0.Preset 0 预设") {
		t.Fatalf("expected active first row at rowsTop; view=%q", view)
	}
	if !strings.Contains(lines[rowsTop+1], "1.Preset 1 预设") {
		t.Fatalf("expected second row; view=%q", view)
	}
	if !strings.Contains(view, "drag to reorder") {
		t.Fatalf("expected help line; view=%q", view)
	}
}

func TestKeysDriveButtons(t *testing.T) {
	m, p, _ := newModel(t)

	press(m, tea.KeyPressMsg{Code: tea.KeyRight})
	if m.view.Current != 1 {
		t.Fatalf("expected preset 1 after right, got %d", m.view.Current)
	}
	if got := storedMode(t, p, 1); got != 2 {
		t.Fatalf("expected the switch to be saved, sampler mode %d", got)
	}

	press(m, runeKey('a'))
	if got := m.svc.Store.Len(); got != 3 {
		t.Fatalf("expected 3 presets after add, got %d", got)
	}
	if m.view.Current != 2 {
		t.Fatalf("expected the new preset to be selected, got %d", m.view.Current)
	}

	press(m, runeKey('d'))
	if got := m.svc.Store.Len(); got != 2 {
		t.Fatalf("expected 2 presets after delete, got %d", got)
	}
	if !strings.Contains(m.status, "deleted preset") {
		t.Fatalf("expected delete status, got %q", m.status)
	}

	press(m, tea.KeyPressMsg{Code: tea.KeyLeft})
	if m.view.Current != 0 {
		t.Fatalf("expected preset 0 after left, got %d", m.view.Current)
	}
}

func TestDragReorders(t *testing.T) {
	m, p, _ := newModel(t)
	if err := m.svc.Rename(10, 0, "Day"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	m.Update(tea.MouseClickMsg(tea.Mouse{X: 4, Y: rowsTop, Button: tea.MouseLeft}))
	m.Update(tea.MouseMotionMsg(tea.Mouse{X: 4, Y: rowsTop + 1}))
	if !m.view.Drag.Dragging || m.view.Drag.Over != 1 {
		t.Fatalf("expected drag over row 1, got %+v", m.view.Drag)
	}
	m.Update(tea.MouseReleaseMsg(tea.Mouse{X: 4, Y: rowsTop + 1, Button: tea.MouseLeft}))

	if got := m.svc.Store.Name(1); got != "Day" {
		t.Fatalf("expected Day at index 1, got %q", got)
	}
	if m.view.Current != 1 {
		t.Fatalf("expected the moved preset to stay selected, got %d", m.view.Current)
	}

	s, err := workflow.Open(p, nil, "scene", nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := s.Service.Store.Name(1); got != "Day" {
		t.Fatalf("expected the move to be saved, got %q", got)
	}
}

func TestClickOutsideRowsIsIgnored(t *testing.T) {
	m, _, _ := newModel(t)
	m.Update(tea.MouseClickMsg(tea.Mouse{X: 4, Y: 0, Button: tea.MouseLeft}))
	if m.view.Drag.Dragging {
		t.Fatalf("a press on the title must not start a drag")
	}
	click(m, 5)
	if m.view.Current != 0 {
		t.Fatalf("selection changed by an outside click")
	}
}

func TestDoubleClickRenames(t *testing.T) {
	m, _, clock := newModel(t)

	click(m, 1)
	if m.view.Current != 1 {
		t.Fatalf("single click should select, got %d", m.view.Current)
	}
	if m.prompt != nil {
		t.Fatalf("single click must not open the prompt")
	}
	clock.t = clock.t.Add(100 * time.Millisecond)
	click(m, 1)
	if m.prompt == nil {
		t.Fatalf("double click should open the rename prompt")
	}
	if m.prompt.input.Value() != "Preset 1 预设" {
		t.Fatalf("prompt should start with the current name, got %q", m.prompt.input.Value())
	}
	if !strings.Contains(stripANSI(m.View()), "Rename Preset") {
		t.Fatalf("prompt not rendered")
	}

	m.prompt.input.SetValue("Night")
	press(m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.prompt != nil {
		t.Fatalf("enter should close the prompt")
	}
	if got := m.svc.Store.Name(1); got != "Night" {
		t.Fatalf("expected Night, got %q", got)
	}
}

func TestPromptEscapeKeepsName(t *testing.T) {
	m, _, _ := newModel(t)
	press(m, runeKey('e'))
	if m.prompt == nil {
		t.Fatalf("e should open the rename prompt")
	}
	m.prompt.input.SetValue("Discarded")
	press(m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.prompt != nil {
		t.Fatalf("esc should close the prompt")
	}
	if got := m.svc.Store.Name(0); got != "Preset 0 预设" {
		t.Fatalf("name changed on cancel: %q", got)
	}
}

func TestTickAppliesChangedIndex(t *testing.T) {
	m, p, _ := newModel(t)
	m.Update(tickMsg(time.Now()))

	sw, _ := m.session.Doc.NodeByID(10)
	sw.SetField("preset_index", 1)
	m.Update(tickMsg(time.Now()))

	if m.view.Current != 1 {
		t.Fatalf("expected index 1 after tick, got %d", m.view.Current)
	}
	if got := storedMode(t, p, 1); got != 2 {
		t.Fatalf("expected preset 1 applied and saved, sampler mode %d", got)
	}
}

func TestWatchEventReloads(t *testing.T) {
	m, p, _ := newModel(t)
	m.Update(tickMsg(time.Now()))

	d, err := p.Load("scene", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sw, _ := d.NodeByID(10)
	sw.SetField("preset_index", 1)
	if err := p.Save("scene", d); err != nil {
		t.Fatalf("save: %v", err)
	}

	m.Update(watchEventMsg{event: store.Event{Type: store.EventWorkflowChanged, Name: "other"}})
	if m.view.Current != 0 {
		t.Fatalf("events for other workflows must be ignored")
	}

	m.Update(watchEventMsg{event: store.Event{Type: store.EventWorkflowChanged, Name: "scene"}})
	if m.view.Current != 1 {
		t.Fatalf("expected reloaded index 1, got %d", m.view.Current)
	}
	n, _ := m.session.Doc.NodeByID(1)
	if mode, _ := n.Mode(); mode != 2 {
		t.Fatalf("expected preset 1 applied after reload, mode %d", mode)
	}
}

func TestQuit(t *testing.T) {
	m, _, _ := newModel(t)
	_, cmd := m.Update(runeKey('q'))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if m.ctx.Err() == nil {
		t.Fatalf("quit should cancel the model context")
	}
}

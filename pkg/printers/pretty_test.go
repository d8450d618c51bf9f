package printers

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/presetswitch/pkg/app"
	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/panel"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestPanelMarksActiveRow(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	pp := &PrettyPrint{Out: &buf}

	pp.Panel(app.PanelView{
		Node:    graph.NodeID(10),
		Current: 1,
		Rows: []panel.Row{
			{Label: "0.Day", Selectable: true, Index: 0},
			{Label: "1.Night", Selectable: true, Selected: true, Index: 1},
		},
	})

	out := buf.String()
	if !strings.Contains(out, "node 10 · index 1 (local)") {
		t.Fatalf("missing header; out=%q", out)
	}
	if !strings.Contains(out, "▶ 1.Night") {
		t.Fatalf("active row not marked; out=%q", out)
	}
	if !strings.Contains(out, "  0.Day") {
		t.Fatalf("inactive row not padded; out=%q", out)
	}
}

func TestReport(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	pp := &PrettyPrint{Out: &buf, ShowMissing: true}

	pp.Report(app.ReportResult{
		Current: 0,
		Items: []app.ReportItem{
			{Index: 0, Name: "Day", Nodes: 3, Active: true, UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)},
			{Index: 1, Name: "Night", Nodes: 2, Missing: 1, MissingIDs: []graph.NodeID{7}},
		},
		Total: 2,
	})

	out := buf.String()
	for _, want := range []string{"Name", "Day", "Night", "1 (7)", "2024-05-01 12:00", "▶"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in report; out=%q", want, out)
		}
	}
}

func TestReportEmpty(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	(&PrettyPrint{Out: &buf}).Report(app.ReportResult{Current: -1})
	if !strings.Contains(buf.String(), panel.EmptyLabel) {
		t.Fatalf("expected empty label; out=%q", buf.String())
	}
}

func TestTitleWithCount(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	pp := &PrettyPrint{Out: &buf}
	pp.TitleWithCount("scene", 1)
	pp.TitleWithCount("scene", 2)
	if got := buf.String(); got != "scene - 1 preset\nscene - 2 presets\n" {
		t.Fatalf("unexpected titles %q", got)
	}
}

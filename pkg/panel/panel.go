// Package panel builds the row model a control node displays for its presets.
package panel

import (
	"fmt"
	"strings"
)

// EmptyLabel is the single row shown when no preset is recorded.
const EmptyLabel = "No Recorded Presets 暂无已记录状态"

// ActiveMarker prefixes the label of the active row in textual hosts.
const ActiveMarker = "▶ "

// Row is one line of the preset panel.
type Row struct {
	Label      string
	Selectable bool
	Selected   bool
	// Index is the preset index; only meaningful when Selectable.
	Index int
}

// Source is the read side of a preset collection.
type Source interface {
	Indexes() []int
	Name(i int) string
}

// Build returns the rows for src with current marked, plus a signature that
// changes whenever the rendered rows would.
func Build(current int, src Source) ([]Row, string) {
	indexes := src.Indexes()
	if len(indexes) == 0 {
		return []Row{{Label: EmptyLabel}}, fmt.Sprintf("%d::", current)
	}

	rows := make([]Row, 0, len(indexes))
	parts := make([]string, 0, len(indexes))
	for _, i := range indexes {
		name := src.Name(i)
		rows = append(rows, Row{
			Label:      fmt.Sprintf("%d.%s", i, name),
			Selectable: true,
			Selected:   i == current,
			Index:      i,
		})
		parts = append(parts, fmt.Sprintf("%d:%s", i, name))
	}
	return rows, fmt.Sprintf("%d::%s", current, strings.Join(parts, "|"))
}

// Label returns the display text of r, marked when it is the active row.
func Label(r Row) string {
	if r.Selected {
		return ActiveMarker + r.Label
	}
	return r.Label
}

// At returns the row at position pos.
func At(rows []Row, pos int) (Row, bool) {
	if pos < 0 || pos >= len(rows) {
		return Row{}, false
	}
	return rows[pos], true
}

// Position returns the row position showing preset index i, or -1.
func Position(rows []Row, i int) int {
	for pos, r := range rows {
		if r.Selectable && r.Index == i {
			return pos
		}
	}
	return -1
}

package printers

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/mattn/go-isatty"

	"tableflip.dev/presetswitch/pkg/app"
	"tableflip.dev/presetswitch/pkg/panel"
)

type PrettyPrint struct {
	Out io.Writer
	// ShowMissing lists the ids of captured nodes that are gone.
	ShowMissing bool
}

// New returns a printer writing to out. Colour is disabled unless out is a
// terminal.
func New(out io.Writer) *PrettyPrint {
	if f, ok := out.(*os.File); ok {
		fd := f.Fd()
		if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			color.NoColor = true
		}
	}
	return &PrettyPrint{Out: out}
}

var (
	spacing = strings.Repeat(" ", len(panel.ActiveMarker))
)

func (pp *PrettyPrint) out() io.Writer {
	if pp.Out == nil {
		return color.Output
	}
	return pp.Out
}

func (pp *PrettyPrint) NewLine() {
	_, _ = fmt.Fprintln(pp.out(), "")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)
	_, _ = t.Fprintln(pp.out(), title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	_, _ = t.Fprint(pp.out(), title)
	_, _ = c.Fprintf(pp.out(), " - %d", count)

	switch count {
	case 1:
		_, _ = c.Fprintln(pp.out(), " preset")
	default:
		_, _ = c.Fprintln(pp.out(), " presets")
	}
}

// Panel prints the rows of a control node the way the editor lists them.
func (pp *PrettyPrint) Panel(view app.PanelView) {
	f := color.New(color.Faint, color.Italic)
	a := color.New(color.FgHiYellow, color.Bold)
	t := color.New()

	source := "local"
	if view.Linked {
		source = "linked"
	}
	_, _ = f.Fprintf(pp.out(), "node %d · index %d (%s)\n", view.Node, view.Current, source)

	for _, r := range view.Rows {
		switch {
		case !r.Selectable:
			_, _ = f.Fprintf(pp.out(), "%s%s\n", spacing, r.Label)
		case r.Selected:
			_, _ = a.Fprintln(pp.out(), panel.Label(r))
		default:
			_, _ = t.Fprintf(pp.out(), "%s%s\n", spacing, r.Label)
		}
	}
	pp.NewLine()
}

// Report prints one line per preset with its node counts.
func (pp *PrettyPrint) Report(result app.ReportResult) {
	if len(result.Items) == 0 {
		f := color.New(color.Faint, color.Italic)
		_, _ = f.Fprintf(pp.out(), "%s%s\n\n", spacing, panel.EmptyLabel)
		return
	}

	bold := color.New(color.Bold)
	warn := color.New(color.FgHiRed)
	faint := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 48
	tbl.AddRow("", bold.Sprint("#"), bold.Sprint("Name"), bold.Sprint("Nodes"), bold.Sprint("Missing"), bold.Sprint("Updated"))
	for _, item := range result.Items {
		marker := ""
		if item.Active {
			marker = strings.TrimSpace(panel.ActiveMarker)
		}
		missing := faint.Sprint("0")
		if item.Missing > 0 {
			missing = warn.Sprint(item.Missing)
			if pp.ShowMissing {
				missing = warn.Sprint(joinIDs(item))
			}
		}
		tbl.AddRow(marker, item.Index, item.Name, item.Nodes, missing, updated(item.UpdatedAt))
	}
	tbl.RightAlign(1)

	_, _ = fmt.Fprintln(pp.out(), tbl)
	pp.NewLine()
}

// Names prints the stored workflow names.
func (pp *PrettyPrint) Names(names []string) {
	if len(names) == 0 {
		f := color.New(color.Faint, color.Italic)
		_, _ = f.Fprint(pp.out(), " none\n\n")
		return
	}
	for _, n := range names {
		_, _ = fmt.Fprintln(pp.out(), n)
	}
}

func joinIDs(item app.ReportItem) string {
	ids := make([]string, 0, len(item.MissingIDs))
	for _, id := range item.MissingIDs {
		ids = append(ids, strconv.Itoa(int(id)))
	}
	return fmt.Sprintf("%d (%s)", item.Missing, strings.Join(ids, ","))
}

func updated(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

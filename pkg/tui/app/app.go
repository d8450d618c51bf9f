// Package teaui hosts the Bubble Tea program for the preset panel.
package teaui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"

	"tableflip.dev/presetswitch/pkg/app"
	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/panel"
	"tableflip.dev/presetswitch/pkg/reorder"
	"tableflip.dev/presetswitch/pkg/store"
	"tableflip.dev/presetswitch/pkg/tui/theme"
	"tableflip.dev/presetswitch/pkg/watch"
	"tableflip.dev/presetswitch/pkg/workflow"
)

// rowsTop is the screen line of the first preset row: a title and a status
// line come first.
const rowsTop = 2

const helpText = "a add · r record · d delete · ←/→ switch · e rename · drag to reorder · q quit"

type tickMsg time.Time

type watchStartedMsg struct {
	ch     <-chan store.Event
	cancel context.CancelFunc
	err    error
}

type watchEventMsg struct {
	event store.Event
}

type watchStoppedMsg struct{}

// Model is the panel of one control node.
type Model struct {
	session *workflow.Session
	svc     *app.Service
	poller  *watch.Poller
	node    graph.NodeID

	ctx    context.Context
	cancel context.CancelFunc
	theme  theme.Theme

	width  int
	height int

	view    app.PanelView
	prompt  *renamePrompt
	pending []tea.Cmd
	status  string
	failed  bool

	watchCh     <-chan store.Event
	watchCancel context.CancelFunc
}

// New creates the panel model for control node node of s and installs it as
// the service's rename prompter.
func New(parent context.Context, s *workflow.Session, node graph.NodeID) *Model {
	ctx, cancel := context.WithCancel(parent)
	m := &Model{
		session: s,
		svc:     s.Service,
		poller:  s.Poller(),
		node:    node,
		ctx:     ctx,
		cancel:  cancel,
		theme:   theme.Default(),
	}
	if m.poller.Interval <= 0 {
		m.poller.Interval = watch.DefaultInterval
	}
	m.svc.Prompter = m
	m.poller.Watch(node)
	m.refresh()
	return m
}

// Init starts polling and watching the library.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), startWatchCmd(m.ctx, m.session.Persistence))
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.poller.Interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func startWatchCmd(parent context.Context, p store.Persistence) tea.Cmd {
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(parent)
		ch, err := p.Watch(ctx)
		if err != nil {
			cancel()
			return watchStartedMsg{err: err}
		}
		return watchStartedMsg{ch: ch, cancel: cancel}
	}
}

func (m *Model) waitForWatch() tea.Cmd {
	if m.watchCh == nil {
		return nil
	}
	ch := m.watchCh
	return func() tea.Msg {
		if ev, ok := <-ch; ok {
			return watchEventMsg{event: ev}
		}
		return watchStoppedMsg{}
	}
}

func (m *Model) stopWatch() {
	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
	m.watchCh = nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tickMsg:
		m.poller.Tick()
		m.refresh()
		m.save()
		cmds = append(cmds, m.tick())
	case watchStartedMsg:
		if msg.err != nil {
			m.session.Log.Warn("library watch unavailable", "error", msg.err)
			break
		}
		m.watchCh, m.watchCancel = msg.ch, msg.cancel
		cmds = append(cmds, m.waitForWatch())
	case watchEventMsg:
		m.handleWatchEvent(msg.event)
		cmds = append(cmds, m.waitForWatch())
	case watchStoppedMsg:
		m.stopWatch()
	case tea.KeyPressMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	case tea.MouseClickMsg:
		if msg.Mouse().Button == tea.MouseLeft {
			m.pointer(reorder.PointerDown, msg.Mouse().Y)
		}
	case tea.MouseMotionMsg:
		m.pointer(reorder.PointerMove, msg.Mouse().Y)
	case tea.MouseReleaseMsg:
		m.pointer(reorder.PointerUp, msg.Mouse().Y)
	}

	cmds = append(cmds, m.pending...)
	m.pending = nil
	return m, tea.Batch(cmds...)
}

func (m *Model) handleWatchEvent(ev store.Event) {
	if ev.Type == store.EventWorkflowChanged && ev.Name != m.session.Name {
		return
	}
	if m.session.Doc.Dirty() {
		// Local edits win; they are written on the next tick.
		return
	}
	if err := m.session.Reload(); err != nil {
		m.session.Log.Warn("reload failed", "error", err)
		return
	}
	m.poller.Notify(m.node)
	m.refresh()
	m.save()
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if m.prompt != nil {
		done, cmd := m.prompt.update(msg)
		if done {
			m.prompt = nil
			m.refresh()
			m.save()
		}
		return cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.stopWatch()
		m.cancel()
		return tea.Quit
	case "a":
		i, err := m.svc.AddPreset(m.node)
		m.report(err, "added preset %d", i)
	case "r":
		i, err := m.svc.RecordCurrent(m.node)
		m.report(err, "recorded preset %d", i)
	case "d":
		i, err := m.svc.DeleteSelected(m.node)
		m.report(err, "deleted preset, now on %d", i)
	case "left", "h", "up", "k":
		i, err := m.svc.PrevPreset(m.node)
		m.report(err, "switched to preset %d", i)
	case "right", "l", "down", "j":
		i, err := m.svc.NextPreset(m.node)
		m.report(err, "switched to preset %d", i)
	case "enter", "e":
		m.report(m.svc.RenameSelected(m.ctx, m.node), "")
	}
	m.refresh()
	m.save()
	return nil
}

// pointer maps a mouse event at screen line y onto the row list.
func (m *Model) pointer(typ reorder.EventType, y int) {
	if m.prompt != nil {
		return
	}
	row := y - rowsTop
	if row < 0 || row >= len(m.view.Rows) {
		row = -1
	}
	intent, err := m.svc.Pointer(m.ctx, m.node, reorder.Event{Type: typ, Row: row})
	switch intent.Kind {
	case reorder.Select:
		m.report(err, "switched to preset %d", intent.Index)
	case reorder.Move:
		m.report(err, "moved preset %d to %d", intent.From, intent.To)
	case reorder.Rename:
		m.report(err, "")
	}
	m.refresh()
	m.save()
}

func (m *Model) report(err error, format string, args ...any) {
	if err != nil {
		m.status, m.failed = err.Error(), true
		return
	}
	if format != "" {
		m.status, m.failed = fmt.Sprintf(format, args...), false
	}
}

func (m *Model) refresh() {
	view, err := m.svc.Panel(m.node)
	if err != nil {
		m.status, m.failed = err.Error(), true
		return
	}
	m.view = view
}

func (m *Model) save() {
	if _, err := m.session.Save(); err != nil {
		m.status, m.failed = err.Error(), true
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	th := m.theme
	lines := make([]string, 0, len(m.view.Rows)+6)

	lines = append(lines, th.Header.Title.Render(fmt.Sprintf("%s · node %d", m.session.Name, m.node)))
	status := th.Header.Status.Render(fmt.Sprintf("index %d", m.view.Current))
	if m.view.Linked {
		status += " " + th.Header.Linked.Render("(linked)")
	}
	lines = append(lines, status)

	for pos, r := range m.view.Rows {
		lines = append(lines, m.renderRow(pos, r))
	}

	lines = append(lines, "", th.Footer.Help.Render(helpText))
	if m.status != "" {
		style := th.Footer.Info
		if m.failed {
			style = th.Footer.Error
		}
		lines = append(lines, style.Render(m.status))
	}
	if m.prompt != nil {
		lines = append(lines, m.prompt.view(th, m.width))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderRow(pos int, r panel.Row) string {
	th := m.theme
	if !r.Selectable {
		return th.Rows.Empty.Render(m.fit("  " + r.Label))
	}

	prefix := "  "
	style := th.Rows.Normal
	if r.Selected {
		prefix = panel.ActiveMarker
		style = th.Rows.Active
	}
	drag := m.view.Drag
	switch {
	case drag.Dragging && r.Index == drag.From:
		style = style.Inherit(th.Rows.Dragged)
	case drag.Dragging && drag.Moved && r.Index == drag.Over:
		style = style.Inherit(th.Rows.Target)
	}

	idx := lipgloss.NewStyle().
		Foreground(th.IndexColor(pos, len(m.view.Rows))).
		Render(fmt.Sprintf("%d.", r.Index))
	name := strings.TrimPrefix(r.Label, fmt.Sprintf("%d.", r.Index))
	return prefix + idx + style.Render(m.fit(name))
}

// fit truncates s to the terminal width, leaving room for the marker and
// index.
func (m *Model) fit(s string) string {
	if m.width <= 8 {
		return s
	}
	return truncate.StringWithTail(s, uint(m.width-8), "…")
}

// Run launches the panel for control node node of s.
func Run(ctx context.Context, s *workflow.Session, node graph.NodeID) error {
	m := New(ctx, s, node)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	m.stopWatch()
	m.cancel()
	return err
}

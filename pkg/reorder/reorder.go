// Package reorder turns raw pointer events over a preset panel into select,
// rename and move intents.
package reorder

import (
	"fmt"
	"time"

	"tableflip.dev/presetswitch/pkg/panel"
)

// DefaultDoubleClick is the longest gap between two clicks on the same row
// that still counts as a double click.
const DefaultDoubleClick = 320 * time.Millisecond

// EventType is the kind of pointer event.
type EventType int

const (
	PointerDown EventType = iota + 1
	PointerMove
	PointerUp
)

func (t EventType) String() string {
	switch t {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event is a pointer event. Row is the position of the row under the
// pointer, or -1 when the pointer is outside the row list.
type Event struct {
	Type EventType
	Row  int
}

// Kind is what the host should do in response to an event.
type Kind int

const (
	// None means nothing to do.
	None Kind = iota
	// Hover means the drag target changed; redraw.
	Hover
	// Select means apply Index.
	Select
	// Rename means apply Index and open the rename prompt for it.
	Rename
	// Move means move the preset at From to To.
	Move
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Hover:
		return "hover"
	case Select:
		return "select"
	case Rename:
		return "rename"
	case Move:
		return "move"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Intent is the outcome of one event. Consumed reports whether the host
// should stop propagating the event.
type Intent struct {
	Kind     Kind
	Index    int
	From, To int
	Consumed bool
}

// State is a snapshot of the drag state.
type State struct {
	Dragging bool
	From     int
	Over     int
	Moved    bool
}

// Controller is the drag state machine of one panel. The zero value is
// usable and idle. A Controller is not safe for concurrent use; hosts keep
// one per control node.
type Controller struct {
	Now         func() time.Time
	DoubleClick time.Duration

	state State

	lastClick      time.Time
	lastClickIndex int
	clicked        bool
}

// New returns an idle controller using clock now.
func New(now func() time.Time) *Controller {
	return &Controller{Now: now, DoubleClick: DefaultDoubleClick}
}

func (c *Controller) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Controller) window() time.Duration {
	if c.DoubleClick <= 0 {
		return DefaultDoubleClick
	}
	return c.DoubleClick
}

// State returns the current drag state.
func (c *Controller) State() State { return c.state }

// Reset drops any drag in progress and forgets the last click.
func (c *Controller) Reset() {
	c.state = State{}
	c.clicked = false
}

// Handle feeds one event through the state machine.
func (c *Controller) Handle(ev Event, rows []panel.Row) Intent {
	row, onRow := panel.At(rows, ev.Row)
	onRow = onRow && row.Selectable

	switch ev.Type {
	case PointerDown:
		if !onRow {
			return Intent{}
		}
		c.state = State{Dragging: true, From: row.Index, Over: row.Index}
		return Intent{Consumed: true}

	case PointerMove:
		if !c.state.Dragging {
			return Intent{}
		}
		if !onRow {
			return Intent{Consumed: true}
		}
		c.state.Over = row.Index
		if c.state.Over != c.state.From {
			c.state.Moved = true
		}
		return Intent{Kind: Hover, From: c.state.From, To: c.state.Over, Consumed: true}

	case PointerUp:
		if !c.state.Dragging {
			return Intent{}
		}
		drag := c.state
		c.state = State{}

		if drag.Moved && drag.Over != drag.From {
			c.clicked = false
			return Intent{Kind: Move, From: drag.From, To: drag.Over, Index: drag.Over, Consumed: true}
		}
		if !onRow {
			return Intent{}
		}
		return c.click(row.Index)
	}
	return Intent{}
}

// click turns a released tap into Select, or Rename when it lands on the
// same row within the double click window. A double click clears the click
// history, so a third quick click selects again instead of renaming twice.
func (c *Controller) click(i int) Intent {
	now := c.now()
	double := c.clicked && c.lastClickIndex == i && now.Sub(c.lastClick) <= c.window()
	if double {
		c.clicked = false
		return Intent{Kind: Rename, Index: i, Consumed: true}
	}
	c.clicked = true
	c.lastClick = now
	c.lastClickIndex = i
	return Intent{Kind: Select, Index: i, Consumed: true}
}

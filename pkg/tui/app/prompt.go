package teaui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"

	"tableflip.dev/presetswitch/pkg/app"
	"tableflip.dev/presetswitch/pkg/tui/theme"
)

// renamePrompt is the modal text input behind app.Prompter.
type renamePrompt struct {
	req   app.PromptRequest
	input textinput.Model
	err   string
}

func newRenamePrompt(req app.PromptRequest) (*renamePrompt, tea.Cmd) {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.Placeholder = req.Initial
	ti.SetValue(req.Initial)
	ti.CursorEnd()
	cmd := ti.Focus()
	return &renamePrompt{req: req, input: ti}, cmd
}

// update handles one key. done reports that the prompt should close.
func (p *renamePrompt) update(msg tea.KeyPressMsg) (done bool, cmd tea.Cmd) {
	switch msg.String() {
	case "esc":
		return true, nil
	case "enter":
		if err := p.req.Submit(strings.TrimSpace(p.input.Value())); err != nil {
			p.err = err.Error()
			return false, nil
		}
		return true, nil
	}
	p.input, cmd = p.input.Update(msg)
	return false, cmd
}

func (p *renamePrompt) view(th theme.Theme, width int) string {
	body := th.Modal.Title.Render(p.req.Title) + "\n" + p.input.View()
	if p.err != "" {
		body += "\n" + th.Footer.Error.Render(p.err)
	}
	frame := th.Modal.Frame
	if width > 4 {
		frame = frame.Width(min(width-2, 60))
	}
	return frame.Render(body)
}

// Prompt implements app.Prompter. It only opens the modal; the request is
// submitted when the user confirms it.
func (m *Model) Prompt(_ context.Context, req app.PromptRequest) error {
	p, cmd := newRenamePrompt(req)
	m.prompt = p
	m.pending = append(m.pending, cmd)
	return nil
}

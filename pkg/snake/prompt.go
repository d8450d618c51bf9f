// Package snake asks for preset names and picks presets interactively on a
// terminal.
package snake

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/manifoldco/promptui"

	"tableflip.dev/presetswitch/pkg/app"
)

// Choice is one selectable preset.
type Choice struct {
	Index  int
	Name   string
	Active bool
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// Terminal prompts through promptui on in and out.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

var _ app.Prompter = (*Terminal)(nil)

func (t *Terminal) stdin() io.ReadCloser {
	if t.In == nil {
		return nil
	}
	return io.NopCloser(t.In)
}

func (t *Terminal) stdout() io.WriteCloser {
	if t.Out == nil {
		return nil
	}
	return nopWriteCloser{t.Out}
}

// Prompt implements app.Prompter with an editable line prefilled with the
// current name. Ctrl-C cancels without renaming.
func (t *Terminal) Prompt(ctx context.Context, req app.PromptRequest) error {
	templates := &promptui.PromptTemplates{
		Prompt:  "{{ . }}: ",
		Valid:   "{{ . | green }}: ",
		Invalid: "{{ . | red }}: ",
		Success: "{{ . | bold }}: ",
	}

	prompt := promptui.Prompt{
		Label:     req.Title,
		Default:   req.Initial,
		AllowEdit: true,
		Templates: templates,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("empty")
			}
			return nil
		},
		Stdin:  t.stdin(),
		Stdout: t.stdout(),
	}

	result, err := prompt.Run()
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return req.Submit(result)
}

// Pick lets the user choose one of choices, starting on the active one, and
// returns its index.
func (t *Terminal) Pick(label string, choices []Choice) (int, error) {
	if len(choices) == 0 {
		return 0, errors.New("no presets to choose from")
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}?",
		Active:   "➜  {{ .Index }}.{{ .Name | bold }}{{ if .Active }} {{ \"(active)\" | green }}{{ end }}",
		Inactive: "   {{ .Index }}.{{ .Name }}{{ if .Active }} {{ \"(active)\" | cyan }}{{ end }}",
		Selected: "{{ .Index }}.{{ .Name | bold }}",
	}

	searcher := func(input string, index int) bool {
		name := strings.Replace(strings.ToLower(choices[index].Name), " ", "", -1)
		input = strings.Replace(strings.ToLower(input), " ", "", -1)

		return strings.Contains(name, input)
	}

	cursor := 0
	for i, c := range choices {
		if c.Active {
			cursor = i
		}
	}

	prompt := promptui.Select{
		HideHelp:  true,
		Label:     label,
		Items:     choices,
		Templates: templates,
		Size:      10,
		CursorPos: cursor,
		Searcher:  searcher,
		Stdin:     t.stdin(),
		Stdout:    t.stdout(),
	}

	i, _, err := prompt.Run()
	if err != nil {
		return 0, err
	}
	return choices[i].Index, nil
}

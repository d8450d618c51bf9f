package commands

import (
	"errors"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tableflip.dev/presetswitch/pkg/commands/options"
	"tableflip.dev/presetswitch/pkg/runner/preset"
	"tableflip.dev/presetswitch/pkg/snake"
	"tableflip.dev/presetswitch/pkg/workflow"
)

// presetVerb describes one button of the control node as a command.
type presetVerb struct {
	action  preset.Action
	use     string
	short   string
	example string
	args    cobra.PositionalArgs
	// parse fills the runner from the positional arguments after the
	// workflow name.
	parse func(r *preset.Preset, args []string) error
	flags func(cmd *cobra.Command, r *preset.Preset)
	// pick chooses the preset on a terminal when no index was given.
	pick bool
}

func presetVerbs() []presetVerb {
	current := func(r *preset.Preset, args []string) error {
		var err error
		r.Index, err = indexArg(args, 0, -1)
		return err
	}
	none := func(r *preset.Preset, _ []string) error {
		r.Index = -1
		return nil
	}

	return []presetVerb{{
		action: preset.Add,
		use:    "add <workflow>",
		short:  "Capture the current node modes as a new preset and select it",
		example: `
presetswitch add portrait
`,
		args:  cobra.ExactArgs(1),
		parse: none,
	}, {
		action: preset.Record,
		use:    "record <workflow> [index]",
		short:  "Overwrite a preset with the current node modes",
		example: `
presetswitch record portrait
presetswitch record portrait 2
`,
		args:  cobra.RangeArgs(1, 2),
		parse: current,
	}, {
		action: preset.Apply,
		use:    "apply <workflow> [index]",
		short:  "Select a preset and write its modes to the graph",
		example: `
presetswitch apply portrait 2
presetswitch apply portrait
`,
		args:  cobra.RangeArgs(1, 2),
		parse: current,
		pick:  true,
	}, {
		action:  preset.Delete,
		use:     "delete <workflow> [index]",
		short:   "Delete a preset; later presets shift down",
		example: "\npresetswitch delete portrait 0\n",
		args:    cobra.RangeArgs(1, 2),
		parse:   current,
	}, {
		action: preset.Move,
		use:    "move <workflow> <from> <to>",
		short:  "Move a preset to a new position and select it",
		example: `
presetswitch move portrait 3 0
`,
		args: cobra.ExactArgs(3),
		parse: func(r *preset.Preset, args []string) error {
			var err error
			if r.Index, err = indexArg(args, 0, -1); err != nil {
				return err
			}
			r.To, err = indexArg(args, 1, -1)
			return err
		},
	}, {
		action: preset.Rename,
		use:    "rename <workflow> [index]",
		short:  "Rename a preset, prompting for the name unless --name is set",
		example: `
presetswitch rename portrait --name "Close-up"
presetswitch rename portrait 1
`,
		args:  cobra.RangeArgs(1, 2),
		parse: current,
		flags: func(cmd *cobra.Command, r *preset.Preset) {
			cmd.Flags().StringVar(&r.Name, "name", "", "New name. Prompts on stdin when empty.")
		},
	}, {
		action: preset.Next,
		use:    "next <workflow>",
		short:  "Switch to the next preset, wrapping around",
		args:   cobra.ExactArgs(1),
		parse:  none,
	}, {
		action: preset.Prev,
		use:    "prev <workflow>",
		short:  "Switch to the previous preset, wrapping around",
		args:   cobra.ExactArgs(1),
		parse:  none,
	}, {
		action: preset.Migrate,
		use:    "migrate <workflow>",
		short:  "Compact legacy preset numbering and optionally prune deleted nodes",
		example: `
presetswitch migrate portrait --prune
`,
		args:  cobra.ExactArgs(1),
		parse: none,
		flags: func(cmd *cobra.Command, r *preset.Preset) {
			cmd.Flags().BoolVar(&r.Prune, "prune", false, "Drop captured modes of nodes no longer in the graph.")
		},
	}}
}

func addPresetCommands(topLevel *cobra.Command) {
	for _, v := range presetVerbs() {
		addPresetVerb(topLevel, v)
	}
	addOptions(topLevel)
}

func addPresetVerb(topLevel *cobra.Command, v presetVerb) {
	oo := &options.OutputOptions{}
	no := &options.NodeOptions{}
	r := &preset.Preset{Action: v.action}

	cmd := &cobra.Command{
		Use:               v.use,
		Short:             v.short,
		Example:           v.example,
		Args:              v.args,
		ValidArgsFunction: completeWorkflow,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			oo.Out = cmd.OutOrStdout()
			if err := v.parse(r, args[1:]); err != nil {
				return oo.HandleError(err)
			}
			t, interactive := terminal(cmd)
			if interactive {
				r.Prompter = t
			}
			if v.pick && r.Index < 0 {
				if !interactive {
					return oo.HandleError(errors.New("a preset index is required"))
				}
				i, err := pickPreset(cmd, t, args[0], no.Node)
				if err != nil {
					return oo.HandleError(err)
				}
				r.Index = i
			}
			return oo.HandleError(runPreset(cmd, r, args[0], no, oo))
		},
	}

	if v.flags != nil {
		v.flags(cmd, r)
	}
	options.AddNodeArg(cmd, no)
	options.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addOptions(topLevel *cobra.Command) {
	oo := &options.OutputOptions{}
	po := &options.PolicyOptions{}

	cmd := &cobra.Command{
		Use:   "options <workflow>",
		Short: "Show or change how missing nodes and absent presets are reported",
		Example: `
presetswitch options portrait
presetswitch options portrait --on-missing-node silent --index-out-of-range silent
`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeWorkflow,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			oo.Out = cmd.OutOrStdout()
			policy, err := po.Options()
			if err != nil {
				return oo.HandleError(err)
			}
			r := &preset.Preset{Action: preset.Options, Index: -1, Policy: policy}
			return oo.HandleError(runPreset(cmd, r, args[0], &options.NodeOptions{}, oo))
		},
	}

	options.AddPolicyArgs(cmd, po)
	options.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func runPreset(cmd *cobra.Command, r *preset.Preset, name string, no *options.NodeOptions, oo *options.OutputOptions) error {
	e, err := load(cmd)
	if err != nil {
		return err
	}
	r.Persistence = e.p
	r.Config = e.cfg
	r.Log = e.log
	r.Workflow = name
	r.Node = no.Node
	r.In = cmd.InOrStdin()
	r.Out = cmd.OutOrStdout()
	r.JSON = oo.JSON
	e.log.Debug("running preset action", "action", string(r.Action), "workflow", name, "index", r.Index)
	return r.Do(cmd.Context())
}

// terminal returns a promptui prompter when the command reads from a
// terminal.
func terminal(cmd *cobra.Command) (*snake.Terminal, bool) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return nil, false
	}
	return &snake.Terminal{In: f, Out: cmd.OutOrStdout()}, true
}

func pickPreset(cmd *cobra.Command, t *snake.Terminal, name string, node int) (int, error) {
	e, err := load(cmd)
	if err != nil {
		return 0, err
	}
	s, err := workflow.Open(e.p, e.cfg, name, e.log)
	if err != nil {
		return 0, err
	}
	id, err := s.Node(node)
	if err != nil {
		return 0, err
	}
	report, err := s.Service.Report(id)
	if err != nil {
		return 0, err
	}
	choices := make([]snake.Choice, 0, len(report.Items))
	for _, item := range report.Items {
		choices = append(choices, snake.Choice{Index: item.Index, Name: item.Name, Active: item.Active})
	}
	return t.Pick(name, choices)
}

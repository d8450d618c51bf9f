package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/presetswitch/pkg/commands/options"
	"tableflip.dev/presetswitch/pkg/runner/list"
)

func addList(topLevel *cobra.Command) {
	oo := &options.OutputOptions{}
	no := &options.NodeOptions{}
	var (
		report  bool
		missing bool
	)

	cmd := &cobra.Command{
		Use:     "list <workflow>",
		Aliases: []string{"ls"},
		Short:   "Show the presets of a workflow as its control node shows them",
		Example: `
presetswitch list portrait
presetswitch list portrait --report --missing
presetswitch list portrait --node 12 --json
`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeWorkflow,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			oo.Out = cmd.OutOrStdout()
			e, err := load(cmd)
			if err != nil {
				return oo.HandleError(err)
			}
			s := list.List{
				Persistence: e.p,
				Config:      e.cfg,
				Log:         e.log,
				Workflow:    args[0],
				Node:        no.Node,
				Report:      report || missing,
				ShowMissing: missing,
				Out:         cmd.OutOrStdout(),
				JSON:        oo.JSON,
			}
			return oo.HandleError(s.Do(cmd.Context()))
		},
	}

	cmd.Flags().BoolVar(&report, "report", false, "Show node counts and update times per preset.")
	cmd.Flags().BoolVar(&missing, "missing", false, "List captured nodes that are no longer in the graph. Implies --report.")
	options.AddNodeArg(cmd, no)
	options.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

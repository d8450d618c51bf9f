package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tableflip.dev/presetswitch/pkg/runner/watch"
)

func addWatch(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "watch <workflow>",
		Short: "Re-apply presets whenever a control node's index changes",
		Long: `Watch polls the control nodes of a workflow and applies the selected preset
whenever the effective index changes, whether it was edited in the editor or
arrived through a link. Edits written to the library by other tools are picked
up as they land.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeWorkflow,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			e, err := load(cmd)
			if err != nil {
				return err
			}
			s := watch.Watch{
				Persistence: e.p,
				Config:      e.cfg,
				Log:         e.log,
				Workflow:    args[0],
				Ready: func() {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "watching %s every %s\n", args[0], e.cfg.Interval)
				},
			}
			return s.Do(cmd.Context())
		},
	}

	topLevel.AddCommand(cmd)
}

package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tableflip.dev/presetswitch/pkg/commands/options"
	"tableflip.dev/presetswitch/pkg/runner/ui"
)

func addUI(topLevel *cobra.Command) {
	no := &options.NodeOptions{}

	cmd := &cobra.Command{
		Use:   "ui <workflow>",
		Short: "Open the interactive preset panel of a control node",
		Long: `The panel lists the presets of one control node. Click a row to switch to
it, drag a row to reorder, and double-click to rename. The buttons are on
the keyboard: a add, r record, d delete, arrows switch, e rename.

The panel owns the terminal, so logs go to log_file when it is configured
and are discarded otherwise.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeWorkflow,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			e, err := load(cmd)
			if err != nil {
				return err
			}

			var w io.Writer = io.Discard
			if e.cfg.LogFile != "" {
				f, err := os.OpenFile(e.cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			s := ui.UI{
				Persistence: e.p,
				Config:      e.cfg,
				Log:         slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: e.cfg.Level()})),
				Workflow:    args[0],
				Node:        no.Node,
			}
			return s.Do(cmd.Context())
		},
	}

	options.AddNodeArg(cmd, no)
	topLevel.AddCommand(cmd)
}

package commands

import (
	"github.com/spf13/cobra"

	"tableflip.dev/presetswitch/pkg/commands/options"
	"tableflip.dev/presetswitch/pkg/runner/library"
)

func addImport(topLevel *cobra.Command) {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Copy a workflow file into the library",
		Example: `
presetswitch import ~/Downloads/portrait.json
presetswitch import - --name portrait < portrait.json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			e, err := load(cmd)
			if err != nil {
				return err
			}
			s := library.Import{
				Persistence: e.p,
				Config:      e.cfg,
				Path:        args[0],
				Name:        name,
				In:          cmd.InOrStdin(),
				Out:         cmd.OutOrStdout(),
			}
			return s.Do(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name in the library. Defaults to the file name without extension.")
	topLevel.AddCommand(cmd)
}

func addExport(topLevel *cobra.Command) {
	var path string

	cmd := &cobra.Command{
		Use:               "export <workflow>",
		Short:             "Write a stored workflow back out for the editor",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeWorkflow,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			e, err := load(cmd)
			if err != nil {
				return err
			}
			s := library.Export{
				Persistence: e.p,
				Name:        args[0],
				Path:        path,
				Out:         cmd.OutOrStdout(),
			}
			return s.Do(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "File to write. Defaults to stdout.")
	topLevel.AddCommand(cmd)
}

func addDocs(topLevel *cobra.Command) {
	oo := &options.OutputOptions{}

	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"workflows"},
		Short:   "List the workflows in the library",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			oo.Out = cmd.OutOrStdout()
			e, err := load(cmd)
			if err != nil {
				return oo.HandleError(err)
			}
			s := library.Docs{
				Persistence: e.p,
				Out:         cmd.OutOrStdout(),
				JSON:        oo.JSON,
			}
			return oo.HandleError(s.Do(cmd.Context()))
		},
	}

	options.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func addRemove(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:               "remove <workflow>",
		Aliases:           []string{"rm"},
		Short:             "Delete a workflow from the library",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeWorkflow,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			e, err := load(cmd)
			if err != nil {
				return err
			}
			s := library.Remove{Persistence: e.p, Name: args[0]}
			return s.Do(cmd.Context())
		},
	}

	topLevel.AddCommand(cmd)
}

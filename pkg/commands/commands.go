package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	base "github.com/n3wscott/cli-base/pkg/commands/options"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tableflip.dev/presetswitch/pkg/config"
	"tableflip.dev/presetswitch/pkg/store"
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "presetswitch",
		Short: base.Wrap80("Record, switch and reorder node-mode presets stored inside workflow documents."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("path", "", "Library directory. Defaults to ~/.presetswitch.db.")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error.")
	_ = viper.BindPFlag("path", cmd.PersistentFlags().Lookup("path"))
	_ = viper.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addImport(topLevel)
	addExport(topLevel)
	addDocs(topLevel)
	addRemove(topLevel)
	addList(topLevel)
	addPresetCommands(topLevel)
	addWatch(topLevel)
	addUI(topLevel)
	addMCP(topLevel)
	addVersion(topLevel)
	addCompletions(topLevel)
}

// env is what every command needs: the configuration, the library and a
// logger.
type env struct {
	cfg *config.Config
	p   store.Persistence
	log *slog.Logger
}

func load(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	p, err := store.Load(cfg)
	if err != nil {
		return nil, err
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))
	return &env{cfg: cfg, p: p, log: log}, nil
}

func workflowCompletions(toComplete string) []string {
	cfg, err := config.Load()
	if err != nil {
		return nil
	}
	p, err := store.Load(cfg)
	if err != nil {
		return nil
	}
	var names []string
	for _, name := range p.Names(context.Background()) {
		if strings.HasPrefix(name, toComplete) {
			names = append(names, name)
		}
	}
	return names
}

// completeWorkflow completes the first positional argument with stored
// workflow names.
func completeWorkflow(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return workflowCompletions(toComplete), cobra.ShellCompDirectiveNoFileComp
}

// indexArg parses the positional preset index at args[i], or returns def when
// it is absent.
func indexArg(args []string, i, def int) (int, error) {
	if len(args) <= i {
		return def, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid preset index %q", args[i])
	}
	return n, nil
}

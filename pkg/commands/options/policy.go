package options

import (
	"fmt"

	"github.com/spf13/cobra"

	"tableflip.dev/presetswitch/pkg/preset"
)

// PolicyOptions carries the store policy flags.
type PolicyOptions struct {
	OnMissingNode   string
	IndexOutOfRange string
}

func AddPolicyArgs(cmd *cobra.Command, o *PolicyOptions) {
	cmd.Flags().StringVar(&o.OnMissingNode, "on-missing-node", "",
		`What to do about captured nodes that are gone: "skip" or "silent".`)
	cmd.Flags().StringVar(&o.IndexOutOfRange, "index-out-of-range", "",
		`What to do when the selected preset does not exist: "warn" or "silent".`)
}

// Options validates the flags. Unset flags stay empty.
func (o *PolicyOptions) Options() (preset.Options, error) {
	out := preset.Options{
		OnMissingNode:   preset.Policy(o.OnMissingNode),
		IndexOutOfRange: preset.Policy(o.IndexOutOfRange),
	}
	switch out.OnMissingNode {
	case "", preset.PolicySkip, preset.PolicySilent:
	default:
		return out, fmt.Errorf("invalid --on-missing-node %q", o.OnMissingNode)
	}
	switch out.IndexOutOfRange {
	case "", preset.PolicyWarn, preset.PolicySilent:
	default:
		return out, fmt.Errorf("invalid --index-out-of-range %q", o.IndexOutOfRange)
	}
	return out, nil
}

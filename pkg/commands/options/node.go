package options

import (
	"github.com/spf13/cobra"
)

// NodeOptions selects the control node a command drives.
type NodeOptions struct {
	Node int
}

func AddNodeArg(cmd *cobra.Command, o *NodeOptions) {
	cmd.Flags().IntVarP(&o.Node, "node", "n", 0,
		"Control node id. Defaults to the first control node in the workflow.")
}

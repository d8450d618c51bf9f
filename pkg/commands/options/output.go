package options

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tableflip.dev/presetswitch/pkg/app"
	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/preset"
	"tableflip.dev/presetswitch/pkg/store"
)

// OutputOptions
type OutputOptions struct {
	JSON bool
	Out  io.Writer
}

func AddOutputArg(cmd *cobra.Command, po *OutputOptions) {
	cmd.Flags().BoolVar(&po.JSON, "json", false,
		"Output as JSON.")
}

func (o *OutputOptions) out() io.Writer {
	if o.Out == nil {
		return color.Output
	}
	return o.Out
}

// HandleError prints err as a JSON object when --json is set and swallows
// it; otherwise err is returned unchanged.
func (o *OutputOptions) HandleError(err error) error {
	if o.JSON && err != nil {
		out := map[string]string{
			"error": err.Error(),
		}
		if code := ErrorCode(err); code != "" {
			out["code"] = code
		}
		b, err := json.Marshal(out)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(o.out(), string(b))
		return nil
	}
	return err
}

// ErrorCode names the well-known failure behind err, or "".
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, preset.ErrNotFound):
		return "preset_not_found"
	case errors.Is(err, store.ErrNotFound):
		return "workflow_not_found"
	case errors.Is(err, app.ErrNoControlNode):
		return "no_control_node"
	case errors.Is(err, app.ErrNoPrompter):
		return "prompt_unavailable"
	case errors.Is(err, graph.ErrMalformed):
		return "malformed_workflow"
	}
	return ""
}

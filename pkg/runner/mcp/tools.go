package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tableflip.dev/presetswitch/pkg/runner/preset"
)

func registerTools(srv *server.MCPServer, svc *Service) {
	registerListWorkflowsTool(srv, svc)
	registerListPresetsTool(srv, svc)
	registerAddPresetTool(srv, svc)
	registerRecordPresetTool(srv, svc)
	registerApplyPresetTool(srv, svc)
	registerStepTool(srv, svc, "next_preset", "Switch the control node to the next preset, wrapping around.", preset.Next)
	registerStepTool(srv, svc, "prev_preset", "Switch the control node to the previous preset, wrapping around.", preset.Prev)
	registerDeletePresetTool(srv, svc)
	registerMovePresetTool(srv, svc)
	registerRenamePresetTool(srv, svc)
	registerSetOptionsTool(srv, svc)
	registerMigrateTool(srv, svc)
}

func workflowArg() mcp.ToolOption {
	return mcp.WithString("workflow",
		mcp.Required(),
		mcp.Description("Name of the workflow in the library."),
	)
}

func nodeArg() mcp.ToolOption {
	return mcp.WithNumber("node",
		mcp.Description("Control node id; defaults to the first control node of the workflow."),
		mcp.Min(0),
	)
}

func indexArg(required bool, desc string) mcp.ToolOption {
	opts := []mcp.PropertyOption{mcp.Description(desc), mcp.Min(0)}
	if required {
		opts = append(opts, mcp.Required())
	}
	return mcp.WithNumber("index", opts...)
}

func registerListWorkflowsTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"list_workflows",
		mcp.WithDescription("List workflows in the library with their control nodes and preset counts."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summaries, err := svc.ListWorkflows(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"workflows": summaries,
			"count":     len(summaries),
		})
	})
}

func registerListPresetsTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"list_presets",
		mcp.WithDescription("List the presets of a workflow in index order, marking the active one."),
		workflowArg(),
		nodeArg(),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("workflow")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		list, err := svc.ListPresets(ctx, name, request.GetInt("node", 0))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(list)
	})
}

func registerAddPresetTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"add_preset",
		mcp.WithDescription("Capture the current node modes as a new preset at the end and select it."),
		workflowArg(),
		nodeArg(),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return do(ctx, svc, request, ActionOptions{Action: preset.Add, Index: -1})
	})
}

func registerRecordPresetTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"record_preset",
		mcp.WithDescription("Overwrite a preset with the current node modes, keeping its name."),
		workflowArg(),
		nodeArg(),
		indexArg(false, "Preset to overwrite; defaults to the active preset."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return do(ctx, svc, request, ActionOptions{Action: preset.Record, Index: request.GetInt("index", -1)})
	})
}

func registerApplyPresetTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"apply_preset",
		mcp.WithDescription("Select a preset on the control node and write its modes to the graph."),
		workflowArg(),
		nodeArg(),
		indexArg(true, "Preset to apply."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		index, err := request.RequireInt("index")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return do(ctx, svc, request, ActionOptions{Action: preset.Apply, Index: index})
	})
}

func registerStepTool(srv *server.MCPServer, svc *Service, name, desc string, action preset.Action) {
	tool := mcp.NewTool(
		name,
		mcp.WithDescription(desc),
		workflowArg(),
		nodeArg(),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return do(ctx, svc, request, ActionOptions{Action: action, Index: -1})
	})
}

func registerDeletePresetTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"delete_preset",
		mcp.WithDescription("Delete a preset; later presets shift down by one."),
		workflowArg(),
		nodeArg(),
		indexArg(false, "Preset to delete; defaults to the active preset."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return do(ctx, svc, request, ActionOptions{Action: preset.Delete, Index: request.GetInt("index", -1)})
	})
}

func registerMovePresetTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"move_preset",
		mcp.WithDescription("Move a preset to a new position and select it."),
		workflowArg(),
		nodeArg(),
		indexArg(true, "Preset to move."),
		mcp.WithNumber("to",
			mcp.Required(),
			mcp.Description("Destination position."),
			mcp.Min(0),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		from, err := request.RequireInt("index")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		to, err := request.RequireInt("to")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return do(ctx, svc, request, ActionOptions{Action: preset.Move, Index: from, To: to})
	})
}

func registerRenamePresetTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"rename_preset",
		mcp.WithDescription("Rename a preset. Surrounding whitespace is trimmed."),
		workflowArg(),
		nodeArg(),
		indexArg(false, "Preset to rename; defaults to the active preset."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("New preset name."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return do(ctx, svc, request, ActionOptions{Action: preset.Rename, Index: request.GetInt("index", -1), Name: name})
	})
}

func registerSetOptionsTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"set_options",
		mcp.WithDescription("Read or change how the workflow reports missing nodes and absent presets."),
		workflowArg(),
		mcp.WithString("on_missing_node",
			mcp.Description("Policy for captured nodes that are gone."),
			mcp.Enum("skip", "silent"),
		),
		mcp.WithString("index_out_of_range",
			mcp.Description("Policy for selecting a preset that does not exist."),
			mcp.Enum("warn", "silent"),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return do(ctx, svc, request, ActionOptions{
			Action:          preset.Options,
			Index:           -1,
			OnMissingNode:   request.GetString("on_missing_node", ""),
			IndexOutOfRange: request.GetString("index_out_of_range", ""),
		})
	})
}

func registerMigrateTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"migrate_presets",
		mcp.WithDescription("Compact legacy preset numbering and optionally prune snapshots of deleted nodes."),
		workflowArg(),
		mcp.WithBoolean("prune",
			mcp.Description("Drop captured modes of nodes no longer in the graph."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return do(ctx, svc, request, ActionOptions{Action: preset.Migrate, Index: -1, Prune: request.GetBool("prune", false)})
	})
}

func do(ctx context.Context, svc *Service, request mcp.CallToolRequest, opts ActionOptions) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("workflow")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts.Workflow = name
	opts.Node = request.GetInt("node", 0)

	res, err := svc.Do(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toJSONResult(res)
}

func toJSONResult(data any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

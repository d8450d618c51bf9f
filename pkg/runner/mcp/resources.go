package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerResources(srv *server.MCPServer, svc *Service) {
	registerWorkflowsResource(srv, svc)
	registerPresetsTemplate(srv, svc)
}

func registerWorkflowsResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"presetswitch://workflows",
		"Workflows",
		mcp.WithResourceDescription("All workflows in the library with their preset counts."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		summaries, err := svc.ListWorkflows(ctx)
		if err != nil {
			return nil, err
		}

		payload := map[string]any{
			"workflows": summaries,
			"count":     len(summaries),
		}
		return encodeResourceJSON(request.Params.URI, payload)
	})
}

func registerPresetsTemplate(srv *server.MCPServer, svc *Service) {
	template := mcp.NewResourceTemplate(
		"presetswitch://workflows/{name}/presets",
		"Workflow Presets",
		mcp.WithTemplateDescription("Presets of a workflow as seen from its first control node."),
		mcp.WithTemplateMIMEType("application/json"),
	)

	srv.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		name := templateArg(request.Params.Arguments["name"])
		if name == "" {
			return nil, fmt.Errorf("workflow name is required")
		}

		list, err := svc.ListPresets(ctx, name, 0)
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, list)
	})
}

// templateArg reads a URI template variable, which arrives either as a string
// or as a list of path segments.
func templateArg(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func encodeResourceJSON(uri string, payload any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs.
const (
	CreditsResourceURI = "leedrag://credits"
	StatusResourceURI  = "leedrag://status"
)

// registerResources exposes the credit catalog and snapshot status as JSON
// resources, for clients that prefer reading context over calling tools.
func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "credits",
			URI:         CreditsResourceURI,
			Description: "Credits and prerequisites in the loaded snapshot",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return s.ReadResource(ctx, CreditsResourceURI)
		},
	)
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "status",
			URI:         StatusResourceURI,
			Description: "Loaded snapshot generation, size and backend readiness",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return s.ReadResource(ctx, StatusResourceURI)
		},
	)
}

// ReadResource returns the JSON content of a leedrag resource.
func (s *Server) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	var payload any
	switch uri {
	case CreditsResourceURI:
		out, err := s.handleListCredits(ctx, ListCreditsInput{})
		if err != nil {
			return nil, err
		}
		payload = out
	case StatusResourceURI:
		out, err := s.handleSnapshotStatus(ctx)
		if err != nil {
			return nil, err
		}
		payload = out
	default:
		return nil, NewResourceNotFoundError(uri)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

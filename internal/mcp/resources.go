// ABOUTME: MCP resource definitions
// ABOUTME: Provides the markdown progress report as a read-only resource

package mcp

import (
	"context"
	"fmt"

	"github.com/harper/leash/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        "leash://summary",
		Description: "Markdown summary of training progress: profile, recent walks, and trigger frequency",
		URI:         "leash://summary",
		MIMEType:    "text/markdown",
	}, s.handleSummaryResource)
}

func (s *Server) handleSummaryResource(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	owner, err := s.settings.OwnerID()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve owner: %w", err)
	}
	report, err := storage.ProgressReport(s.store, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      "leash://summary",
				MIMEType: "text/markdown",
				Text:     string(report),
			},
		},
	}, nil
}

// ABOUTME: MCP server initialization and configuration
// ABOUTME: Exposes read-only training data to AI agents over stdio

package mcp

import (
	"context"
	"fmt"

	"github.com/harper/leash/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with the storage repositories.
type Server struct {
	mcp      *mcp.Server
	store    *storage.Store
	profiles *storage.ProfileRepo
	triggers *storage.TriggerRepo
	walks    *storage.WalkRepo
	points   *storage.PointRepo
	settings *storage.SettingsRepo
}

// NewServer creates an MCP server with all capabilities.
func NewServer(store *storage.Store) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "leash",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcp:      mcpServer,
		store:    store,
		profiles: storage.NewProfileRepo(store),
		triggers: storage.NewTriggerRepo(store),
		walks:    storage.NewWalkRepo(store),
		points:   storage.NewPointRepo(store),
		settings: storage.NewSettingsRepo(store),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

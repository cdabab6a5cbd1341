// ABOUTME: MCP tool definitions and handlers
// ABOUTME: Read-only queries over profiles, trigger logs, walks, and routes

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harper/leash/internal/models"
	"github.com/harper/leash/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	s.registerGetProfileTool()
	s.registerListTriggersTool()
	s.registerListWalksTool()
	s.registerGetWalkRouteTool()
}

// GetProfileInput defines input for the get_profile tool.
type GetProfileInput struct{}

// ListTriggersInput defines input for the list_triggers tool.
type ListTriggersInput struct {
	Since *string `json:"since,omitempty"`
	Limit int     `json:"limit,omitempty"`
}

// ListWalksInput defines input for the list_walks tool.
type ListWalksInput struct {
	Limit int `json:"limit,omitempty"`
}

// GetWalkRouteInput defines input for the get_walk_route tool.
type GetWalkRouteInput struct {
	WalkID string `json:"walk_id"`
}

// ListTriggersOutput defines output for the list_triggers tool.
type ListTriggersOutput struct {
	Triggers []*models.TriggerLog `json:"triggers"`
	Count    int                  `json:"count"`
}

// ListWalksOutput defines output for the list_walks tool.
type ListWalksOutput struct {
	Walks []*models.Walk `json:"walks"`
	Count int            `json:"count"`
}

// GetWalkRouteOutput defines output for the get_walk_route tool.
type GetWalkRouteOutput struct {
	WalkID string               `json:"walk_id"`
	Points []*models.RoutePoint `json:"points"`
	Count  int                  `json:"count"`
}

func (s *Server) registerGetProfileTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_profile",
		Description: "Get the active dog profile: name, breed, reactivity level, known triggers, and training method.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	}, s.handleGetProfile)
}

func (s *Server) handleGetProfile(_ context.Context, _ *mcp.CallToolRequest, _ GetProfileInput) (*mcp.CallToolResult, *models.DogProfile, error) {
	owner, err := s.settings.OwnerID()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve owner: %w", err)
	}
	profile, err := s.profiles.ActiveProfile(owner)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return textResult(profile), profile, nil
}

func (s *Server) registerListTriggersTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_triggers",
		Description: "List logged trigger events, newest first. Optionally filter by a start time and limit the count.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"since": map[string]interface{}{
					"type":        "string",
					"description": "Optional inclusive lower bound in RFC3339 format",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of events to return",
				},
			},
		},
	}, s.handleListTriggers)
}

func (s *Server) handleListTriggers(_ context.Context, _ *mcp.CallToolRequest, input ListTriggersInput) (*mcp.CallToolResult, ListTriggersOutput, error) {
	owner, err := s.settings.OwnerID()
	if err != nil {
		return nil, ListTriggersOutput{}, fmt.Errorf("failed to resolve owner: %w", err)
	}

	opts := storage.ListOptions{Sort: storage.SortDesc, Limit: input.Limit}
	if input.Since != nil {
		since, err := time.Parse(time.RFC3339, *input.Since)
		if err != nil {
			return nil, ListTriggersOutput{}, fmt.Errorf("invalid since timestamp: %w", err)
		}
		opts.Since = &since
	}

	logs, err := s.triggers.ListByOwner(owner, opts)
	if err != nil {
		return nil, ListTriggersOutput{}, fmt.Errorf("failed to list triggers: %w", err)
	}

	output := ListTriggersOutput{Triggers: logs, Count: len(logs)}
	return textResult(output), output, nil
}

func (s *Server) registerListWalksTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_walks",
		Description: "List training walks, newest first, with start/end times and success ratings.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of walks to return",
				},
			},
		},
	}, s.handleListWalks)
}

func (s *Server) handleListWalks(_ context.Context, _ *mcp.CallToolRequest, input ListWalksInput) (*mcp.CallToolResult, ListWalksOutput, error) {
	owner, err := s.settings.OwnerID()
	if err != nil {
		return nil, ListWalksOutput{}, fmt.Errorf("failed to resolve owner: %w", err)
	}

	walks, err := s.walks.ListByOwner(owner, storage.ListOptions{Sort: storage.SortDesc, Limit: input.Limit})
	if err != nil {
		return nil, ListWalksOutput{}, fmt.Errorf("failed to list walks: %w", err)
	}

	output := ListWalksOutput{Walks: walks, Count: len(walks)}
	return textResult(output), output, nil
}

func (s *Server) registerGetWalkRouteTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_walk_route",
		Description: "Get the recorded GPS route for a walk, oldest point first.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"walk_id": map[string]interface{}{
					"type":        "string",
					"description": "Id of the walk",
				},
			},
			"required": []string{"walk_id"},
		},
	}, s.handleGetWalkRoute)
}

func (s *Server) handleGetWalkRoute(_ context.Context, _ *mcp.CallToolRequest, input GetWalkRouteInput) (*mcp.CallToolResult, GetWalkRouteOutput, error) {
	if _, err := s.walks.GetByID(input.WalkID); err != nil {
		return nil, GetWalkRouteOutput{}, fmt.Errorf("failed to get walk: %w", err)
	}
	points, err := s.points.ListByWalk(input.WalkID, storage.ListOptions{Sort: storage.SortAsc})
	if err != nil {
		return nil, GetWalkRouteOutput{}, fmt.Errorf("failed to get route: %w", err)
	}

	output := GetWalkRouteOutput{WalkID: input.WalkID, Points: points, Count: len(points)}
	return textResult(output), output, nil
}

func textResult(v any) *mcp.CallToolResult {
	jsonBytes, _ := json.MarshalIndent(v, "", "  ") //nolint:errchkjson // output is always serializable
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}
}

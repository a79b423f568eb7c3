package mcp

import (
	"context"
	"log/slog"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/tracker"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Workouts is the part of the tracker the MCP tools drive.
type Workouts interface {
	Create(ctx context.Context, sub tracker.Submission) (models.Workout, error)
	All() []models.Workout
	FindByID(id int64) (models.Workout, error)
	ClearAll(ctx context.Context) (int, error)
}

// New creates an MCP server with all tools and resources registered.
func New(ws Workouts, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Mapty", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Mapty workout log. Record running and cycling workouts at map coordinates, list them, look one up by ID, or clear the log."),
	)

	h := &handlers{ws: ws, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolLogWorkout, Handler: h.logWorkout},
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolClearWorkouts, Handler: h.clearWorkouts},
	)

	s.AddResources(
		server.ServerResource{Resource: resWorkouts, Handler: h.workoutsResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ws  Workouts
	log *slog.Logger
}

var resWorkouts = mcp.NewResource(
	"mapty://workouts",
	"Workouts",
	mcp.WithResourceDescription("Every logged workout in the order it was recorded"),
	mcp.WithMIMEType("application/json"),
)

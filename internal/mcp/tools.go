package mcp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/tracker"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolLogWorkout = mcp.NewTool("log_workout",
	mcp.WithDescription("Record a running or cycling workout at a map position. Running needs cadence (steps/min); cycling needs elevation gain (m, may be negative)."),
	mcp.WithString("type", mcp.Required(), mcp.Description("Workout type"), mcp.Enum(string(models.KindRunning), string(models.KindCycling))),
	mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude of the workout")),
	mcp.WithNumber("lng", mcp.Required(), mcp.Description("Longitude of the workout")),
	mcp.WithNumber("distance", mcp.Required(), mcp.Description("Distance in km")),
	mcp.WithNumber("duration", mcp.Required(), mcp.Description("Duration in minutes")),
	mcp.WithNumber("cadence", mcp.Description("Running cadence in steps/min")),
	mcp.WithNumber("elevation", mcp.Description("Cycling elevation gain in meters")),
)

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List all logged workouts, oldest first. Optionally filter by type."),
	mcp.WithString("type", mcp.Description("Only return this workout type"), mcp.Enum(string(models.KindRunning), string(models.KindCycling))),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get a single workout by its ID, including derived pace or speed."),
	mcp.WithNumber("id", mcp.Required(), mcp.Description("Workout ID")),
)

var toolClearWorkouts = mcp.NewTool("clear_workouts",
	mcp.WithDescription("Delete every logged workout. This cannot be undone."),
)

// --- Tool handlers ---

func (h *handlers) logWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("type parameter is required"), nil
	}
	lat, err := req.RequireFloat("lat")
	if err != nil {
		return mcp.NewToolResultError("lat parameter is required"), nil
	}
	lng, err := req.RequireFloat("lng")
	if err != nil {
		return mcp.NewToolResultError("lng parameter is required"), nil
	}

	sub := tracker.Submission{
		Kind:        models.Kind(kind),
		Coords:      models.Coordinates{Lat: lat, Lng: lng},
		DistanceKm:  req.GetFloat("distance", math.NaN()),
		DurationMin: req.GetFloat("duration", math.NaN()),
		Cadence:     req.GetFloat("cadence", math.NaN()),
		Elevation:   req.GetFloat("elevation", math.NaN()),
	}

	w, err := h.ws.Create(ctx, sub)
	if errors.Is(err, tracker.ErrValidation) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		h.log.Error("log_workout failed", "error", err)
		return mcp.NewToolResultError("saving workout failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(w)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := models.Kind(req.GetString("type", ""))

	all := h.ws.All()
	out := make([]models.Workout, 0, len(all))
	for _, w := range all {
		if filter == "" || w.Kind() == filter {
			out = append(out, w)
		}
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"count":    len(out),
		"workouts": out,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireFloat("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	if id <= 0 || id != math.Trunc(id) || id > float64(models.MaxID) {
		return mcp.NewToolResultError("id must be a positive whole number"), nil
	}

	w, err := h.ws.FindByID(int64(id))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(w)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) clearWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := h.ws.ClearAll(ctx)
	if err != nil {
		h.log.Error("clear_workouts failed", "error", err)
		return mcp.NewToolResultError("clearing workouts failed: " + err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("workouts cleared: %d", n)), nil
}

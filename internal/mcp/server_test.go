package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/tracker"
	"github.com/mark3labs/mcp-go/mcp"
)

func newHandlers(t *testing.T) *handlers {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &handlers{ws: tracker.New(storage.NewMemory(), log), log: log}
}

func callReq(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func logRun(t *testing.T, h *handlers) map[string]any {
	t.Helper()
	res, err := h.logWorkout(context.Background(), callReq(map[string]any{
		"type": "running", "lat": 39.1, "lng": -12.4,
		"distance": 5.0, "duration": 25.0, "cadence": 170.0,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("log_workout error: %s", resultText(t, res))
	}
	var view map[string]any
	if err := json.Unmarshal([]byte(resultText(t, res)), &view); err != nil {
		t.Fatal(err)
	}
	return view
}

// TestServerRegisters verifies New builds a server without panicking.
func TestServerRegisters(t *testing.T) {
	h := newHandlers(t)
	if s := New(h.ws, "test", h.log); s == nil {
		t.Fatal("New returned nil")
	}
}

// TestLogWorkout verifies a valid workout is recorded with derived pace.
func TestLogWorkout(t *testing.T) {
	h := newHandlers(t)
	view := logRun(t, h)
	if view["pace"] != 5.0 {
		t.Errorf("pace = %v, want 5", view["pace"])
	}
	if len(h.ws.All()) != 1 {
		t.Errorf("workouts = %d, want 1", len(h.ws.All()))
	}
}

// TestLogWorkoutRejected verifies invalid input returns a tool error and records nothing.
func TestLogWorkoutRejected(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing type", map[string]any{"lat": 1.0, "lng": 2.0, "distance": 5.0, "duration": 25.0}},
		{"missing lat", map[string]any{"type": "running", "lng": 2.0, "distance": 5.0, "duration": 25.0, "cadence": 170.0}},
		{"negative distance", map[string]any{"type": "running", "lat": 1.0, "lng": 2.0, "distance": -5.0, "duration": 25.0, "cadence": 170.0}},
		{"missing cadence", map[string]any{"type": "running", "lat": 1.0, "lng": 2.0, "distance": 5.0, "duration": 25.0}},
		{"missing elevation", map[string]any{"type": "cycling", "lat": 1.0, "lng": 2.0, "distance": 20.0, "duration": 60.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandlers(t)
			res, err := h.logWorkout(context.Background(), callReq(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			if !res.IsError {
				t.Error("expected tool error")
			}
			if len(h.ws.All()) != 0 {
				t.Error("workout recorded despite error")
			}
		})
	}
}

// TestListWorkoutsFilter verifies list_workouts returns all workouts or only one type.
func TestListWorkoutsFilter(t *testing.T) {
	h := newHandlers(t)
	logRun(t, h)
	res, _ := h.logWorkout(context.Background(), callReq(map[string]any{
		"type": "cycling", "lat": 1.0, "lng": 2.0, "distance": 20.0, "duration": 60.0, "elevation": 100.0,
	}))
	if res.IsError {
		t.Fatalf("cycling rejected: %s", resultText(t, res))
	}

	var all struct {
		Count int `json:"count"`
	}
	res, _ = h.listWorkouts(context.Background(), callReq(nil))
	if err := json.Unmarshal([]byte(resultText(t, res)), &all); err != nil {
		t.Fatal(err)
	}
	if all.Count != 2 {
		t.Errorf("count = %d, want 2", all.Count)
	}

	var cycling struct {
		Count    int              `json:"count"`
		Workouts []map[string]any `json:"workouts"`
	}
	res, _ = h.listWorkouts(context.Background(), callReq(map[string]any{"type": "cycling"}))
	if err := json.Unmarshal([]byte(resultText(t, res)), &cycling); err != nil {
		t.Fatal(err)
	}
	if cycling.Count != 1 || cycling.Workouts[0]["type"] != "cycling" {
		t.Errorf("filtered = %+v", cycling)
	}
}

// TestGetWorkout verifies lookup by ID and the not-found error.
func TestGetWorkout(t *testing.T) {
	h := newHandlers(t)
	view := logRun(t, h)

	res, _ := h.getWorkout(context.Background(), callReq(map[string]any{"id": view["id"]}))
	if res.IsError {
		t.Fatalf("get_workout error: %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), `"type":"running"`) {
		t.Errorf("result = %s", resultText(t, res))
	}

	res, _ = h.getWorkout(context.Background(), callReq(map[string]any{"id": 999999.0}))
	if !res.IsError {
		t.Error("expected error for unknown id")
	}
}

// TestGetWorkoutRejectsBadID verifies fractional and non-positive IDs are errors
// rather than being truncated to another workout's ID.
func TestGetWorkoutRejectsBadID(t *testing.T) {
	h := newHandlers(t)
	view := logRun(t, h)
	id := view["id"].(float64)

	for _, bad := range []float64{id + 0.9, 0, -id} {
		res, err := h.getWorkout(context.Background(), callReq(map[string]any{"id": bad}))
		if err != nil {
			t.Fatal(err)
		}
		if !res.IsError {
			t.Errorf("id %v: expected tool error, got %s", bad, resultText(t, res))
		}
	}
}

// TestClearWorkouts verifies clear_workouts empties the log.
func TestClearWorkouts(t *testing.T) {
	h := newHandlers(t)
	logRun(t, h)

	res, _ := h.clearWorkouts(context.Background(), callReq(nil))
	if res.IsError {
		t.Fatalf("clear_workouts error: %s", resultText(t, res))
	}
	if got := resultText(t, res); got != "workouts cleared: 1" {
		t.Errorf("result = %q", got)
	}
	if len(h.ws.All()) != 0 {
		t.Error("workouts remain after clear")
	}
}

// TestWorkoutsResource verifies the resource returns the collection as JSON.
func TestWorkoutsResource(t *testing.T) {
	h := newHandlers(t)
	logRun(t, h)

	var req mcp.ReadResourceRequest
	req.Params.URI = "mapty://workouts"
	contents, err := h.workoutsResource(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type = %T", contents[0])
	}
	var list []map[string]any
	if err := json.Unmarshal([]byte(text.Text), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || text.URI != "mapty://workouts" {
		t.Errorf("resource = %+v", text)
	}
}

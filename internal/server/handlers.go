package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/tracker"
	"github.com/go-chi/chi/v5"
)

// createRequest is the map form submission. Date is optional and lets
// uploaded history keep its original time.
type createRequest struct {
	Type      models.Kind `json:"type"`
	Coords    []float64   `json:"coords"`
	Distance  *float64    `json:"distance"`
	Duration  *float64    `json:"duration"`
	Cadence   *float64    `json:"cadence"`
	Elevation *float64    `json:"elevation"`
	Date      *time.Time  `json:"date"`
}

// toSubmission maps absent numeric fields to NaN so the tracker rejects them as non-finite.
func (req createRequest) toSubmission() (tracker.Submission, error) {
	if len(req.Coords) != 2 {
		return tracker.Submission{}, errors.New("coords must be [lat, lng]")
	}
	sub := tracker.Submission{
		Kind:        req.Type,
		Coords:      models.Coordinates{Lat: req.Coords[0], Lng: req.Coords[1]},
		DistanceKm:  orNaN(req.Distance),
		DurationMin: orNaN(req.Duration),
		Cadence:     orNaN(req.Cadence),
		Elevation:   orNaN(req.Elevation),
	}
	if req.Date != nil {
		sub.At = req.Date.Local()
	}
	return sub, nil
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	sub, err := req.toSubmission()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	workout, err := s.tracker.Create(r.Context(), sub)
	if errors.Is(err, tracker.ErrValidation) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.log.Error("create workout", "error", err, "request_id", requestIDFromContext(r.Context()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, workout)
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.All())
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return
	}

	workout, err := s.tracker.FindByID(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

func (s *Server) handleClearWorkouts(w http.ResponseWriter, r *http.Request) {
	if _, err := s.tracker.ClearAll(r.Context()); err != nil {
		s.log.Error("clear workouts", "error", err, "request_id", requestIDFromContext(r.Context()))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"workouts": len(s.tracker.All()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/smukkama/crowdsafe-server/internal/engine"
	"github.com/smukkama/crowdsafe-server/internal/evacuation"
	"github.com/smukkama/crowdsafe-server/internal/geo"
	"github.com/smukkama/crowdsafe-server/internal/proximity"
)

// Server exposes the engine over HTTP: location ingestion for user devices
// and pull queries for the dashboard.
type Server struct {
	engine *engine.Engine
	mux    *http.ServeMux
}

// NewServer creates the HTTP surface over the given engine
func NewServer(eng *engine.Engine) *Server {
	s := &Server{
		engine: eng,
		mux:    http.NewServeMux(),
	}

	s.mux.HandleFunc("/api/update-location", s.handleUpdateLocation)
	s.mux.HandleFunc("/api/match-users", s.handleMatchUsers)
	s.mux.HandleFunc("/api/evacuation-route", s.handleEvacuationRoute)
	s.mux.HandleFunc("/api/density", s.handleDensity)
	s.mux.HandleFunc("/health", s.handleHealth)

	return s
}

// ServeHTTP dispatches to the route table
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type updateLocationRequest struct {
	UserID    string   `json:"userId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy,omitempty"`
}

// handleUpdateLocation ingests one position report from a user device
func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req updateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserID == "" || req.Latitude == nil || req.Longitude == nil {
		writeError(w, http.StatusBadRequest, "userId, latitude and longitude are required")
		return
	}

	pos, err := s.engine.Report(r.Context(), engine.ReportInput{
		UserID:    req.UserID,
		IP:        clientIP(r),
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Accuracy:  req.Accuracy,
	})
	if err != nil {
		var vErr *geo.ValidationError
		var eErr *engine.ValidationError
		if errors.As(err, &vErr) || errors.As(err, &eErr) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update location")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User location updated",
		"user":    pos,
	})
}

// handleMatchUsers returns every user currently inside a monitored zone
// radius. The match set is recomputed on every call from the live positions.
func (s *Server) handleMatchUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	matches := s.engine.Alerts()
	if matches == nil {
		// Encode as [] rather than null when nobody matches
		matches = []proximity.Match{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matchedUsers": matches,
	})
}

// handleEvacuationRoute computes the evacuation plan for one user
func (s *Server) handleEvacuationRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	plan, err := s.engine.Route(userID)
	if err != nil {
		var nfErr *engine.NotFoundError
		var rErr *evacuation.RoutingError
		switch {
		case errors.As(err, &nfErr):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &rErr):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to compute route")
		}
		return
	}

	writeJSON(w, http.StatusOK, plan)
}

// handleDensity returns the latest classified crowd-density reading
func (s *Server) handleDensity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, s.engine.DensityState())
}

// handleHealth is the liveness probe
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"tracked_users": s.engine.TrackedUsers(),
		"time":          time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		fmt.Printf("Failed to encode response: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// clientIP extracts the reporting device's address, preferring the proxy
// header when present
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Package api exposes the read-only query surface and the two write
// operations: approval decisions and on-demand sweeps.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/oceanops/fleetwatch/pkg/db"
	"github.com/oceanops/fleetwatch/pkg/models"
	"github.com/oceanops/fleetwatch/pkg/runlog"
	"github.com/oceanops/fleetwatch/pkg/scheduler"
	"github.com/oceanops/fleetwatch/pkg/tickets"
)

const defaultHistoryLimit = 24

// Server routes fleet queries to the store and run log.
type Server struct {
	store   db.Service
	runs    *runlog.Logger
	sweeper Sweeper
	decider ApprovalDecider
	hub     *Hub
	router  *mux.Router
}

// NewServer builds the API server and its routes. The hub may be nil
// when live updates are not wanted.
func NewServer(store db.Service, runs *runlog.Logger, sweeper Sweeper, decider ApprovalDecider, hub *Hub) *Server {
	s := &Server{
		store:   store,
		runs:    runs,
		sweeper: sweeper,
		decider: decider,
		hub:     hub,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()

	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	s.router.HandleFunc("/api/runs", s.getRuns).Methods("GET")
	s.router.HandleFunc("/api/runs/{id}", s.getRun).Methods("GET")
	s.router.HandleFunc("/api/stats", s.getStats).Methods("GET")

	s.router.HandleFunc("/api/fleet", s.getFleet).Methods("GET")
	s.router.HandleFunc("/api/units/{id}", s.getUnit).Methods("GET")
	s.router.HandleFunc("/api/violations", s.getViolations).Methods("GET")

	s.router.HandleFunc("/api/approvals", s.getApprovals).Methods("GET")
	s.router.HandleFunc("/api/approvals/{id}/decision", s.postDecision).Methods("POST")

	s.router.HandleFunc("/api/sweeps", s.postSweep).Methods("POST")

	if s.hub != nil {
		s.router.HandleFunc("/api/ws", s.hub.ServeWS)
	}
}

func (s *Server) getRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := s.runs.RecentRuns(limit)
	if err != nil {
		log.Errorf("Failed to list runs: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	detail, err := s.runs.RunDetail(runID)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	if err != nil {
		log.Errorf("Failed to load run %s: %v", runID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, detail)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	stats, err := s.runs.RunStatistics(time.Now(), days)
	if err != nil {
		log.Errorf("Failed to compute run statistics: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, stats)
}

func (s *Server) getFleet(w http.ResponseWriter, _ *http.Request) {
	snapshot, err := s.store.GetFleetSnapshot()
	if err != nil {
		log.Errorf("Failed to load fleet snapshot: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	alerts, err := s.store.ListOpenAlerts()
	if err != nil {
		log.Errorf("Failed to list open alerts: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	summary := FleetSummary{
		TotalComponents: len(snapshot),
		ByState:         make(map[models.OperationalState]int),
		OpenAlerts:      len(alerts),
		Components:      snapshot,
	}

	for i := range snapshot {
		summary.ByState[snapshot[i].State]++

		if snapshot[i].RecordedAt.After(summary.LastUpdate) {
			summary.LastUpdate = snapshot[i].RecordedAt
		}
	}

	for i := range alerts {
		if alerts[i].Escalated {
			summary.Escalated++
		}
	}

	s.writeJSON(w, summary)
}

func (s *Server) getUnit(w http.ResponseWriter, r *http.Request) {
	unitID := mux.Vars(r)["id"]

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	detail := UnitDetail{
		UnitID:     unitID,
		Components: make(map[models.Component][]db.ComponentHistoryPoint),
	}

	for _, component := range models.Components() {
		history, err := s.store.GetComponentHistory(unitID, component, limit)
		if err != nil {
			log.Errorf("Failed to load history for %s %s: %v", unitID, component, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)

			return
		}

		if len(history) > 0 {
			detail.Components[component] = history
		}
	}

	if len(detail.Components) == 0 {
		http.Error(w, "Unit not found", http.StatusNotFound)
		return
	}

	alerts, err := s.store.ListOpenAlerts()
	if err != nil {
		log.Errorf("Failed to list open alerts: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	for i := range alerts {
		if alerts[i].UnitID == unitID {
			detail.OpenAlerts = append(detail.OpenAlerts, alerts[i])
		}
	}

	s.writeJSON(w, detail)
}

func (s *Server) getViolations(w http.ResponseWriter, _ *http.Request) {
	alerts, err := s.store.ListOpenAlerts()
	if err != nil {
		log.Errorf("Failed to list open alerts: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, alerts)
}

func (s *Server) getApprovals(w http.ResponseWriter, _ *http.Request) {
	pending, err := s.store.ListPendingApprovals()
	if err != nil {
		log.Errorf("Failed to list pending approvals: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	s.writeJSON(w, pending)
}

func (s *Server) postDecision(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["id"]

	var body DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if body.Approver == "" {
		http.Error(w, "Approver is required", http.StatusBadRequest)
		return
	}

	decided, err := s.decider.Decide(r.Context(), &models.Decision{
		RequestID: requestID,
		Approved:  body.Approved,
		Approver:  body.Approver,
		Comments:  body.Comments,
	}, time.Now())

	switch {
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, "Approval request not found", http.StatusNotFound)
		return
	case errors.Is(err, tickets.ErrApprovalNotPending):
		http.Error(w, "Approval request already decided", http.StatusConflict)
		return
	case errors.Is(err, tickets.ErrApprovalExpired):
		http.Error(w, "Approval request expired", http.StatusGone)
		return
	case err != nil:
		log.Errorf("Failed to decide approval %s: %v", requestID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	if s.hub != nil {
		s.hub.Publish("approval_decided", decided)
	}

	s.writeJSON(w, decided)
}

func (s *Server) postSweep(w http.ResponseWriter, _ *http.Request) {
	runID, err := s.sweeper.TriggerNow()
	if errors.Is(err, scheduler.ErrSweepInProgress) {
		http.Error(w, "A sweep is already in progress", http.StatusConflict)
		return
	}

	if err != nil {
		log.Errorf("Failed to trigger sweep: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)

	if err := json.NewEncoder(w).Encode(SweepResponse{RunID: runID}); err != nil {
		log.Errorf("Failed to encode sweep response: %v", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Failed to encode response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

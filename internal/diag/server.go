// Package diag is the agent's local diagnostics endpoint: liveness,
// readiness of the optional backends, prometheus metrics, and a fare
// estimate helper for local tooling.
package diag

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/tricy-client/internal/fare"
	"github.com/example/tricy-client/internal/logging"
	"github.com/example/tricy-client/internal/models"
)

// Probe checks one backend's connectivity.
type Probe func(ctx context.Context) error

type Server struct {
	estimator fare.Estimator
	probes    map[string]Probe
	logger    *slog.Logger
	mux       *mux.Router
}

func NewServer(estimator fare.Estimator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		estimator: estimator,
		probes:    make(map[string]Probe),
		logger:    logger,
		mux:       mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

// AddProbe registers a named readiness check, e.g. "redis" or "postgres".
func (s *Server) AddProbe(name string, p Probe) {
	s.probes[name] = p
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.HandleFunc("/ready", s.handleReady).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/estimate", s.handleEstimate).Methods("POST")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	for name, probe := range s.probes {
		if err := probe(r.Context()); err != nil {
			http.Error(w, name+" not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(200)
	w.Write([]byte("ready"))
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pickup  models.Coord `json:"pickup"`
		Dropoff models.Coord `json:"dropoff"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	est := s.estimator.Estimate(req.Pickup, req.Dropoff)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"fare":        est.Fare,
		"distance_km": est.DistanceKm,
	})
}

/*

Read-only query surface. Every endpoint is a pure read: NAV estimates are
served without persisting anything, so a dashboard poll can never interfere
with message processing.

*/

package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/omnipool-labs/xnav/internal/apps"
	"github.com/omnipool-labs/xnav/internal/logger"
	"github.com/omnipool-labs/xnav/internal/nav"
	"github.com/omnipool-labs/xnav/internal/state"
	"github.com/omnipool-labs/xnav/internal/types"
)

// Server exposes NAV and position state over HTTP.
type Server struct {
	srv    *http.Server
	engine *nav.Engine
	apps   *apps.Aggregator
	pool   common.Address
	db     *sql.DB
	log    zerolog.Logger
}

// NewServer wires the query surface on the given port. db may be nil when no
// database backs the store; the health endpoint then skips the probe.
func NewServer(port string, engine *nav.Engine, agg *apps.Aggregator, pool common.Address, db *sql.DB) *Server {
	s := &Server{
		engine: engine,
		apps:   agg,
		pool:   pool,
		db:     db,
		log:    logger.GetForComponent("web"),
	}

	router := mux.NewRouter()
	router.HandleFunc("/nav", s.handleNav).Methods(http.MethodGet)
	router.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("Query surface listening")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type navResponse struct {
	types.NavData
	Degraded bool `json:"degraded"`
}

func (s *Server) handleNav(w http.ResponseWriter, r *http.Request) {
	navData, degraded, err := s.engine.EstimateNav(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, navResponse{NavData: navData, Degraded: degraded})
}

type positionsResponse struct {
	Pool     common.Address      `json:"pool"`
	Apps     []types.AppBalances `json:"apps"`
	Degraded bool                `json:"degraded"`
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	groups, degraded := s.apps.AppBalances(r.Context(), s.pool)
	s.writeJSON(w, positionsResponse{Pool: s.pool, Apps: groups, Degraded: degraded})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.db != nil {
		if err := state.TestDBConnection(s.db); err != nil {
			s.log.Error().Err(err).Msg("Database health check failed")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("Request failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// Package httpfeed serves the audit log read-only over HTTP for indexers
// that do not speak gRPC.
package httpfeed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/api"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
	gs "github.com/dmitrijs2005/medkeeper/internal/server/grpc"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	address string
	audit   gs.AuditReader
	logger  logging.Logger
}

func NewServer(a string, audit gs.AuditReader, l logging.Logger) *Server {
	return &Server{address: a, audit: audit, logger: l.With("module", "http_feed")}
}

// Router returns the feed routes:
//
//	GET /healthz
//	GET /v1/audit/events?after=N&limit=M
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/audit/events", s.listEvents)
	})

	return r
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	after, err := intParam(q.Get("after"))
	if err != nil || after < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid after"})
		return
	}
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		return
	}

	events, err := s.audit.List(r.Context(), after, int(limit))
	if err != nil {
		s.logger.Error(r.Context(), "list audit events failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	out := api.ListAuditEventsResponse{Events: make([]api.AuditEvent, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, gs.EventToAPI(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func intParam(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP feed...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP feed", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

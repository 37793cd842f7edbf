package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"mwtrader/src/model"
)

// Status is the engine snapshot served to external readers. Reads are
// eventually consistent: the loop's writes are the source of truth.
type Status struct {
	Capital        float64         `json:"capital"`
	CapitalUpdated time.Time       `json:"capital_updated"`
	Position       *model.Position `json:"position,omitempty"`
}

// Server exposes the ops surface: healthcheck, engine status, and the
// websocket event feed.
type Server struct {
	port   string
	status func() Status
	hub    *Hub
}

func New(port string, status func() Status) *Server {
	return &Server{
		port:   port,
		status: status,
		hub:    NewHub(),
	}
}

// Hub returns the event hub so the engine can publish to it.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.status()); err != nil {
			logger.WithError(err).Error("/status encode error")
		}
	})

	r.Get("/ws/events", s.hub.HandleWS)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	r := s.routes()

	addr := ":" + s.port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down ops server gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
		return err
	}

	return nil
}

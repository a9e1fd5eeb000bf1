package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-dispatch/internal/auth"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/notify"
	"github.com/example/ride-dispatch/internal/presence"
)

// Responder is the slice of the dispatch engine the websocket surface needs:
// resolving a driver's answer to the offer currently held by that driver.
type Responder interface {
	OnAccept(ctx context.Context, bookingID, driverID string) (models.ActionResult, error)
	OnReject(ctx context.Context, bookingID, driverID string) (models.ActionResult, error)
}

type Server struct {
	engine   Responder
	registry *notify.Registry
	presence presence.Directory
	verifier *auth.Verifier
	logger   *slog.Logger
	mux      *mux.Router
}

func NewServer(engine Responder, registry *notify.Registry, dir presence.Directory, verifier *auth.Verifier, logger *slog.Logger) *Server {
	s := &Server{
		engine:   engine,
		registry: registry,
		presence: dir,
		verifier: verifier,
		logger:   logger,
		mux:      mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func newID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

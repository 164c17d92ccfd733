package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openbridge/relay/internal/async"
	"github.com/openbridge/relay/internal/resolver"
	"github.com/openbridge/relay/internal/telegram"
)

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Dispatcher *async.Dispatcher
	Updates    async.Handler[*telegram.Update]
	Resolver   *resolver.Resolver
	Failures   *async.FailureLog
	// Health reports whether the backing store is reachable.
	Health func(ctx context.Context) error
	// Options applied to every dispatched webhook operation.
	DispatchOptions async.Options

	// TelegramSecret guards the webhook endpoint when set.
	TelegramSecret string
	// CallbackSecret guards the callback and ops endpoints when set.
	// Empty disables authentication (flagged loudly at startup).
	CallbackSecret string
}

// Server exposes the webhook, callback, health, metrics and ops
// endpoints.
type Server struct {
	server *http.Server
}

// NewServer builds the router and wraps it in an http.Server.
func NewServer(port int, deps Deps) *Server {
	h := newHandlers(deps)

	r := chi.NewRouter()
	r.Post("/webhook/telegram", h.handleWebhook)
	r.Post("/callbacks/agent", h.handleCallback)
	r.Get("/healthz", h.handleHealth)
	r.Get("/ops/failures", h.handleFailures)
	r.Handle("/metrics", promhttp.Handler())

	return &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		},
	}
}

// Handler returns the underlying router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Package httpserver exposes the carpooling API over HTTP. The transport
// stays thin: it resolves the caller identity from the bearer token, maps
// domain errors to status codes, and leaves all business rules to the
// services.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ostrval/carpooling/internal/logging"
	"github.com/ostrval/carpooling/internal/server/auth"
	"github.com/ostrval/carpooling/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	addr   string
	logger logging.Logger
	tokens *auth.TokenService
	users  *services.UserService
	routes *services.RouteService
	trips  *services.TripService
}

func New(addr string, logger logging.Logger, tokens *auth.TokenService,
	users *services.UserService, routes *services.RouteService, trips *services.TripService) *Server {
	return &Server{
		addr:   addr,
		logger: logger,
		tokens: tokens,
		users:  users,
		routes: routes,
		trips:  trips,
	}
}

// Handler builds the route table. Every endpoint except the login endpoint
// requires a valid bearer token.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /token", s.handleLogin)

	mux.Handle("POST /users", s.requireAuth(http.HandlerFunc(s.handleCreateUser)))
	mux.Handle("GET /users", s.requireAuth(http.HandlerFunc(s.handleSearchUsers)))
	mux.Handle("GET /users/{username}", s.requireAuth(http.HandlerFunc(s.handleGetUser)))

	mux.Handle("POST /trips", s.requireAuth(http.HandlerFunc(s.handleCreateTrip)))
	mux.Handle("GET /trips/{id}", s.requireAuth(http.HandlerFunc(s.handleGetTrip)))
	mux.Handle("POST /trips/{id}/companions", s.requireAuth(http.HandlerFunc(s.handleAddCompanion)))

	mux.Handle("POST /routes", s.requireAuth(http.HandlerFunc(s.handleCreateRoute)))
	mux.Handle("GET /routes", s.requireAuth(http.HandlerFunc(s.handleGetRoutes)))

	return Chain(mux, RequestID(), Logging(s.logger))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

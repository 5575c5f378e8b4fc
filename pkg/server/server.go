// Package server exposes the chat history, sandbox, persona settings and
// task dashboard over a JSON HTTP API.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-go-golems/agentverse/pkg/chat"
	"github.com/go-go-golems/agentverse/pkg/events"
	"github.com/go-go-golems/agentverse/pkg/flows"
	"github.com/go-go-golems/agentverse/pkg/history"
	"github.com/go-go-golems/agentverse/pkg/persona"
	"github.com/go-go-golems/agentverse/pkg/sandbox"
	"github.com/go-go-golems/agentverse/pkg/tasks"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

// Deps are the components the API is served from.
type Deps struct {
	History   *history.Store
	Persona   *persona.Store
	Flows     *flows.Flows
	Dashboard *tasks.Dashboard
	Notifier  events.Notifier
}

type Server struct {
	deps     Deps
	engine   *gin.Engine
	registry *prometheus.Registry
	metrics  *metrics
	sandbox  *sandbox.Sandbox

	mu       sync.Mutex
	sessions map[string]*chat.Session
}

func New(deps Deps) (*Server, error) {
	if deps.History == nil || deps.Persona == nil || deps.Flows == nil || deps.Dashboard == nil {
		return nil, errors.New("server requires history, persona, flows and dashboard")
	}
	if deps.Notifier == nil {
		deps.Notifier = events.LogNotifier{}
	}

	registry := prometheus.NewRegistry()
	s := &Server{
		deps:     deps,
		engine:   gin.New(),
		registry: registry,
		metrics:  newMetrics(registry),
		sandbox:  sandbox.New(deps.Flows, sandbox.WithNotifier(deps.Notifier)),
		sessions: map[string]*chat.Session{},
	}

	s.engine.Use(gin.Recovery(), requestLogger(), s.metrics.middleware())
	s.registerRoutes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "listening")
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer s.sandbox.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down")
	}
	return nil
}

// session returns the chat session bound to conversation id, opening it on
// first use. Each conversation has its own in-flight submission guard.
func (s *Server) session(ctx context.Context, id string) (*chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	sess := chat.NewSession(s.deps.History, s.deps.Flows, s.deps.Persona, chat.WithNotifier(s.deps.Notifier))
	if _, err := sess.Open(ctx, id); err != nil {
		return nil, err
	}
	s.sessions[id] = sess
	return sess, nil
}

func (s *Server) dropSessions(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		s.sessions = map[string]*chat.Session{}
		return
	}
	for _, id := range ids {
		delete(s.sessions, id)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}

// Package api implements the HTTP JSON API for the stylist.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/keynar/stylegenie/internal/agent"
	"github.com/keynar/stylegenie/internal/buildinfo"
	"github.com/keynar/stylegenie/internal/session"
	"github.com/keynar/stylegenie/internal/store"
)

// userCookie carries the browsing context's stable identity. It is the
// only credential the app has; losing it starts a fresh user.
const (
	userCookie       = "stylegenie_user"
	userCookieMaxAge = 365 * 24 * 60 * 60
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	listen   string
	agent    *agent.Agent
	store    *store.Store
	sessions *session.Resolver
	logger   *slog.Logger
	server   *http.Server
}

// NewServer creates an API server.
func NewServer(listen string, ag *agent.Agent, st *store.Store, sessions *session.Resolver, logger *slog.Logger) *Server {
	return &Server{
		listen:   listen,
		agent:    ag,
		store:    st,
		sessions: sessions,
		logger:   logger,
	}
}

// Handler builds the route table. Split out from Start so tests can
// drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.handleChat)

	mux.HandleFunc("GET /api/conversations", s.handleConversationList)
	mux.HandleFunc("POST /api/conversations", s.handleConversationCreate)
	mux.HandleFunc("DELETE /api/conversations/{id}", s.handleConversationDelete)
	mux.HandleFunc("POST /api/conversations/{id}/rename", s.handleConversationRename)
	mux.HandleFunc("POST /api/conversations/{id}/clear", s.handleConversationClear)

	mux.HandleFunc("GET /api/messages", s.handleMessages)

	mux.HandleFunc("GET /api/version", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withLogging(mux)
}

// Start runs the server until it fails or is shut down.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.listen,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // image edits are slow
	}

	s.logger.Info("starting API server", "listen", s.listen)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// resolveSession maps the request's identity cookie (and an optional
// pinned conversation) to a session, minting and setting the cookie for
// first-time visitors.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request, pinnedConv int64) (*session.Session, error) {
	var userID string
	if c, err := r.Cookie(userCookie); err == nil {
		userID = c.Value
	}

	sess, err := s.sessions.Resolve(userID, pinnedConv)
	if err != nil {
		return nil, err
	}

	if sess.NewUser {
		http.SetCookie(w, &http.Cookie{
			Name:     userCookie,
			Value:    sess.UserID,
			Path:     "/",
			MaxAge:   userCookieMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, nil
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    code,
		},
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

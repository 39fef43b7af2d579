// Package server exposes a local message database over the HTTP API the
// remote client speaks. Requests authenticate with "Authorization: Bearer
// <user id>"; it is meant for demos and integration testing, not production.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bizportal/portalchat/internal/db"
	"github.com/bizportal/portalchat/internal/logger"
	"github.com/bizportal/portalchat/internal/metrics"
	"github.com/bizportal/portalchat/internal/remote"
	"github.com/bizportal/portalchat/internal/types"
	"github.com/gorilla/mux"
)

type ctxKey int

const userKey ctxKey = iota

// Server routes chat API requests to the database.
type Server struct {
	db      *sql.DB
	log     *logger.Logger
	metrics *metrics.Sync
	router  *mux.Router
}

// New builds the router. m may be nil, in which case /metrics is not served.
func New(conn *sql.DB, log *logger.Logger, m *metrics.Sync) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{db: conn, log: log.With("component", "server"), metrics: m, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.logRequests, s.authenticate)

	// /v1/rooms
	api.HandleFunc("/rooms", s.listRooms).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{room}/messages", s.listMessages).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{room}/messages", s.createMessage).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{room}/read", s.markRead).Methods(http.MethodPost)

	// /v1/messages/{id}
	api.HandleFunc("/messages/{id}", s.editMessage).Methods(http.MethodPatch)
	api.HandleFunc("/messages/{id}", s.deleteMessage).Methods(http.MethodDelete)
	api.HandleFunc("/messages/{id}/reactions", s.addReaction).Methods(http.MethodPost)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start))
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, userID)))
	})
}

func (s *Server) service(r *http.Request) *db.Service {
	userID, _ := r.Context().Value(userKey).(string)
	return db.NewService(s.db, userID)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, db.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	default:
		s.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func queryInt64(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service(r).ListRooms(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if rooms == nil {
		rooms = []types.RoomSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	var opts types.FetchOptions
	var err error
	if opts.Since, err = queryInt64(r, "since"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_since", err.Error())
		return
	}
	if opts.Before, err = queryInt64(r, "before"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_before", err.Error())
		return
	}
	limit, err := queryInt64(r, "limit")
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
		return
	}
	opts.Limit = int(limit)

	result, err := s.service(r).FetchMessages(r.Context(), mux.Vars(r)["room"], opts)
	if err != nil {
		s.fail(w, err)
		return
	}
	if result.Messages == nil {
		result.Messages = []types.Message{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) createMessage(w http.ResponseWriter, r *http.Request) {
	var req remote.SendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	draft := types.Draft{Body: req.Body, Attachment: req.Attachment}
	if draft.Empty() {
		writeError(w, http.StatusBadRequest, "empty_message", "message body cannot be empty")
		return
	}
	msg, err := s.service(r).SendMessage(r.Context(), mux.Vars(r)["room"], draft, req.ClientID)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.log.Info("message_created", "room", msg.RoomID, "id", msg.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"message": msg})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	if err := s.service(r).MarkRead(r.Context(), mux.Vars(r)["room"]); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addReaction(w http.ResponseWriter, r *http.Request) {
	var req remote.ReactionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		writeError(w, http.StatusBadRequest, "empty_symbol", "reaction symbol cannot be empty")
		return
	}
	if err := s.service(r).AddReaction(r.Context(), mux.Vars(r)["id"], req.Symbol); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) editMessage(w http.ResponseWriter, r *http.Request) {
	var req remote.EditRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		writeError(w, http.StatusBadRequest, "empty_message", "message body cannot be empty")
		return
	}
	if err := s.service(r).EditMessage(r.Context(), mux.Vars(r)["id"], req.Body); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := s.service(r).DeleteMessage(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Package httpserver exposes the boards over HTTP and websocket. It owns
// identity normalization (board names are lowercased at the edge) and the
// mapping from agent errors to status codes; everything else is delegated
// to the board's agent.
package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dyluth/kudos/internal/agent"
	"github.com/dyluth/kudos/internal/blob"
	"github.com/dyluth/kudos/pkg/board"
)

// maxScreenshotBytes bounds an uploaded screenshot body.
const maxScreenshotBytes = 10 << 20

// Server is the HTTP server for the kudos API.
type Server struct {
	boards     *agent.Registry
	blobs      *blob.Store
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates the HTTP server listening on addr.
func NewServer(addr string, boards *agent.Registry, blobs *blob.Store, logger *slog.Logger) *Server {
	s := &Server{
		boards: boards,
		blobs:  blobs,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/boards/{board}/kudos", s.handleAddKudo)
	mux.HandleFunc("POST /api/kudos/{board}/{id}/heart", s.handleHeartKudo)
	mux.HandleFunc("POST /api/boards/{board}/videos", s.handleAddVideo)
	mux.HandleFunc("GET /api/boards/{board}/state", s.handleState)
	mux.HandleFunc("GET /api/boards/{board}/compliment", s.handleCompliment)
	mux.HandleFunc("GET /api/boards/{board}/compliment/audio", s.handleComplimentAudio)
	mux.HandleFunc("POST /api/boards/{board}/screenshots", s.handleAddScreenshot)
	mux.HandleFunc("POST /api/boards/{board}/verifications/{id}", s.handleResolveVerification)
	mux.HandleFunc("GET /screenshots/{name}", s.handleScreenshot)
	mux.HandleFunc("GET /ws/{board}", s.handleBoardSocket)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     withLogging(logger, mux),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the request handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// board resolves the {board} path value to its agent. Names are lowercased
// here so "MyBoard" and "myboard" are the same board everywhere below.
func (s *Server) board(r *http.Request) (*agent.Agent, error) {
	return s.boards.Get(strings.ToLower(r.PathValue("board")))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAddKudo(w http.ResponseWriter, r *http.Request) {
	a, err := s.board(r)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}

	var req struct {
		Text     string `json:"text"`
		Author   string `json:"author"`
		URL      string `json:"url"`
		URLTitle string `json:"urlTitle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid JSON body")
		return
	}

	kudo, err := a.AddKudo(board.Kudo{
		Text:     req.Text,
		Author:   req.Author,
		URL:      req.URL,
		URLTitle: req.URLTitle,
	})
	if err != nil {
		s.writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, kudo)
}

func (s *Server) handleHeartKudo(w http.ResponseWriter, r *http.Request) {
	a, err := s.board(r)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "kudo id must be an integer")
		return
	}

	count, err := a.HeartKudo(id)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"hearted": count})
}

func (s *Server) handleAddVideo(w http.ResponseWriter, r *http.Request) {
	a, err := s.board(r)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid JSON body")
		return
	}

	if err := a.AddYouTubeVideo(r.Context(), req.URL); err != nil {
		s.writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "watching"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	a, err := s.board(r)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.State())
}

func (s *Server) handleCompliment(w http.ResponseWriter, r *http.Request) {
	a, err := s.board(r)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}

	compliment, err := a.GenerateCompliment(r.Context())
	if err != nil {
		s.writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"compliment": compliment})
}

func (s *Server) handleComplimentAudio(w http.ResponseWriter, r *http.Request) {
	a, err := s.board(r)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}

	audio, err := a.SpokenCompliment(r.Context())
	if err != nil {
		s.writeAgentError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Write(audio)
}

func (s *Server) handleAddScreenshot(w http.ResponseWriter, r *http.Request) {
	a, err := s.board(r)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxScreenshotBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "failed to read screenshot body")
		return
	}

	fileName, err := a.AddScreenshot(r.Context(), data)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"fileName": fileName})
}

func (s *Server) handleResolveVerification(w http.ResponseWriter, r *http.Request) {
	a, err := s.board(r)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}

	var req struct {
		Approved bool `json:"approved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid JSON body")
		return
	}

	if err := a.ResolveVerification(r.Context(), r.PathValue("id"), req.Approved); err != nil {
		s.writeAgentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "decided"})
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	data, err := s.blobs.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		if blob.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "NotFound", "no such screenshot")
			return
		}
		s.logger.Error("failed to read screenshot", "name", r.PathValue("name"), "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to read screenshot")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleBoardSocket upgrades the connection and pushes a whole-state
// snapshot on every board change, starting with the current one.
func (s *Server) handleBoardSocket(w http.ResponseWriter, r *http.Request) {
	a, err := s.board(r)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := a.Subscribe()
	defer sub.Close()

	// Read pump: we never expect client messages, but reading is how the
	// peer's close (or a dead connection) is noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case state := <-sub.C:
			if err := conn.WriteJSON(state); err != nil {
				s.logger.Info("observer disconnected", "board", a.Name(), "error", err)
				return
			}
		}
	}
}

// writeAgentError maps agent errors onto status codes.
func (s *Server) writeAgentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agent.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
	case errors.Is(err, agent.ErrNotFound):
		writeError(w, http.StatusNotFound, "NotFound", err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack forwards to the underlying writer so websocket upgrades work
// through the logging wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

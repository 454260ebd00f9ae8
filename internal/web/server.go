// Package web exposes the agent service over HTTP: a WebSocket chat endpoint
// plus liveness and readiness probes.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loquax-ai/loquax/internal/app"
)

// turnTimeout bounds one full agent turn, model calls and tool execution
// included.
const turnTimeout = 2 * time.Minute

// readyCheckTimeout bounds a single readiness check.
const readyCheckTimeout = 5 * time.Second

// Checker is a named readiness check. Check returns nil when the dependency
// is healthy.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Request is one client frame on the chat socket.
type Request struct {
	// Command selects the action: "message" (default when empty) runs a
	// turn, "clear" wipes the session, "new" allocates a session ID.
	Command string `json:"command,omitempty"`

	// SessionID identifies the conversation. Empty on a "message" command
	// makes the server allocate one and return it.
	SessionID string `json:"session_id,omitempty"`

	// Input is the user utterance for a "message" command.
	Input string `json:"input,omitempty"`
}

// Response is one server frame on the chat socket.
type Response struct {
	SessionID  string `json:"session_id,omitempty"`
	Reply      string `json:"reply,omitempty"`
	Tool       string `json:"tool,omitempty"`
	ToolResult string `json:"tool_result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Server serves the chat WebSocket and the health probes.
type Server struct {
	manager  *app.Manager
	checkers []Checker
}

// NewServer creates a Server over manager. The checkers are evaluated on
// each /readyz request, in order.
func NewServer(manager *app.Manager, checkers ...Checker) *Server {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Server{manager: manager, checkers: c}
}

// Routes returns the server's HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	// The OTel Prometheus exporter publishes into the default registry.
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// handleWS upgrades the connection and runs the per-connection frame loop.
// One connection may interleave multiple sessions; the manager serialises
// turns per session, not per connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("web: websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection closed")

	ctx := r.Context()
	for {
		var req Request
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			slog.Debug("web: read frame", "err", err)
			return
		}

		resp := s.dispatch(ctx, req)
		if err := wsjson.Write(ctx, conn, resp); err != nil {
			slog.Debug("web: write frame", "err", err)
			return
		}
	}
}

// dispatch executes one chat frame. Failures become error frames, not
// connection teardowns; the client decides whether to retry.
func (s *Server) dispatch(ctx context.Context, req Request) Response {
	switch req.Command {
	case "new":
		return Response{SessionID: s.manager.NewSessionID()}

	case "clear":
		if req.SessionID == "" {
			return Response{Error: "session_id is required"}
		}
		if err := s.manager.Clear(ctx, req.SessionID); err != nil {
			slog.Error("web: clear session failed", "session", req.SessionID, "err", err)
			return Response{SessionID: req.SessionID, Error: "failed to clear session"}
		}
		return Response{SessionID: req.SessionID}

	case "", "message":
		if req.Input == "" {
			return Response{SessionID: req.SessionID, Error: "input is required"}
		}
		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = s.manager.NewSessionID()
		}

		turnCtx, cancel := context.WithTimeout(ctx, turnTimeout)
		defer cancel()

		result, err := s.manager.Handle(turnCtx, sessionID, req.Input)
		if err != nil {
			slog.Error("web: turn failed", "session", sessionID, "err", err)
			return Response{SessionID: sessionID, Error: "the model backend failed to respond"}
		}

		resp := Response{SessionID: sessionID, Reply: result.Reply}
		if result.Tool != nil {
			resp.Tool = result.Tool.Tool
			resp.ToolResult = result.Tool.Result
		}
		return resp

	default:
		return Response{Error: fmt.Sprintf("unknown command %q", req.Command)}
	}
}

// handleHealthz is the liveness probe; a process that can serve HTTP is
// alive.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz runs every registered checker and reports per-check results.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(s.checkers))
	status := http.StatusOK
	overall := "ok"

	for _, c := range s.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			overall = "fail"
			status = http.StatusServiceUnavailable
		} else {
			checks[c.Name] = "ok"
		}
	}

	writeJSON(w, status, map[string]any{"status": overall, "checks": checks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-haassohn/internal/bridges/haassohn"
	"github.com/nerrad567/gray-logic-haassohn/internal/state"
)

// Overall health values reported by /health.
const (
	healthOK        = "ok"
	healthDegraded  = "degraded"
	healthUnhealthy = "unhealthy"
)

// SetStateRequest is the body of PUT /states/{path}.
type SetStateRequest struct {
	Value json.RawMessage `json:"value"`
}

// SetStateResponse acknowledges a queued command.
type SetStateResponse struct {
	CommandID string `json:"command_id"`
	Path      string `json:"path"`
	Value     any    `json:"value"`
	Status    string `json:"status"`
}

// handleHealth reports server and bridge health. A disabled bridge yields 503.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":  healthOK,
		"version": s.version,
	}
	status := http.StatusOK

	if s.bridge != nil {
		h := s.bridge.Health()
		resp["bridge"] = h
		switch {
		case h.Phase == haassohn.PhaseDisabled:
			resp["status"] = healthUnhealthy
			status = http.StatusServiceUnavailable
		case !h.Connected || h.MissingState:
			resp["status"] = healthDegraded
		}
	}

	writeJSON(w, status, resp)
}

func (s *Server) handleListObjects(w http.ResponseWriter, _ *http.Request) {
	objects := s.registry.Objects()
	writeJSON(w, http.StatusOK, map[string]any{
		"objects": objects,
		"count":   len(objects),
	})
}

func (s *Server) handleListStates(w http.ResponseWriter, _ *http.Request) {
	states := s.registry.States()
	writeJSON(w, http.StatusOK, map[string]any{
		"states": states,
		"count":  len(states),
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")
	if err := state.ValidatePath(path); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	v, err := s.registry.GetState(r.Context(), path)
	if err != nil {
		if errors.Is(err, state.ErrUnknownPath) {
			writeNotFound(w, "unknown state path")
			return
		}
		writeInternalError(w, "failed to read state")
		return
	}
	if v == nil {
		writeNotFound(w, "no value reported yet")
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// handleSetState queues a command for a writable path. The stored value only
// changes once the stove confirms it, which is reported on the
// state.changed WebSocket channel.
func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "path")
	if err := state.ValidatePath(path); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var req SetStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Value) == 0 {
		writeBadRequest(w, "value field is required")
		return
	}

	var value any
	if err := json.Unmarshal(req.Value, &value); err != nil || value == nil {
		writeBadRequest(w, "value must not be null")
		return
	}

	commandID := uuid.NewString()
	err := s.registry.Apply(r.Context(), state.Change{
		Path:      path,
		Value:     value,
		Source:    state.SourceAPI,
		CommandID: commandID,
		Timestamp: time.Now(),
	})
	switch {
	case err == nil:
	case errors.Is(err, state.ErrUnknownPath):
		writeNotFound(w, "unknown state path")
		return
	case errors.Is(err, state.ErrReadOnly):
		writeValidationError(w, "state path is read-only")
		return
	case errors.Is(err, state.ErrInvalidType):
		writeValidationError(w, err.Error())
		return
	default:
		writeInternalError(w, "failed to queue command")
		return
	}

	s.logger.Info("command queued",
		"command_id", commandID,
		"path", path,
		"subject", r.Context().Value(ctxKeySubject),
		"request_id", r.Context().Value(ctxKeyRequestID),
	)

	writeJSON(w, http.StatusAccepted, SetStateResponse{
		CommandID: commandID,
		Path:      path,
		Value:     value,
		Status:    "pending",
	})
}

// handleListCommands returns recent command outcomes, newest first.
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.commands == nil {
		writeUnavailable(w, "command log not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := s.commands.RecentCommands(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing commands failed", "error", err)
		writeInternalError(w, "failed to list commands")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"commands": records,
		"count":    len(records),
	})
}

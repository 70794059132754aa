// Package sse is the spec §6 SSE transport: GET /sse/{event_type} opens a
// long-lived stream for the authenticated caller, replaying recovered
// events first and then relaying live ones, with idle heartbeats keeping
// intermediaries from timing out the connection. Grounded on the teacher's
// internal/handler/lp/delivery.go (subscribe/defer-unsubscribe/select loop),
// adapted from one-shot long-poll to a continuously flushed SSE body.
package sse

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/notifyhub/sse-engine/internal/domain/event"
	"github.com/notifyhub/sse-engine/internal/eventmanager"
	"github.com/notifyhub/sse-engine/internal/handler/middleware"
)

// Handler serves the SSE stream endpoint.
type Handler struct {
	mgr           *eventmanager.Manager
	log           *slog.Logger
	idleHeartbeat time.Duration
}

// NewHandler returns a ready Handler. idleHeartbeat is the interval a
// stalled stream sends a heartbeat frame to keep it alive (spec §6).
func NewHandler(mgr *eventmanager.Manager, log *slog.Logger, idleHeartbeat time.Duration) *Handler {
	if idleHeartbeat <= 0 {
		idleHeartbeat = 10 * time.Second
	}
	return &Handler{mgr: mgr, log: log, idleHeartbeat: idleHeartbeat}
}

// Stream implements GET /sse/{event_type}. It registers a stream for the
// authenticated user, writes every recovered and live event as an SSE
// frame, and unregisters exactly once on return — whichever of client
// disconnect or server shutdown happens first (spec §5 cancellation rule).
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	eventType := chi.URLParam(r, "event_type")
	if eventType == "" {
		http.Error(w, "event_type is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	streamID, mailbox, err := h.mgr.RegisterUserStream(r.Context(), userID, eventType)
	if err != nil {
		if err == eventmanager.ErrManagerNotRunning {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "failed to open stream", http.StatusInternalServerError)
		return
	}
	defer h.mgr.UnregisterUserStream(userID, streamID, eventType)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		getCtx, cancel := context.WithTimeout(ctx, h.idleHeartbeat)
		ev, got := mailbox.Get(getCtx)
		timedOut := getCtx.Err() != nil
		cancel()

		if !got {
			// A miss before the poll deadline means the mailbox was closed
			// (stream evicted or manager shut down).
			if ctx.Err() != nil || !timedOut {
				return
			}
			if _, err := w.Write(event.HeartbeatFrame()); err != nil {
				return
			}
			flusher.Flush()
			continue
		}

		frame, err := ev.SSEFrame()
		if err != nil {
			h.log.Error("sse: failed to render frame", "error", err, "event_id", ev.ID)
			continue
		}
		if _, err := w.Write(frame); err != nil {
			return
		}
		flusher.Flush()
	}
}

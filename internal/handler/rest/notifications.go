// Package rest is the spec §6 JSON REST surface: marking events read and
// triggering notifications outside the SSE stream itself. Grounded on the
// teacher's internal/handler/ws/delivery.go response-shape conventions,
// adapted from WebSocket frames to plain JSON request/response bodies.
package rest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notifyhub/sse-engine/internal/domain/event"
	"github.com/notifyhub/sse-engine/internal/eventmanager"
	"github.com/notifyhub/sse-engine/internal/handler/middleware"
	"github.com/notifyhub/sse-engine/internal/service"
)

// Handler serves the notification-management REST endpoints.
type Handler struct {
	notifier service.Notifier
}

// NewHandler returns a ready Handler.
func NewHandler(notifier service.Notifier) *Handler {
	return &Handler{notifier: notifier}
}

// Routes mounts this handler's endpoints under r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/mark_event_read/{event_id}", h.MarkEventRead)
	r.Post("/mark_events_read", h.MarkEventsRead)
	r.Post("/generate_notification", h.GenerateNotification)
}

// MarkEventRead implements POST /mark_event_read/{event_id}.
func (h *Handler) MarkEventRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	eventID, err := parseID(chi.URLParam(r, "event_id"))
	if err != nil {
		http.Error(w, "invalid event_id", http.StatusBadRequest)
		return
	}

	n, err := h.notifier.DismissItems(r.Context(), userID, []int64{eventID})
	if err != nil {
		http.Error(w, "failed to mark event read", http.StatusInternalServerError)
		return
	}
	if n == 0 {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type markEventsReadRequest struct {
	EventIDs []int64 `json:"event_ids"`
}

// MarkEventsRead implements POST /mark_events_read. An empty/absent
// event_ids list marks every unread event the caller owns (spec §9's
// dismiss_all path).
func (h *Handler) MarkEventsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req markEventsReadRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var (
		n   int64
		err error
	)
	if len(req.EventIDs) == 0 {
		n, err = h.notifier.DismissAll(r.Context(), userID)
	} else {
		n, err = h.notifier.DismissItems(r.Context(), userID, req.EventIDs)
	}
	if err != nil {
		http.Error(w, "failed to mark events read", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"marked_read": n})
}

type generateNotificationRequest struct {
	EventType    string `json:"event_type"`
	TargetUserID int64  `json:"target_userid"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	Priority     string `json:"priority"`
	ExpireAfterS int64  `json:"expire_after_seconds"`
}

// GenerateNotification implements POST /generate_notification, spec §6's
// create_event entry point for operator-triggered notifications.
func (h *Handler) GenerateNotification(w http.ResponseWriter, r *http.Request) {
	var req generateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TargetUserID == 0 || req.Title == "" {
		http.Error(w, "target_userid and title are required", http.StatusBadRequest)
		return
	}

	priority := event.ParsePriority(req.Priority)
	expireAfter := secondsToDuration(req.ExpireAfterS)
	ev, err := h.notifier.SendUserNotification(r.Context(), req.TargetUserID, req.Title, req.Message, priority, expireAfter)
	if err != nil {
		status := http.StatusInternalServerError
		switch err {
		case eventmanager.ErrStoreFailure:
			status = http.StatusServiceUnavailable
		case eventmanager.ErrUnknownEventType:
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	if ev == nil {
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "dropped_queue_full"})
		return
	}
	writeJSON(w, http.StatusCreated, ev.ToWireDict())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/Pavlentius2007/school-photobusiness/internal/domain/enums"
	notifysvc "github.com/Pavlentius2007/school-photobusiness/internal/services/notify"
	"github.com/Pavlentius2007/school-photobusiness/internal/transport/http/dto"
)

type NotificationHandler struct {
	service *notifysvc.Service
}

func NewNotificationHandler(service *notifysvc.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	list, err := h.service.List(r.Context(), caller.UserID, queryBool(r, "unread"),
		queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		handleNotifyError(w, err)
		return
	}
	writeOK(w, list)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	count, err := h.service.CountUnread(r.Context(), caller.UserID)
	if err != nil {
		handleNotifyError(w, err)
		return
	}
	writeOK(w, dto.UnreadCountResponse{Unread: count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	notificationID, ok := pathID(r, "notificationID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "notification id must be a positive integer")
		return
	}

	if err := h.service.MarkRead(r.Context(), caller.UserID, notificationID); err != nil {
		handleNotifyError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	if _, err := h.service.MarkAllRead(r.Context(), caller.UserID); err != nil {
		handleNotifyError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	notificationID, ok := pathID(r, "notificationID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "notification id must be a positive integer")
		return
	}

	if err := h.service.Delete(r.Context(), caller.UserID, notificationID); err != nil {
		handleNotifyError(w, err)
		return
	}
	writeOK(w, dto.OKResponse{OK: true})
}

func (h *NotificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleNotifyError(w, err)
		return
	}
	writeOK(w, stats)
}

// Templates lists the named templates available to admin sends.
func (h *NotificationHandler) Templates(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}
	writeOK(w, notifysvc.Templates())
}

func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}

	var req dto.SendNotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.SendTemplate(r.Context(), req.UserID, req.Template, req.Vars, parseChannels(req.Channels)...)
	if err != nil {
		handleNotifyError(w, err)
		return
	}
	writeOK(w, res)
}

func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "NOTIFY_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}

	var req dto.BroadcastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}
	if len(req.UserIDs) == 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "user_ids is required")
		return
	}

	sent, failed := h.service.Broadcast(r.Context(), req.UserIDs, req.Template, req.Vars, parseChannels(req.Channels)...)
	writeOK(w, dto.BroadcastResponse{Sent: sent, Failed: failed})
}

func parseChannels(raw []string) []enums.NotificationChannel {
	channels := make([]enums.NotificationChannel, 0, len(raw))
	for _, c := range raw {
		channels = append(channels, enums.NotificationChannel(c))
	}
	return channels
}

func handleNotifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notifysvc.ErrNotFound):
		writeNotFound(w, "NOTIFICATION_NOT_FOUND", "notification not found")
	case errors.Is(err, notifysvc.ErrUnknownChannel):
		writeBadRequest(w, "UNKNOWN_CHANNEL", "unknown delivery channel")
	case errors.Is(err, notifysvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

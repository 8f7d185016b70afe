package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/BloggingApp/realtime-notifications/internal/dto"
	"github.com/BloggingApp/realtime-notifications/internal/ws"
)

func (h *Handler) notificationsCreate(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateNotification
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.Respond(w, Resp{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	notification, err := h.services.Notification.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.Respond(w, notification, http.StatusCreated)
}

func queryInt(r *http.Request, name string) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func (h *Handler) notificationsGet(w http.ResponseWriter, r *http.Request) {
	limit, err0 := queryInt(r, "limit")
	offset, err1 := queryInt(r, "offset")
	if err0 != nil || err1 != nil {
		h.Respond(w, Resp{"error": errInvalidLimitOffset.Error()}, http.StatusBadRequest)
		return
	}

	unreadOnly := false
	if unreadString := r.URL.Query().Get("unread"); unreadString != "" {
		parsed, err := strconv.ParseBool(unreadString)
		if err != nil {
			h.Respond(w, Resp{"error": errInvalidUnread.Error()}, http.StatusBadRequest)
			return
		}
		unreadOnly = parsed
	}

	notifications, err := h.services.Notification.GetUserNotifications(r.Context(), r.PathValue("userID"), unreadOnly, limit, offset)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.Respond(w, notifications, http.StatusOK)
}

func notificationID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidNotificationID
	}
	return id, nil
}

func (h *Handler) notificationsMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := notificationID(r)
	if err != nil {
		h.Respond(w, Resp{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	if err := h.services.Notification.MarkRead(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	h.Respond(w, Resp{}, http.StatusOK)
}

func (h *Handler) notificationsDelete(w http.ResponseWriter, r *http.Request) {
	id, err := notificationID(r)
	if err != nil {
		h.Respond(w, Resp{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	if err := h.services.Notification.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	h.Respond(w, Resp{}, http.StatusOK)
}

// notificationsLive upgrades the request and runs the session until the
// client goes away or the server shuts down.
func (h *Handler) notificationsLive(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		h.logger.Sugar().Debugf("failed to upgrade connection of user(%s): %s", userID, err.Error())
		return
	}

	session := ws.New(h.logger, conn, h.live)
	if err := h.services.Session.Serve(r.Context(), userID, session); err != nil {
		h.logger.Sugar().Warnf("session(%s) of user(%s) ended: %s", session.ID(), userID, err.Error())
	}
}

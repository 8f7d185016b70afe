package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BloggingApp/realtime-notifications/internal/config"
	"github.com/BloggingApp/realtime-notifications/internal/service"
	"github.com/BloggingApp/realtime-notifications/internal/ws"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Resp map[string]interface{}

type Handler struct {
	logger         *zap.Logger
	services       *service.Service
	auth           config.AuthConfig
	live           ws.Config
	allowedOrigins []string
	upgrader       websocket.Upgrader
	// listening reports whether the change feed subscription is healthy.
	listening func() bool
}

func New(logger *zap.Logger, cfg *config.Config, services *service.Service, listening func() bool) *Handler {
	h := &Handler{
		logger:         logger,
		services:       services,
		auth:           cfg.Auth,
		allowedOrigins: cfg.Session.AllowedOrigins,
		listening:      listening,
		live: ws.Config{
			SendBuffer:     cfg.Session.SendBuffer,
			WriteWait:      cfg.Session.WriteWait,
			PongWait:       cfg.Session.PongWait,
			PingPeriod:     cfg.Session.PingPeriod,
			MaxMessageSize: cfg.Session.MaxMessageSize,
		},
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/notifications", func(w http.ResponseWriter, r *http.Request) {
		if err := h.adminMiddleware(r); err != nil {
			h.respondAuthError(w, err)
			return
		}

		h.notificationsCreate(w, r)
	})

	mux.HandleFunc("GET /api/v1/notifications/{userID}", func(w http.ResponseWriter, r *http.Request) {
		if err := h.userMiddleware(r, r.PathValue("userID")); err != nil {
			h.respondAuthError(w, err)
			return
		}

		h.notificationsGet(w, r)
	})

	mux.HandleFunc("PATCH /api/v1/notifications/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		if err := h.adminMiddleware(r); err != nil {
			h.respondAuthError(w, err)
			return
		}

		h.notificationsMarkRead(w, r)
	})

	mux.HandleFunc("DELETE /api/v1/notifications/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := h.adminMiddleware(r); err != nil {
			h.respondAuthError(w, err)
			return
		}

		h.notificationsDelete(w, r)
	})

	mux.HandleFunc("GET /ws/{userID}", func(w http.ResponseWriter, r *http.Request) {
		if err := h.userMiddleware(r, r.PathValue("userID")); err != nil {
			h.respondAuthError(w, err)
			return
		}

		h.notificationsLive(w, r)
	})

	mux.HandleFunc("GET /healthz", h.healthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return h.recoveryMiddleware(h.corsMiddleware(h.loggingMiddleware(mux)))
}

func (h *Handler) Respond(w http.ResponseWriter, resp any, statusCode int) {
	respJSON, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(respJSON)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.Respond(w, Resp{"error": err.Error()}, http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidInput):
		h.Respond(w, Resp{"error": err.Error()}, http.StatusBadRequest)
	default:
		h.Respond(w, Resp{"error": service.ErrInternal.Error()}, http.StatusInternalServerError)
	}
}

func (h *Handler) respondAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, errNotAdmin) || errors.Is(err, errForeignUser) {
		h.Respond(w, Resp{"error": err.Error()}, http.StatusForbidden)
		return
	}
	h.Respond(w, Resp{"error": err.Error()}, http.StatusUnauthorized)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.listening != nil && !h.listening() {
		h.Respond(w, Resp{"status": "unavailable", "error": errChangeFeedDown.Error()}, http.StatusServiceUnavailable)
		return
	}
	h.Respond(w, Resp{"status": "ok"}, http.StatusOK)
}

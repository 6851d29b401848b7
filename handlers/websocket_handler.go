package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/arena-engine/notify"
	"github.com/Dosada05/arena-engine/services"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the dashboard origin once it has a fixed domain.
		return true
	},
}

type WebSocketHandler struct {
	hub              *notify.Hub
	lifecycleService services.LifecycleService
	logger           *slog.Logger
}

func NewWebSocketHandler(hub *notify.Hub, ls services.LifecycleService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, lifecycleService: ls, logger: logger}
}

// ServeWs handles GET /ws/events/{eventID}: upgrades the connection and
// subscribes it to the event's notification stream.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	eventID, err := getUUIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if _, err := h.lifecycleService.GetEvent(r.Context(), eventID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.logger.Warn("websocket upgrade failed",
			slog.String("event_id", eventID.String()),
			slog.Any("error", err))
		return
	}

	client := notify.NewClient(h.hub, conn, eventID.String())
	client.Start()
	h.logger.Debug("websocket subscriber connected", slog.String("event_id", eventID.String()))
}

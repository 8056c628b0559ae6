package ws

import (
	"net/http"

	applogger "BreakCheck/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// ProgressHandler upgrades /ws/progress connections and attaches them to the
// hub. The socket is one-way; client reads only drain control frames.
type ProgressHandler struct {
	hub      *Hub
	logger   *applogger.Logger
	upgrader websocket.Upgrader
}

func NewProgressHandler(hub *Hub, logger *applogger.Logger) *ProgressHandler {
	return &ProgressHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *ProgressHandler) Register(e *echo.Echo) {
	e.GET("/ws/progress", h.serve)
}

func (h *ProgressHandler) serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("websocket upgrade failed", applogger.Error(err))
		}
		return nil
	}
	defer conn.Close()

	cl := &client{send: make(chan []byte, 64)}
	if !h.hub.add(cl) {
		return nil
	}

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for msg := range cl.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.hub.drop(cl)
	<-writeDone
	return nil
}

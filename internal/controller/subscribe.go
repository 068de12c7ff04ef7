package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"simplist/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Lists are shared by URL; any origin may subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Subscribe handles GET /s/lists/:listID: upgrades to a websocket and
// streams every snapshot published for the list until the client
// disconnects. No replay: clients fetch current state via GetList
// before or after subscribing.
func (h *Handlers) Subscribe(c *gin.Context) {
	ctx := c.Request.Context()
	listID := c.Param("listID")
	if _, err := h.engine.GetList(ctx, listID); err != nil {
		h.renderError(c, err)
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Debug(ctx, "Websocket upgrade failed", "error", err, "list_id", listID)
		return
	}
	sub := h.hub.Subscribe(listID)

	go func() {
		for payload := range sub.C() {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				break
			}
		}
		conn.Close()
	}()

	// The read loop exists only to detect disconnect; clients send
	// nothing meaningful on this socket.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	sub.Unsubscribe()
	conn.Close()
	logger.Debug(ctx, "Subscriber disconnected", "list_id", listID)
}

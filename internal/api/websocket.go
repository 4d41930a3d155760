package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"soltrader/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocket streams price ticks, confirmed trades and PnL alerts to the UI.
func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	ticks, unsubTicks := s.Bus.Subscribe(events.TopicPriceTick, 100)
	defer unsubTicks()
	fills, unsubFills := s.Bus.Subscribe(events.TopicTradeEvent, 100)
	defer unsubFills()
	alerts, unsubAlerts := s.Bus.Subscribe(events.TopicPnlAlert, 100)
	defer unsubAlerts()

	for {
		var (
			payload any
			ok      bool
			kind    string
		)
		select {
		case payload, ok = <-ticks:
			kind = "price_tick"
		case payload, ok = <-fills:
			kind = "trade"
		case payload, ok = <-alerts:
			kind = "pnl_alert"
		}
		if !ok {
			return
		}
		if err := conn.WriteJSON(gin.H{"type": kind, "data": payload}); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}

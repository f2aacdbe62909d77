package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/perchlab/perch/internal/scheduler"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is expected to sit behind the trusted-subnet check.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// cycleEvent is the wire form of one poll cycle result.
type cycleEvent struct {
	Plugin    string `json:"plugin"`
	At        int64  `json:"at"`
	Ok        bool   `json:"ok"`
	Persisted bool   `json:"persisted"`
	Reason    string `json:"reason,omitempty"`
}

func toEvent(res scheduler.CycleResult) cycleEvent {
	ev := cycleEvent{
		Plugin:    res.Plugin,
		At:        res.At.Unix(),
		Ok:        res.Err == nil,
		Persisted: res.Persisted,
	}
	if res.Err != nil {
		ev.Reason = res.Err.Error()
	}
	return ev
}

// handleWebsocket streams poll cycle results to the client until it
// disconnects or the feed closes.
func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.feed.Subscribe()
	defer s.feed.Unsubscribe(sub)

	// Drain client frames so close messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case res, open := <-sub:
			if !open {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(toEvent(res)); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-done:
			return
		case <-s.ctx.Done():
			return
		}
	}
}

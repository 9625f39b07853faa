package web

import (
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

// upgrader keeps gorilla's default origin check: browsers may only open the
// stream from a page served by this dashboard.
var upgrader = websocket.Upgrader{}

// writeJSON writes v as one text frame, giving up after wsWriteTimeout so a
// stalled client cannot hold the event stream.
func writeJSON(conn *websocket.Conn, v interface{}) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// drain discards client frames and closes done once the client goes away.
// Reading is also what lets gorilla process close and ping control frames.
func drain(conn *websocket.Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
	return done
}

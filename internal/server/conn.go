package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kapu/chess-arena-go/pkg/wire"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// wsConn wraps one accepted websocket. Writes are serialized; the alive
// flag flips once and stays down so the matchmaking queue can skip tickets
// whose socket already died.
type wsConn struct {
	id    string
	ws    *websocket.Conn
	wmu   sync.Mutex
	alive atomic.Bool
}

func newWSConn(ws *websocket.Conn) *wsConn {
	c := &wsConn{
		id: uuid.NewString(),
		ws: ws,
	}
	c.alive.Store(true)
	return c
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Alive() bool { return c.alive.Load() }

func (c *wsConn) Send(env wire.Envelope) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c.ws, env); err != nil {
		c.alive.Store(false)
		return err
	}
	return nil
}

func (c *wsConn) shutdown(code websocket.StatusCode, reason string) {
	c.alive.Store(false)
	_ = c.ws.Close(code, reason)
}

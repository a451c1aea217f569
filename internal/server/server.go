// Package server exposes the session protocol over a websocket endpoint.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kapu/chess-arena-go/internal/obslog"
	"github.com/kapu/chess-arena-go/internal/session"
	"github.com/kapu/chess-arena-go/pkg/wire"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type Server struct {
	handler *session.Handler
	srv     *http.Server
}

func New(addr string, handler *session.Handler) *Server {
	s := &Server{handler: handler}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	obslog.L().Info("server_listen", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		OriginPatterns:  []string{"*"},
	})
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.Error(err))
		return
	}

	conn := newWSConn(ws)
	obslog.L().Info("ws_connect", zap.String("conn_id", conn.ID()), zap.String("remote", r.RemoteAddr))

	s.readLoop(r.Context(), conn, ws)

	s.handler.Disconnect(conn)
	conn.shutdown(websocket.StatusNormalClosure, "bye")
	obslog.L().Info("ws_disconnect", zap.String("conn_id", conn.ID()))
}

func (s *Server) readLoop(ctx context.Context, conn *wsConn, ws *websocket.Conn) {
	for {
		var env wire.Envelope
		if err := wsjson.Read(ctx, ws, &env); err != nil {
			conn.alive.Store(false)
			return
		}
		res := s.handler.Dispatch(conn, env)
		if res == nil {
			continue
		}
		if err := conn.Send(wire.NewEnvelope(env.Type, res)); err != nil {
			return
		}
	}
}

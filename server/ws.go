package server

import (
	"context"
	"strings"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/valyala/fasthttp"

	"github.com/drivelink/realtime/src/types"
)

// wsHandler returns the raw fasthttp handler for WebSocket upgrades at
// /ws/chat. The bearer credential arrives as the `token` query parameter;
// verification happens inside the session so a failure can answer with an
// application close code.
func (s *Server) wsHandler() fasthttp.RequestHandler {
	upgrader := websocket.FastHTTPUpgrader{
		ReadBufferSize:  s.cfg.ReadBufferSize,
		WriteBufferSize: s.cfg.WriteBufferSize,
	}
	writeTimeout := time.Duration(s.cfg.WriteTimeout) * time.Second

	return func(ctx *fasthttp.RequestCtx) {
		upgrade := string(ctx.Request.Header.Peek("Upgrade"))
		if !strings.EqualFold(upgrade, "websocket") {
			ctx.SetStatusCode(fasthttp.StatusUpgradeRequired)
			ctx.SetBodyString(`{"error":"upgrade_required","message":"WebSocket upgrade required"}`)
			return
		}

		token := string(ctx.QueryArgs().Peek("token"))
		err := upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
			s.sessions.Run(context.Background(), newWSConn(conn, writeTimeout), token)
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("websocket upgrade failed")
		}
	}
}

// wsConn adapts fasthttp/websocket.Conn to types.Conn, applying the write
// deadline before every write.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

var _ types.Conn = (*wsConn)(nil)

func newWSConn(conn *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{conn: conn, writeTimeout: writeTimeout}
}

func (w *wsConn) ReadJSON(v any) error {
	return w.conn.ReadJSON(v)
}

func (w *wsConn) WriteJSON(v any) error {
	if err := w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
		return err
	}
	return w.conn.WriteJSON(v)
}

func (w *wsConn) CloseWithReason(code int, reason string) error {
	deadline := time.Now().Add(w.writeTimeout)
	msg := websocket.FormatCloseMessage(code, reason)
	if err := w.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		_ = w.conn.Close()
		return err
	}
	return w.conn.Close()
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

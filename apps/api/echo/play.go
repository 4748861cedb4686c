package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/hesabu/core"
	"github.com/trezcool/hesabu/core/player"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsMessage is exchanged both ways.
// client -> server: {"type": "pause"|"resume"|"toggle"|"next"|"previous"|"answer"|"home"|"state"}
// server -> client: {"type": "state", "payload": player.State} | {"type": "error", "payload": "..."}
type wsMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type playClient struct {
	conn    *websocket.Conn
	session *player.Session
	errs    chan string
	logger  core.Logger
}

// play runs a player.Session for the assignment and streams its state over a websocket.
// An unknown assignment is a 404, before the upgrade.
func (api *assignmentApi) play(ctx echo.Context) error {
	asg, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}

	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil // the upgrader already replied
	}
	defer conn.Close()

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &playClient{
		conn:    conn,
		session: player.NewSession(asg, player.WithLogger(api.logger)),
		errs:    make(chan string, 1),
		logger:  api.logger,
	}

	go func() {
		if err := c.session.Run(runCtx); err != nil && err != context.Canceled {
			api.logger.Error(fmt.Sprintf("session %s: %v", c.session.ID(), err), err)
		}
	}()

	done := make(chan struct{})
	go func() {
		c.writePump()
		close(done)
	}()
	c.readPump(runCtx, cancel)
	<-done
	return nil
}

// readPump sends the client commands to the session until the connection or the session ends.
func (c *playClient) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	c.conn.SetReadLimit(maxMessageSize)

	for {
		var msg wsMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn(fmt.Sprintf("session %s: read error: %v", c.session.ID(), err))
			}
			return
		}

		if _, err := c.session.Do(ctx, msg.Type); err != nil {
			if err == player.ErrClosed || err == context.Canceled {
				return
			}
			select {
			case c.errs <- err.Error():
			default: // an error is already pending
			}
		}
	}
}

// writePump is the only writer of the connection.
func (c *playClient) writePump() {
	defer c.conn.Close()

	updates := c.session.Updates()
	for {
		select {
		case st, ok := <-updates:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// session over
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(wsMessage{Type: "state", Payload: st}); err != nil {
				return
			}
		case e := <-c.errs:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(wsMessage{Type: "error", Payload: e}); err != nil {
				return
			}
		}
	}
}

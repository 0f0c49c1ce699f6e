// Package v1 serves the live state feed over websocket.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
	"github.com/device-management-toolkit/bmcserver/internal/entity/dto/v1"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/state"
	"github.com/device-management-toolkit/bmcserver/internal/usecase/watch"
	"github.com/device-management-toolkit/bmcserver/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Subscriber hands out state change feeds.
type Subscriber interface {
	Subscribe() (<-chan entity.ServerState, func())
}

var _ Subscriber = (*watch.Hub)(nil)

type stateRoutes struct {
	l        logger.Interface
	sub      Subscriber
	st       state.Reader
	upgrader *websocket.Upgrader
}

// RegisterRoutes -.
func RegisterRoutes(r *gin.Engine, l logger.Interface, sub Subscriber, st state.Reader, upgrader *websocket.Upgrader) {
	sr := &stateRoutes{l: l, sub: sub, st: st, upgrader: upgrader}

	r.GET("/ws/state", sr.streamState)
}

// streamState sends the current state, then one message per change until either side goes away.
func (sr *stateRoutes) streamState(c *gin.Context) {
	conn, err := sr.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sr.l.Error(err, "ws - v1 - streamState - upgrade")

		return
	}

	defer conn.Close()

	// subscribe before the first snapshot so no change slips between them
	updates, cancel := sr.sub.Subscribe()
	defer cancel()

	closed := make(chan struct{})

	go func() {
		defer close(closed)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeState(conn, sr.st.Snapshot()); err != nil {
		sr.l.Debug("ws - v1 - streamState - write: %v", err)

		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case s, ok := <-updates:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))

				return
			}

			if err := writeState(conn, s); err != nil {
				sr.l.Debug("ws - v1 - streamState - write: %v", err)

				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func writeState(conn *websocket.Conn, s entity.ServerState) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return conn.WriteJSON(dto.NewStateResponse(s))
}

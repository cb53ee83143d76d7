package gateway

import (
	"errors"

	"github.com/mcdev12/airhockey/go/internal/hockey/protocol"
	"github.com/mcdev12/airhockey/go/internal/hockey/session"
	"github.com/rs/zerolog/log"
)

// handleClientMessage routes one inbound frame to the connection's session.
// Bad frames are counted and dropped; the connection stays open.
func (c *Connection) handleClientMessage(message []byte) {
	msg, err := protocol.DecodeClientMessage(message)
	if err != nil {
		c.manager.metrics.ProtocolError(protocol.Reason(err))
		log.Debug().
			Err(err).
			Str("connection_id", c.id).
			Int("bytes", len(message)).
			Msg("dropping client message")
		return
	}

	id, side, bound := c.Binding()
	if !bound {
		log.Debug().Str("connection_id", c.id).Msg("message before match start, ignored")
		return
	}
	s, ok := c.manager.registry.Lookup(id)
	if !ok {
		return
	}

	switch m := msg.(type) {
	case protocol.PlayerMove:
		err = s.HandlePlayerMove(side, m.Position)
	case protocol.PuckHit:
		err = s.HandlePuckHit(m.VelocityX, m.VelocityY)
	}
	if err != nil && !errors.Is(err, session.ErrTerminated) {
		log.Warn().
			Err(err).
			Str("connection_id", c.id).
			Str("session_id", id.String()).
			Msg("failed to route client message")
	}
}

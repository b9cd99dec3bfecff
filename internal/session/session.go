// Package session drives one decoy connection from the handshake to its
// single connection event. It only depends on an abstract byte stream, so
// the same state machine runs over a TCP socket, a net.Pipe in tests, or
// any other transport adapter.
package session

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/energizer-project/craftlure/internal/events"
	"github.com/energizer-project/craftlure/internal/protocol"
)

// Conn is the stream a session reads from and writes to.
// Reads block until the requested bytes arrive or the peer closes;
// writes block until flushed or failed.
type Conn interface {
	protocol.Reader
	io.Writer
	RemoteIP() string
}

// State is a step of the per-connection state machine.
type State int

const (
	StateAwaitingHandshake State = iota
	StateStatus
	StateLogin
	StateDone
)

var stateStrings = map[State]string{
	StateAwaitingHandshake: "awaiting_handshake",
	StateStatus:            "status",
	StateLogin:             "login",
	StateDone:              "done",
}

// String returns the string representation of State.
func (s State) String() string {
	if str, ok := stateStrings[s]; ok {
		return str
	}
	return "unknown"
}

// Handler runs the state machine for each accepted connection.
// It holds only immutable settings and is safe for concurrent use.
type Handler struct {
	settings Settings
	status   *StatusResponder
	login    *LoginResponder
	logger   zerolog.Logger
}

// NewHandler builds a handler from settings. The status response document
// is rendered once here.
func NewHandler(settings Settings) (*Handler, error) {
	status, err := NewStatusResponder(settings.StatusTemplate, settings.Favicon)
	if err != nil {
		return nil, err
	}

	return &Handler{
		settings: settings,
		status:   status,
		login:    NewLoginResponder(),
		logger:   log.With().Str("component", "session").Logger(),
	}, nil
}

// Handle runs one connection to completion. It returns the connection
// event, or an error when the connection must be dropped without one.
func (h *Handler) Handle(ctx context.Context, conn Conn) (*events.ConnectionEvent, error) {
	s := &session{
		conn:      conn,
		state:     StateAwaitingHandshake,
		maxLength: h.settings.MaxPacketLength,
		logger:    h.logger.With().Str("remote", conn.RemoteIP()).Logger(),
	}

	pkt, err := s.expect(protocol.PktHandshake, "handshake")
	if err != nil {
		return nil, err
	}

	hs, err := protocol.ParseHandshake(pkt.Payload)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int32("protocol", hs.ProtocolVersion).
		Str("address", hs.ServerAddress).
		Uint16("port", hs.ServerPort).
		Str("target", hs.Target.String()).
		Msg("handshake received")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var event *events.ConnectionEvent
	switch hs.Target {
	case protocol.TargetStatus:
		s.state = StateStatus
		event, err = h.status.Respond(s)
	case protocol.TargetLogin:
		s.state = StateLogin
		event, err = h.login.Respond(s)
	default:
		err = fmt.Errorf("%w: %d", protocol.ErrUnknownHandshakeTarget, int32(hs.Target))
	}
	if err != nil {
		return nil, err
	}

	s.state = StateDone
	return event, nil
}

// session is the per-connection state. It is never shared.
type session struct {
	conn      Conn
	state     State
	maxLength int
	logger    zerolog.Logger
}

// read reads the next packet from the peer.
func (s *session) read() (*protocol.Packet, error) {
	return protocol.ReadPacketLimit(s.conn, s.maxLength)
}

// expect reads the next packet and requires the given id.
func (s *session) expect(id int32, what string) (*protocol.Packet, error) {
	pkt, err := s.read()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	if pkt.ID != id {
		return nil, fmt.Errorf("%w: expected %s packet 0x%02X in state %s, got 0x%02X",
			protocol.ErrProtocol, what, id, s.state, pkt.ID)
	}
	return pkt, nil
}

// write sends one packet.
func (s *session) write(id int32, payload []byte) error {
	return protocol.WritePacket(s.conn, id, payload)
}

package session

import (
	"bytes"
	"fmt"

	"github.com/energizer-project/craftlure/internal/events"
	"github.com/energizer-project/craftlure/internal/protocol"
)

// LoginResponder accepts any username with an offline-mode login success.
type LoginResponder struct{}

// NewLoginResponder creates a new LoginResponder.
func NewLoginResponder() *LoginResponder {
	return &LoginResponder{}
}

// Respond runs the login flow. A failed login success write is fatal and
// suppresses the event.
func (r *LoginResponder) Respond(s *session) (*events.ConnectionEvent, error) {
	pkt, err := s.expect(protocol.PktLoginStart, "login start")
	if err != nil {
		return nil, err
	}

	username, _, err := protocol.ReadString(bytes.NewReader(pkt.Payload))
	if err != nil {
		return nil, fmt.Errorf("failed to parse login username: %w", err)
	}

	identity := protocol.NewOfflineIdentity(username)
	if err := s.write(protocol.PktLoginSuccess, protocol.BuildLoginSuccess(identity, username)); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("username", username).
		Str("identity", identity.String()).
		Msg("login success sent")

	return events.NewLoginAttempt(s.conn.RemoteIP(), username), nil
}

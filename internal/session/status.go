package session

import (
	"encoding/json"
	"fmt"

	"github.com/energizer-project/craftlure/internal/events"
	"github.com/energizer-project/craftlure/internal/protocol"
)

// StatusResponder answers a status request with a fixed JSON document and
// echoes an optional ping.
type StatusResponder struct {
	payload []byte
}

// NewStatusResponder renders the status document once. The favicon, when
// non-empty, overrides any favicon field in the template.
func NewStatusResponder(template map[string]interface{}, favicon string) (*StatusResponder, error) {
	doc := make(map[string]interface{}, len(template)+1)
	for k, v := range template {
		doc[k] = v
	}
	if favicon != "" {
		doc["favicon"] = favicon
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status document: %w", err)
	}

	return &StatusResponder{payload: protocol.BuildStatusResponse(data)}, nil
}

// Payload returns the encoded status response payload.
func (r *StatusResponder) Payload() []byte {
	return r.payload
}

// Respond runs the status flow: status request, status response, then a
// best-effort ping/pong. The probe event is produced whether or not the
// ping step succeeds.
func (r *StatusResponder) Respond(s *session) (*events.ConnectionEvent, error) {
	if _, err := s.expect(protocol.PktStatusRequest, "status request"); err != nil {
		return nil, err
	}

	if err := s.write(protocol.PktStatusResponse, r.payload); err == nil {
		r.pong(s)
	} else {
		s.logger.Debug().Err(err).Msg("status response not delivered")
	}

	return events.NewStatusProbe(s.conn.RemoteIP()), nil
}

// pong echoes one ping. Every failure here is ignored.
func (r *StatusResponder) pong(s *session) {
	pkt, err := s.read()
	if err != nil {
		s.logger.Trace().Err(err).Msg("no ping after status response")
		return
	}
	if pkt.ID != protocol.PktPing || len(pkt.Payload) != protocol.PingPayloadSize {
		s.logger.Trace().Int32("packet_id", pkt.ID).Int("payload_len", len(pkt.Payload)).Msg("ignoring non-ping packet")
		return
	}
	if err := s.write(protocol.PktPong, pkt.Payload); err != nil {
		s.logger.Trace().Err(err).Msg("pong not delivered")
	}
}

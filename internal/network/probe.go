package network

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/energizer-project/craftlure/internal/protocol"
)

// DefaultProbeProtocol is the protocol version the probe announces.
const DefaultProbeProtocol int32 = 764

// StatusDocument is the subset of a status response the probe reports.
type StatusDocument struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description json.RawMessage `json:"description"`
	Favicon     string          `json:"favicon,omitempty"`
}

// DescriptionText flattens the description, which servers send either as
// a plain string or as a chat component with a "text" field.
func (d *StatusDocument) DescriptionText() string {
	if len(d.Description) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(d.Description, &s); err == nil {
		return s
	}
	var component struct {
		Text  string `json:"text"`
		Extra []struct {
			Text string `json:"text"`
		} `json:"extra"`
	}
	if err := json.Unmarshal(d.Description, &component); err != nil {
		return string(d.Description)
	}
	text := component.Text
	for _, e := range component.Extra {
		text += e.Text
	}
	return text
}

// ProbeResult is the outcome of one status probe.
type ProbeResult struct {
	Address  string
	Status   StatusDocument
	RawJSON  string
	Latency  time.Duration
	PongOK   bool
	Duration time.Duration
}

// Probe performs the client side of the status flow against addr:
// handshake, status request, status response, ping and pong.
func Probe(ctx context.Context, addr string, timeout time.Duration) (*ProbeResult, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", addr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid port %s: %w", portStr, err)
	}

	start := time.Now()
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	if timeout > 0 {
		conn.SetDeadline(time.Now().Add(timeout))
	}
	r := bufio.NewReader(conn)

	var out bytes.Buffer
	out.Write(protocol.MarshalPacket(protocol.PktHandshake,
		protocol.BuildHandshake(DefaultProbeProtocol, host, uint16(port), protocol.TargetStatus)))
	out.Write(protocol.MarshalPacket(protocol.PktStatusRequest, nil))
	if _, err := conn.Write(out.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to send status request: %w", err)
	}

	pkt, err := protocol.ReadPacket(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}
	if pkt.ID != protocol.PktStatusResponse {
		return nil, fmt.Errorf("%w: expected status response, got 0x%02X", protocol.ErrProtocol, pkt.ID)
	}

	raw, _, err := protocol.ReadStringBytes(bytes.NewReader(pkt.Payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode status document: %w", err)
	}

	result := &ProbeResult{Address: addr, RawJSON: string(raw)}
	if err := json.Unmarshal(raw, &result.Status); err != nil {
		return nil, fmt.Errorf("status document is not valid JSON: %w", err)
	}

	// The pong is optional; a server that closes here still answered the probe.
	pingAt := time.Now()
	pb := protocol.NewPacketBuilder().WriteInt64(pingAt.UnixMilli())
	ping := pb.Build()
	if _, err := conn.Write(pb.BuildPacket(protocol.PktPing)); err == nil {
		if pong, err := protocol.ReadPacket(r); err == nil &&
			pong.ID == protocol.PktPong && bytes.Equal(pong.Payload, ping) {
			result.PongOK = true
			result.Latency = time.Since(pingAt)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

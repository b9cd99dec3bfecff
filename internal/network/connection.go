// Package network implements the TCP listener for decoy connections, the
// adapter that turns a net.Conn into a session stream, and a probe client
// that speaks the status flow from the client side.
package network

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Connection adapts a net.Conn to the byte stream a session needs:
// buffered byte-at-a-time reads for varints, exact reads for payloads and
// whole-buffer writes.
type Connection struct {
	mu       sync.Mutex
	conn     net.Conn
	reader   *bufio.Reader
	remoteIP string
	logger   zerolog.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration
	connectedAt  time.Time

	closed bool
}

// NewConnection wraps an existing net.Conn. A zero readTimeout leaves reads
// unbounded.
func NewConnection(conn net.Conn, readTimeout time.Duration) *Connection {
	ip := RemoteIP(conn.RemoteAddr())
	return &Connection{
		conn:        conn,
		reader:      bufio.NewReader(conn),
		remoteIP:    ip,
		readTimeout: readTimeout,
		connectedAt: time.Now(),
		logger:      log.With().Str("component", "connection").Str("remote", ip).Logger(),
	}
}

// SetWriteTimeout bounds each write. Zero leaves writes unbounded.
func (c *Connection) SetWriteTimeout(d time.Duration) {
	c.writeTimeout = d
}

// armRead refreshes the read deadline when the next read will hit the socket.
func (c *Connection) armRead() {
	if c.readTimeout > 0 && c.reader.Buffered() == 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
}

// Read implements io.Reader.
func (c *Connection) Read(p []byte) (int, error) {
	c.armRead()
	return c.reader.Read(p)
}

// ReadByte implements io.ByteReader.
func (c *Connection) ReadByte() (byte, error) {
	c.armRead()
	return c.reader.ReadByte()
}

// Write implements io.Writer. net.Conn writes the whole buffer or fails.
func (c *Connection) Write(p []byte) (int, error) {
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.Write(p)
}

// RemoteIP returns the peer's IP address without the port.
func (c *Connection) RemoteIP() string {
	return c.remoteIP
}

// ConnectedAt returns the time the connection was established.
func (c *Connection) ConnectedAt() time.Time {
	return c.connectedAt
}

// Close closes the connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.logger.Trace().Dur("duration", time.Since(c.connectedAt)).Msg("connection closed")
	return c.conn.Close()
}

// IsClosed returns whether the connection has been closed.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// RemoteIP extracts the IP part of a network address.
func RemoteIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

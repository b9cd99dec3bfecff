package network

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/energizer-project/craftlure/internal/events"
	"github.com/energizer-project/craftlure/internal/protocol"
	"github.com/energizer-project/craftlure/internal/session"
	"github.com/energizer-project/craftlure/internal/telemetry"
)

const (
	// WriteTimeout bounds each reply write so a peer that stops reading
	// cannot pin a handler on a full send buffer.
	WriteTimeout = 10 * time.Second
)

// ConnectionHandler runs one decoy connection to completion.
type ConnectionHandler interface {
	Handle(ctx context.Context, conn session.Conn) (*events.ConnectionEvent, error)
}

// TCPListener accepts decoy connections and handles each one on its own
// goroutine. Handlers share nothing but the immutable session settings.
type TCPListener struct {
	addr        string
	readTimeout time.Duration
	handler     ConnectionHandler
	eventBus    *events.EventBus
	metrics     *telemetry.Metrics

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// NewTCPListener creates a new TCP listener. metrics may be nil.
func NewTCPListener(addr string, readTimeout time.Duration, handler ConnectionHandler, eventBus *events.EventBus, metrics *telemetry.Metrics) *TCPListener {
	return &TCPListener{
		addr:        addr,
		readTimeout: readTimeout,
		handler:     handler,
		eventBus:    eventBus,
		metrics:     metrics,
		ready:       make(chan struct{}),
	}
}

// Start binds the listener and accepts connections until ctx is cancelled.
func (l *TCPListener) Start(ctx context.Context) error {
	// Use SO_REUSEADDR to allow immediate rebinding after restart
	lc := ReuseAddrListenConfig()
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to start TCP listener on %s: %w", l.addr, err)
	}

	l.mu.Lock()
	l.listener = ln
	l.mu.Unlock()
	l.once.Do(func() { close(l.ready) })

	log.Info().Str("addr", ln.Addr().String()).Msg("decoy listener started")

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				log.Info().Msg("decoy listener stopping, waiting for open connections")
				l.wg.Wait()
				return nil
			default:
				log.Error().Err(err).Msg("failed to accept connection")
				continue
			}
		}

		log.Trace().
			Str("remote", conn.RemoteAddr().String()).
			Msg("new decoy connection")

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection runs the session state machine and publishes the event.
func (l *TCPListener) handleConnection(ctx context.Context, rawConn net.Conn) {
	conn := NewConnection(rawConn, l.readTimeout)
	conn.SetWriteTimeout(WriteTimeout)

	// Unblock reads when the process shuts down.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if l.metrics != nil {
		l.metrics.ConnectionOpened()
	}

	logger := log.With().
		Str("component", "tcp_handler").
		Str("remote", conn.RemoteIP()).
		Logger()

	event, err := l.handle(ctx, conn)
	conn.Close()

	reason := ""
	if err != nil {
		reason = protocol.ErrorReason(err)
		logger.Debug().Err(err).Str("reason", reason).Msg("connection dropped without event")
	}
	if l.metrics != nil {
		l.metrics.ConnectionClosed(time.Since(conn.ConnectedAt()), reason)
	}
	if event == nil {
		return
	}

	logger.Info().
		Str("kind", event.Kind.String()).
		Str("username", event.Username).
		Msg(event.String())

	l.eventBus.Emit(context.WithoutCancel(ctx), events.FromConnection(event))
}

// handle runs the handler and turns a panic into an error.
func (l *TCPListener) handle(ctx context.Context, conn *Connection) (event *events.ConnectionEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("remote", conn.RemoteIP()).Msg("connection handler panicked")
			event, err = nil, fmt.Errorf("handler panic: %v", r)
		}
	}()
	return l.handler.Handle(ctx, conn)
}

// Addr waits for the listener to bind and returns its address.
func (l *TCPListener) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-l.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listener.Addr(), nil
}

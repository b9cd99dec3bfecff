package network

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/energizer-project/craftlure/internal/events"
	"github.com/energizer-project/craftlure/internal/protocol"
	"github.com/energizer-project/craftlure/internal/session"
	"github.com/energizer-project/craftlure/internal/telemetry"
)

type eventSink struct {
	mu     sync.Mutex
	events []events.ConnectionEvent
}

func (s *eventSink) handle(ctx context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e.Payload.(events.ConnectionEvent))
	return nil
}

func (s *eventSink) wait(t *testing.T, n int) []events.ConnectionEvent {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		s.mu.Lock()
		got := append([]events.ConnectionEvent(nil), s.events...)
		s.mu.Unlock()
		if len(got) >= n {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("received %d events, want %d", len(got), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// startListener runs a decoy listener on a loopback port and returns its
// address.
func startListener(t *testing.T) (string, *eventSink, *telemetry.Metrics) {
	t.Helper()

	handler, err := session.NewHandler(session.Settings{
		StatusTemplate: map[string]interface{}{
			"version":     map[string]interface{}{"name": "1.20.4", "protocol": 765},
			"players":     map[string]interface{}{"max": 20, "online": 0},
			"description": map[string]interface{}{"text": "A Minecraft Server"},
		},
		Favicon: "data:image/png;base64,AAAA",
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	bus := events.NewEventBus()
	metrics := telemetry.NewMetrics()
	sink := &eventSink{}
	bus.SubscribeConnections("test.sink", sink.handle)
	bus.SubscribeConnections("metrics.record", metrics.OnConnectionEvent)

	ctx, cancel := context.WithCancel(context.Background())
	ln := NewTCPListener("127.0.0.1:0", time.Second, handler, bus, metrics)

	done := make(chan error, 1)
	go func() { done <- ln.Start(ctx) }()

	addrCtx, addrCancel := context.WithTimeout(ctx, 3*time.Second)
	defer addrCancel()
	addr, err := ln.Addr(addrCtx)
	if err != nil {
		cancel()
		t.Fatalf("listener did not bind: %v", err)
	}

	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Start returned %v", err)
		}
		bus.Stop()
	})

	return addr.String(), sink, metrics
}

func TestListenerStatusProbe(t *testing.T) {
	addr, sink, metrics := startListener(t)

	result, err := Probe(context.Background(), addr, 3*time.Second)
	if err != nil {
		t.Fatalf("Probe error: %v", err)
	}

	if !result.PongOK {
		t.Error("pong not echoed")
	}
	if result.Status.Version.Protocol != 765 {
		t.Errorf("protocol = %d, want 765", result.Status.Version.Protocol)
	}
	if got := result.Status.DescriptionText(); got != "A Minecraft Server" {
		t.Errorf("description = %q", got)
	}
	if result.Status.Favicon != "data:image/png;base64,AAAA" {
		t.Errorf("favicon = %q", result.Status.Favicon)
	}

	got := sink.wait(t, 1)
	if got[0].Kind != events.KindStatusProbe || got[0].RemoteIP != "127.0.0.1" {
		t.Errorf("event = %+v", got[0])
	}
	if s := metrics.Snapshot(); s.Accepted != 1 || s.StatusProbes != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestListenerLoginAttempt(t *testing.T) {
	addr, sink, _ := startListener(t)

	conn, err := net.DialTimeout("tcp", addr, 3*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(3 * time.Second))

	var out bytes.Buffer
	out.Write(protocol.MarshalPacket(protocol.PktHandshake,
		protocol.BuildHandshake(764, "localhost", 25565, protocol.TargetLogin)))
	out.Write(protocol.MarshalPacket(protocol.PktLoginStart, protocol.BuildLoginStart("Alex")))
	if _, err := conn.Write(out.Bytes()); err != nil {
		t.Fatal(err)
	}

	pkt, err := protocol.ReadPacket(bufio.NewReader(conn))
	if err != nil {
		t.Fatalf("reading login success: %v", err)
	}
	if pkt.ID != protocol.PktLoginSuccess {
		t.Fatalf("packet id = %d, want %d", pkt.ID, protocol.PktLoginSuccess)
	}
	want := protocol.BuildLoginSuccess(protocol.NewOfflineIdentity("Alex"), "Alex")
	if !bytes.Equal(pkt.Payload, want) {
		t.Errorf("payload = %x, want %x", pkt.Payload, want)
	}

	got := sink.wait(t, 1)
	if got[0].Kind != events.KindLoginAttempt || got[0].Username != "Alex" {
		t.Errorf("event = %+v", got[0])
	}
}

func TestListenerDropsBadHandshake(t *testing.T) {
	addr, sink, metrics := startListener(t)

	conn, err := net.DialTimeout("tcp", addr, 3*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	conn.Write(protocol.MarshalPacket(protocol.PktHandshake,
		protocol.BuildHandshake(764, "localhost", 25565, protocol.HandshakeTarget(3))))

	// The server closes without replying.
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if n, _ := conn.Read(make([]byte, 1)); n != 0 {
		t.Error("server replied to an unknown handshake target")
	}
	conn.Close()

	deadline := time.Now().Add(3 * time.Second)
	for metrics.Snapshot().Dropped < 1 {
		if time.Now().After(deadline) {
			t.Fatal("drop was not recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 0 {
		t.Errorf("dropped connection produced %d events", len(sink.events))
	}
}

func TestListenerConcurrentProbes(t *testing.T) {
	addr, sink, _ := startListener(t)

	const clients = 8
	var wg sync.WaitGroup
	errs := make(chan error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Probe(context.Background(), addr, 3*time.Second); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("probe failed: %v", err)
	}
	sink.wait(t, clients)
}

func TestListenerBindFailure(t *testing.T) {
	ln := NewTCPListener("256.0.0.1:0", 0, nil, events.NewEventBus(), nil)
	if err := ln.Start(context.Background()); err == nil {
		t.Error("expected bind error")
	}
	select {
	case <-ln.ready:
		t.Error("ready closed without a bound socket")
	default:
	}
}

func TestRemoteIP(t *testing.T) {
	tests := []struct {
		addr net.Addr
		want string
	}{
		{&net.TCPAddr{IP: net.ParseIP("192.0.2.7"), Port: 5000}, "192.0.2.7"},
		{&net.TCPAddr{IP: net.ParseIP("2001:db8::1"), Port: 5000}, "2001:db8::1"},
		{&net.UnixAddr{Name: "/tmp/sock", Net: "unix"}, "/tmp/sock"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := RemoteIP(tt.addr); got != tt.want {
			t.Errorf("RemoteIP(%v) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestConnectionCloseIdempotent(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	conn := NewConnection(server, 0)
	if conn.IsClosed() {
		t.Fatal("new connection reports closed")
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if !conn.IsClosed() {
		t.Error("IsClosed = false after Close")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestListenerStartAgainAfterStop(t *testing.T) {
	handler, err := session.NewHandler(session.Settings{StatusTemplate: map[string]interface{}{}})
	if err != nil {
		t.Fatal(err)
	}
	addr := freeAddr(t)
	ln := NewTCPListener(addr, 0, handler, events.NewEventBus(), nil)

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- ln.Start(ctx) }()

		deadline := time.Now().Add(3 * time.Second)
		for {
			_, err := Probe(context.Background(), addr, time.Second)
			if err == nil {
				break
			}
			if time.Now().After(deadline) {
				cancel()
				t.Fatalf("run %d: %v", i, err)
			}
			time.Sleep(10 * time.Millisecond)
		}

		cancel()
		if err := <-done; err != nil {
			t.Fatalf("run %d: Start returned %v", i, err)
		}
	}
}

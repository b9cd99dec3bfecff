package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/energizer-project/craftlure/internal/config"
	"github.com/energizer-project/craftlure/internal/events"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                       { return true }
func (t *fakeToken) WaitTimeout(_ time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}            { return t.done }
func (t *fakeToken) Error() error                     { return t.err }

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	mu        sync.Mutex
	connected bool
	err       error
	messages  []published
}

func (p *fakePublisher) IsConnected() bool { return p.connected }

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{topic: topic, payload: payload.([]byte)})
	return newFakeToken(p.err)
}

func (p *fakePublisher) sent() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.messages...)
}

func newTestMQTTHandler(pub *fakePublisher, metrics *Metrics) (*MQTTHandler, *events.EventBus) {
	bus := events.NewEventBus()
	h := &MQTTHandler{
		cfg:      config.MQTTConfig{TopicPrefix: "craftlure"},
		eventBus: bus,
		pub:      pub,
		metrics:  metrics,
		metadata: map[string]interface{}{"hostname": "test-host"},
	}
	h.Subscribe()
	return h, bus
}

func TestMQTTPublishesConnectionEvents(t *testing.T) {
	pub := &fakePublisher{connected: true}
	_, bus := newTestMQTTHandler(pub, NewMetrics())

	bus.EmitSync(context.Background(), events.FromConnection(events.NewStatusProbe("203.0.113.5")))
	bus.EmitSync(context.Background(), events.FromConnection(events.NewLoginAttempt("203.0.113.6", "Alex")))
	bus.Stop()

	msgs := pub.sent()
	if len(msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(msgs))
	}

	wantTopics := []string{"craftlure/events/status_probe", "craftlure/events/login_attempt"}
	for i, want := range wantTopics {
		if msgs[i].topic != want {
			t.Errorf("message %d topic = %q, want %q", i, msgs[i].topic, want)
		}
	}

	var body struct {
		Hostname string `json:"hostname"`
		Payload  struct {
			Message string `json:"message"`
			Event   struct {
				Kind     string `json:"kind"`
				RemoteIP string `json:"remote_ip"`
				Username string `json:"username"`
			} `json:"event"`
		} `json:"payload"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(msgs[1].payload, &body); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if body.Hostname != "test-host" {
		t.Errorf("hostname = %q", body.Hostname)
	}
	if body.Payload.Event.Kind != "login_attempt" || body.Payload.Event.Username != "Alex" {
		t.Errorf("event = %+v", body.Payload.Event)
	}
	if body.Payload.Message != "JOIN `203.0.113.6`, username: `Alex`" {
		t.Errorf("message = %q", body.Payload.Message)
	}
	if body.Timestamp == "" {
		t.Error("missing timestamp")
	}
}

func TestMQTTHeartbeatAndShutdownTopics(t *testing.T) {
	pub := &fakePublisher{connected: true}
	_, bus := newTestMQTTHandler(pub, nil)

	bus.EmitSync(context.Background(), events.Event{Type: events.EventHeartbeat, Payload: map[string]int{"n": 1}})
	bus.EmitSync(context.Background(), events.Event{Type: events.EventShutdown})
	bus.Stop()

	msgs := pub.sent()
	if len(msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(msgs))
	}
	if msgs[0].topic != "craftlure/heartbeat" || msgs[1].topic != "craftlure/admin" {
		t.Errorf("topics = %q, %q", msgs[0].topic, msgs[1].topic)
	}
}

func TestMQTTSkipsWhenDisconnected(t *testing.T) {
	pub := &fakePublisher{connected: false}
	_, bus := newTestMQTTHandler(pub, nil)

	bus.EmitSync(context.Background(), events.FromConnection(events.NewStatusProbe("x")))
	bus.Stop()

	if n := len(pub.sent()); n != 0 {
		t.Errorf("published %d messages while disconnected", n)
	}
}

func TestMQTTPublishFailureIsCounted(t *testing.T) {
	pub := &fakePublisher{connected: true, err: errors.New("broker gone")}
	m := NewMetrics()
	_, bus := newTestMQTTHandler(pub, m)

	bus.EmitSync(context.Background(), events.FromConnection(events.NewStatusProbe("x")))
	bus.Stop()

	failures := m.deliveryFailures.WithLabelValues("mqtt")
	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(failures) < 1 {
		if time.Now().After(deadline) {
			t.Fatal("publish failure was not counted")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMQTTTopicWithoutPrefix(t *testing.T) {
	h := &MQTTHandler{}
	if got := h.topic(TopicAdmin); got != "admin" {
		t.Errorf("topic = %q, want admin", got)
	}
}

func TestNewMQTTHandlerDisabled(t *testing.T) {
	if _, err := NewMQTTHandler(config.MQTTConfig{}, events.NewEventBus(), nil); err == nil {
		t.Error("expected error for disabled MQTT")
	}
}

package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-haassohn/internal/infrastructure/config"
)

// These tests exercise validation and helpers without a broker.
// Broker round-trips live in integration_test.go.

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "hsbridge-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// disconnectedClient returns a Client that was never connected.
func disconnectedClient() *Client {
	return &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	if disconnectedClient().IsConnected() {
		t.Error("IsConnected() = true for a client that never connected")
	}
}

func TestHealthCheck_Disconnected(t *testing.T) {
	c := disconnectedClient()
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := disconnectedClient()

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "graylogic/test", []byte("x"), 3, ErrInvalidQoS},
		{"payload too large", "graylogic/test", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "graylogic/test", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := disconnectedClient()
	noop := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty) error = %v", err)
	}
	if err := c.Subscribe("a/b", 5, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 5) error = %v", err)
	}
	if err := c.Subscribe("a/b", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v", err)
	}
	if err := c.Subscribe("a/b", 1, noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe(disconnected) error = %v", err)
	}
	if n, ok := trackedSubscriptions(c, "a/b"); n != 0 || ok {
		t.Error("failed subscription should not be tracked")
	}

	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(empty) error = %v", err)
	}
	if err := c.Unsubscribe("a/b"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe(disconnected) error = %v", err)
	}
}

type recordingLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (l *recordingLogger) Info(string, ...any) {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func TestDispatch_RecoversPanicAndLogsErrors(t *testing.T) {
	c := disconnectedClient()
	logger := &recordingLogger{}
	c.SetLogger(logger)

	c.dispatch(func(string, []byte) error { panic("boom") }, "t", nil)
	c.dispatch(func(string, []byte) error { return errors.New("bad payload") }, "t", nil)

	var got string
	c.dispatch(func(_ string, p []byte) error { got = string(p); return nil }, "t", []byte("ok"))

	if len(logger.errors) != 1 {
		t.Errorf("panic logs = %d, want 1", len(logger.errors))
	}
	if len(logger.warns) != 1 {
		t.Errorf("error logs = %d, want 1", len(logger.warns))
	}
	if got != "ok" {
		t.Errorf("handler payload = %q, want ok", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "bridge"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "hsbridge-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "bridge" || opts.Password != "secret" {
		t.Error("credentials not applied")
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Error("expected auto-reconnect and clean session")
	}

	cfg.Broker.TLS = true
	if got := brokerURL(cfg.Broker); got != "ssl://127.0.0.1:1883" {
		t.Errorf("brokerURL(TLS) = %q", got)
	}
	if buildClientOptions(cfg).TLSConfig == nil {
		t.Error("TLS config missing")
	}
}

func TestStatusPayloads(t *testing.T) {
	var online, offline statusMessage
	if err := json.Unmarshal([]byte(buildOnlinePayload("hsbridge")), &online); err != nil {
		t.Fatalf("online payload: %v", err)
	}
	if err := json.Unmarshal([]byte(buildOfflinePayload("hsbridge")), &offline); err != nil {
		t.Fatalf("offline payload: %v", err)
	}

	if online.Status != "online" || online.ClientID != "hsbridge" || online.Reason != "" {
		t.Errorf("online = %+v", online)
	}
	if offline.Status != "offline" || offline.Reason != "graceful_shutdown" {
		t.Errorf("offline = %+v", offline)
	}

	opts := buildClientOptions(testConfig())
	configureLWT(opts, "hsbridge")
	if opts.WillTopic != "graylogic/system/hsbridge/status" || !opts.WillRetained {
		t.Errorf("will = %q retained=%v", opts.WillTopic, opts.WillRetained)
	}
	if !strings.Contains(string(opts.WillPayload), "unexpected_disconnect") {
		t.Errorf("will payload = %s", opts.WillPayload)
	}
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		got, want string
	}{
		{topics.BridgeState("haassohn", "device.sp_temp"), "graylogic/state/haassohn/device.sp_temp"},
		{topics.BridgeCommand("haassohn", "device.prg"), "graylogic/command/haassohn/device.prg"},
		{topics.BridgeAck("haassohn", "device.prg"), "graylogic/ack/haassohn/device.prg"},
		{topics.BridgeHealth("haassohn"), "graylogic/health/haassohn"},
		{topics.BridgeCommands("haassohn"), "graylogic/command/haassohn/+"},
		{topics.ClientStatus("hsbridge"), "graylogic/system/hsbridge/status"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestAddressFromTopic(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		topic string
		want  string
	}{
		{"graylogic/command/haassohn/device.eco_mode", "device.eco_mode"},
		{"graylogic/command/haassohn/", ""},
		{"graylogic/command/knx/device.prg", ""},
		{"graylogic/state/haassohn/device.prg", ""},
	}
	for _, tt := range tests {
		if got := topics.AddressFromTopic(tt.topic, "command", "haassohn"); got != tt.want {
			t.Errorf("AddressFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

// trackedSubscriptions returns the number of tracked subscriptions and
// whether topic is among them.
func trackedSubscriptions(c *Client, topic string) (int, bool) {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, ok := c.subscriptions[topic]
	return len(c.subscriptions), ok
}

package haassohn

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-haassohn/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-haassohn/internal/state"
)

// postedCommand is one POST received by the fake stove.
type postedCommand struct {
	Host          string
	Header        http.Header
	Body          string
	ContentLength int64
}

// fakeStove serves /status.cgi like the stove's Wi-Fi module.
type fakeStove struct {
	mu       sync.Mutex
	status   map[string]any
	rawBody  string // served instead of status when set
	getCode  int
	postCode int
	nonces   []string // rotated into meta.nonce after each accepted POST
	gets     int
	posts    []postedCommand
	server   *httptest.Server
}

func newFakeStove(t *testing.T, status map[string]any) *fakeStove {
	t.Helper()
	s := &fakeStove{status: status, getCode: http.StatusOK, postCode: http.StatusOK}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.server.Close)
	return s
}

// address returns host:port of the fake.
func (s *fakeStove) address() string {
	return strings.TrimPrefix(s.server.URL, "http://")
}

func (s *fakeStove) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/status.cgi" {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		s.gets++
		if s.getCode != http.StatusOK {
			w.WriteHeader(s.getCode)
			return
		}
		if s.rawBody != "" {
			io.WriteString(w, s.rawBody) //nolint:errcheck // test server
			return
		}
		json.NewEncoder(w).Encode(s.status) //nolint:errcheck // test server

	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		s.posts = append(s.posts, postedCommand{
			Host:          r.Host,
			Header:        r.Header.Clone(),
			Body:          string(body),
			ContentLength: r.ContentLength,
		})
		if s.postCode != http.StatusOK {
			w.WriteHeader(s.postCode)
			return
		}
		var change map[string]any
		if err := json.Unmarshal(body, &change); err == nil {
			for k, v := range change {
				s.status[k] = v
			}
		}
		if len(s.nonces) > 0 {
			s.status["meta"].(map[string]any)["nonce"] = s.nonces[0]
			s.nonces = s.nonces[1:]
		}
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *fakeStove) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func (s *fakeStove) postedCommands() []postedCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]postedCommand(nil), s.posts...)
}

func (s *fakeStove) set(fn func(s *fakeStove)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// stoveStatus is a trimmed status document as reported by the stove.
func stoveStatus(nonce string) map[string]any {
	meta := map[string]any{
		"hw_version":   "A",
		"sw_version":   "1",
		"sn":           "1234567890",
		"eco_editable": false,
	}
	if nonce != "" {
		meta["nonce"] = nonce
	}
	return map[string]any{
		"meta":     meta,
		"prg":      2,
		"sp_temp":  21,
		"is_temp":  19.5,
		"mode":     "heating",
		"eco_mode": false,
		"error":    []any{},
	}
}

// testObjects is the default schema plus a JSON leaf used by array tests.
func testObjects(t *testing.T) []state.Object {
	t.Helper()
	objs, err := state.DefaultObjects()
	require.NoError(t, err)
	return append(objs, state.Object{Path: "device.log", Name: "Log", Type: state.TypeJSON})
}

func newTestRegistry(t *testing.T) *state.Registry {
	t.Helper()
	return state.NewRegistry(testObjects(t), nil)
}

// countingStore wraps a StateStore and counts writes per path.
type countingStore struct {
	StateStore
	mu     sync.Mutex
	writes map[string]int
	getErr error
}

func newCountingStore(inner StateStore) *countingStore {
	return &countingStore{StateStore: inner, writes: make(map[string]int)}
}

func (c *countingStore) GetState(ctx context.Context, path string) (*state.Value, error) {
	c.mu.Lock()
	err := c.getErr
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.StateStore.GetState(ctx, path)
}

func (c *countingStore) SetState(ctx context.Context, path string, value any, ack bool) error {
	c.mu.Lock()
	c.writes[path]++
	c.mu.Unlock()
	return c.StateStore.SetState(ctx, path, value, ack)
}

func (c *countingStore) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.writes {
		n += w
	}
	return n
}

func (c *countingStore) count(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[path]
}

func (c *countingStore) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = make(map[string]int)
}

// resultRecorder implements CommandObserver and CommandRecorder.
type resultRecorder struct {
	mu      sync.Mutex
	results []CommandResult
	records []state.CommandRecord
}

func (r *resultRecorder) CommandCompleted(res CommandResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *resultRecorder) RecordCommand(_ context.Context, rec state.CommandRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *resultRecorder) all() []CommandResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CommandResult(nil), r.results...)
}

// changeRecorder collects acknowledged changes from a Registry.
type changeRecorder struct {
	mu      sync.Mutex
	changes []state.Change
}

func (r *changeRecorder) listen(_ context.Context, c state.Change) {
	if !c.Ack {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *changeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu        sync.Mutex
	published []mockPublish
	handlers  map[string]mqtt.MessageHandler
	connected bool
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{connected: true, handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, mockPublish{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) setConnected(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = v
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

// SimulateMessage delivers payload to the handler subscribed on pattern.
func (m *MockMQTTClient) SimulateMessage(pattern, topic string, payload []byte) error {
	m.mu.Lock()
	handler, ok := m.handlers[pattern]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return handler(topic, payload)
}

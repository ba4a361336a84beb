package haassohn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-haassohn/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-haassohn/internal/state"
)

// applyTimeout bounds handing an MQTT command to the state store.
const applyTimeout = 5 * time.Second

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests; *mqtt.Client implements it.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// CommandSink accepts client writes. *state.Registry implements it.
type CommandSink interface {
	Apply(ctx context.Context, change state.Change) error
}

// MQTTLink mirrors the state store onto MQTT:
//   - acknowledged values are published retained on graylogic/state/haassohn/{path}
//   - writes on graylogic/command/haassohn/{path} become unacknowledged changes
//   - command outcomes are published on graylogic/ack/haassohn/{path}
type MQTTLink struct {
	client MQTTClient
	sink   CommandSink
	topics mqtt.Topics
	logger Logger
}

// NewMQTTLink creates a link. Call Start to subscribe to commands and
// register HandleChange as a state listener.
func NewMQTTLink(client MQTTClient, sink CommandSink, logger Logger) (*MQTTLink, error) {
	if client == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("command sink is required")
	}
	return &MQTTLink{client: client, sink: sink, logger: logger}, nil
}

// Start subscribes to the command topics.
func (l *MQTTLink) Start() error {
	topic := l.topics.BridgeCommands(Protocol)
	if err := l.client.Subscribe(topic, 1, l.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	logInfo(l.logger, "subscribed to commands", "topic", topic)
	return nil
}

// HandleChange is a state.Listener publishing acknowledged values.
func (l *MQTTLink) HandleChange(_ context.Context, change state.Change) {
	if !change.Ack {
		return
	}

	payload, err := json.Marshal(StateMessage{
		Path:      change.Path,
		Value:     change.Value,
		Source:    change.Source,
		Timestamp: change.Timestamp.UTC(),
		Protocol:  Protocol,
	})
	if err != nil {
		logError(l.logger, "failed to marshal state", "path", change.Path, "error", err)
		return
	}

	if err := l.client.Publish(l.topics.BridgeState(Protocol, change.Path), payload, 1, true); err != nil {
		logError(l.logger, "failed to publish state", "path", change.Path, "error", err)
	}
}

// CommandCompleted publishes the acknowledgement for a dispatched command.
func (l *MQTTLink) CommandCompleted(res CommandResult) {
	l.publishAck(NewAckMessage(res))
}

func (l *MQTTLink) handleCommand(topic string, payload []byte) error {
	path := l.topics.AddressFromTopic(topic, "command", Protocol)
	if path == "" {
		return fmt.Errorf("unexpected command topic %q", topic)
	}

	msg, err := ParseCommandMessage(payload)
	if err != nil {
		l.reject(uuid.NewString(), path, nil, ErrCodeInvalidValue, err)
		return nil
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	logInfo(l.logger, "received command", "command_id", msg.ID, "path", path)

	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()

	err = l.sink.Apply(ctx, state.Change{
		Path:      path,
		Value:     msg.Value,
		Source:    state.SourceMQTT,
		CommandID: msg.ID,
	})
	if err != nil {
		code := ErrCodeBridgeError
		switch {
		case errors.Is(err, state.ErrUnknownPath), errors.Is(err, state.ErrReadOnly):
			code = ErrCodeNotWritable
		case errors.Is(err, state.ErrInvalidType):
			code = ErrCodeInvalidValue
		}
		l.reject(msg.ID, path, msg.Value, code, err)
	}
	return nil
}

func (l *MQTTLink) reject(id, path string, value any, code string, err error) {
	logWarn(l.logger, "command rejected", "command_id", id, "path", path, "error", err)
	l.publishAck(AckMessage{
		CommandID: id,
		Timestamp: time.Now().UTC(),
		Path:      path,
		Value:     value,
		Status:    AckRejected,
		Protocol:  Protocol,
		Error:     &AckError{Code: code, Message: err.Error()},
	})
}

func (l *MQTTLink) publishAck(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		logError(l.logger, "failed to marshal ack", "error", err)
		return
	}
	if err := l.client.Publish(l.topics.BridgeAck(Protocol, ack.Path), payload, 1, false); err != nil {
		logError(l.logger, "failed to publish ack", "error", err)
	}
}

package haassohn

import (
	"encoding/json"
	"fmt"
	"time"
)

// Protocol is the protocol segment of every MQTT topic this bridge uses.
const Protocol = "haassohn"

// CommandMessage is a write request received over MQTT.
// Topic: graylogic/command/haassohn/{path}
//
// The payload is either {"id": "...", "value": 22} or a bare JSON value.
type CommandMessage struct {
	// ID correlates the command with its acknowledgement. Generated when empty.
	ID string `json:"id,omitempty"`

	// Value is the requested value.
	Value any `json:"value"`
}

// ParseCommandMessage decodes an MQTT command payload.
func ParseCommandMessage(payload []byte) (CommandMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err == nil {
		if _, ok := envelope["value"]; ok {
			var msg CommandMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				return CommandMessage{}, fmt.Errorf("decoding command: %w", err)
			}
			return msg, nil
		}
	}

	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return CommandMessage{}, fmt.Errorf("decoding command value: %w", err)
	}
	return CommandMessage{Value: value}, nil
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the stove answered 200 and the value was stored.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the POST failed or the stove refused it.
	AckFailed AckStatus = "failed"

	// AckRejected indicates the command was dropped before anything was sent.
	AckRejected AckStatus = "rejected"
)

// Error codes for command failures.
const (
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeProtocolError     = "PROTOCOL_ERROR"
	ErrCodeNotEditable       = "NOT_EDITABLE"
	ErrCodeNoSessionToken    = "NO_SESSION_TOKEN"
	ErrCodeBridgeDisabled    = "BRIDGE_DISABLED"
	ErrCodeNotWritable       = "NOT_WRITABLE"
	ErrCodeInvalidValue      = "INVALID_VALUE"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// AckMessage reports the outcome of a command.
// Topic: graylogic/ack/haassohn/{path}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Value     any       `json:"value"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed or rejected commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewAckMessage builds the acknowledgement for a command result.
func NewAckMessage(res CommandResult) AckMessage {
	ack := AckMessage{
		CommandID: res.ID,
		Timestamp: res.Completed.UTC(),
		Path:      res.Path,
		Value:     res.Value,
		Status:    res.Status,
		Protocol:  Protocol,
	}
	if res.Err != nil {
		ack.Error = &AckError{Code: res.Code, Message: res.Err.Error()}
	}
	return ack
}

// StateMessage carries one acknowledged value.
// Topic: graylogic/state/haassohn/{path}
// QoS: 1, Retained: Yes
type StateMessage struct {
	Path      string    `json:"path"`
	Value     any       `json:"value"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Protocol  string    `json:"protocol"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the last poll succeeded and nothing is flagged.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates failing polls, a schema mismatch, or a lost
	// MQTT connection.
	HealthDegraded HealthStatus = "degraded"

	// HealthUnhealthy indicates the bridge disabled itself.
	HealthUnhealthy HealthStatus = "unhealthy"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published periodically.
// Topic: graylogic/health/haassohn
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge        string       `json:"bridge"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Device        *Health      `json:"device,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}

package state

import (
	"time"
)

// ObjectType describes the value kind stored under a path.
type ObjectType string

// Object value kinds.
const (
	TypeBoolean ObjectType = "boolean"
	TypeNumber  ObjectType = "number"
	TypeString  ObjectType = "string"
	// TypeJSON holds arrays and objects serialised to JSON text.
	TypeJSON ObjectType = "json"
)

// Object is the schema entry for one state path.
type Object struct {
	Path  string     `yaml:"path" json:"path"`
	Name  string     `yaml:"name" json:"name"`
	Type  ObjectType `yaml:"type" json:"type"`
	Role  string     `yaml:"role" json:"role,omitempty"`
	Unit  string     `yaml:"unit" json:"unit,omitempty"`
	Write bool       `yaml:"write" json:"write"`
}

// Value is the last acknowledged value stored under a path.
type Value struct {
	Path      string    `json:"path"`
	Value     any       `json:"value"`
	Ack       bool      `json:"ack"`
	Source    string    `json:"source,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Change describes a write to the store, delivered to every listener.
//
// Ack is true for values confirmed by the device (poll results, command
// acknowledgements) and false for commands requested by a client.
type Change struct {
	Path      string
	Value     any
	Ack       bool
	Source    string
	CommandID string
	Timestamp time.Time
}

// Change sources.
const (
	SourceDevice = "device"
	SourceBridge = "bridge"
	SourceAPI    = "api"
	SourceMQTT   = "mqtt"
)

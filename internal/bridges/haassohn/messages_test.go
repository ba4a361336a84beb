package haassohn

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantID  string
		want    any
	}{
		{"envelope", `{"id":"c1","value":22.5}`, "c1", 22.5},
		{"envelope without id", `{"value":true}`, "", true},
		{"bare number", `21`, "", 21.0},
		{"bare bool", `false`, "", false},
		{"object without value", `{"prg":1}`, "", map[string]any{"prg": 1.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseCommandMessage([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, msg.ID)
			assert.Equal(t, tt.want, msg.Value)
		})
	}

	_, err := ParseCommandMessage([]byte("not json"))
	assert.Error(t, err)
}

func TestNewAckMessage(t *testing.T) {
	at := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	ok := NewAckMessage(CommandResult{
		Command:   Command{ID: "c1", Path: "device.prg", Value: 1.0},
		Status:    AckAccepted,
		Completed: at,
	})
	assert.Equal(t, "c1", ok.CommandID)
	assert.Equal(t, Protocol, ok.Protocol)
	assert.Nil(t, ok.Error)
	assert.Equal(t, at, ok.Timestamp)

	failed := NewAckMessage(CommandResult{
		Command: Command{ID: "c2", Path: "device.prg"},
		Status:  AckFailed,
		Code:    ErrCodeDeviceUnreachable,
		Err:     errors.New("dial tcp: refused"),
	})
	require.NotNil(t, failed.Error)
	assert.Equal(t, ErrCodeDeviceUnreachable, failed.Error.Code)
	assert.Equal(t, "dial tcp: refused", failed.Error.Message)
}

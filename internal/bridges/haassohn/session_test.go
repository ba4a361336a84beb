package haassohn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_ObserveFact(t *testing.T) {
	s := NewSession("1234")

	assert.False(t, s.ObserveFact("device.sp_temp", 21.0), "other paths are not facts")
	assert.False(t, s.ObserveFact(PathNonce, nil))

	_, _, ok := s.Versions()
	assert.False(t, ok)

	assert.True(t, s.ObserveFact(PathHWVersion, "A"))
	assert.False(t, s.ObserveFact(PathHWVersion, "A"))
	_, _, ok = s.Versions()
	assert.False(t, ok, "both versions are required")

	assert.True(t, s.ObserveFact(PathSWVersion, 256.0))
	hw, sw, ok := s.Versions()
	assert.True(t, ok)
	assert.Equal(t, "A", hw)
	assert.Equal(t, "256", sw)
}

func TestSession_TokenFollowsNonce(t *testing.T) {
	s := NewSession("4711")

	assert.True(t, s.ObserveFact(PathNonce, "a1b2c3"))
	token, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, "5fb46c1b2c664976e80ef79fecfc786c", token)

	assert.False(t, s.ObserveFact(PathNonce, "a1b2c3"))

	assert.True(t, s.ObserveFact(PathNonce, 12345.0))
	token, _ = s.Token()
	assert.Equal(t, DeriveToken("12345", DeriveSecret("4711")), token)
}

func TestSession_Counters(t *testing.T) {
	s := NewSession("")
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	assert.False(t, s.Snapshot().Connected, "not connected before the first poll")

	assert.Equal(t, 1, s.RecordFailure(now))
	assert.Equal(t, 2, s.RecordFailure(now.Add(time.Second)))
	assert.Equal(t, 2, s.ErrorCount())

	s.RecordSuccess(now.Add(2 * time.Second))
	snap := s.Snapshot()
	assert.Zero(t, snap.ConsecutiveErrors)
	assert.Equal(t, uint64(3), snap.Polls)
	assert.Equal(t, uint64(2), snap.Failures)
	assert.True(t, snap.Connected)
	assert.Equal(t, now.Add(2*time.Second), snap.LastSuccess)
}

func TestSession_DisableIsTerminal(t *testing.T) {
	s := NewSession("1234")
	s.RecordSuccess(time.Now())

	assert.False(t, s.Disabled())
	assert.True(t, s.Disable("unsupported"))
	assert.False(t, s.Disable("second reason"))
	assert.True(t, s.Disabled())

	snap := s.Snapshot()
	assert.Equal(t, PhaseDisabled, snap.Phase)
	assert.Equal(t, "unsupported", snap.DisabledReason)
	assert.False(t, snap.Connected)
}

func TestSession_MissingStateIsSticky(t *testing.T) {
	s := NewSession("1234")
	assert.False(t, s.MissingState())
	s.MarkMissing()
	s.RecordSuccess(time.Now())
	assert.True(t, s.MissingState())
}

package haassohn

import (
	"fmt"
	"sync"
	"time"
)

// Well-known state paths.
const (
	PathHWVersion   = "device.meta.hw_version"
	PathSWVersion   = "device.meta.sw_version"
	PathNonce       = "device.meta.nonce"
	PathEcoEditable = "device.meta.eco_editable"

	PathConnection   = "info.connection"
	PathMissingState = "info.missing_state"
	PathTerminated   = "info.terminated"
)

// Phase is the bridge lifecycle state. PhaseDisabled is terminal.
type Phase string

const (
	PhaseActive   Phase = "active"
	PhaseDisabled Phase = "disabled"
)

// Session holds everything the bridge learns about the stove across polls:
// the credential material, the version and nonce facts, and the health
// counters. It is owned by the poll loop; readers take snapshots.
type Session struct {
	mu sync.RWMutex

	secret string
	token  string
	nonce  string

	hwVersion string
	swVersion string
	hwKnown   bool
	swKnown   bool

	errorCount   int
	missingState bool
	phase        Phase
	reason       string

	polls       uint64
	failures    uint64
	lastPoll    time.Time
	lastSuccess time.Time
}

// SessionSnapshot is a point-in-time copy of a Session.
type SessionSnapshot struct {
	Phase             Phase     `json:"phase"`
	Connected         bool      `json:"connected"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
	MissingState      bool      `json:"missing_state"`
	DisabledReason    string    `json:"disabled_reason,omitempty"`
	HWVersion         string    `json:"hw_version,omitempty"`
	SWVersion         string    `json:"sw_version,omitempty"`
	HasToken          bool      `json:"has_token"`
	Polls             uint64    `json:"polls"`
	Failures          uint64    `json:"failures"`
	LastPoll          time.Time `json:"last_poll,omitempty"`
	LastSuccess       time.Time `json:"last_success,omitempty"`
}

// NewSession derives the device secret from pin and starts in PhaseActive.
func NewSession(pin string) *Session {
	return &Session{
		secret: DeriveSecret(pin),
		phase:  PhaseActive,
	}
}

// ObserveFact records a distinguished leaf value. Values of other paths
// are ignored. A new nonce recomputes the session token. It reports whether
// a retained fact changed.
func (s *Session) ObserveFact(path string, value any) bool {
	if value == nil {
		return false
	}
	text := factString(value)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch path {
	case PathHWVersion:
		if s.hwKnown && s.hwVersion == text {
			return false
		}
		s.hwVersion, s.hwKnown = text, true
	case PathSWVersion:
		if s.swKnown && s.swVersion == text {
			return false
		}
		s.swVersion, s.swKnown = text, true
	case PathNonce:
		if s.token != "" && s.nonce == text {
			return false
		}
		s.nonce = text
		s.token = DeriveToken(text, s.secret)
	default:
		return false
	}
	return true
}

// Token returns the current session token, if a nonce has been seen.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Versions returns the hardware and software versions once both are known.
func (s *Session) Versions() (hw, sw string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hwVersion, s.swVersion, s.hwKnown && s.swKnown
}

// RecordFailure counts a failed poll and returns the consecutive count.
func (s *Session) RecordFailure(at time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCount++
	s.failures++
	s.polls++
	s.lastPoll = at
	return s.errorCount
}

// RecordSuccess resets the consecutive error count.
func (s *Session) RecordSuccess(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCount = 0
	s.polls++
	s.lastPoll = at
	s.lastSuccess = at
}

// ErrorCount returns the number of consecutive failed polls.
func (s *Session) ErrorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorCount
}

// MarkMissing flags a schema mismatch. The flag stays set for the lifetime
// of the session.
func (s *Session) MarkMissing() {
	s.mu.Lock()
	s.missingState = true
	s.mu.Unlock()
}

// MissingState reports whether any status leaf had no schema object.
func (s *Session) MissingState() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.missingState
}

// Disable moves the session to PhaseDisabled. It returns false if the
// session was already disabled, keeping the first reason.
func (s *Session) Disable(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseDisabled {
		return false
	}
	s.phase = PhaseDisabled
	s.reason = reason
	return true
}

// Disabled reports whether the session reached its terminal phase.
func (s *Session) Disabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase == PhaseDisabled
}

// Snapshot returns a copy of the session state. Credentials are reduced to
// HasToken.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionSnapshot{
		Phase:             s.phase,
		Connected:         s.polls > 0 && s.errorCount == 0 && s.phase == PhaseActive,
		ConsecutiveErrors: s.errorCount,
		MissingState:      s.missingState,
		DisabledReason:    s.reason,
		HWVersion:         s.hwVersion,
		SWVersion:         s.swVersion,
		HasToken:          s.token != "",
		Polls:             s.polls,
		Failures:          s.failures,
		LastPoll:          s.lastPoll,
		LastSuccess:       s.lastSuccess,
	}
}

// factString renders a fact as text. Numbers use their shortest form, so a
// nonce reported as 12345 hashes as "12345".
func factString(v any) string {
	if t, ok := v.(string); ok {
		return t
	}
	return fmt.Sprint(v)
}

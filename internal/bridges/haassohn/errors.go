package haassohn

import "errors"

// Domain errors for the Haas+Sohn bridge package.
var (
	// ErrTransport is returned when the stove cannot be reached or the
	// request times out.
	ErrTransport = errors.New("haassohn: transport error")

	// ErrProtocol is returned for a non-200 response, a body that is not
	// a JSON object, or a document holding a null value.
	ErrProtocol = errors.New("haassohn: protocol error")

	// ErrSchemaMismatch marks a status leaf with no matching object in the
	// state store.
	ErrSchemaMismatch = errors.New("haassohn: state path not in schema")

	// ErrUnsupportedVersion is returned when the hardware/software pair is
	// not in the allow-list, or the allow-list cannot be read.
	ErrUnsupportedVersion = errors.New("haassohn: unsupported hardware/software version")

	// ErrNoSessionToken is returned when a command is requested before any
	// nonce was observed.
	ErrNoSessionToken = errors.New("haassohn: no session token")

	// ErrDisabled is returned for work requested after the bridge disabled
	// itself.
	ErrDisabled = errors.New("haassohn: bridge disabled")

	// ErrEcoNotEditable is returned when eco mode is written while the stove
	// reports it as not editable.
	ErrEcoNotEditable = errors.New("haassohn: eco mode not editable")

	// ErrNotWritable is returned for commands on paths the stove does not
	// accept.
	ErrNotWritable = errors.New("haassohn: path not writable")

	// ErrStopped is returned when the bridge is shutting down.
	ErrStopped = errors.New("haassohn: bridge stopped")
)

// Package haassohn implements the polling bridge for Haas+Sohn pellet stoves.
//
// The stove exposes a single HTTP endpoint, /status.cgi. A GET returns the
// full status document as nested JSON; a POST with a one-field JSON body
// changes a setting. The bridge polls the document on a fixed interval,
// flattens it into dotted state paths ("device.meta.nonce", "device.sp_temp")
// and writes changed leaves into the host state store. Writes requested by
// clients on a few paths are sent back to the stove as authenticated POSTs.
//
// # Architecture
//
//	┌──────────────┐  Change   ┌──────────────┐   HTTP/JSON   ┌─────────┐
//	│ state store  │◄─────────►│    Bridge    │◄─────────────►│  stove  │
//	│ (Registry)   │           │ (this pkg)   │  status.cgi   │         │
//	└──────┬───────┘           └──────────────┘               └─────────┘
//	       │ listeners
//	       ▼
//	  MQTTLink, InfluxDB, WebSocket hub
//
// # Authentication
//
// Commands carry an X-HS-PIN header. The stove rotates a nonce, reported at
// device.meta.nonce, and expects:
//
//	secret = md5hex(pin)
//	token  = md5hex(nonce + secret)
//
// The secret is derived once at startup. The token is recomputed whenever the
// nonce changes, and every command is followed by an immediate poll so the
// next command uses the rotated nonce.
//
// # Lifecycle
//
// A single goroutine owns the poll timer, forced polls and command
// dispatch, so two polls never overlap and a command never races a sync
// pass. The bridge disables itself permanently when the stove reports an
// unsupported hardware/software pair or a sync pass fails; it then publishes
// info.terminated and stops polling until the process restarts.
//
// # Thread Safety
//
// All exported methods of Bridge and MQTTLink are safe for concurrent use.
package haassohn

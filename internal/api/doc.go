// Package api implements the HTTP REST API and WebSocket server for the stove bridge.
//
// This package provides:
//   - GET /api/v1/health with the bridge's session snapshot
//   - Object schema and state reads under /api/v1/objects and /api/v1/states
//   - PUT /api/v1/states/{path} to queue a command for a writable path
//   - GET /api/v1/commands listing recent command outcomes
//   - A WebSocket hub at /api/v1/ws relaying store writes
//
// # Commands
//
// A PUT is validated against the object schema and handed to the state store
// as an unacknowledged write. The response is 202 Accepted with a command ID;
// the bridge POSTs the value to the stove and the confirmed value arrives on
// the state.changed WebSocket channel.
//
// # Security
//
// When security.jwt.secret is set, every route except /health requires an
// HS256 bearer token. Browsers opening the WebSocket pass it as the
// access_token query parameter instead.
package api

// Package state is the bridge's host key-value state store.
//
// A Registry combines a fixed object schema (objects.yaml, embedded) with the
// last acknowledged value of every path. Paths are dotted, e.g.
// "device.meta.nonce" or "info.connection". Looking up a path that is not in
// the schema returns a nil Object, which the stove bridge treats as a data
// model mismatch.
//
// Writes carry an ack flag. Acknowledged writes come from the device side and
// replace the stored value. Unacknowledged writes are commands from the API
// or MQTT: listeners (the bridge's command dispatcher) receive them, and the
// stored value only changes once the device confirms the command with an
// acknowledged write.
//
// Values are persisted through a Repository; SQLiteRepository keeps them in
// the states table and also logs command outcomes in command_log.
package state

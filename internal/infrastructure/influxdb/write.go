package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the bridge.
const (
	MeasurementStoveState  = "stove_state"
	MeasurementBridgeState = "bridge_health"
)

// WriteStateValue records one state path value.
//
// Only numbers and booleans are written: they are what is worth graphing
// (temperatures, counters, modes). Booleans become 1.0/0.0 so the value
// field stays float across all paths. Strings and JSON-encoded arrays are
// ignored and WriteStateValue reports false.
//
// Example:
//
//	client.WriteStateValue("site-001", "device.is_temp", 21.5, time.Now())
func (c *Client) WriteStateValue(site, path string, value any, ts time.Time) bool {
	if !c.IsConnected() {
		return false
	}

	field, ok := numericField(value)
	if !ok {
		return false
	}

	c.writePoint(MeasurementStoveState,
		map[string]string{
			"site": site,
			"path": path,
		},
		map[string]any{"value": field},
		ts,
	)
	return true
}

// WriteBridgeHealth records the bridge's poll health.
func (c *Client) WriteBridgeHealth(site string, consecutiveErrors int, connected, disabled bool) {
	if !c.IsConnected() {
		return
	}

	c.writePoint(MeasurementBridgeState,
		map[string]string{"site": site},
		map[string]any{
			"consecutive_errors": consecutiveErrors,
			"connected":          connected,
			"disabled":           disabled,
		},
		time.Now(),
	)
}

func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}

// numericField converts JSON-decoded numbers and booleans to a field value.
func numericField(v any) (any, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1.0, true
		}
		return 0.0, true
	default:
		return nil, false
	}
}

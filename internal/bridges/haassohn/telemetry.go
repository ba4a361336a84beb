package haassohn

import (
	"context"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-haassohn/internal/state"
)

// TelemetryWriter stores numeric and boolean state history.
// *influxdb.Client implements it.
type TelemetryWriter interface {
	WriteStateValue(site, path string, value any, ts time.Time) bool
}

// TelemetryListener returns a state.Listener forwarding acknowledged device
// values to w. Health flags and commands are not recorded.
func TelemetryListener(w TelemetryWriter, site string) state.Listener {
	return func(_ context.Context, change state.Change) {
		if !change.Ack || !strings.HasPrefix(change.Path, rootSegment+".") {
			return
		}
		w.WriteStateValue(site, change.Path, change.Value, change.Timestamp)
	}
}

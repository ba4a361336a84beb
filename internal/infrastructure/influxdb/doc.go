// Package influxdb records stove telemetry in InfluxDB v2.
//
// Every acknowledged numeric or boolean state value (temperatures, counters,
// program state) becomes a point in the stove_state measurement tagged with
// its path, and each poll cycle records the bridge's health in bridge_health.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteStateValue(cfg.Site.ID, "device.is_temp", 21.5, time.Now())
//
// # Error Handling
//
// Writes are non-blocking and batched (batch_size, flush_interval). Batch
// failures are delivered to the SetOnError callback wrapped in ErrWriteFailed.
package influxdb

// Package influxdb writes mixroute telemetry to InfluxDB v2.
//
// It wraps influxdb-client-go with the engine's connection handling and a
// small write surface used by the metering reporter:
//
//	metering.Reporter ─► influxdb.Client.WritePoint ─► batched WriteAPI ─► InfluxDB
//
// Measurements written by the engine:
//
//	sidechain_bus   tags: bus_id            fields: envelope, peak, rms
//	vca_fader       tags: fader_id, name    fields: volume, effective
//	routing_matrix  tags: instance          fields: points, routes, enabled_routes
//
// Writes are non-blocking and batched; failures surface through the
// SetOnError callback rather than return values.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package influxdb

// Package metering periodically exports engine telemetry.
//
// Each tick the Reporter snapshots the sidechain bus meters, every VCA
// fader's local and effective volume, and the routing matrix counts, and
// hands them to a Writer (normally the InfluxDB client). Bus meters can
// also be published to MQTT on mixroute/core/meter/{bus_id} for control
// surfaces that draw level meters.
//
// Snapshots only take the components' read paths, so reporting never
// holds a lock the audio thread needs for longer than one meter copy.
package metering

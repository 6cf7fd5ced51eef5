package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/mixroute-core/internal/relay"
	"github.com/nerrad567/mixroute-core/internal/routing"
	"github.com/nerrad567/mixroute-core/internal/vca"
)

// SystemMetrics is the JSON metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	Connections   ConnMetrics      `json:"connections"`
	Relay         *relay.Stats     `json:"relay,omitempty"`
	Routing       routing.Stats    `json:"routing"`
	VCA           vca.Stats        `json:"vca"`
	Sidechain     SidechainMetrics `json:"sidechain"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// ConnMetrics reports outbound connection state. A nil field means the
// integration is disabled.
type ConnMetrics struct {
	MQTT     *bool `json:"mqtt,omitempty"`
	InfluxDB *bool `json:"influxdb,omitempty"`
}

// SidechainMetrics counts sidechain objects.
type SidechainMetrics struct {
	Routes         int `json:"routes"`
	IndexedEffects int `json:"indexed_effects"`
	Buses          int `json:"buses"`
}

func connected(c ConnectionChecker) *bool {
	if c == nil {
		return nil
	}
	v := c.IsConnected()
	return &v
}

// handleMetrics returns system and engine metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{ConnectedClients: s.hub.ClientCount()},
		Connections: ConnMetrics{
			MQTT:     connected(s.mqtt),
			InfluxDB: connected(s.influx),
		},
		Routing: s.matrix.GetStats(),
		VCA:     s.vca.GetStats(),
		Sidechain: SidechainMetrics{
			Routes:         len(s.sidechain.Routes()),
			IndexedEffects: len(s.sidechain.IndexedEffects()),
			Buses:          len(s.buses.Buses()),
		},
	}

	if s.relay != nil {
		stats := s.relay.Stats()
		metrics.Relay = &stats
	}

	writeJSON(w, http.StatusOK, metrics)
}

// mixroute is the signal-routing core of a digital audio workstation.
//
// It owns the routing matrix, the VCA fader overlay and the sidechain
// overlay, seeds them from the configured layout, and exposes them over a
// REST/WebSocket control API. Lifecycle events are relayed to MQTT and
// meters are exported to InfluxDB when those integrations are enabled.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nerrad567/mixroute-core/internal/api"
	"github.com/nerrad567/mixroute-core/internal/infrastructure/config"
	"github.com/nerrad567/mixroute-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/mixroute-core/internal/infrastructure/logging"
	"github.com/nerrad567/mixroute-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/mixroute-core/internal/metering"
	"github.com/nerrad567/mixroute-core/internal/relay"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command-line arguments without the program name
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, args []string) error {
	log := logging.Default()

	configPath, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting mixroute",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
		"instance", cfg.Instance.ID,
		"sample_rate", cfg.Engine.SampleRate,
		"buffer_size", cfg.Engine.BufferSize,
	)

	eng, err := newEngine(cfg, log)
	if err != nil {
		return err
	}
	defer eng.close()

	sum, err := applyLayout(eng, cfg.Layout)
	if err != nil {
		return fmt.Errorf("applying layout: %w", err)
	}
	log.Info("layout applied",
		"points", sum.Points,
		"routes", sum.Routes,
		"groups", sum.Groups,
		"faders", sum.Faders,
		"buses", sum.Buses,
		"sidechain_routes", sum.SidechainRoutes,
	)
	if err := eng.matrix.Verify(); err != nil {
		return fmt.Errorf("verifying routing matrix: %w", err)
	}

	// Optional integrations. Interfaces stay nil when disabled so that
	// consumers see "absent" rather than a typed nil pointer.
	var (
		mqttClient   *mqtt.Client
		influxClient *influxdb.Client
		publisher    relay.Publisher
		mqttConn     api.ConnectionChecker
		influxConn   api.ConnectionChecker
	)

	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log.Component("mqtt"))
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		publisher = mqttClient
		mqttConn = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		influxConn = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(runCtx)
	}()

	rel := relay.New(relay.Deps{
		BufferSize:  cfg.Relay.BufferSize,
		Publisher:   publisher,
		Broadcaster: hub,
		Logger:      log.Component("relay"),
	})
	rel.AttachRouting(eng.matrix)
	rel.AttachVCA(eng.vca)
	rel.AttachSidechain(eng.sidechain)
	wg.Add(1)
	go func() {
		defer wg.Done()
		rel.Run(runCtx)
	}()

	if cfg.Metering.Enabled && influxClient != nil {
		deps := metering.Deps{
			Instance: cfg.Instance.ID,
			Interval: cfg.GetMeteringInterval(),
			Matrix:   eng.matrix,
			VCA:      eng.vca,
			Buses:    eng.buses,
			Writer:   influxClient,
			Logger:   log.Component("metering"),
		}
		if mqttClient != nil {
			deps.Publisher = mqttClient
		}
		reporter := metering.NewReporter(deps)
		wg.Add(1)
		go func() {
			defer wg.Done()
			reporter.Run(runCtx)
		}()
		log.Info("metering started", "interval", deps.Interval)
	} else if cfg.Metering.Enabled {
		log.Warn("metering enabled but InfluxDB is not; meters will not be exported")
	}

	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Logger:    log.Component("api"),
		Matrix:    eng.matrix,
		VCA:       eng.vca,
		Sidechain: eng.sidechain,
		Buses:     eng.buses,
		Relay:     rel,
		MQTT:      mqttConn,
		InfluxDB:  influxConn,
		Hub:       hub,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(runCtx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	if err := server.Close(); err != nil {
		log.Error("error closing API server", "error", err)
	}
	stop()
	wg.Wait()

	log.Info("mixroute stopped", "relay", rel.Stats())
	return nil
}

// parseFlags returns the configuration path from -config, then the
// MIXROUTE_CONFIG environment variable, then the default.
func parseFlags(args []string) (string, error) {
	fs := flag.NewFlagSet("mixroute", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to the YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *configPath != "" {
		return *configPath, nil
	}
	if path := os.Getenv("MIXROUTE_CONFIG"); path != "" {
		return path, nil
	}
	return defaultConfigPath, nil
}

// healthCheck verifies the enabled infrastructure connections.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

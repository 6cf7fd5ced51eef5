// Package config handles loading and validating mixroute configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (MIXROUTE_*)
//   - Validation of required fields
//   - Default value handling
//
// The layout section seeds the routing matrix, VCA groups and sidechain
// routes at startup. It is read-only: the engine never writes the session
// back to disk.
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/mixroute.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Engine.SampleRate)
package config

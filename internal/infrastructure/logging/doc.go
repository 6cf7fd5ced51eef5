// Package logging provides structured logging for the mixroute engine.
//
// It wraps log/slog so every component logs the same way: JSON in
// production, text while developing, and a fixed set of default fields
// on every entry.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	matrix.SetLogger(logger.Component("routing"))
//
// A *Logger satisfies the small Logger interfaces declared by the domain
// packages (routing, vca, sidechain, relay, metering), so it can be handed
// to them directly.
//
// Never log audio buffers or per-sample values: logging runs on control
// threads only.
package logging

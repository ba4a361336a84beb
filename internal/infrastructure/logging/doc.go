// Package logging provides structured logging for hsbridge.
//
// It wraps log/slog with JSON or text output, level filtering and the
// default fields service and version on every entry.
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("bridge started", "address", cfg.Device.Address)
//
// Never log the device PIN or the derived secret. Session tokens may be
// logged at debug level only, truncated:
//
//	logger.Debug("session token updated", "token_prefix", token[:6]+"...")
package logging

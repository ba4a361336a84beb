// Package config loads and validates hsbridge configuration.
//
// Configuration is read from a YAML file, then overridden by HSBRIDGE_*
// environment variables, then validated as a whole so that every problem
// is reported in one message.
//
// Security Considerations:
//   - The device PIN and JWT secret should come from the environment
//   - DeviceConfig.String redacts the PIN
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	allow, err := cfg.Device.AllowList()
package config

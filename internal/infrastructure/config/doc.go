// Package config handles loading and validating Secret Box controller configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (SECRETBOX_*)
//   - Validation of required fields and cross-section dependencies
//   - Default value handling
//
// The defaults describe a bench setup: in-memory GPIO, sounds written to the
// log, and MQTT, the HTTP API, SQLite and InfluxDB all disabled. A
// deployment turns on what the room needs.
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The JWT secret is only required once the HTTP API is enabled
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Show.Path)
package config

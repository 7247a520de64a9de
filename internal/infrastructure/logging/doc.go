// Package logging provides structured logging for the Secret Box controller.
//
// It wraps log/slog. Every record carries service=secretbox and the build
// version; subsystems add component=<name> through Component.
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
//	engine, _ := chain.NewEngine(chain.Config{Logger: logger.Component("chain")})
//
// Never log secrets or tokens.
package logging

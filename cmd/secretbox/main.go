// Secret Box controller.
//
// secretbox runs the chain engine for one prop box: it drives the box's
// GPIO pins and sound player from the sequences in a show file, accepts
// I2C command frames over MQTT and serves a small HTTP API.
//
//	secretbox serve            run the controller
//	secretbox check show.yaml  validate a show and simulate its chains
//	secretbox token operator   mint an API access token
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnvVar      = "SECRETBOX_CONFIG"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "secretbox",
		Short:         "Secret Box prop controller",
		Long:          "secretbox sequences pins and sounds for an escape-room prop from a show file.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "config file (default $"+configEnvVar+" or "+defaultConfigPath+")")

	root.AddCommand(newServeCmd(), newCheckCmd(), newTokenCmd())
	return root
}

// configPath resolves the config file: flag, then environment, then default.
func configPath(cmd *cobra.Command) string {
	if f := cmd.Flag("config"); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

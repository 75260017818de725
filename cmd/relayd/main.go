package main

import (
	"fmt"
	"os"

	"github.com/matheus3301/wprelay/internal/config"
	"github.com/matheus3301/wprelay/internal/daemon"
	"github.com/matheus3301/wprelay/internal/layout"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
)

func main() {
	configPath := pflag.String("config", layout.ConfigPath(), "path to config.toml")
	envPath := pflag.String("env-file", layout.EnvPath(), "path to a .env file with WPRELAY_* overrides")
	dataDir := pflag.String("data-dir", "", "data directory (overrides config)")
	socket := pflag.String("socket", "", "control socket path (overrides config)")
	logLevel := pflag.String("log-level", "", "log level (overrides config)")
	writeConfig := pflag.Bool("write-config", false, "write the effective config to --config and exit")
	pflag.Parse()

	cfg, err := config.Resolve(*configPath, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *socket != "" {
		cfg.SocketPath = *socket
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	if *writeConfig {
		if err := config.Save(*configPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("config written to", *configPath)
		return
	}

	app := fx.New(
		daemon.Module(daemon.Params{Config: cfg}),
	)

	app.Run()
}

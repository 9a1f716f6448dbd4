package main

import (
	"agentterm/agents"
	"agentterm/internal/config"
	"agentterm/internal/logger"
	"agentterm/internal/registry"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// app carries what every command needs after startup
type app struct {
	cfg      *config.Config
	file     *config.File
	registry *registry.Registry
}

// globalFlags override the environment configuration when set
type globalFlags struct {
	configFile string
	agentsDir  string
	debug      bool
	timeout    time.Duration
}

// bootstrap loads configuration, the configuration file and the agent registry
func bootstrap(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	// Initialize logger
	debug := flags.debug || os.Getenv("DEBUG") == "true"
	logger.Initialize(debug)
	logger.Get().Debug().Bool("debug", debug).Msg("Logger initialized")

	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("config") {
		cfg.ConfigFile = flags.configFile
	}
	if cmd.Flags().Changed("agents-dir") {
		cfg.AgentsDir = flags.agentsDir
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = flags.timeout
	}
	if cfg.Debug && !debug {
		logger.Initialize(true)
	}

	// Apply defaults and validate
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	file, err := config.LoadFile(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}

	reg, err := registry.Default(registry.Options{
		Embedded:   agents.Defaults(),
		AgentsDir:  cfg.AgentsDir,
		ConfigPath: cfg.ConfigFile,
		Entries:    file.Agents,
	})
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, file: file, registry: reg}, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

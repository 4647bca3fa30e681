package main

import (
	"fmt"
	"os"

	"github.com/fgeck/pgshift/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without touching the container runtime or any server.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// Check if file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", configFile)
	}

	// Load configuration
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to parse config")
		return err
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Remote:")
	fmt.Printf("  Host: %s\n", cfg.Remote.Host)
	fmt.Printf("  Port: %d\n", cfg.Remote.Port)
	fmt.Printf("  Initial database: %s\n", cfg.Remote.Database)
	fmt.Printf("  User: %s\n", cfg.Remote.Username)
	fmt.Printf("  Password: (configured)\n")
	fmt.Println()
	fmt.Println("Target:")
	fmt.Printf("  Container: %s\n", cfg.Target.ContainerName)
	fmt.Printf("  Port: %d\n", cfg.Target.Port)
	fmt.Printf("  Initial database: %s\n", cfg.Target.Database)
	fmt.Printf("  Image: %s\n", cfg.Target.Image)
	fmt.Printf("  On conflict: %s\n", cfg.Target.OnConflict)
	if cfg.Target.DataPath != "" {
		fmt.Printf("  Data path: %s\n", cfg.Target.DataPath)
	} else {
		fmt.Printf("  Data path: (none — data will not survive container removal)\n")
	}
	fmt.Println()
	fmt.Printf("Backup directory: %s\n", cfg.BackupDir)
	fmt.Printf("Client mode: %s\n", cfg.ClientMode)
	if cfg.Selection != "" {
		fmt.Printf("Preselection: %s\n", cfg.Selection)
	}

	return nil
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/pgshift/internal/config"
	"github.com/fgeck/pgshift/internal/models"
	"github.com/fgeck/pgshift/internal/services/prompt"
	"github.com/fgeck/pgshift/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the migration",
	Long: `Execute the complete migration workflow:
1. Verify the container runtime and detect client tools
2. Provision (or reuse) the local target container
3. Enumerate databases on the remote server
4. Select databases to migrate
5. Dump each selected database
6. Restore each dump into the target
7. Print a summary report`,
	RunE: runMigration,
}

func runMigration(cmd *cobra.Command, args []string) error {
	promptSvc := prompt.New()

	cfg, err := loadOrCollectConfig(promptSvc)
	if err != nil {
		log.Error().Err(err).Msg("failed to prepare configuration")
		return err
	}

	log.Info().
		Str("remote_host", cfg.Remote.Host).
		Int("remote_port", cfg.Remote.Port).
		Str("container", cfg.Target.ContainerName).
		Str("backup_dir", cfg.BackupDir).
		Msg("configuration ready")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	runnerSvc := runner.New(log.Logger, promptSvc)
	if _, err := runnerSvc.Run(ctx, *cfg); err != nil {
		if errors.Is(err, runner.ErrAborted) {
			log.Info().Msg("migration aborted by user")
			return nil
		}
		log.Error().Err(err).Msg("migration failed")
		return err
	}

	log.Info().Msg("migration completed successfully")
	return nil
}

// loadOrCollectConfig loads the YAML config when --config is given and falls
// back to interactive collection otherwise.
func loadOrCollectConfig(promptSvc prompt.Service) (*models.MigrationConfig, error) {
	if configFile != "" {
		parser := config.NewParser()
		cfg, err := parser.LoadFile(configFile)
		if err != nil {
			return nil, err
		}
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cfg, err := collectConfig(promptSvc)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// collectConfig gathers all parameters interactively. Passwords are read
// without echo and held only in the returned struct.
func collectConfig(p prompt.Service) (*models.MigrationConfig, error) {
	cfg := &models.MigrationConfig{
		BackupDir:  config.DefaultBackupDir(),
		ClientMode: models.ClientModeAuto,
	}

	var err error
	if cfg.Remote.Host, err = p.Ask("Remote host", ""); err != nil {
		return nil, err
	}
	if cfg.Remote.Port, err = p.AskInt("Remote port", 5432); err != nil {
		return nil, err
	}
	if cfg.Remote.Database, err = p.Ask("Remote initial database", "postgres"); err != nil {
		return nil, err
	}
	if cfg.Remote.Username, err = p.Ask("Remote user", "postgres"); err != nil {
		return nil, err
	}
	if cfg.Remote.Password, err = p.AskSecret("Remote password"); err != nil {
		return nil, err
	}

	cfg.Target = models.TargetConfig{
		Image:      config.DefaultImage,
		OnConflict: models.ConflictAsk,
	}
	if cfg.Target.ContainerName, err = p.Ask("Local container name", "pgshift-target"); err != nil {
		return nil, err
	}
	if cfg.Target.Port, err = p.AskInt("Local port", 5433); err != nil {
		return nil, err
	}
	if cfg.Target.Database, err = p.Ask("Local initial database", "postgres"); err != nil {
		return nil, err
	}
	if cfg.Target.Password, err = p.AskSecret("Local superuser password"); err != nil {
		return nil, err
	}
	if cfg.Target.DataPath, err = p.Ask("Host storage path (empty = ephemeral)", ""); err != nil {
		return nil, err
	}

	return cfg, nil
}

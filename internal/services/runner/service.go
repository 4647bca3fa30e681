// Package runner orchestrates the migration pipeline.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fgeck/pgshift/internal/models"
	"github.com/fgeck/pgshift/internal/services/docker"
	"github.com/fgeck/pgshift/internal/services/dump"
	"github.com/fgeck/pgshift/internal/services/pgclient"
	"github.com/fgeck/pgshift/internal/services/pgexec"
	"github.com/fgeck/pgshift/internal/services/prompt"
	"github.com/rs/zerolog"
)

// Sentinel errors for fatal pipeline conditions.
var (
	// ErrAborted means the user chose to stop the run; it maps to exit 0.
	ErrAborted = errors.New("aborted by user")
	// ErrNoDatabases means remote enumeration returned nothing.
	ErrNoDatabases = errors.New("no databases found on remote server")
	// ErrNoBackups means every selected database failed to dump.
	ErrNoBackups = errors.New("no successful dumps, nothing to restore")
)

// readyTimeout bounds the readiness probe against the target server.
const readyTimeout = 60 * time.Second

// Service defines the interface for the migration runner.
type Service interface {
	Run(ctx context.Context, cfg models.MigrationConfig) (*models.MigrationSummary, error)
}

// Impl implements the runner Service interface.
type Impl struct {
	dockerSvc docker.Service
	promptSvc prompt.Service
	newClient func(runner pgexec.Runner) pgclient.Service
	newDump   func(runner pgexec.Runner) dump.Service
	hasTools  func() bool
	logger    zerolog.Logger
	out       io.Writer
}

// New creates a new runner service.
func New(logger zerolog.Logger, promptSvc prompt.Service) *Impl {
	return &Impl{
		dockerSvc: docker.New(logger),
		promptSvc: promptSvc,
		newClient: func(r pgexec.Runner) pgclient.Service { return pgclient.New(logger, r) },
		newDump:   func(r pgexec.Runner) dump.Service { return dump.New(logger, r) },
		hasTools:  pgexec.HasNativeTools,
		logger:    logger,
		out:       os.Stdout,
	}
}

// NewWithServices creates a new runner service with custom collaborators (for testing).
func NewWithServices(
	logger zerolog.Logger,
	dockerSvc docker.Service,
	promptSvc prompt.Service,
	newClient func(runner pgexec.Runner) pgclient.Service,
	newDump func(runner pgexec.Runner) dump.Service,
	hasTools func() bool,
	out io.Writer,
) *Impl {
	return &Impl{
		dockerSvc: dockerSvc,
		promptSvc: promptSvc,
		newClient: newClient,
		newDump:   newDump,
		hasTools:  hasTools,
		logger:    logger,
		out:       out,
	}
}

// Run executes the complete migration pipeline.
//
//nolint:gocognit,gocyclo // migration workflow has multiple steps by design
func (s *Impl) Run(ctx context.Context, cfg models.MigrationConfig) (*models.MigrationSummary, error) {
	startTime := time.Now()

	s.logger.Info().
		Str("remote", fmt.Sprintf("%s:%d", cfg.Remote.Host, cfg.Remote.Port)).
		Str("target", cfg.Target.ContainerName).
		Msg("starting migration run")

	// Step 1: preflight.
	if err := s.dockerSvc.Ping(ctx); err != nil {
		return nil, fmt.Errorf("preflight failed: %w", err)
	}

	mode := s.resolveClientMode(cfg.ClientMode)
	s.logger.Info().Str("client_mode", string(mode)).Msg("preflight passed")

	// Step 2: provision the target container.
	state, err := s.provision(ctx, cfg.Target)
	if err != nil {
		return nil, err
	}

	// Step 3: wait for the target to accept connections. This also covers a
	// reused container that is still starting up.
	targetConn, targetRunner := s.targetAccess(cfg.Target, mode)
	targetPG := s.newClient(targetRunner)
	if err := targetPG.WaitReady(ctx, targetConn, readyTimeout); err != nil {
		return nil, fmt.Errorf("target not ready: %w", err)
	}

	// Step 4: enumerate remote databases.
	remoteRunner := s.remoteRunner(cfg.Target.Image, mode)
	remotePG := s.newClient(remoteRunner)

	databases, err := remotePG.ListDatabases(ctx, cfg.Remote)
	if err != nil {
		return nil, fmt.Errorf("enumeration failed: %w", err)
	}
	if len(databases) == 0 {
		return nil, ErrNoDatabases
	}

	// Step 5: selection.
	selected, err := s.selectDatabases(databases, cfg.Selection)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("available", len(databases)).
		Int("selected", len(selected)).
		Msg("databases selected")

	// Step 6: dump phase. Per-database failures are logged and skipped.
	backups := s.dumpPhase(ctx, cfg, remotePG, s.newDump(remoteRunner), selected)
	if len(backups) == 0 {
		return nil, ErrNoBackups
	}

	// Step 7: restore phase, in the order backups were recorded.
	restores := s.restorePhase(ctx, targetPG, targetConn, backups)

	summary := &models.MigrationSummary{
		BackupDir: cfg.BackupDir,
		Backups:   backups,
		Restores:  restores,
		Target:    cfg.Target,
		State:     state,
		Duration:  time.Since(startTime),
	}

	// Step 8: report.
	s.printReport(summary)

	s.logger.Info().
		Dur("duration", summary.Duration).
		Msg("migration run completed")

	return summary, nil
}

// resolveClientMode turns "auto" into native or container based on PATH.
func (s *Impl) resolveClientMode(mode models.ClientMode) models.ClientMode {
	if mode != models.ClientModeAuto {
		return mode
	}
	if s.hasTools() {
		return models.ClientModeNative
	}
	s.logger.Warn().Msg("psql/pg_dump not found on PATH, falling back to containerized client tools")
	return models.ClientModeContainer
}

// remoteRunner picks the transport for tools talking to the remote server.
func (s *Impl) remoteRunner(image string, mode models.ClientMode) pgexec.Runner {
	if mode == models.ClientModeContainer {
		return pgexec.DockerRun{Image: image}
	}
	return pgexec.Native{}
}

// targetAccess returns the connection parameters and transport for the target.
// In container mode the tools run inside the target container itself, where
// the server listens on the default port.
func (s *Impl) targetAccess(target models.TargetConfig, mode models.ClientMode) (models.ConnectionConfig, pgexec.Runner) {
	conn := models.ConnectionConfig{
		Host:     "localhost",
		Port:     target.Port,
		Database: target.Database,
		Username: "postgres",
		Password: target.Password,
	}

	if mode == models.ClientModeContainer {
		conn.Port = 5432
		return conn, pgexec.DockerExec{Container: target.ContainerName}
	}
	return conn, pgexec.Native{}
}

// provision creates or reuses the target container. The conflict decision is
// made once, before any container is touched.
func (s *Impl) provision(ctx context.Context, target models.TargetConfig) (models.ContainerState, error) {
	exists, err := s.dockerSvc.ContainerExists(ctx, target.ContainerName)
	if err != nil {
		return "", fmt.Errorf("provisioning failed: %w", err)
	}

	if exists {
		choice := target.OnConflict
		if choice == models.ConflictAsk {
			choice, err = s.promptSvc.AskConflict(target.ContainerName)
			if err != nil {
				return "", fmt.Errorf("provisioning failed: %w", err)
			}
		}

		switch choice {
		case models.ConflictReuse:
			s.logger.Info().Str("container", target.ContainerName).Msg("reusing existing container")
			return models.ContainerExisting, nil
		case models.ConflictAbort:
			return "", ErrAborted
		case models.ConflictReplace:
			s.logger.Info().Str("container", target.ContainerName).Msg("replacing existing container")
			if err := s.dockerSvc.Stop(ctx, target.ContainerName); err != nil {
				return "", fmt.Errorf("provisioning failed: %w", err)
			}
			if err := s.dockerSvc.Remove(ctx, target.ContainerName); err != nil {
				return "", fmt.Errorf("provisioning failed: %w", err)
			}
		default:
			return "", fmt.Errorf("provisioning failed: unknown conflict choice %q", choice)
		}
	}

	if target.DataPath == "" {
		s.logger.Warn().Msg("no data_path configured: databases will not survive container removal")
	}

	if err := s.dockerSvc.RunPostgres(ctx, target); err != nil {
		return "", fmt.Errorf("provisioning failed: %w", err)
	}
	return models.ContainerCreated, nil
}

// selectDatabases renders the list and resolves the selection string into
// database names, preserving the order the user asked for.
func (s *Impl) selectDatabases(databases []string, preselection string) ([]string, error) {
	input := preselection
	if input == "" {
		fmt.Fprintln(s.out, "Available databases:")
		for i, name := range databases {
			fmt.Fprintf(s.out, "  %d) %s\n", i+1, name)
		}

		var err error
		input, err = s.promptSvc.Ask("Select databases (comma-separated indices or \"all\")", prompt.SelectAll)
		if err != nil {
			return nil, fmt.Errorf("selection failed: %w", err)
		}
	}

	indices, err := prompt.ParseSelection(input, len(databases))
	if err != nil {
		return nil, fmt.Errorf("selection failed: %w", err)
	}

	selected := make([]string, len(indices))
	for i, idx := range indices {
		selected[i] = databases[idx]
	}
	return selected, nil
}

// dumpPhase dumps each selected database independently. A failed connectivity
// test or dump drops that database from the run; nothing is retried.
func (s *Impl) dumpPhase(
	ctx context.Context,
	cfg models.MigrationConfig,
	remotePG pgclient.Service,
	dumpSvc dump.Service,
	selected []string,
) []models.BackupRecord {
	var backups []models.BackupRecord

	for _, name := range selected {
		conn := cfg.Remote
		conn.Database = name

		if err := remotePG.TestConnection(ctx, conn); err != nil {
			s.logger.Error().Err(err).Str("database", name).Msg("connectivity test failed, skipping")
			continue
		}

		outputPath := filepath.Join(cfg.BackupDir, dump.OutputFilename(name))
		result, err := dumpSvc.Dump(ctx, conn, name, outputPath)
		if err != nil {
			s.logger.Error().Err(err).Str("database", name).Msg("dump failed, skipping")
			continue
		}
		if result.Error != nil {
			s.logger.Error().Err(result.Error).Str("database", name).Msg("dump failed, skipping")
			continue
		}

		backups = append(backups, models.BackupRecord{
			Database:  name,
			Path:      result.OutputPath,
			SizeBytes: result.SizeBytes,
		})
	}

	return backups
}

// restorePhase recreates and loads each backed-up database on the target. An
// existing database of the same name is dropped first; the post-restore
// content is the dump's content alone.
func (s *Impl) restorePhase(
	ctx context.Context,
	targetPG pgclient.Service,
	targetConn models.ConnectionConfig,
	backups []models.BackupRecord,
) []models.RestoreOutcome {
	outcomes := make([]models.RestoreOutcome, 0, len(backups))

	for _, backup := range backups {
		outcome := models.RestoreOutcome{Database: backup.Database}

		exists, err := targetPG.DatabaseExists(ctx, targetConn, backup.Database)
		if err != nil {
			outcome.Error = err
			s.logger.Error().Err(err).Str("database", backup.Database).Msg("existence check failed, skipping restore")
			outcomes = append(outcomes, outcome)
			continue
		}
		if exists {
			if err := targetPG.DropDatabase(ctx, targetConn, backup.Database); err != nil {
				outcome.Error = err
				s.logger.Error().Err(err).Str("database", backup.Database).Msg("drop failed, skipping restore")
				outcomes = append(outcomes, outcome)
				continue
			}
		}

		if err := targetPG.CreateDatabase(ctx, targetConn, backup.Database); err != nil {
			outcome.Error = err
			s.logger.Error().Err(err).Str("database", backup.Database).Msg("create failed, skipping restore")
			outcomes = append(outcomes, outcome)
			continue
		}

		if err := targetPG.RestoreFile(ctx, targetConn, backup.Database, backup.Path); err != nil {
			outcome.Error = err
			s.logger.Error().Err(err).Str("database", backup.Database).Msg("restore failed")
			outcomes = append(outcomes, outcome)
			continue
		}

		outcome.Restored = true
		s.logger.Info().Str("database", backup.Database).Msg("database restored")
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

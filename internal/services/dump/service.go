// Package dump provides pg_dump operations.
package dump

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fgeck/pgshift/internal/models"
	"github.com/fgeck/pgshift/internal/services/pgexec"
	"github.com/rs/zerolog"
)

// Service defines the interface for dump operations.
type Service interface {
	Dump(ctx context.Context, conn models.ConnectionConfig, database, outputPath string) (*models.DumpResult, error)
}

// Impl implements the dump Service interface.
type Impl struct {
	runner pgexec.Runner
	logger zerolog.Logger
}

// New creates a new dump service on top of the given tool runner.
func New(logger zerolog.Logger, runner pgexec.Runner) *Impl {
	return &Impl{
		runner: runner,
		logger: logger,
	}
}

// Dump writes a plain-SQL dump of one database to outputPath. Ownership and
// ACL statements are stripped so the restore does not depend on remote role
// names existing on the target. Success requires both a zero exit code and
// the output file actually existing; partial files are removed on failure.
func (s *Impl) Dump(ctx context.Context, conn models.ConnectionConfig, database, outputPath string) (*models.DumpResult, error) {
	s.logger.Info().
		Str("host", conn.Host).
		Int("port", conn.Port).
		Str("database", database).
		Str("output", outputPath).
		Msg("starting dump")

	start := time.Now()
	result := &models.DumpResult{
		Database:   database,
		OutputPath: outputPath,
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o750); err != nil {
		result.Error = fmt.Errorf("failed to create output directory: %w", err)
		result.Duration = time.Since(start)
		return result, nil
	}

	output, err := os.Create(outputPath) //nolint:gosec // outputPath is controlled by caller
	if err != nil {
		result.Error = fmt.Errorf("failed to create output file: %w", err)
		result.Duration = time.Since(start)
		return result, nil
	}

	args := []string{
		"-h", conn.Host,
		"-p", strconv.Itoa(conn.Port),
		"-U", conn.Username,
		"-d", database,
		"--no-owner",
		"--no-acl",
		"-Fp",
	}

	var env []string
	if conn.Password != "" {
		env = append(env, fmt.Sprintf("PGPASSWORD=%s", conn.Password))
	}

	execErr := s.runner.Run(ctx, env, nil, output, "pg_dump", args...)
	closeErr := output.Close()

	if execErr != nil {
		_ = os.Remove(outputPath)
		result.Error = execErr
		result.Duration = time.Since(start)
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}
	if closeErr != nil {
		_ = os.Remove(outputPath)
		result.Error = fmt.Errorf("failed to flush dump file: %w", closeErr)
		result.Duration = time.Since(start)
		return result, nil
	}

	// Exit code alone is not trusted: the file must exist too.
	info, statErr := os.Stat(outputPath)
	if statErr != nil {
		result.Error = fmt.Errorf("dump reported success but output file is missing: %w", statErr)
		result.Duration = time.Since(start)
		return result, nil
	}
	result.SizeBytes = info.Size()
	result.Duration = time.Since(start)

	s.logger.Info().
		Str("database", database).
		Int64("size_bytes", result.SizeBytes).
		Dur("duration", result.Duration).
		Msg("dump completed")

	return result, nil
}

// OutputFilename returns the backup file name for a database.
func OutputFilename(database string) string {
	return database + ".sql"
}

// Package pgclient wraps psql for queries, catalog operations and restores.
package pgclient

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fgeck/pgshift/internal/models"
	"github.com/fgeck/pgshift/internal/services/pgexec"
	"github.com/rs/zerolog"
)

// listDatabasesSQL enumerates user databases: non-template, and not the
// maintenance database itself.
const listDatabasesSQL = `SELECT datname FROM pg_database WHERE datistemplate = false AND datname <> 'postgres';`

// Service defines the interface for PostgreSQL client operations.
type Service interface {
	TestConnection(ctx context.Context, conn models.ConnectionConfig) error
	WaitReady(ctx context.Context, conn models.ConnectionConfig, timeout time.Duration) error
	ListDatabases(ctx context.Context, conn models.ConnectionConfig) ([]string, error)
	DatabaseExists(ctx context.Context, conn models.ConnectionConfig, name string) (bool, error)
	CreateDatabase(ctx context.Context, conn models.ConnectionConfig, name string) error
	DropDatabase(ctx context.Context, conn models.ConnectionConfig, name string) error
	RestoreFile(ctx context.Context, conn models.ConnectionConfig, database, path string) error
}

// Impl implements the pgclient Service interface.
type Impl struct {
	runner pgexec.Runner
	logger zerolog.Logger
}

// New creates a new pgclient service on top of the given tool runner.
func New(logger zerolog.Logger, runner pgexec.Runner) *Impl {
	return &Impl{
		runner: runner,
		logger: logger,
	}
}

func connArgs(conn models.ConnectionConfig, database string) []string {
	return []string{
		"-h", conn.Host,
		"-p", strconv.Itoa(conn.Port),
		"-U", conn.Username,
		"-d", database,
	}
}

func connEnv(conn models.ConnectionConfig) []string {
	if conn.Password == "" {
		return nil
	}
	return []string{fmt.Sprintf("PGPASSWORD=%s", conn.Password)}
}

// query runs a single SQL statement and returns psql's unaligned
// tuples-only output.
func (s *Impl) query(ctx context.Context, conn models.ConnectionConfig, sql string) (string, error) {
	args := append(connArgs(conn, conn.Database), "-X", "-t", "-A", "-c", sql)

	var out bytes.Buffer
	if err := s.runner.Run(ctx, connEnv(conn), nil, &out, "psql", args...); err != nil {
		return "", err
	}
	return out.String(), nil
}

// TestConnection runs a trivial query to verify connectivity.
func (s *Impl) TestConnection(ctx context.Context, conn models.ConnectionConfig) error {
	if _, err := s.query(ctx, conn, "SELECT 1;"); err != nil {
		return fmt.Errorf("connection test failed for %s:%d: %w", conn.Host, conn.Port, err)
	}
	return nil
}

// WaitReady probes the server with a trivial query under exponential backoff
// until it answers or the timeout elapses.
func (s *Impl) WaitReady(ctx context.Context, conn models.ConnectionConfig, timeout time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = timeout

	start := time.Now()
	err := backoff.Retry(func() error {
		return s.TestConnection(ctx, conn)
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return fmt.Errorf("server at %s:%d not ready after %s: %w", conn.Host, conn.Port, timeout, err)
	}

	s.logger.Debug().
		Str("host", conn.Host).
		Int("port", conn.Port).
		Dur("waited", time.Since(start)).
		Msg("server ready")
	return nil
}

// ListDatabases returns the server's user databases in server order, trimmed,
// with empty rows dropped. Template databases and "postgres" never appear.
func (s *Impl) ListDatabases(ctx context.Context, conn models.ConnectionConfig) ([]string, error) {
	output, err := s.query(ctx, conn, listDatabasesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate databases: %w", err)
	}

	var names []string
	for _, line := range strings.Split(output, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}

	s.logger.Debug().Int("count", len(names)).Msg("databases enumerated")
	return names, nil
}

// DatabaseExists reports whether a database of the given name exists.
func (s *Impl) DatabaseExists(ctx context.Context, conn models.ConnectionConfig, name string) (bool, error) {
	sql := fmt.Sprintf("SELECT 1 FROM pg_database WHERE datname = '%s';", EscapeLiteral(name))
	output, err := s.query(ctx, conn, sql)
	if err != nil {
		return false, fmt.Errorf("failed to check database %q: %w", name, err)
	}
	return strings.TrimSpace(output) != "", nil
}

// CreateDatabase creates a database, quoting the identifier so reserved words
// and special characters survive.
func (s *Impl) CreateDatabase(ctx context.Context, conn models.ConnectionConfig, name string) error {
	if _, err := s.query(ctx, conn, "CREATE DATABASE "+QuoteIdentifier(name)+";"); err != nil {
		return fmt.Errorf("failed to create database %q: %w", name, err)
	}

	s.logger.Debug().Str("database", name).Msg("database created")
	return nil
}

// DropDatabase drops a database if it exists.
func (s *Impl) DropDatabase(ctx context.Context, conn models.ConnectionConfig, name string) error {
	if _, err := s.query(ctx, conn, "DROP DATABASE IF EXISTS "+QuoteIdentifier(name)+";"); err != nil {
		return fmt.Errorf("failed to drop database %q: %w", name, err)
	}

	s.logger.Debug().Str("database", name).Msg("database dropped")
	return nil
}

// RestoreFile streams a dump file into psql connected to the given database.
// Load warnings go to stderr and are tolerated; only a failed invocation is
// reported.
func (s *Impl) RestoreFile(ctx context.Context, conn models.ConnectionConfig, database, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open dump file: %w", err)
	}
	defer func() { _ = f.Close() }()

	args := append(connArgs(conn, database), "-X")
	if err := s.runner.Run(ctx, connEnv(conn), f, nil, "psql", args...); err != nil {
		return fmt.Errorf("failed to load dump into %q: %w", database, err)
	}

	s.logger.Debug().Str("database", database).Str("path", path).Msg("dump loaded")
	return nil
}

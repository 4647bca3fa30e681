// Package docker drives the local container runtime through its CLI.
package docker

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/fgeck/pgshift/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for container lifecycle operations.
type Service interface {
	Ping(ctx context.Context) error
	ContainerExists(ctx context.Context, name string) (bool, error)
	Stop(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
	RunPostgres(ctx context.Context, target models.TargetConfig) error
}

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command and returns its combined output.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Impl implements the docker Service interface.
type Impl struct {
	executor CommandExecutor
	logger   zerolog.Logger
}

// New creates a new docker service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: &DefaultExecutor{},
		logger:   logger,
	}
}

// NewWithExecutor creates a new docker service with a custom executor (for testing).
func NewWithExecutor(logger zerolog.Logger, executor CommandExecutor) *Impl {
	return &Impl{
		executor: executor,
		logger:   logger,
	}
}

// Ping verifies that the docker daemon is reachable.
func (s *Impl) Ping(ctx context.Context) error {
	output, err := s.executor.Execute(ctx, "docker", "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return fmt.Errorf("docker daemon not reachable: %w, output: %s", err, strings.TrimSpace(string(output)))
	}

	s.logger.Debug().Str("server_version", strings.TrimSpace(string(output))).Msg("docker daemon reachable")
	return nil
}

// ContainerExists reports whether a container with exactly the given name
// exists, running or not.
func (s *Impl) ContainerExists(ctx context.Context, name string) (bool, error) {
	output, err := s.executor.Execute(ctx, "docker", "ps", "-a",
		"--filter", fmt.Sprintf("name=^%s$", name),
		"--format", "{{.Names}}")
	if err != nil {
		return false, fmt.Errorf("failed to list containers: %w, output: %s", err, string(output))
	}

	for _, line := range strings.Split(string(output), "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}
	return false, nil
}

// Stop stops a running container. Stopping an already-stopped container is
// not an error.
func (s *Impl) Stop(ctx context.Context, name string) error {
	output, err := s.executor.Execute(ctx, "docker", "stop", name)
	if err != nil {
		return fmt.Errorf("failed to stop container %s: %w, output: %s", name, err, string(output))
	}

	s.logger.Debug().Str("container", name).Msg("container stopped")
	return nil
}

// Remove removes a container by name.
func (s *Impl) Remove(ctx context.Context, name string) error {
	output, err := s.executor.Execute(ctx, "docker", "rm", name)
	if err != nil {
		return fmt.Errorf("failed to remove container %s: %w, output: %s", name, err, string(output))
	}

	s.logger.Debug().Str("container", name).Msg("container removed")
	return nil
}

// RunPostgres launches a detached PostgreSQL container for the target. The
// superuser password and initial database are passed through the container
// environment; the data path, when set, is bound to the image's data
// directory so the cluster survives container removal.
func (s *Impl) RunPostgres(ctx context.Context, target models.TargetConfig) error {
	args := []string{
		"run", "-d",
		"--name", target.ContainerName,
		"-e", fmt.Sprintf("POSTGRES_PASSWORD=%s", target.Password),
		"-e", fmt.Sprintf("POSTGRES_DB=%s", target.Database),
		"-p", fmt.Sprintf("%d:5432", target.Port),
	}
	if target.DataPath != "" {
		args = append(args, "-v", fmt.Sprintf("%s:/var/lib/postgresql/data", target.DataPath))
	}
	args = append(args, target.Image)

	output, err := s.executor.Execute(ctx, "docker", args...)
	if err != nil {
		return fmt.Errorf("failed to start container %s (port or path conflict?): %w, output: %s",
			target.ContainerName, err, string(output))
	}

	s.logger.Info().
		Str("container", target.ContainerName).
		Int("port", target.Port).
		Str("image", target.Image).
		Msg("container started")
	return nil
}

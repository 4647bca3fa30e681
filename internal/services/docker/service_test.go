package docker

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/fgeck/pgshift/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockExecutor struct {
	executeFunc func(ctx context.Context, name string, args ...string) ([]byte, error)
	calls       [][]string
}

func (m *mockExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	call := append([]string{name}, args...)
	m.calls = append(m.calls, call)
	if m.executeFunc != nil {
		return m.executeFunc(ctx, name, args...)
	}
	return nil, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestPing_Success(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("27.1.1\n"), nil
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	err := svc.Ping(context.Background())

	require.NoError(t, err)
	require.Len(t, executor.calls, 1)
	assert.Equal(t, []string{"docker", "version", "--format", "{{.Server.Version}}"}, executor.calls[0])
}

func TestPing_DaemonUnavailable(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("Cannot connect to the Docker daemon"), errors.New("exit status 1")
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	err := svc.Ping(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
	assert.Contains(t, err.Error(), "Cannot connect")
}

func TestContainerExists_Found(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("pg-local\n"), nil
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	exists, err := svc.ContainerExists(context.Background(), "pg-local")

	require.NoError(t, err)
	assert.True(t, exists)

	// Exact-name filter must be anchored.
	require.Len(t, executor.calls, 1)
	assert.Contains(t, executor.calls[0], "name=^pg-local$")
}

func TestContainerExists_NotFound(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("\n"), nil
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	exists, err := svc.ContainerExists(context.Background(), "pg-local")

	require.NoError(t, err)
	assert.False(t, exists)
}

func TestContainerExists_PrefixNameDoesNotMatch(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("pg-local-old\n"), nil
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	exists, err := svc.ContainerExists(context.Background(), "pg-local")

	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunPostgres_WithDataPath(t *testing.T) {
	executor := &mockExecutor{}

	svc := NewWithExecutor(testLogger(), executor)
	err := svc.RunPostgres(context.Background(), models.TargetConfig{
		ContainerName: "pg-local",
		Port:          5433,
		Database:      "main",
		Password:      "secret",
		Image:         "postgres:16",
		DataPath:      "/srv/pg-data",
	})

	require.NoError(t, err)
	require.Len(t, executor.calls, 1)
	call := strings.Join(executor.calls[0], " ")
	assert.Contains(t, call, "run -d --name pg-local")
	assert.Contains(t, call, "POSTGRES_PASSWORD=secret")
	assert.Contains(t, call, "POSTGRES_DB=main")
	assert.Contains(t, call, "-p 5433:5432")
	assert.Contains(t, call, "-v /srv/pg-data:/var/lib/postgresql/data")
	assert.Equal(t, "postgres:16", executor.calls[0][len(executor.calls[0])-1])
}

func TestRunPostgres_WithoutDataPath(t *testing.T) {
	executor := &mockExecutor{}

	svc := NewWithExecutor(testLogger(), executor)
	err := svc.RunPostgres(context.Background(), models.TargetConfig{
		ContainerName: "pg-local",
		Port:          5433,
		Database:      "main",
		Password:      "secret",
		Image:         "postgres:16",
	})

	require.NoError(t, err)
	call := strings.Join(executor.calls[0], " ")
	assert.NotContains(t, call, "-v ")
}

func TestRunPostgres_PortConflict(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("port is already allocated"), errors.New("exit status 125")
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	err := svc.RunPostgres(context.Background(), models.TargetConfig{
		ContainerName: "pg-local",
		Port:          5433,
		Image:         "postgres:16",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "port is already allocated")
}

func TestStopAndRemove(t *testing.T) {
	executor := &mockExecutor{}

	svc := NewWithExecutor(testLogger(), executor)
	require.NoError(t, svc.Stop(context.Background(), "pg-local"))
	require.NoError(t, svc.Remove(context.Background(), "pg-local"))

	require.Len(t, executor.calls, 2)
	assert.Equal(t, []string{"docker", "stop", "pg-local"}, executor.calls[0])
	assert.Equal(t, []string{"docker", "rm", "pg-local"}, executor.calls[1])
}

func TestRemove_Error(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("no such container"), errors.New("exit status 1")
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	err := svc.Remove(context.Background(), "pg-local")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such container")
}

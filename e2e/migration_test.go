//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"testing"
	"time"

	"github.com/fgeck/pgshift/internal/models"
	"github.com/fgeck/pgshift/internal/services/prompt"
	"github.com/fgeck/pgshift/internal/services/runner"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getMigrationConfig builds a full pipeline config from TEST_* env vars. The
// remote side must be a reachable PostgreSQL server with at least one user
// database; the local side needs a working docker daemon.
func getMigrationConfig(t *testing.T) models.MigrationConfig {
	t.Helper()

	if os.Getenv("TEST_DOCKER") == "" {
		t.Skip("TEST_DOCKER not set")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not on PATH")
	}

	host := os.Getenv("TEST_REMOTE_HOST")
	if host == "" {
		t.Skip("TEST_REMOTE_HOST not set")
	}

	portStr := os.Getenv("TEST_REMOTE_PORT")
	if portStr == "" {
		portStr = "5432"
	}
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	user := os.Getenv("TEST_REMOTE_USER")
	if user == "" {
		user = "postgres"
	}

	return models.MigrationConfig{
		Remote: models.ConnectionConfig{
			Host:     host,
			Port:     port,
			Database: "postgres",
			Username: user,
			Password: os.Getenv("TEST_REMOTE_PASSWORD"),
		},
		Target: models.TargetConfig{
			ContainerName: fmt.Sprintf("pgshift-e2e-%d", time.Now().Unix()),
			Port:          15433,
			Database:      "postgres",
			Password:      "e2e-secret",
			Image:         "postgres:16",
			OnConflict:    models.ConflictAbort,
		},
		BackupDir:  t.TempDir(),
		Selection:  "all",
		ClientMode: models.ClientModeAuto,
	}
}

func cleanupContainer(t *testing.T, name string) {
	t.Helper()
	_ = exec.Command("docker", "stop", name).Run()
	_ = exec.Command("docker", "rm", name).Run()
}

func TestMigration_EndToEnd(t *testing.T) {
	cfg := getMigrationConfig(t)
	defer cleanupContainer(t, cfg.Target.ContainerName)

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	svc := runner.New(logger, prompt.New())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	summary, err := svc.Run(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, models.ContainerCreated, summary.State)
	assert.NotEmpty(t, summary.Backups)

	for _, backup := range summary.Backups {
		info, statErr := os.Stat(backup.Path)
		require.NoError(t, statErr)
		assert.Equal(t, info.Size(), backup.SizeBytes)
	}

	for _, restore := range summary.Restores {
		assert.True(t, restore.Restored, "database %s not restored: %v", restore.Database, restore.Error)
	}
}

//go:build integration

package integration

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/fgeck/pgshift/internal/models"
	"github.com/fgeck/pgshift/internal/services/pgclient"
	"github.com/fgeck/pgshift/internal/services/pgexec"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getConnConfig(t *testing.T) models.ConnectionConfig {
	t.Helper()

	host := os.Getenv("TEST_PG_HOST")
	if host == "" {
		t.Skip("TEST_PG_HOST not set")
	}

	portStr := os.Getenv("TEST_PG_PORT")
	if portStr == "" {
		portStr = "5432"
	}
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	user := os.Getenv("TEST_PG_USER")
	if user == "" {
		user = "postgres"
	}

	return models.ConnectionConfig{
		Host:     host,
		Port:     port,
		Database: "postgres",
		Username: user,
		Password: os.Getenv("TEST_PG_PASSWORD"),
	}
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr)
}

func TestPgclient_Connectivity_Integration(t *testing.T) {
	conn := getConnConfig(t)
	svc := pgclient.New(testLogger(), pgexec.Native{})

	err := svc.TestConnection(context.Background(), conn)
	require.NoError(t, err)
}

func TestPgclient_WaitReady_Integration(t *testing.T) {
	conn := getConnConfig(t)
	svc := pgclient.New(testLogger(), pgexec.Native{})

	err := svc.WaitReady(context.Background(), conn, 10*time.Second)
	require.NoError(t, err)
}

func TestPgclient_ListDatabases_FiltersSystemDatabases_Integration(t *testing.T) {
	conn := getConnConfig(t)
	svc := pgclient.New(testLogger(), pgexec.Native{})

	names, err := svc.ListDatabases(context.Background(), conn)
	require.NoError(t, err)

	assert.NotContains(t, names, "postgres")
	assert.NotContains(t, names, "template0")
	assert.NotContains(t, names, "template1")
}

func TestPgclient_CreateDropRoundtrip_Integration(t *testing.T) {
	conn := getConnConfig(t)
	svc := pgclient.New(testLogger(), pgexec.Native{})
	ctx := context.Background()

	// Reserved word and hyphen in the name on purpose.
	const name = "pgshift-it-user"

	require.NoError(t, svc.CreateDatabase(ctx, conn, name))
	defer func() { _ = svc.DropDatabase(ctx, conn, name) }()

	exists, err := svc.DatabaseExists(ctx, conn, name)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, svc.DropDatabase(ctx, conn, name))

	exists, err = svc.DatabaseExists(ctx, conn, name)
	require.NoError(t, err)
	assert.False(t, exists)
}

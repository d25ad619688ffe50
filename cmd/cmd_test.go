package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/tablebook/services"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCmd()
	root.SetArgs(args)
	root.SilenceUsage = true
	return root.Execute()
}

func useTempDB(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", filepath.Join(t.TempDir(), "tablebook.db"))
	t.Setenv("REDIS_URL", "")
	t.Setenv("TIMEZONE", "UTC")
}

func TestMigrateAndSweep(t *testing.T) {
	useTempDB(t)
	require.NoError(t, run(t, "migrate"))
	require.NoError(t, run(t, "sweep"))
}

func TestUserCommands(t *testing.T) {
	useTempDB(t)

	require.NoError(t, run(t, "user", "create-admin", "--name", "Root", "--email", "root@example.com", "--password", "Secret#123"))

	err := run(t, "user", "set-role", "--email", "root@example.com", "--role", "user")
	var denial *services.DeniedError
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, services.MsgLastAdminRole, denial.Reason)

	assert.Error(t, run(t, "user", "set-role", "--email", "root@example.com", "--role", "owner"))
	assert.Error(t, run(t, "user", "set-role", "--role", "user"))
	assert.Error(t, run(t, "user", "create-admin", "--name", "X", "--email", "bad", "--password", "Secret#123"))
}

func TestBootstrapFallsBackWithoutRedis(t *testing.T) {
	useTempDB(t)
	t.Setenv("REDIS_URL", "127.0.0.1:1")

	a, err := bootstrap(context.Background(), nil)
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.redis)
}

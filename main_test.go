package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetty/database"
	"tweetty/errs"
)

// setupCLI points the commands to a fresh sqlite database and migrates it.
func setupCLI(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TWEETTY_DATABASE_DRIVER", database.DriverSQLite)
	t.Setenv("TWEETTY_DATABASE_NAME", filepath.Join(dir, "cli.db"))
	t.Setenv("TWEETTY_MEDIA_ROOT", filepath.Join(dir, "media"))
	t.Setenv("TWEETTY_API_KEY_PREFIX", "test_")
	t.Setenv("TWEETTY_LOG_LEVEL", "error")

	out, err := runCLI(t, "migrate")
	require.NoError(t, err)
	require.Equal(t, "Database migrated.\n", out)
}

// runCLI executes the command tree with args and returns what it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.json")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	require.NoError(t, err, "tweetty %s", strings.Join(args, " "))
	return out
}

// apiKeyOf extracts the api key from the output of "users add" or "users get -a".
func apiKeyOf(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if key, ok := strings.CutPrefix(line, "Api Key: "); ok {
			return key
		}
	}
	t.Fatalf("no api key in output %q", out)
	return ""
}

func TestUsersAdd(t *testing.T) {
	setupCLI(t)

	out := mustRun(t, "users", "add", "alice", "-f", "Alice")
	assert.True(t, strings.HasPrefix(out, "User added.\nNickname: alice\nFirst name: Alice\nLast name: -\n"), out)
	key := apiKeyOf(t, out)
	assert.True(t, strings.HasPrefix(key, "test_"), key)

	out = mustRun(t, "users", "get", "alice")
	assert.Equal(t, "Nickname: alice\nFirst name: Alice\nLast name: -\n", out)

	out = mustRun(t, "users", "get", "alice", "-a")
	assert.Equal(t, key, apiKeyOf(t, out))

	// Nicknames are unique.
	_, err := runCLI(t, "users", "add", "alice")
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))

	_, err = runCLI(t, "users", "add", "al")
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
}

func TestUsersNotFound(t *testing.T) {
	setupCLI(t)

	for _, args := range [][]string{
		{"users", "get", "nobody"},
		{"users", "remove", "nobody"},
		{"users", "update", "nobody", "-f", "No"},
		{"users", "new_api_key", "nobody"},
	} {
		_, err := runCLI(t, args...)
		require.Error(t, err, args)
		assert.Equal(t, `User "nobody" not found`, errorMessage(err), args)
	}
}

func TestUsersUpdate(t *testing.T) {
	setupCLI(t)
	mustRun(t, "users", "add", "alice", "-f", "Alice", "-l", "Smith")

	out := mustRun(t, "users", "update", "alice", "-f", "Alicia")
	assert.Equal(t, "User \"alice\" updated\n", out)
	out = mustRun(t, "users", "get", "alice")
	assert.Equal(t, "Nickname: alice\nFirst name: Alicia\nLast name: Smith\n", out)

	mustRun(t, "users", "update", "alice", "--reset-first-name", "--reset-last-name")
	out = mustRun(t, "users", "get", "alice")
	assert.Equal(t, "Nickname: alice\nFirst name: -\nLast name: -\n", out)

	_, err := runCLI(t, "users", "update", "alice", "-f", "Al", "--reset-first-name")
	assert.Error(t, err)
}

func TestUsersNewAPIKey(t *testing.T) {
	setupCLI(t)
	oldKey := apiKeyOf(t, mustRun(t, "users", "add", "alice"))

	out := mustRun(t, "users", "new_api_key", "alice")
	newKey, ok := strings.CutPrefix(strings.TrimSpace(out), `New Api Key for user "alice": `)
	require.True(t, ok, out)
	assert.NotEqual(t, oldKey, newKey)
	assert.True(t, strings.HasPrefix(newKey, "test_"))

	assert.Equal(t, newKey, apiKeyOf(t, mustRun(t, "users", "get", "alice", "-a")))
}

func TestUsersRemove(t *testing.T) {
	setupCLI(t)
	mustRun(t, "users", "add", "alice")

	out := mustRun(t, "users", "remove", "alice")
	assert.Equal(t, "User \"alice\" deleted\n", out)

	_, err := runCLI(t, "users", "get", "alice")
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
}

func TestUsersListAndSearch(t *testing.T) {
	setupCLI(t)
	mustRun(t, "users", "add", "carol")
	mustRun(t, "users", "add", "alice", "-l", "Brown")
	mustRun(t, "users", "add", "bobby")

	out := mustRun(t, "users", "list", "-l", "2")
	assert.Equal(t, "Page 1. Users per page: 2\n\n"+
		"Nickname: alice\nFirst name: -\nLast name: Brown\n\n"+
		"Nickname: bobby\nFirst name: -\nLast name: -\n", out)

	out = mustRun(t, "users", "list", "-p", "2", "-l", "2")
	assert.Equal(t, "Page 2. Users per page: 2\n\nNickname: carol\nFirst name: -\nLast name: -\n", out)

	out = mustRun(t, "users", "search", "row")
	assert.Equal(t, "Page 1. Users per page: 10\n\nNickname: alice\nFirst name: -\nLast name: Brown\n", out)

	out = mustRun(t, "users", "search", "nothing")
	assert.Equal(t, "Page 1. Users per page: 10\n", out)

	_, err := runCLI(t, "users", "list", "-p", "0")
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
}

func TestUsersFollow(t *testing.T) {
	setupCLI(t)
	mustRun(t, "users", "add", "alice")
	mustRun(t, "users", "add", "bobby")

	assert.Equal(t, "not followed\n", mustRun(t, "users", "followed", "alice", "bobby"))

	out := mustRun(t, "users", "follow", "alice", "bobby")
	assert.Equal(t, "User \"bobby\" now follows user \"alice\"\n", out)
	assert.Equal(t, "followed\n", mustRun(t, "users", "followed", "alice", "bobby"))
	assert.Equal(t, "not followed\n", mustRun(t, "users", "followed", "bobby", "alice"))

	// Following twice is fine.
	mustRun(t, "users", "follow", "alice", "bobby")

	_, err := runCLI(t, "users", "follow", "alice", "alice")
	assert.Equal(t, errs.ENOTACCEPTABLE, errs.ErrorCode(err))

	out = mustRun(t, "users", "unfollow", "alice", "bobby")
	assert.Equal(t, "User \"bobby\" no longer follows user \"alice\"\n", out)
	assert.Equal(t, "not followed\n", mustRun(t, "users", "followed", "alice", "bobby"))

	// Unfollowing twice is fine as well.
	mustRun(t, "users", "unfollow", "alice", "bobby")

	_, err = runCLI(t, "users", "follow", "alice", "nobody")
	assert.Equal(t, `User "nobody" not found`, errorMessage(err))
}

func TestMigrateReset(t *testing.T) {
	setupCLI(t)
	mustRun(t, "users", "add", "alice")

	assert.Equal(t, "Database reset.\n", mustRun(t, "migrate", "--reset"))

	_, err := runCLI(t, "users", "get", "alice")
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
}

func TestLoadConfigDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")

	c, err := LoadConfig(viper.New(), missing, false)
	require.NoError(t, err)
	assert.Equal(t, 1111, c.Port)
	assert.False(t, c.IsProd())
	assert.Equal(t, database.DriverPostgres, c.Database.Driver)
	assert.Equal(t, "disk", c.Media.Backend)
	assert.Equal(t, "/static", c.Media.URLPrefix)
	assert.Equal(t, int64(100<<20), c.Media.MaxSize)
	assert.Equal(t, 5*time.Second, c.Media.InsertRetryBudget)
	assert.Equal(t, 600, c.RateLimit.Requests)
	assert.Equal(t, time.Minute, c.RateLimit.Window)

	// The config file is required in production.
	_, err = LoadConfig(viper.New(), missing, true)
	assert.Error(t, err)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
		"port": 8080,
		"database": {"host": "db.internal", "name": "prod"},
		"media": {"backend": "s3", "insert_retry_budget": "2s", "s3": {"bucket": "uploads"}}
	}`), 0o600))
	t.Setenv("TWEETTY_DATABASE_HOST", "db.override")
	t.Setenv("TWEETTY_MEDIA_S3_PUBLIC_URL", "https://cdn.example.com")

	c, err := LoadConfig(viper.New(), file, true)
	require.NoError(t, err)
	assert.True(t, c.IsProd())
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, "db.override", c.Database.Host)
	assert.Equal(t, "prod", c.Database.Name)
	assert.Equal(t, "s3", c.Media.Backend)
	assert.Equal(t, 2*time.Second, c.Media.InsertRetryBudget)
	assert.Equal(t, "uploads", c.Media.S3.Bucket)
	assert.Equal(t, "https://cdn.example.com", c.Media.S3.PublicURL)
}

func TestNewMediaStoreUnknownBackend(t *testing.T) {
	_, err := newMediaStore(context.Background(), MediaConfig{Backend: "ftp"})
	assert.Error(t, err)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/testhelpers"
)

func setEnv(t *testing.T, apiURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.db")
	for k, v := range map[string]string{
		"ENV":             "test",
		"CI":              "",
		"CONFIG_FILE":     "",
		"ENV_FILE":        filepath.Join(dir, "missing.env"),
		"SECRETS_DIR":     dir,
		"API_BASE_URL":    apiURL,
		"SESSION_BACKEND": "sqlite",
		"SQLITE_PATH":     path,
		"REDIS_HOST":      "",
		"REDIS_URL":       "",
		"S3_BUCKET_NAME":  "",
	} {
		t.Setenv(k, v)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginPersistsSessionForStats(t *testing.T) {
	api := testhelpers.NewFakeAPI(t)
	api.AddUser("Ada", "ada@recipes.test", "secret123", models.RoleAdmin)
	api.AddRecipe(models.Recipe{Title: "Curry"})
	setEnv(t, api.URL())

	out, err := run(t, "migrate")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Migrations applied")

	out, err = run(t, "login", "--email", "ada@recipes.test", "--password", "secret123")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Signed in as Ada (admin)")

	out, err = run(t, "stats")
	require.NoError(t, err, out)
	var stats models.DashboardStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats), out)
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 1, stats.TotalRecipes)

	out, err = run(t, "logout")
	require.NoError(t, err, out)

	_, err = run(t, "stats")
	assert.ErrorContains(t, err, "not signed in")
}

func TestLoginFailureReportsMessage(t *testing.T) {
	api := testhelpers.NewFakeAPI(t)
	api.AddUser("Uma", "uma@recipes.test", "secret123", models.RoleUser)
	setEnv(t, api.URL())

	_, err := run(t, "login", "--email", "uma@recipes.test", "--password", "nope-nope")
	assert.EqualError(t, err, "Invalid credentials")
}

func TestStatsRequiresAdmin(t *testing.T) {
	api := testhelpers.NewFakeAPI(t)
	api.AddUser("Uma", "uma@recipes.test", "secret123", models.RoleUser)
	setEnv(t, api.URL())

	_, err := run(t, "login", "-e", "uma@recipes.test", "-p", "secret123")
	require.NoError(t, err)

	_, err = run(t, "stats")
	assert.ErrorContains(t, err, "admin")
}

func TestInvalidConfigIsReported(t *testing.T) {
	setEnv(t, "not a url")

	_, err := run(t, "migrate")
	assert.ErrorContains(t, err, "API_BASE_URL")
}

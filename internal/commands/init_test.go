package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojas-cambio/cambio/internal/model"
	"github.com/rojas-cambio/cambio/internal/users"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "cambio-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "cambio")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/cambio")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

// runCambio runs the binary with a clean CAMBIO_* environment plus env.
func runCambio(t *testing.T, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"CAMBIO_DATA=",
		"CAMBIO_AS=",
		"CAMBIO_ADMIN_PASSWORD=",
		"CAMBIO_JWT_SECRET=",
		"CAMBIO_LOG_LEVEL=warn",
	)
	cmd.Env = append(cmd.Env, env...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func initDir(t *testing.T, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	args := append([]string{"init", dir, "--name", "Casa Rojas", "--admin-password", "s3cret"}, extra...)
	out, err := runCambio(t, nil, args...)
	require.NoError(t, err, out)
	return dir
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := initDir(t)

	expectedDirs := []string{
		"transactions",
		"rates",
		"users",
		"logs",
		"reports",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range expectedDirs {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}
}

func TestInit_Config(t *testing.T) {
	dir := initDir(t, "--storage", "sqlite")

	data, err := os.ReadFile(filepath.Join(dir, "cambio.yaml"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Casa Rojas")
	assert.Contains(t, contents, "local_currency: PEN")
	assert.Contains(t, contents, "driver: sqlite")
}

func TestInit_Administrator(t *testing.T) {
	dir := initDir(t)

	f, err := os.Open(filepath.Join(dir, "users", "users.csv"))
	require.NoError(t, err)
	defer f.Close()

	all, err := users.ReadUsers(f)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, users.DefaultAdminEmail, all[0].Email)
	assert.Equal(t, model.RoleAdmin, all[0].Role)
	assert.True(t, all[0].Active)
	assert.NotContains(t, all[0].PasswordHash, "s3cret")
}

func TestInit_GitRepo(t *testing.T) {
	dir := initDir(t)

	_, err := os.Stat(filepath.Join(dir, ".git"))
	require.NoError(t, err, ".git should exist")

	log := exec.Command("git", "log", "--format=%s", "-1")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "init: Initialize Casa Rojas")

	authorLog := exec.Command("git", "log", "--format=%an <%ae>", "-1")
	authorLog.Dir = dir
	out, err = authorLog.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "Cambio <cambio@localhost>")
}

func TestInit_NoGit(t *testing.T) {
	dir := initDir(t, "--no-git")

	_, err := os.Stat(filepath.Join(dir, ".git"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(dir, "cambio.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "auto_commit: false")
}

func TestInit_Gitignore(t *testing.T) {
	dir := initDir(t)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	contents := string(data)

	for _, pattern := range []string{".env", "*.db"} {
		assert.Contains(t, contents, pattern, ".gitignore should contain %s", pattern)
	}
}

func TestInit_RequiresName(t *testing.T) {
	_, err := runCambio(t, nil, "init", t.TempDir(), "--admin-password", "x")
	require.Error(t, err, "init without --name should fail")
}

func TestInit_RequiresPassword(t *testing.T) {
	out, err := runCambio(t, nil, "init", t.TempDir(), "--name", "Casa Rojas")
	require.Error(t, err)
	assert.Contains(t, out, "administrator password is required")
}

func TestInit_PasswordFromEnv(t *testing.T) {
	dir := t.TempDir()
	out, err := runCambio(t, []string{"CAMBIO_ADMIN_PASSWORD=from-env"}, "init", dir, "--name", "Casa Rojas", "--no-git")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Administrator: "+users.DefaultAdminEmail)
}

func TestInit_RefusesExistingDir(t *testing.T) {
	dir := initDir(t, "--no-git")
	out, err := runCambio(t, nil, "init", dir, "--name", "Otra", "--admin-password", "x")
	require.Error(t, err)
	assert.Contains(t, out, "already contains cambio.yaml")
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscoverNearestWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".pf.kdl", `jobs 2`)
	writeFile(t, root, "sub/.pf.kdl", `jobs 7`)

	cfg, err := Discover(filepath.Join(root, "sub"))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Jobs)
	assert.Equal(t, filepath.Join(root, "sub", ".pf.kdl"), cfg.Source)
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".pf.kdl", `suggest true`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))

	cfg, err := Discover(filepath.Join(root, "a", "b"))
	require.NoError(t, err)

	assert.True(t, cfg.Suggest)
	assert.Equal(t, filepath.Join(root, ".pf.kdl"), cfg.Source)
}

func TestDiscoverKDLBeatsPyproject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".pf.kdl", `jobs 3`)
	writeFile(t, root, "pyproject.toml", "[tool.pf]\njobs = 9\n")

	cfg, err := Discover(root)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Jobs)
}

func TestDiscoverSkipsPyprojectWithoutTable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".pf.kdl", `jobs 5`)
	writeFile(t, root, "sub/pyproject.toml", "[project]\nname = \"x\"\n")

	cfg, err := Discover(filepath.Join(root, "sub"))
	require.NoError(t, err)

	// The tableless pyproject.toml does not stop the walk
	assert.Equal(t, 5, cfg.Jobs)
	assert.Equal(t, filepath.Join(root, ".pf.kdl"), cfg.Source)
}

func TestDiscoverPyprojectTable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pyproject.toml", "[tool.pf]\ngitignore = true\n")

	cfg, err := Discover(root)
	require.NoError(t, err)

	assert.True(t, cfg.Gitignore)
	assert.Equal(t, filepath.Join(root, "pyproject.toml"), cfg.Source)
}

func TestDiscoverMalformedIsError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".pf.kdl", `jobs {`)

	_, err := Discover(root)
	assert.Error(t, err)
}

func TestLoadExplicitMissingIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.kdl"))
	assert.Error(t, err)
}

func TestLoadExplicitTOML(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "pyproject.toml", "[tool.pf]\njobs = 4\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Jobs)
}

func TestLoadExplicitTOMLWithoutTable(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "pyproject.toml", "[project]\nname = \"x\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	// Explicitly named files without the table fall back to defaults
	assert.Equal(t, "py", cfg.Type)
	assert.Equal(t, path, cfg.Source)
}

func TestApplyEnvJobs(t *testing.T) {
	t.Setenv("PF_JOBS", "5")

	cfg := Default()
	cfg.Jobs = 2
	cfg.ApplyEnv()

	assert.Equal(t, 5, cfg.Jobs)
}

func TestApplyEnvInvalidJobsIgnored(t *testing.T) {
	t.Setenv("PF_JOBS", "lots")

	cfg := Default()
	cfg.Jobs = 2
	cfg.ApplyEnv()

	assert.Equal(t, 2, cfg.Jobs)
}

func TestApplyEnvDisableRG(t *testing.T) {
	t.Setenv("PF_DISABLE_RG", "1")

	cfg := Default()
	cfg.ApplyEnv()

	assert.True(t, cfg.DisableRG)
}

func TestApplyEnvDisableRGOtherValues(t *testing.T) {
	t.Setenv("PF_DISABLE_RG", "0")

	cfg := Default()
	cfg.DisableRG = true
	cfg.ApplyEnv()

	// Only the documented value "1" has an effect
	assert.True(t, cfg.DisableRG)
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "PF_JOBS=3\n")
	t.Chdir(dir)

	// Arrange restoration of the original value, then clear it so the
	// .env entry is observable.
	t.Setenv("PF_JOBS", "sentinel")
	require.NoError(t, os.Unsetenv("PF_JOBS"))

	LoadDotenv()
	assert.Equal(t, "3", os.Getenv("PF_JOBS"))
}

func TestLoadDotenvExistingEnvWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "PF_JOBS=3\n")
	t.Chdir(dir)
	t.Setenv("PF_JOBS", "9")

	LoadDotenv()
	assert.Equal(t, "9", os.Getenv("PF_JOBS"))
}

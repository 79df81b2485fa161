package serverselect

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biocom-dev/biocom/internal/cli/config"
	"github.com/biocom-dev/biocom/internal/cli/userconfig"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Path: filepath.Join(t.TempDir(), config.ConfigFileName),
		Servers: []config.Server{
			{Alias: "staging", URL: "https://staging.biocom.example"},
			{Alias: "local", URL: "http://localhost:8000"},
		},
	}
}

func TestResolveServer_AliasWins(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := testConfig(t)
	require.NoError(t, userconfig.SetSelectedServer(cfg.Path, "https://staging.biocom.example"))

	server, err := ResolveServer(cfg, "local")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", server.URL)

	_, err = ResolveServer(cfg, "nope")
	assert.Error(t, err)
}

func TestResolveServer_RememberedSelection(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := testConfig(t)
	require.NoError(t, userconfig.SetSelectedServer(cfg.Path, "http://localhost:8000"))

	server, err := ResolveServer(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "local", server.Alias)
}

func TestResolveServer_SingleServerIsRemembered(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := &config.Config{
		Path:    filepath.Join(t.TempDir(), config.ConfigFileName),
		Servers: []config.Server{{Alias: "only", URL: "http://only.example"}},
	}
	require.NoError(t, userconfig.SetSelectedServer(cfg.Path, "http://gone.example"))

	server, err := ResolveServer(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "only", server.Alias)

	selected, err := userconfig.GetSelectedServer(cfg.Path)
	require.NoError(t, err)
	assert.Equal(t, "http://only.example", selected)
}

func TestResolveServer_ProjectsKeepTheirOwnSelection(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	projectA := testConfig(t)
	require.NoError(t, userconfig.SetSelectedServer(projectA.Path, "http://localhost:8000"))

	projectB := &config.Config{
		Path:    filepath.Join(t.TempDir(), config.ConfigFileName),
		Servers: []config.Server{{Alias: "lab", URL: "https://lab.biocom.example"}},
	}
	server, err := ResolveServer(projectB, "")
	require.NoError(t, err)
	assert.Equal(t, "lab", server.Alias)

	server, err = ResolveServer(projectA, "")
	require.NoError(t, err)
	assert.Equal(t, "local", server.Alias, "resolving project B must not reset project A")
}

func TestGetServerByURLOrAlias(t *testing.T) {
	cfg := testConfig(t)

	server, err := GetServerByURLOrAlias(cfg, "staging")
	require.NoError(t, err)
	assert.Equal(t, "https://staging.biocom.example", server.URL)

	server, err = GetServerByURLOrAlias(cfg, "http://localhost:8000/")
	require.NoError(t, err)
	assert.Equal(t, "local", server.Alias)

	_, err = GetServerByURLOrAlias(cfg, "prod")
	assert.Error(t, err)
}

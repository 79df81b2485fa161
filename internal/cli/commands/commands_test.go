package commands

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biocom-dev/biocom/internal/cli/client"
	"github.com/biocom-dev/biocom/internal/cli/config"
	"github.com/biocom-dev/biocom/internal/cli/router"
	"github.com/biocom-dev/biocom/internal/cli/session"
)

func TestLogin_PersistsSession(t *testing.T) {
	env := setupTestEnvironment(t)

	out, err := env.run("login", "--username", testUsername, "--password", testPassword)
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful")

	sess, err := env.persisted()
	require.NoError(t, err)
	assert.Equal(t, env.api.token, sess.AccessToken)
	assert.Equal(t, testUsername, sess.Username)
	assert.Equal(t, "refresh-1", sess.RefreshToken)
}

func TestLogin_BadCredentials(t *testing.T) {
	env := setupTestEnvironment(t)

	_, err := env.run("login", "--username", testUsername, "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, client.StatusCode(err))

	_, err = env.persisted()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLogin_CredentialsFromEnvironment(t *testing.T) {
	env := setupTestEnvironment(t)
	t.Setenv("BIOCOM_USERNAME", testUsername)
	t.Setenv("BIOCOM_PASSWORD", testPassword)

	_, err := env.run("login")
	require.NoError(t, err)

	sess, err := env.persisted()
	require.NoError(t, err)
	assert.Equal(t, testUsername, sess.Username)
}

func TestLogin_NonInteractiveWithoutPassword(t *testing.T) {
	env := setupTestEnvironment(t)

	_, err := env.run("login", "--username", testUsername)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BIOCOM_PASSWORD")
	assert.Zero(t, env.api.requests.Load())
}

func TestDatasetsList_RequiresLogin(t *testing.T) {
	env := setupTestEnvironment(t)

	_, err := env.run("datasets", "ls")
	require.ErrorIs(t, err, client.ErrUnauthenticated)
	assert.Zero(t, env.api.requests.Load(), "no request may be sent without a token")
}

func TestDatasetsList_AfterLogin(t *testing.T) {
	env := setupTestEnvironment(t)
	env.login()

	out, err := env.run("datasets", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "iris")
	assert.Contains(t, out, "Fisher's iris")

	out, err = env.run("datasets", "ls", "-o", "json")
	require.NoError(t, err)
	var datasets []client.Dataset
	require.NoError(t, json.Unmarshal([]byte(out), &datasets))
	require.Len(t, datasets, 1)
	assert.Equal(t, "iris", datasets[0].Name)

	out, err = env.run("datasets", "ls", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: iris")
}

func TestDatasetsUpload(t *testing.T) {
	env := setupTestEnvironment(t)
	env.login()

	path := filepath.Join(t.TempDir(), "samples.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0644))

	out, err := env.run("datasets", "upload", path, "--description", "two columns")
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded dataset samples")

	require.Len(t, env.api.uploads, 1)
	assert.Equal(t, map[string]string{
		"name":        "samples",
		"description": "two columns",
		"file":        "samples.csv",
	}, env.api.uploads[0])
}

func TestDatasetsUpload_RejectsUnsupportedFile(t *testing.T) {
	env := setupTestEnvironment(t)
	env.login()
	before := env.api.requests.Load()

	path := filepath.Join(t.TempDir(), "samples.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := env.run("datasets", "upload", path)
	require.Error(t, err)
	assert.Equal(t, before, env.api.requests.Load())
}

func TestResultsList_ForbiddenClearsSession(t *testing.T) {
	env := setupTestEnvironment(t)
	env.seedSession(session.Session{AccessToken: "stale", Username: testUsername})

	_, err := env.run("results", "ls")
	require.ErrorIs(t, err, client.ErrAuthorizationExpired)

	_, err = env.persisted()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestResultsLatestAndShow(t *testing.T) {
	env := setupTestEnvironment(t)
	env.login()

	out, err := env.run("results", "show", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "SUCCESS")
	assert.Contains(t, out, `{"accuracy":0.9}`)

	_, err = env.run("results", "show", "abc")
	assert.Error(t, err)
}

func TestOpen_ProtectedRouteWithoutSessionShowsLogin(t *testing.T) {
	env := setupTestEnvironment(t)
	env.prompter.inputs = []string{testUsername}
	env.prompter.secrets = []string{testPassword}

	out, err := env.run("open", "/datasets")
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful")
	assert.NotContains(t, out, "iris")

	sess, err := env.persisted()
	require.NoError(t, err)
	assert.Equal(t, testUsername, sess.Username)
}

func TestOpen_RejectedTokenRedirectsToLogin(t *testing.T) {
	env := setupTestEnvironment(t)
	env.seedSession(session.Session{AccessToken: "stale", Username: testUsername})
	env.prompter.inputs = []string{testUsername}
	env.prompter.secrets = []string{testPassword}

	out, err := env.run("open", "/results")
	require.NoError(t, err)

	notice := strings.Index(out, router.ExpiredNotice)
	login := strings.Index(out, "Login successful")
	require.GreaterOrEqual(t, notice, 0)
	assert.Greater(t, login, notice)

	sess, err := env.persisted()
	require.NoError(t, err)
	assert.Equal(t, env.api.token, sess.AccessToken)
}

func TestOpen_ResultsViewToleratesServerErrors(t *testing.T) {
	env := setupTestEnvironment(t)
	env.login()
	env.api.setResultsStatus(http.StatusInternalServerError)

	out, err := env.run("open", "/results")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")

	_, err = env.persisted()
	assert.NoError(t, err, "a server error must not clear the session")

	_, err = env.run("results", "ls")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, client.StatusCode(err))
}

func TestOpen_UnknownRoute(t *testing.T) {
	env := setupTestEnvironment(t)

	_, err := env.run("open", "/admin")
	require.ErrorIs(t, err, router.ErrRouteNotFound)
}

func TestOpen_ModelsAnalysisLaunches(t *testing.T) {
	env := setupTestEnvironment(t)
	env.login()
	env.prompter.selects = []int{0, 0}
	env.prompter.inputs = []string{"100", ""}

	out, err := env.run("open", "/models/analysis")
	require.NoError(t, err)
	assert.Contains(t, out, "Analysis 9 queued")

	require.Len(t, env.api.launches, 1)
	assert.Equal(t, map[string]any{
		"model":   float64(1),
		"dataset": float64(1),
		"param_1": "100",
	}, env.api.launches[0])
}

func TestAnalysisLaunch(t *testing.T) {
	env := setupTestEnvironment(t)
	env.login()

	_, err := env.run("analysis", "launch", "--model", "1", "--dataset", "1", "--param", "2=4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required parameters: 1 (n_estimators)")
	assert.Empty(t, env.api.launches)

	out, err := env.run("analysis", "launch", "--model", "1", "--dataset", "1", "-p", "1=100", "--wait", "--interval", "10ms", "-o", "json")
	require.NoError(t, err)

	var result client.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 9, result.ID)
	assert.Equal(t, client.StatusSuccess, result.Status)
}

func TestWhoami(t *testing.T) {
	env := setupTestEnvironment(t)

	_, err := env.run("whoami")
	require.ErrorIs(t, err, client.ErrUnauthenticated)

	env.login()
	out, err := env.run("whoami", "-o", "json")
	require.NoError(t, err)

	var info whoami
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, testUsername, info.Username)
	assert.Equal(t, "7", info.UserID)
	assert.False(t, info.Expired)
}

func TestLogout(t *testing.T) {
	env := setupTestEnvironment(t)
	env.login()

	out, err := env.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = env.persisted()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestRoutesCmd(t *testing.T) {
	env := setupTestEnvironment(t)

	out, err := env.run("routes", "-o", "json")
	require.NoError(t, err)

	var routes []routeInfo
	require.NoError(t, json.Unmarshal([]byte(out), &routes))
	require.Len(t, routes, 8)
	for _, route := range routes {
		public := route.Path == router.PathLogin || route.Path == router.PathRegister
		assert.Equal(t, !public, route.RequiresAuth, route.Path)
	}

	_, err = env.run("routes", "-o", "xml")
	assert.Error(t, err)
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name        string
		raw         []string
		expected    map[int]string
		shouldError bool
	}{
		{name: "empty", raw: nil, expected: map[int]string{}},
		{name: "positions", raw: []string{"1=5.1", "2=setosa"}, expected: map[int]string{1: "5.1", 2: "setosa"}},
		{name: "param_ prefix", raw: []string{"param_3=x"}, expected: map[int]string{3: "x"}},
		{name: "value with equals", raw: []string{"1=a=b"}, expected: map[int]string{1: "a=b"}},
		{name: "missing equals", raw: []string{"1"}, shouldError: true},
		{name: "zero position", raw: []string{"0=x"}, shouldError: true},
		{name: "duplicate", raw: []string{"1=x", "1=y"}, shouldError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := parseParams(tt.raw)
			if tt.shouldError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, params)
		})
	}
}

func TestInitAndSelectServer_PerProject(t *testing.T) {
	env := setupTestEnvironment(t)
	t.Setenv("BIOCOM_API_URL", "")
	projectA := t.TempDir()
	projectB := t.TempDir()

	t.Chdir(projectA)
	out, err := env.run("init", env.api.URL+"/", "--alias", "fake")
	require.NoError(t, err)
	assert.Contains(t, out, "Created ./biocom.yaml")
	_, err = env.run("init", "https://other.biocom.example", "--auth-prefix", "/auth")
	require.NoError(t, err)

	cfg, err := config.LoadFromCurrentDir()
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 2)
	assert.Equal(t, env.api.URL, cfg.Servers[0].URL)
	assert.Equal(t, "server-2", cfg.Servers[1].Alias)
	assert.Equal(t, "/auth", cfg.Servers[1].AuthPrefix)

	out, err = env.run("select-server", "fake")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected server: fake")

	t.Chdir(projectB)
	_, err = env.run("init", "https://lab.biocom.example")
	require.NoError(t, err)
	out, err = env.run("select-server", "default")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected server: default")

	// project A still talks to the fake API without prompting
	t.Chdir(projectA)
	env.login()
}

func TestDatasetsPreprocess(t *testing.T) {
	env := setupTestEnvironment(t)
	env.login()

	out, err := env.run("datasets", "preprocess", "1", "--wait", "--interval", "10ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Preprocessing job 11 queued for dataset 1")
	assert.Contains(t, out, "pre_iris.csv")
	assert.Contains(t, out, "Procesadas 150 filas.")
	assert.Equal(t, []float64{1}, env.api.jobDatasets)

	out, err = env.run("datasets", "jobs", "--dataset", "2", "-o", "json")
	require.NoError(t, err)
	var jobs []client.PreprocessingJob
	require.NoError(t, json.Unmarshal([]byte(out), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, 12, jobs[0].ID)
	assert.Equal(t, "empty file", jobs[0].ErrorMessage)

	_, err = env.run("datasets", "job", "99")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, client.StatusCode(err))
}

func TestDatasetsPreprocess_RequiresLogin(t *testing.T) {
	env := setupTestEnvironment(t)

	_, err := env.run("datasets", "preprocess", "1")
	require.ErrorIs(t, err, client.ErrUnauthenticated)
	assert.Zero(t, env.api.requests.Load())
}

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biocom-dev/biocom/internal/cli/session"
)

const (
	testUsername = "flowuser"
	testPassword = "s3cret"
)

// fakeAPI emulates the endpoints of the Biocom backend the CLI talks to
type fakeAPI struct {
	*httptest.Server
	t *testing.T

	requests atomic.Int32
	token    string

	mu            sync.Mutex
	resultsStatus int
	uploads       []map[string]string
	launches      []map[string]any
	jobDatasets   []float64
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    7,
		"token_type": "access",
		"exp":        time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	api := &fakeAPI{t: t, token: token}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/", api.login)
	mux.HandleFunc("POST /register/", api.register)
	mux.HandleFunc("GET /api/v1/datasets/", api.authorized(api.listDatasets))
	mux.HandleFunc("POST /api/v1/datasets/", api.authorized(api.uploadDataset))
	mux.HandleFunc("GET /api/v1/models/", api.authorized(api.listModels))
	mux.HandleFunc("GET /api/v1/models/hyperparameters/{id}/", api.authorized(api.hyperparameters))
	mux.HandleFunc("GET /api/v1/analysis/", api.authorized(api.listResults))
	mux.HandleFunc("POST /api/v1/analysis/", api.authorized(api.launch))
	mux.HandleFunc("GET /analisis/{id}/", api.authorized(api.getResult))
	mux.HandleFunc("GET /api/v1/preprocessing-jobs/", api.authorized(api.listJobs))
	mux.HandleFunc("POST /api/v1/preprocessing-jobs/", api.authorized(api.createJob))
	mux.HandleFunc("GET /api/v1/preprocessing-jobs/{id}/", api.authorized(api.getJob))

	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.requests.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(api.Close)

	return api
}

func (a *fakeAPI) setResultsStatus(status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resultsStatus = status
}

func (a *fakeAPI) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(a.t, json.NewEncoder(w).Encode(v))
}

func (a *fakeAPI) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+a.token {
			a.writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Given token not valid for any token type"})
			return
		}
		next(w, r)
	}
}

func (a *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if body["username"] != testUsername || body["password"] != testPassword {
		a.writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"access": a.token, "refresh": "refresh-1"})
}

func (a *fakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	assert.NoError(a.t, json.NewDecoder(r.Body).Decode(&body))
	a.writeJSON(w, http.StatusCreated, map[string]any{"id": 3, "username": body["username"], "email": body["email"]})
}

func (a *fakeAPI) listDatasets(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 1, "name": "iris", "description": "Fisher's iris", "file": "/media/datasets/iris.csv", "owner": testUsername},
	})
}

func (a *fakeAPI) uploadDataset(w http.ResponseWriter, r *http.Request) {
	if !assert.NoError(a.t, r.ParseMultipartForm(1<<20)) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	fields := map[string]string{
		"name":        r.FormValue("name"),
		"description": r.FormValue("description"),
	}
	if _, header, err := r.FormFile("file"); assert.NoError(a.t, err) {
		fields["file"] = header.Filename
	}

	a.mu.Lock()
	a.uploads = append(a.uploads, fields)
	a.mu.Unlock()

	a.writeJSON(w, http.StatusCreated, map[string]any{"id": 2, "name": fields["name"], "description": fields["description"]})
}

func (a *fakeAPI) listModels(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 1, "name": "random-forest", "version": "1.0", "framework": "sklearn"},
	})
}

func (a *fakeAPI) hyperparameters(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("id") != "1" {
		a.writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	a.writeJSON(w, http.StatusOK, []map[string]any{
		{"position": 1, "key_hint": "n_estimators", "dtype": "int", "required": true},
		{"position": 2, "key_hint": "max_depth", "dtype": "int", "required": false},
	})
}

func (a *fakeAPI) listResults(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	status := a.resultsStatus
	a.mu.Unlock()

	if status != 0 {
		a.writeJSON(w, status, map[string]string{"detail": "boom"})
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"count":    1,
		"next":     nil,
		"previous": nil,
		"results": []map[string]any{
			{"id": 9, "model": 1, "dataset": 1, "status": "SUCCESS", "metrics": map[string]any{"accuracy": 0.9}},
		},
	})
}

func (a *fakeAPI) launch(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	assert.NoError(a.t, json.NewDecoder(r.Body).Decode(&body))

	a.mu.Lock()
	a.launches = append(a.launches, body)
	a.mu.Unlock()

	a.writeJSON(w, http.StatusAccepted, map[string]any{"id": 9, "model": body["model"], "dataset": body["dataset"], "status": "PENDING"})
}

func (a *fakeAPI) getResult(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("id") != "9" {
		a.writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"id": 9, "model": 1, "dataset": 1, "status": "SUCCESS",
		"parameters": map[string]any{"param_1": "100"},
		"metrics":    map[string]any{"accuracy": 0.9},
	})
}

func (a *fakeAPI) listJobs(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, []map[string]any{
		{"id": 11, "dataset": 1, "status": "SUCCESS", "result_file": "/media/preprocessed/pre_iris.csv"},
		{"id": 12, "dataset": 2, "status": "FAILED", "error_message": "empty file"},
	})
}

func (a *fakeAPI) createJob(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	assert.NoError(a.t, json.NewDecoder(r.Body).Decode(&body))
	dataset, _ := body["dataset"].(float64)

	a.mu.Lock()
	a.jobDatasets = append(a.jobDatasets, dataset)
	a.mu.Unlock()

	a.writeJSON(w, http.StatusCreated, map[string]any{"id": 11, "dataset": dataset, "status": "PENDING"})
}

func (a *fakeAPI) getJob(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("id") != "11" {
		a.writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"id": 11, "dataset": 1, "status": "SUCCESS",
		"log":         "\n Procesadas 150 filas.",
		"result_file": "/media/preprocessed/pre_iris.csv",
	})
}

// scriptedPrompter answers prompts from fixed lists
type scriptedPrompter struct {
	inputs  []string
	secrets []string
	selects []int
}

func (p *scriptedPrompter) Input(label, defaultValue string, validate func(string) error) (string, error) {
	if len(p.inputs) == 0 {
		return "", fmt.Errorf("%s: %w", label, errNonInteractive)
	}
	value := p.inputs[0]
	p.inputs = p.inputs[1:]
	if value == "" {
		value = defaultValue
	}
	if validate != nil {
		if err := validate(value); err != nil {
			return "", err
		}
	}
	return value, nil
}

func (p *scriptedPrompter) Secret(label string) (string, error) {
	if len(p.secrets) == 0 {
		return "", fmt.Errorf("%s: %w", label, errNonInteractive)
	}
	value := p.secrets[0]
	p.secrets = p.secrets[1:]
	return value, nil
}

func (p *scriptedPrompter) Select(label string, items []string) (int, error) {
	if len(p.selects) == 0 {
		return 0, fmt.Errorf("%s: %w", label, errNonInteractive)
	}
	index := p.selects[0]
	p.selects = p.selects[1:]
	return index, nil
}

// testEnv runs CLI commands against a fakeAPI with sessions in a temp dir
type testEnv struct {
	t          *testing.T
	api        *fakeAPI
	sessionDir string
	prompter   *scriptedPrompter
}

func setupTestEnvironment(t *testing.T) *testEnv {
	t.Helper()

	api := newFakeAPI(t)
	home := t.TempDir()
	sessionDir := t.TempDir()

	t.Chdir(home)
	t.Setenv("HOME", home)
	t.Setenv("BIOCOM_API_URL", api.URL)
	t.Setenv("BIOCOM_AUTH_PREFIX", "")
	t.Setenv("BIOCOM_SESSION_BACKEND", "file")
	t.Setenv("BIOCOM_SESSION_DIR", sessionDir)
	t.Setenv("BIOCOM_USERNAME", "")
	t.Setenv("BIOCOM_PASSWORD", "")
	t.Setenv("BIOCOM_HTTP_TIMEOUT", "5s")
	t.Setenv("BIOCOM_LOG_LEVEL", "disabled")

	return &testEnv{t: t, api: api, sessionDir: sessionDir, prompter: &scriptedPrompter{}}
}

func newTestRoot(g *Globals) *cobra.Command {
	root := &cobra.Command{
		Use:           "biocom",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.AddFlags(root)
	root.AddCommand(
		NewInitCmd(),
		NewSelectServerCmd(),
		NewLoginCmd(g),
		NewRegisterCmd(g),
		NewLogoutCmd(g),
		NewWhoamiCmd(g),
		NewRefreshCmd(g),
		NewPasswordResetCmd(g),
		NewOpenCmd(g),
		NewRoutesCmd(g),
		NewDatasetsCmd(g),
		NewModelsCmd(g),
		NewResultsCmd(g),
		NewAnalysisCmd(g),
	)
	return root
}

func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()

	root := newTestRoot(&Globals{prompter: e.prompter})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// persisted returns the session stored on disk for the fake API
func (e *testEnv) persisted() (session.Session, error) {
	return session.NewFileBackend(e.sessionDir).Load(context.Background(), e.api.URL)
}

func (e *testEnv) seedSession(sess session.Session) {
	e.t.Helper()
	require.NoError(e.t, session.NewFileBackend(e.sessionDir).Save(context.Background(), e.api.URL, sess))
}

func (e *testEnv) login() {
	e.t.Helper()
	_, err := e.run("login", "--username", testUsername, "--password", testPassword)
	require.NoError(e.t, err)
}

package router

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biocom-dev/biocom/internal/cli/client"
	"github.com/biocom-dev/biocom/internal/cli/session"
)

func newTestRouter(t *testing.T, store *session.Store) (*Router, *bytes.Buffer, map[string]int) {
	t.Helper()

	out := &bytes.Buffer{}
	r, err := New(Routes(), NewGuard(store), out, zerolog.Nop())
	require.NoError(t, err)

	rendered := map[string]int{}
	for _, route := range r.Routes() {
		path := route.Path
		require.NoError(t, r.Bind(path, func(ctx context.Context, w io.Writer) error {
			rendered[path]++
			fmt.Fprintf(w, "view %s\n", path)
			return nil
		}))
	}
	return r, out, rendered
}

func newStore(t *testing.T, authenticated bool) *session.Store {
	t.Helper()
	store := session.NewStore("test", session.NewMemoryBackend(), zerolog.Nop())
	if authenticated {
		require.NoError(t, store.Set(context.Background(), session.Session{AccessToken: "tok", Username: "flowuser"}))
	}
	return store
}

func TestRoutes_Table(t *testing.T) {
	routes := Routes()
	require.Len(t, routes, 8)

	public := map[string]bool{}
	for _, route := range routes {
		if !route.RequiresAuth {
			public[route.Path] = true
		}
	}
	assert.Equal(t, map[string]bool{PathLogin: true, PathRegister: true}, public)
}

func TestGuard_ProtectedRoutesRequireToken(t *testing.T) {
	anonymous := NewGuard(newStore(t, false))
	authenticated := NewGuard(newStore(t, true))

	for _, route := range Routes() {
		t.Run(route.Name, func(t *testing.T) {
			decision, target := anonymous.Check(route)
			if route.RequiresAuth {
				assert.Equal(t, Redirected, decision)
				assert.Equal(t, PathLogin, target)
			} else {
				assert.Equal(t, Allowed, decision)
				assert.Equal(t, route.Path, target)
			}

			decision, target = authenticated.Check(route)
			assert.Equal(t, Allowed, decision)
			assert.Equal(t, route.Path, target)
		})
	}
}

func TestNavigate_RedirectsWithoutSession(t *testing.T) {
	r, out, rendered := newTestRouter(t, newStore(t, false))

	nav, err := r.Navigate(context.Background(), "/datasets/")
	require.NoError(t, err)
	assert.Equal(t, PathDatasets, nav.Requested)
	assert.Equal(t, PathLogin, nav.Final)
	assert.Equal(t, Redirected, nav.Decision)
	assert.Equal(t, 1, rendered[PathLogin])
	assert.Zero(t, rendered[PathDatasets])
	assert.Equal(t, "view /login\n", out.String())
}

func TestNavigate_AllowsWithSession(t *testing.T) {
	r, _, rendered := newTestRouter(t, newStore(t, true))

	nav, err := r.Navigate(context.Background(), PathModelsAnalysis)
	require.NoError(t, err)
	assert.Equal(t, Allowed, nav.Decision)
	assert.Equal(t, PathModelsAnalysis, nav.Final)
	assert.Equal(t, 1, rendered[PathModelsAnalysis])
}

func TestNavigate_PublicRouteWithoutSession(t *testing.T) {
	r, _, rendered := newTestRouter(t, newStore(t, false))

	nav, err := r.Navigate(context.Background(), "register")
	require.NoError(t, err)
	assert.Equal(t, Allowed, nav.Decision)
	assert.Equal(t, 1, rendered[PathRegister])
}

func TestNavigate_UnknownRoute(t *testing.T) {
	r, _, _ := newTestRouter(t, newStore(t, true))

	_, err := r.Navigate(context.Background(), "/admin")
	require.ErrorIs(t, err, ErrRouteNotFound)
}

func TestNavigate_RejectedTokenRedirectsToLogin(t *testing.T) {
	store := newStore(t, true)
	r, out, rendered := newTestRouter(t, store)

	require.NoError(t, r.Bind(PathResults, func(ctx context.Context, w io.Writer) error {
		require.NoError(t, store.Clear(ctx))
		return fmt.Errorf("failed to list analysis results: %w", &client.AuthExpiredError{StatusCode: 403})
	}))

	nav, err := r.Navigate(context.Background(), PathResults)
	require.NoError(t, err)
	assert.Equal(t, Redirected, nav.Decision)
	assert.Equal(t, PathLogin, nav.Final)
	assert.Equal(t, 1, rendered[PathLogin])
	assert.Contains(t, out.String(), ExpiredNotice)
	assert.False(t, store.Authenticated())
}

func TestNavigate_ViewErrorsPropagate(t *testing.T) {
	r, _, rendered := newTestRouter(t, newStore(t, true))

	boom := &client.RequestError{StatusCode: 500}
	require.NoError(t, r.Bind(PathModels, func(ctx context.Context, w io.Writer) error {
		return boom
	}))

	_, err := r.Navigate(context.Background(), PathModels)
	require.ErrorIs(t, err, boom)
	assert.Zero(t, rendered[PathLogin])
}

func TestNew_RejectsBadTables(t *testing.T) {
	store := newStore(t, false)

	_, err := New([]Route{{Path: "/login"}, {Path: "/login/"}}, NewGuard(store), io.Discard, zerolog.Nop())
	assert.Error(t, err)

	_, err = New([]Route{{Path: "/datasets", RequiresAuth: true}}, NewGuard(store), io.Discard, zerolog.Nop())
	assert.Error(t, err)

	_, err = New([]Route{{Path: "/login", RequiresAuth: true}}, NewGuard(store), io.Discard, zerolog.Nop())
	assert.Error(t, err)
}

func TestNavigate_UnboundView(t *testing.T) {
	r, err := New(Routes(), NewGuard(newStore(t, true)), io.Discard, zerolog.Nop())
	require.NoError(t, err)

	_, err = r.Navigate(context.Background(), PathHome)
	require.ErrorIs(t, err, ErrNoView)
}

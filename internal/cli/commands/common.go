package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/biocom-dev/biocom/internal/cli/client"
	"github.com/biocom-dev/biocom/internal/cli/config"
	"github.com/biocom-dev/biocom/internal/cli/router"
	"github.com/biocom-dev/biocom/internal/cli/serverselect"
	"github.com/biocom-dev/biocom/internal/cli/session"
	envconfig "github.com/biocom-dev/biocom/internal/config"
	"github.com/biocom-dev/biocom/internal/logger"
)

// Globals holds the persistent flags shared by every command
type Globals struct {
	ServerAlias string
	Output      string

	// prompter overrides the terminal prompter; tests set it
	prompter Prompter
}

// AddFlags registers the persistent flags on the root command
func (g *Globals) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&g.ServerAlias, "server", "", "Server alias from biocom.yaml (uses the selected server if not specified)")
	cmd.PersistentFlags().StringVarP(&g.Output, "output", "o", formatTable, "Output format: table, json, yaml")
}

// App is everything a command needs to talk to one server
type App struct {
	Env      *envconfig.Config
	Server   config.Server
	Sessions *session.Store
	Client   *client.Client
	Router   *router.Router
	Logger   zerolog.Logger

	out    io.Writer
	print  *printer
	prompt Prompter
}

// newApp loads the environment, resolves the server and restores its session.
func newApp(cmd *cobra.Command, g *Globals) (*App, error) {
	env, err := envconfig.Load()
	if err != nil {
		return nil, err
	}
	log := logger.Init(env.Logging.Level, env.Logging.Format)

	p, err := newPrinter(cmd.OutOrStdout(), g.Output)
	if err != nil {
		return nil, err
	}

	server, err := getSelectedServer(env, g.ServerAlias)
	if err != nil {
		return nil, err
	}

	backend, err := newSessionBackend(env)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(server.URL, backend, log)
	if err := sessions.Load(cmd.Context()); err != nil {
		// An unreadable store behaves like a logged-out one
		log.Warn().Err(err).Msg("Could not restore session")
	}

	authPrefix := server.AuthPrefix
	if env.API.AuthPrefix != "" {
		authPrefix = env.API.AuthPrefix
	}

	apiClient := client.New(server.URL, sessions,
		client.WithTimeout(env.API.Timeout),
		client.WithAuthPrefix(authPrefix),
		client.WithLogger(log),
	)

	prompt := g.prompter
	if prompt == nil {
		prompt = newTerminalPrompter(cmd.OutOrStdout())
	}

	app := &App{
		Env:      env,
		Server:   server,
		Sessions: sessions,
		Client:   apiClient,
		Logger:   log,
		out:      cmd.OutOrStdout(),
		print:    p,
		prompt:   prompt,
	}

	app.Router, err = router.New(router.Routes(), router.NewGuard(sessions), app.out, log)
	if err != nil {
		return nil, err
	}
	if err := app.bindViews(); err != nil {
		return nil, err
	}

	return app, nil
}

// getSelectedServer returns BIOCOM_API_URL when set, otherwise the server
// resolved from biocom.yaml.
func getSelectedServer(env *envconfig.Config, serverAlias string) (config.Server, error) {
	if env.API.URL != "" && serverAlias == "" {
		server := config.Server{Alias: "env", URL: env.API.URL}
		if err := server.Validate(); err != nil {
			return config.Server{}, fmt.Errorf("invalid BIOCOM_API_URL: %w", err)
		}
		return server, nil
	}

	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return config.Server{}, fmt.Errorf("failed to load config: %w\nRun 'biocom init <url>' to create a configuration file", err)
	}

	server, err := serverselect.ResolveServer(cfg, serverAlias)
	if err != nil {
		return config.Server{}, err
	}

	return *server, nil
}

func newSessionBackend(env *envconfig.Config) (session.Backend, error) {
	switch env.Session.Backend {
	case envconfig.SessionBackendMemory:
		return session.NewMemoryBackend(), nil
	case envconfig.SessionBackendFile:
		root := env.Session.Dir
		if root == "" {
			var err error
			if root, err = session.DefaultFileRoot(); err != nil {
				return nil, err
			}
		}
		return session.NewFileBackend(root), nil
	default:
		return session.NewKeyringBackend(), nil
	}
}

func parseID(kind, raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID %q", kind, raw)
	}
	return id, nil
}

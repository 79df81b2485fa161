package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/biocom-dev/biocom/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var alias, authPrefix string

	cmd := &cobra.Command{
		Use:   "init <api-url>",
		Short: "Add a Biocom API server to ./biocom.yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), args[0], alias, authPrefix)
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Server alias (defaults to server-N)")
	cmd.Flags().StringVar(&authPrefix, "auth-prefix", "", "Path prefix of the login endpoints, e.g. /auth")

	return cmd
}

func runInit(out io.Writer, serverURL, alias, authPrefix string) error {
	serverURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)

		if _, err := cfg.GetServerByURL(serverURL); err == nil {
			fmt.Fprintf(out, "Server %s already exists in %s\n", serverURL, config.ConfigFileName)
			return nil
		}

		if alias == "" {
			alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
		}
		cfg.Servers = append(cfg.Servers, config.Server{Alias: alias, URL: serverURL})
	} else {
		cfg = config.DefaultConfig(serverURL)
		isNewConfig = true
		if alias != "" {
			cfg.Servers[0].Alias = alias
		}
	}

	server := &cfg.Servers[len(cfg.Servers)-1]
	server.AuthPrefix = authPrefix
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		fmt.Fprintf(out, "✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, server.URL, server.Alias)
	} else {
		fmt.Fprintf(out, "✓ Added server %s (%s) to ./%s\n", server.URL, server.Alias, config.ConfigFileName)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'biocom register' if you don't have an account yet")
	fmt.Fprintln(out, "  2. Run 'biocom login' to authenticate")

	return nil
}

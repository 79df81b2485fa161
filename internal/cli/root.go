package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/biocom-dev/biocom/internal/cli/client"
	"github.com/biocom-dev/biocom/internal/cli/commands"
	"github.com/biocom-dev/biocom/internal/cli/router"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	globals := &commands.Globals{}

	rootCmd := &cobra.Command{
		Use:   "biocom",
		Short: "Biocom - datasets, models and analyses from the terminal",
		Long: `Biocom CLI - Upload datasets, run models over them and browse the results.

Sessions are stored per server in the system keyring. Views that need a
session send you to login when there is none, or when the server rejects it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	globals.AddFlags(rootCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "biocom version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewSelectServerCmd())
	rootCmd.AddCommand(commands.NewLoginCmd(globals))
	rootCmd.AddCommand(commands.NewRegisterCmd(globals))
	rootCmd.AddCommand(commands.NewLogoutCmd(globals))
	rootCmd.AddCommand(commands.NewWhoamiCmd(globals))
	rootCmd.AddCommand(commands.NewRefreshCmd(globals))
	rootCmd.AddCommand(commands.NewPasswordResetCmd(globals))
	rootCmd.AddCommand(commands.NewOpenCmd(globals))
	rootCmd.AddCommand(commands.NewRoutesCmd(globals))
	rootCmd.AddCommand(commands.NewDatasetsCmd(globals))
	rootCmd.AddCommand(commands.NewModelsCmd(globals))
	rootCmd.AddCommand(commands.NewResultsCmd(globals))
	rootCmd.AddCommand(commands.NewAnalysisCmd(globals))

	return rootCmd
}

// Execute runs the root command. Ctrl-C cancels in-flight requests.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		reportError(os.Stderr, err)
		return err
	}
	return nil
}

// reportError prints err. Errors that need a new login get the same notice
// the router shows before redirecting to /login.
func reportError(w io.Writer, err error) {
	if client.IsLoginRequired(err) {
		fmt.Fprintln(w, router.ExpiredNotice)
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

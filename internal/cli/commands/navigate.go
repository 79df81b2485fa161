package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/biocom-dev/biocom/internal/cli/router"
)

// NewOpenCmd creates the open command, which navigates to a view
func NewOpenCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "open [path]",
		Short: "Open a view such as /datasets or /results",
		Long: `Open a view.

Protected views require a stored session; without one the login view is
shown instead. If the server rejects the session, it is cleared and the
login view is shown.

Run 'biocom routes' to list the views.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := router.PathHome
			if len(args) > 0 {
				path = args[0]
			}

			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			nav, err := app.Router.Navigate(cmd.Context(), path)
			if err != nil {
				return err
			}

			app.Logger.Debug().
				Str("requested", nav.Requested).
				Str("final", nav.Final).
				Stringer("decision", nav.Decision).
				Msg("Navigation finished")
			return nil
		},
	}
}

type routeInfo struct {
	Path         string `json:"path" yaml:"path"`
	Name         string `json:"name" yaml:"name"`
	RequiresAuth bool   `json:"requires_auth" yaml:"requires_auth"`
}

// NewRoutesCmd creates the routes command
func NewRoutesCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the views and whether they require login",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd.OutOrStdout(), g.Output)
			if err != nil {
				return err
			}

			routes := router.Routes()
			infos := make([]routeInfo, len(routes))
			for i, route := range routes {
				infos[i] = routeInfo{Path: route.Path, Name: route.Name, RequiresAuth: route.RequiresAuth}
			}

			return p.print(infos, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "PATH\tNAME\tLOGIN REQUIRED")
				fmt.Fprintln(w, "────\t────\t──────────────")
				for _, info := range infos {
					required := "no"
					if info.RequiresAuth {
						required = "yes"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", info.Path, info.Name, required)
				}
			})
		},
	}
}

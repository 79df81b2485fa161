package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewModelsCmd creates the models command group
func NewModelsCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "models",
		Aliases: []string{"model"},
		Short:   "Browse models",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List available models",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			models, err := app.Client.ListModels(cmd.Context())
			if err != nil {
				return err
			}

			if len(models) == 0 && !app.print.structured() {
				fmt.Fprintln(app.out, "No models found.")
				return nil
			}

			return app.print.print(models, func(w *tabwriter.Writer) {
				writeModelTable(w, models)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "hyperparams <model-id>",
		Short: "List the parameters a model expects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("model", args[0])
			if err != nil {
				return err
			}

			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			params, err := app.Client.GetHyperparameters(cmd.Context(), id)
			if err != nil {
				return err
			}

			return app.print.print(params, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "POSITION\tKEY\tTYPE\tREQUIRED\tHELP")
				fmt.Fprintln(w, "────────\t───\t────\t────────\t────")
				for _, p := range params {
					required := "no"
					if p.Required {
						required = "yes"
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.Position, orDash(p.KeyHint), p.DType, required, orDash(p.HelpText))
				}
			})
		},
	})

	return cmd
}

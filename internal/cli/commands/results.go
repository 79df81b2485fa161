package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/biocom-dev/biocom/internal/cli/client"
)

// NewResultsCmd creates the results command group
func NewResultsCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "results",
		Aliases: []string{"result"},
		Short:   "Browse analysis results",
	}

	cmd.AddCommand(newResultsListCmd(g))
	cmd.AddCommand(newResultsShowCmd(g))
	cmd.AddCommand(newResultsLatestCmd(g))

	return cmd
}

func newResultsListCmd(g *Globals) *cobra.Command {
	var (
		status         string
		model, dataset int
		since          time.Duration
	)

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your analysis results, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := client.AnalysisFilter{
				Status:  status,
				Model:   model,
				Dataset: dataset,
			}
			if since > 0 {
				filter.CreatedAfter = time.Now().Add(-since)
			}

			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			results, err := app.Client.ListAnalysisResults(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if len(results) == 0 && !app.print.structured() {
				fmt.Fprintln(app.out, "No results found.")
				fmt.Fprintln(app.out, "\nLaunch an analysis with: biocom analysis launch --model <id> --dataset <id>")
				return nil
			}

			return app.print.print(results, func(w *tabwriter.Writer) {
				writeResultTable(w, results)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, running, success, failure)")
	cmd.Flags().IntVar(&model, "model", 0, "Filter by model ID")
	cmd.Flags().IntVar(&dataset, "dataset", 0, "Filter by dataset ID")
	cmd.Flags().DurationVar(&since, "since", 0, "Only results created within this duration, e.g. 24h")

	return cmd
}

func newResultsShowCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an analysis result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("analysis", args[0])
			if err != nil {
				return err
			}

			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			result, err := app.Client.GetAnalysisResult(cmd.Context(), id)
			if err != nil {
				return err
			}

			return app.printResult(result)
		},
	}
}

func newResultsLatestCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show your most recent analysis result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			id, err := app.Client.GetLatestAnalysisID(cmd.Context())
			if errors.Is(err, client.ErrNoAnalyses) {
				fmt.Fprintln(app.out, "No analyses yet.")
				return nil
			}
			if err != nil {
				return err
			}

			result, err := app.Client.GetAnalysisResult(cmd.Context(), id)
			if err != nil {
				return err
			}

			return app.printResult(result)
		},
	}
}

func (a *App) printResult(result *client.AnalysisResult) error {
	return a.print.print(result, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "ID:\t%d\n", result.ID)
		fmt.Fprintf(w, "Status:\t%s\n", result.Status)
		fmt.Fprintf(w, "Model:\t%d\n", result.Model)
		fmt.Fprintf(w, "Dataset:\t%d\n", result.Dataset)
		fmt.Fprintf(w, "Parameters:\t%s\n", formatMap(result.Parameters))
		fmt.Fprintf(w, "Metrics:\t%s\n", formatMap(result.Metrics))
		if result.OutputPath != "" {
			fmt.Fprintf(w, "Output:\t%s\n", result.OutputPath)
		}
		if result.ErrorMessage != "" {
			fmt.Fprintf(w, "Error:\t%s\n", result.ErrorMessage)
		}
		fmt.Fprintf(w, "Created:\t%s\n", orDash(result.CreatedAt))
		fmt.Fprintf(w, "Updated:\t%s\n", orDash(result.UpdatedAt))
	})
}

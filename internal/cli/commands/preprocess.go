package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/biocom-dev/biocom/internal/cli/client"
)

func newDatasetsPreprocessCmd(g *Globals) *cobra.Command {
	var (
		wait     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "preprocess <dataset-id>",
		Short: "Queue a preprocessing job for a dataset",
		Long: `Queue a preprocessing job for a dataset.

The backend drops incomplete rows and stores the cleaned file with the job.

  $ biocom datasets preprocess 4 --wait`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			datasetID, err := parseID("dataset", args[0])
			if err != nil {
				return err
			}

			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			job, err := app.Client.CreatePreprocessingJob(ctx, datasetID)
			if err != nil {
				return err
			}
			app.print.message("✓ Preprocessing job %d queued for dataset %d (%s)", job.ID, datasetID, job.Status)

			if wait {
				app.print.message("Waiting for job %d...", job.ID)
				job, err = app.Client.WaitForPreprocessingJob(ctx, job.ID, interval)
				if err != nil {
					return err
				}
				return app.printJob(job)
			}

			if app.print.structured() {
				return app.print.print(job, nil)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the job finishes")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Poll interval used with --wait")

	return cmd
}

func newDatasetsJobsCmd(g *Globals) *cobra.Command {
	var datasetID int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List your preprocessing jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			jobs, err := app.Client.ListPreprocessingJobs(cmd.Context())
			if err != nil {
				return err
			}

			// the endpoint has no dataset filter
			if datasetID != 0 {
				filtered := jobs[:0]
				for _, job := range jobs {
					if job.Dataset == datasetID {
						filtered = append(filtered, job)
					}
				}
				jobs = filtered
			}

			if len(jobs) == 0 && !app.print.structured() {
				fmt.Fprintln(app.out, "No preprocessing jobs found.")
				return nil
			}

			return app.print.print(jobs, func(w *tabwriter.Writer) {
				writeJobTable(w, jobs)
			})
		},
	}

	cmd.Flags().IntVar(&datasetID, "dataset", 0, "Only jobs for this dataset")

	return cmd
}

func newDatasetsJobCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "job <job-id>",
		Short: "Show a preprocessing job and its log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("job", args[0])
			if err != nil {
				return err
			}

			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			job, err := app.Client.GetPreprocessingJob(cmd.Context(), id)
			if err != nil {
				return err
			}

			return app.printJob(job)
		},
	}
}

func (a *App) printJob(job *client.PreprocessingJob) error {
	return a.print.print(job, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "ID:\t%d\n", job.ID)
		fmt.Fprintf(w, "Dataset:\t%d\n", job.Dataset)
		fmt.Fprintf(w, "Status:\t%s\n", job.Status)
		fmt.Fprintf(w, "Started:\t%s\n", orDash(job.StartedAt))
		fmt.Fprintf(w, "Finished:\t%s\n", orDash(job.FinishedAt))
		if job.ResultFile != "" {
			fmt.Fprintf(w, "Result:\t%s\n", job.ResultFile)
		}
		if job.ErrorMessage != "" {
			fmt.Fprintf(w, "Error:\t%s\n", job.ErrorMessage)
		}
		if log := strings.TrimSpace(job.Log); log != "" {
			fmt.Fprintf(w, "Log:\t%s\n", strings.ReplaceAll(log, "\n", "\n\t"))
		}
	})
}

func writeJobTable(w *tabwriter.Writer, jobs []client.PreprocessingJob) {
	fmt.Fprintln(w, "ID\tDATASET\tSTATUS\tCREATED AT\tRESULT")
	fmt.Fprintln(w, "──\t───────\t──────\t──────────\t──────")
	for _, j := range jobs {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", j.ID, j.Dataset, j.Status, orDash(j.CreatedAt), orDash(j.ResultFile))
	}
}

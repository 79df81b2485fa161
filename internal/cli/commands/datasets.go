package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewDatasetsCmd creates the datasets command group
func NewDatasetsCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"dataset"},
		Short:   "Manage datasets",
	}

	cmd.AddCommand(newDatasetsListCmd(g))
	cmd.AddCommand(newDatasetsShowCmd(g))
	cmd.AddCommand(newDatasetsUploadCmd(g))
	cmd.AddCommand(newDatasetsDeleteCmd(g))
	cmd.AddCommand(newDatasetsPreprocessCmd(g))
	cmd.AddCommand(newDatasetsJobsCmd(g))
	cmd.AddCommand(newDatasetsJobCmd(g))

	return cmd
}

func newDatasetsListCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List your datasets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			datasets, err := app.Client.ListDatasets(cmd.Context())
			if err != nil {
				return err
			}

			if len(datasets) == 0 && !app.print.structured() {
				fmt.Fprintln(app.out, "No datasets found.")
				fmt.Fprintln(app.out, "\nUpload one with: biocom datasets upload <file> --name <name>")
				return nil
			}

			app.print.message("Datasets on %s (%s):\n", app.Server.Alias, app.Server.URL)
			return app.print.print(datasets, func(w *tabwriter.Writer) {
				writeDatasetTable(w, datasets)
			})
		},
	}
}

func newDatasetsShowCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("dataset", args[0])
			if err != nil {
				return err
			}

			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			dataset, err := app.Client.GetDataset(cmd.Context(), id)
			if err != nil {
				return err
			}

			return app.print.print(dataset, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "ID:\t%d\n", dataset.ID)
				fmt.Fprintf(w, "Name:\t%s\n", dataset.Name)
				fmt.Fprintf(w, "Description:\t%s\n", orDash(dataset.Description))
				fmt.Fprintf(w, "File:\t%s\n", orDash(dataset.File))
				fmt.Fprintf(w, "Owner:\t%s\n", orDash(dataset.Owner))
				fmt.Fprintf(w, "Created:\t%s\n", orDash(dataset.CreatedAt))
			})
		},
	}
}

func newDatasetsUploadCmd(g *Globals) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a .csv or .json dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			dataset, err := app.uploadDataset(cmd.Context(), path, name, description)
			if err != nil {
				return err
			}

			app.print.message("✓ Uploaded dataset %s (id %d)", dataset.Name, dataset.ID)
			if app.print.structured() {
				return app.print.print(dataset, nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Dataset name (defaults to the file name)")
	cmd.Flags().StringVar(&description, "description", "", "Dataset description")

	return cmd
}

func newDatasetsDeleteCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a dataset",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("dataset", args[0])
			if err != nil {
				return err
			}

			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			if err := app.Client.DeleteDataset(cmd.Context(), id); err != nil {
				return err
			}

			fmt.Fprintf(app.out, "✓ Deleted dataset %d\n", id)
			return nil
		},
	}
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/biocom-dev/biocom/internal/cli/client"
	"github.com/biocom-dev/biocom/internal/cli/router"
	"github.com/biocom-dev/biocom/internal/cli/session"
)

// bindViews attaches a renderer to every route of the table
func (a *App) bindViews() error {
	views := map[string]router.View{
		router.PathHome:           a.homeView,
		router.PathLogin:          a.loginView,
		router.PathRegister:       a.registerView,
		router.PathDatasets:       a.datasetsView,
		router.PathDatasetUpload:  a.datasetUploadView,
		router.PathModels:         a.modelsView,
		router.PathModelsAnalysis: a.modelsAnalysisView,
		router.PathResults:        a.resultsView,
	}

	for path, view := range views {
		if err := a.Router.Bind(path, view); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) homeView(ctx context.Context, out io.Writer) error {
	username, _ := a.Sessions.Get(session.FieldUsername)
	fmt.Fprintf(out, "Signed in to %s (%s) as %s\n\n", a.Server.Alias, a.Server.URL, username)
	fmt.Fprintln(out, "Views:")
	for _, route := range a.Router.Routes() {
		if route.Path == router.PathHome || !route.RequiresAuth {
			continue
		}
		fmt.Fprintf(out, "  biocom open %s\n", route.Path)
	}
	return nil
}

func (a *App) loginView(ctx context.Context, out io.Writer) error {
	username := a.Env.Credentials.Username
	password := a.Env.Credentials.Password

	var err error
	if username == "" {
		if username, err = a.prompt.Input("Username", "", notBlank); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = a.prompt.Secret("Password"); err != nil {
			return err
		}
	}

	return a.login(ctx, out, username, password)
}

func (a *App) login(ctx context.Context, out io.Writer, username, password string) error {
	fmt.Fprintf(out, "Logging in to %s (%s)...\n", a.Server.Alias, a.Server.URL)

	if _, err := a.Client.Login(ctx, username, password); err != nil {
		return err
	}

	fmt.Fprintln(out, "✓ Login successful!")
	fmt.Fprintf(out, "  User: %s\n", username)
	return nil
}

func (a *App) registerView(ctx context.Context, out io.Writer) error {
	username, err := a.prompt.Input("Username", "", notBlank)
	if err != nil {
		return err
	}
	email, err := a.prompt.Input("Email", "", notBlank)
	if err != nil {
		return err
	}
	password, err := a.prompt.Secret("Password")
	if err != nil {
		return err
	}
	confirm, err := a.prompt.Secret("Confirm password")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	return a.register(ctx, out, username, email, password)
}

func (a *App) register(ctx context.Context, out io.Writer, username, email, password string) error {
	account, err := a.Client.Register(ctx, username, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Account %s created\n", account.Username)
	fmt.Fprintln(out, "Run 'biocom login' to sign in")
	return nil
}

func (a *App) datasetsView(ctx context.Context, out io.Writer) error {
	datasets, err := a.Client.ListDatasets(ctx)
	if err != nil {
		return err
	}

	if len(datasets) == 0 {
		fmt.Fprintln(out, "No datasets found.")
		fmt.Fprintln(out, "\nUpload one with: biocom datasets upload <file> --name <name>")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	writeDatasetTable(w, datasets)
	return w.Flush()
}

func (a *App) datasetUploadView(ctx context.Context, out io.Writer) error {
	path, err := a.prompt.Input("File (.csv or .json)", "", notBlank)
	if err != nil {
		return err
	}
	name, err := a.prompt.Input("Name", strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), notBlank)
	if err != nil {
		return err
	}
	description, err := a.prompt.Input("Description", "", nil)
	if err != nil {
		return err
	}

	dataset, err := a.uploadDataset(ctx, path, name, description)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Uploaded dataset %s (id %d)\n", dataset.Name, dataset.ID)
	return nil
}

func (a *App) uploadDataset(ctx context.Context, path, name, description string) (*client.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	return a.Client.UploadDataset(ctx, client.DatasetUpload{
		Name:        name,
		Description: description,
		FileName:    filepath.Base(path),
		File:        file,
	})
}

func (a *App) modelsView(ctx context.Context, out io.Writer) error {
	models, err := a.Client.ListModels(ctx)
	if err != nil {
		return err
	}

	if len(models) == 0 {
		fmt.Fprintln(out, "No models found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	writeModelTable(w, models)
	return w.Flush()
}

// modelsAnalysisView walks the user through model, dataset and
// hyperparameter selection and launches the analysis.
func (a *App) modelsAnalysisView(ctx context.Context, out io.Writer) error {
	models, err := a.Client.ListModels(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Fprintln(out, "No models available.")
		return nil
	}
	datasets, err := a.Client.ListDatasets(ctx)
	if err != nil {
		return err
	}
	if len(datasets) == 0 {
		fmt.Fprintln(out, "No datasets available. Upload one first with: biocom open /datasets/upload")
		return nil
	}

	modelLabels := make([]string, len(models))
	for i, m := range models {
		modelLabels[i] = fmt.Sprintf("%s %s (%s)", m.Name, m.Version, orDash(m.Framework))
	}
	mi, err := a.prompt.Select("Select a model", modelLabels)
	if err != nil {
		return err
	}

	datasetLabels := make([]string, len(datasets))
	for i, d := range datasets {
		datasetLabels[i] = fmt.Sprintf("%s (id %d)", d.Name, d.ID)
	}
	di, err := a.prompt.Select("Select a dataset", datasetLabels)
	if err != nil {
		return err
	}

	model := models[mi]
	hyperparams, err := a.Client.GetHyperparameters(ctx, model.ID)
	if err != nil {
		return err
	}

	params := make(map[int]string, len(hyperparams))
	for _, hp := range hyperparams {
		label := fmt.Sprintf("%s (%s)", orDash(hp.KeyHint), hp.DType)
		var validate func(string) error
		if hp.Required {
			validate = notBlank
		}
		value, err := a.prompt.Input(label, "", validate)
		if err != nil {
			return err
		}
		if value != "" {
			params[hp.Position] = value
		}
	}

	result, err := a.Client.LaunchAnalysis(ctx, client.LaunchAnalysisRequest{
		Model:   model.ID,
		Dataset: datasets[di].ID,
		Params:  params,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Analysis %d queued (%s)\n", result.ID, result.Status)
	fmt.Fprintf(out, "Follow it with: biocom results show %d\n", result.ID)
	return nil
}

// resultsView lists analysis results. Authorization failures propagate so the
// router can redirect to login; any other failure is logged and shown as an
// empty list.
func (a *App) resultsView(ctx context.Context, out io.Writer) error {
	results, err := a.Client.ListAnalysisResults(ctx, client.AnalysisFilter{})
	if err != nil {
		if client.IsLoginRequired(err) {
			return err
		}
		a.Logger.Error().Err(err).Msg("Failed to load analysis results")
		results = nil
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	writeResultTable(w, results)
	return w.Flush()
}

func writeDatasetTable(w *tabwriter.Writer, datasets []client.Dataset) {
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION\tCREATED AT")
	fmt.Fprintln(w, "──\t────\t───────────\t──────────")
	for _, d := range datasets {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", d.ID, d.Name, orDash(d.Description), orDash(d.CreatedAt))
	}
}

func writeModelTable(w *tabwriter.Writer, models []client.Model) {
	fmt.Fprintln(w, "ID\tNAME\tVERSION\tFRAMEWORK")
	fmt.Fprintln(w, "──\t────\t───────\t─────────")
	for _, m := range models {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", m.ID, m.Name, orDash(m.Version), orDash(m.Framework))
	}
}

func writeResultTable(w *tabwriter.Writer, results []client.AnalysisResult) {
	fmt.Fprintln(w, "ID\tMODEL\tDATASET\tSTATUS\tMETRICS\tCREATED AT")
	fmt.Fprintln(w, "──\t─────\t───────\t──────\t───────\t──────────")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\t%s\n", r.ID, r.Model, r.Dataset, r.Status, formatMap(r.Metrics), orDash(r.CreatedAt))
	}
}

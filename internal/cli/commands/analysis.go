package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/biocom-dev/biocom/internal/cli/client"
)

// NewAnalysisCmd creates the analysis command group
func NewAnalysisCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analysis",
		Short: "Run models over datasets",
	}

	cmd.AddCommand(newAnalysisLaunchCmd(g))

	return cmd
}

func newAnalysisLaunchCmd(g *Globals) *cobra.Command {
	var (
		model, dataset int
		rawParams      []string
		wait           bool
		interval       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Queue an analysis of a dataset with a model",
		Long: `Queue an analysis of a dataset with a model.

Parameters are passed by position, as listed by 'biocom models hyperparams <id>':

  $ biocom analysis launch --model 1 --dataset 2 --param 1=5.1 --param 2=3.5 --wait`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(rawParams)
			if err != nil {
				return err
			}

			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			hyperparams, err := app.Client.GetHyperparameters(ctx, model)
			if err != nil {
				return err
			}
			if missing := missingParams(hyperparams, params); len(missing) > 0 {
				return fmt.Errorf("missing required parameters: %s", strings.Join(missing, ", "))
			}

			result, err := app.Client.LaunchAnalysis(ctx, client.LaunchAnalysisRequest{
				Model:   model,
				Dataset: dataset,
				Params:  params,
			})
			if err != nil {
				return err
			}

			app.print.message("✓ Analysis %d queued (%s)", result.ID, result.Status)

			if wait {
				app.print.message("Waiting for analysis %d...", result.ID)
				result, err = app.Client.WaitForAnalysis(ctx, result.ID, interval)
				if err != nil {
					return err
				}
				return app.printResult(result)
			}

			if app.print.structured() {
				return app.print.print(result, nil)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&model, "model", 0, "Model ID")
	cmd.Flags().IntVar(&dataset, "dataset", 0, "Dataset ID")
	cmd.Flags().StringArrayVarP(&rawParams, "param", "p", nil, "Parameter as <position>=<value>, repeatable")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the analysis finishes")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Poll interval used with --wait")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

// parseParams turns repeated N=value flags into positional parameters
func parseParams(raw []string) (map[int]string, error) {
	params := make(map[int]string, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid parameter %q, expected <position>=<value>", kv)
		}
		key = strings.TrimPrefix(strings.TrimSpace(key), "param_")
		pos, err := strconv.Atoi(key)
		if err != nil || pos <= 0 {
			return nil, fmt.Errorf("invalid parameter position %q", key)
		}
		if _, dup := params[pos]; dup {
			return nil, fmt.Errorf("parameter %d given twice", pos)
		}
		params[pos] = value
	}
	return params, nil
}

// missingParams returns the required hyperparameters absent from params
func missingParams(hyperparams []client.Hyperparameter, params map[int]string) []string {
	var missing []string
	for _, hp := range hyperparams {
		if _, ok := params[hp.Position]; hp.Required && !ok {
			missing = append(missing, fmt.Sprintf("%d (%s)", hp.Position, orDash(hp.KeyHint)))
		}
	}
	return missing
}

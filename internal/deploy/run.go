package deploy

import (
	"fmt"
	"log/slog"

	"github.com/hedgepod/deployer/configs"
	"github.com/hedgepod/deployer/internal/app"
	"github.com/hedgepod/deployer/internal/orchestrator"
	"github.com/hedgepod/deployer/internal/pipeline"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func run(cmd *cobra.Command, networks []string) error {
	p, registry, store, err := app.Pipeline(configs.Values)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.With("err", err.Error()).Error("failed to close deployment records")
		}
	}()

	o := orchestrator.New(p, registry, orchestrator.Options{
		Delay:       configs.Values.Deploy.Delay,
		Parallelism: configs.Values.Deploy.Parallelism,
	})

	summary := o.Run(cmd.Context(), networks)

	if err := orchestrator.PrintSummary(cmd.OutOrStdout(), summary); err != nil {
		return fmt.Errorf("failed to print summary: %w", err)
	}

	if failed := summary.Failed(); len(failed) > 0 {
		return fmt.Errorf("%w: deployment failed on %v", app.ErrFailures, failed)
	}

	slog.Info("deployments completed successfully")

	return nil
}

func plan(cmd *cobra.Command, networkID string) error {
	if err := configs.Values.Validate(); err != nil {
		return err
	}

	registry, priceIDs, err := app.Registry(configs.Values)
	if err != nil {
		return err
	}
	supply, err := pipeline.ParseInitialSupply(configs.Values.Deploy.InitialSupply)
	if err != nil {
		return err
	}

	p := pipeline.New(registry, priceIDs, nil, nil, nil, pipeline.Options{
		Deployer:      app.DeployerAddress(configs.Values),
		InitialSupply: supply,
	})

	steps, err := p.Plan(networkID)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Step", "Contract", "Depends on", "Arguments")
	for i, step := range steps {
		row := []string{fmt.Sprint(i + 1), string(step.Name), fmt.Sprint(step.DependsOn), fmt.Sprint(step.Args)}
		if err := table.Append(row); err != nil {
			return err
		}
	}

	return table.Render()
}

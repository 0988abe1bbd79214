package verify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hedgepod/deployer/configs"
	"github.com/hedgepod/deployer/internal/app"
	"github.com/hedgepod/deployer/internal/verification"
	"github.com/spf13/cobra"
)

var CMD = &cobra.Command{
	Use:   "verify",
	Short: "Verify the recorded deployment of a network on its block explorer",
	Long:  "Submits the source of every contract in the network's deployment record to the explorer. Contracts that are already verified count as verified.",
	RunE: func(cmd *cobra.Command, args []string) error {
		networkID, err := cmd.Flags().GetString("network")
		if err != nil {
			return err
		}

		slog.With("network", networkID).Info("starting verify command. Validating config")
		if err := configs.Values.Validate(); err != nil {
			return err
		}
		if err := configs.Values.ValidateVerify(); err != nil {
			return err
		}

		registry, _, err := app.Registry(configs.Values)
		if err != nil {
			return err
		}
		artifacts, err := app.Artifacts(configs.Values)
		if err != nil {
			return err
		}
		store, err := app.OpenStore(configs.Values)
		if err != nil {
			return err
		}
		defer store.Close()

		driver := verification.New(
			store,
			registry,
			artifacts,
			verification.NewExplorerFactory(configs.Values.Verify),
			configs.Values.Verify.Parallelism,
		)

		report, err := driver.Verify(cmd.Context(), networkID)
		if err != nil {
			return fmt.Errorf("verification of '%s' failed: %w", networkID, err)
		}

		if err := verification.PrintReport(cmd.OutOrStdout(), report); err != nil {
			return fmt.Errorf("failed to print report: %w", err)
		}

		if failed := report.Failed(); len(failed) > 0 {
			return fmt.Errorf("%w: verification failed for %v on '%s'", app.ErrFailures, failed, networkID)
		}

		slog.With("network", networkID).Info("all contracts verified")

		return nil
	},
}

var (
	durationFlags = []app.FlagDef[time.Duration]{
		{Name: "poll-interval", ViperKey: "verify.poll-interval", Description: "Interval between verification status checks"},
	}

	intFlags = []app.FlagDef[int]{
		{Name: "max-poll-attempts", ViperKey: "verify.max-poll-attempts", Description: "Status checks before a pending verification is reported as failed"},
		{Name: "parallelism", ViperKey: "verify.parallelism", DefaultValue: 1, Description: "Number of contracts verified at the same time"},
	}

	stringFlags = []app.FlagDef[string]{
		{Name: "artifacts", ViperKey: "artifacts.path", Description: "Path of the compiled contracts.json"},
	}
)

func init() {
	CMD.Flags().String("network", "", "Network identifier to verify")
	_ = CMD.MarkFlagRequired("network")

	app.MustDeclareFlags(CMD, durationFlags)
	app.MustDeclareFlags(CMD, intFlags)
	app.MustDeclareFlags(CMD, stringFlags)
}

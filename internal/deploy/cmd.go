package deploy

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hedgepod/deployer/configs"
	"github.com/hedgepod/deployer/internal/app"
	"github.com/spf13/cobra"
)

var CMD = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the contract suite to one network",
	Long:  "Deploys YieldOracle, AutoYieldToken, HedgePodVault and VolatilityFeeHook to the given network and saves its deployment record",
	RunE: func(cmd *cobra.Command, args []string) error {
		networkID, err := cmd.Flags().GetString("network")
		if err != nil {
			return err
		}
		dryRun, err := cmd.Flags().GetBool("dry-run")
		if err != nil {
			return err
		}

		if dryRun {
			return plan(cmd, networkID)
		}

		slog.With("network", networkID).Info("starting deploy command. Validating config")
		if err := validate(); err != nil {
			return err
		}

		return run(cmd, []string{networkID})
	},
}

var AllCMD = &cobra.Command{
	Use:   "deploy-all",
	Short: "Deploy the contract suite to several networks in order",
	Long:  "Deploys to every network of deploy.default-order (or --networks), continuing after failures, and prints a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		networks, err := cmd.Flags().GetStringSlice("networks")
		if err != nil {
			return err
		}
		if len(networks) == 0 {
			networks = configs.Values.Deploy.DefaultOrder
		}
		networks = trimAll(networks)
		if len(networks) == 0 {
			return fmt.Errorf("no networks to deploy: set deploy.default-order or pass --networks")
		}

		slog.With("networks", networks).Info("starting deploy-all command. Validating config")
		if err := validate(); err != nil {
			return err
		}

		return run(cmd, networks)
	},
}

func validate() error {
	if err := configs.Values.Validate(); err != nil {
		return err
	}
	return configs.Values.ValidateDeploy()
}

func trimAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func init() {
	CMD.Flags().String("network", "", "Network identifier to deploy to")
	_ = CMD.MarkFlagRequired("network")
	CMD.Flags().Bool("dry-run", false, "Resolve and print the deployment steps without sending transactions")

	AllCMD.Flags().StringSlice("networks", nil, "Comma-separated networks to deploy to, in order (default: deploy.default-order)")

	for _, cmd := range []*cobra.Command{CMD, AllCMD} {
		app.MustDeclareFlags(cmd, stringFlags)
		app.MustDeclareFlags(cmd, durationFlags)
	}
	app.MustDeclareFlags(AllCMD, intFlags)
	app.MustDeclareFlags(AllCMD, delayFlags)
}

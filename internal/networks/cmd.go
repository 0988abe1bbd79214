package networks

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/hedgepod/deployer/configs"
	"github.com/hedgepod/deployer/internal/app"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var CMD = &cobra.Command{
	Use:   "networks",
	Short: "Inspect the configured networks",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured networks and whether they have a deployment record",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := configs.Values.Validate(); err != nil {
			return err
		}

		registry, _, err := app.Registry(configs.Values)
		if err != nil {
			return err
		}

		store, err := app.OpenStore(configs.Values)
		if err != nil {
			return err
		}
		defer store.Close()

		deployed, err := store.List(cmd.Context())
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("ID", "Name", "Chain ID", "Testnet", "Mock oracles", "Explorer", "Deployed")

		for _, id := range registry.List() {
			cfg, err := registry.Resolve(id)
			if err != nil {
				return err
			}
			row := []string{
				cfg.ID,
				cfg.Name,
				strconv.FormatInt(cfg.ChainID, 10),
				strconv.FormatBool(cfg.Testnet),
				strconv.FormatBool(cfg.AllowMockOracles),
				cfg.ExplorerURL,
				strconv.FormatBool(slices.Contains(deployed, id)),
			}
			if err := table.Append(row); err != nil {
				return fmt.Errorf("failed to render networks: %w", err)
			}
		}

		return table.Render()
	},
}

func init() {
	CMD.AddCommand(listCmd)
}

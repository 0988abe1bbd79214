package records

import (
	"encoding/json"
	"fmt"

	"github.com/hedgepod/deployer/configs"
	"github.com/hedgepod/deployer/internal/app"
	"github.com/spf13/cobra"
)

var CMD = &cobra.Command{
	Use:   "record",
	Short: "Inspect deployment records",
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the deployment record of a network",
	RunE: func(cmd *cobra.Command, args []string) error {
		networkID, err := cmd.Flags().GetString("network")
		if err != nil {
			return err
		}
		if err := configs.Values.Validate(); err != nil {
			return err
		}

		store, err := app.OpenStore(configs.Values)
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Load(cmd.Context(), networkID)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	showCmd.Flags().String("network", "", "Network identifier")
	_ = showCmd.MarkFlagRequired("network")
	CMD.AddCommand(showCmd)
}

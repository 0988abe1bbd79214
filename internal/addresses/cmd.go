package addresses

import (
	"fmt"
	"log/slog"

	"github.com/hedgepod/deployer/configs"
	"github.com/hedgepod/deployer/internal/app"
	"github.com/hedgepod/deployer/internal/output"
	"github.com/spf13/cobra"
)

var CMD = &cobra.Command{
	Use:   "addresses",
	Short: "Work with the deployed contract address table",
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the contract addresses of every recorded network for the frontend",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := configs.Values.Validate(); err != nil {
			return err
		}

		path := configs.Values.Output.AddressesFile
		if path == "" {
			return fmt.Errorf("output.addresses-file is required")
		}

		store, err := app.OpenStore(configs.Values)
		if err != nil {
			return err
		}
		defer store.Close()

		// ABIs are optional; the address table is still useful without them.
		artifacts, err := app.Artifacts(configs.Values)
		if err != nil {
			slog.With("err", err.Error()).Warn("exporting addresses without ABIs")
			artifacts = nil
		}

		return output.NewGenerator(store, artifacts).Generate(cmd.Context(), path)
	},
}

var stringFlags = []app.FlagDef[string]{
	{Name: "output", ViperKey: "output.addresses-file", Description: "Where to write the address table"},
}

func init() {
	app.MustDeclareFlags(exportCmd, stringFlags)
	CMD.AddCommand(exportCmd)
}

package compile

import (
	"fmt"
	"log/slog"

	"github.com/hedgepod/deployer/configs"
	"github.com/hedgepod/deployer/internal/app"
	"github.com/hedgepod/deployer/internal/contracts"
	"github.com/spf13/cobra"
)

var CMD = &cobra.Command{
	Use:   "compile",
	Short: "Compile the contract suite with forge",
	Long:  "Compiles the Solidity contracts and generates contracts.json with ABIs, bytecode and the standard JSON input needed for verification",
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.Info("running contract compilation command")

		contractsDir := configs.Values.Artifacts.ContractsDir
		outputPath := configs.Values.Artifacts.Path
		if contractsDir == "" || outputPath == "" {
			return fmt.Errorf("artifacts.contracts-dir and artifacts.path are required")
		}

		compiler := contracts.NewCompiler(contractsDir, outputPath)

		slog.With("contracts", contracts.DeploymentOrder).Info("starting contract compilation")
		if err := compiler.Compile(cmd.Context(), contracts.DeploymentOrder); err != nil {
			return fmt.Errorf("contract compilation failed: %w", err)
		}

		slog.Info("contract compilation completed successfully")

		return nil
	},
}

var stringFlags = []app.FlagDef[string]{
	{Name: "contracts-dir", ViperKey: "artifacts.contracts-dir", Description: "Foundry project containing the contracts"},
	{Name: "output", ViperKey: "artifacts.path", Description: "Where to write contracts.json"},
}

func init() {
	app.MustDeclareFlags(CMD, stringFlags)
}

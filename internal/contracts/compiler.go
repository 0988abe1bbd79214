package contracts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/hedgepod/deployer/internal/logger"
)

// placeholderAddress satisfies forge verify-contract when only the standard JSON input is wanted.
const placeholderAddress = "0x0000000000000000000000000000000000000001"

type (
	// commandRunner executes a forge subcommand in dir and returns its stdout.
	commandRunner func(ctx context.Context, dir string, args ...string) ([]byte, error)

	// Compiler compiles the Solidity suite with forge and writes contracts.json
	Compiler struct {
		contractsRootDir string
		outputPath       string
		run              commandRunner
		logger           *slog.Logger
	}

	forgeMetadata struct {
		Compiler struct {
			Version string `json:"version"`
		} `json:"compiler"`
		Settings struct {
			CompilationTarget map[string]string `json:"compilationTarget"`
		} `json:"settings"`
	}
)

// NewCompiler creates a new contract compiler
func NewCompiler(contractsRootDir, outputPath string) *Compiler {
	return &Compiler{
		contractsRootDir: contractsRootDir,
		outputPath:       outputPath,
		run:              runForge,
		logger:           logger.Named("contracts_compiler"),
	}
}

// Compile compiles the given contracts and persists the output
func (c *Compiler) Compile(ctx context.Context, names []Name) error {
	c.logger.
		With("contracts_dir", c.contractsRootDir).
		Info("starting contract compilation")

	c.logger.Info("installing forge dependencies")
	if _, err := c.run(ctx, c.contractsRootDir, "install"); err != nil {
		return fmt.Errorf("failed to install dependencies: %w", err)
	}

	out := make(map[string]artifactJSON, len(names))
	for _, name := range names {
		c.logger.With("name", name).Info("compiling contract")

		artifact, err := c.compileContract(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", name, err)
		}
		out[string(name)] = artifact
	}

	if err := c.writeContractsJSON(out); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.outputPath, err)
	}

	c.logger.With("path", c.outputPath).Info("contracts compiled successfully")

	return nil
}

func (c *Compiler) compileContract(ctx context.Context, name Name) (artifactJSON, error) {
	abiOutput, err := c.run(ctx, c.contractsRootDir, "inspect", string(name), "abi", "--json")
	if err != nil {
		return artifactJSON{}, fmt.Errorf("failed to get ABI: %w", err)
	}
	if _, err := abi.JSON(strings.NewReader(string(abiOutput))); err != nil {
		return artifactJSON{}, fmt.Errorf("failed to parse ABI: %w", err)
	}

	bytecodeOutput, err := c.run(ctx, c.contractsRootDir, "inspect", string(name), "bytecode")
	if err != nil {
		return artifactJSON{}, fmt.Errorf("failed to get bytecode: %w", err)
	}

	metadataOutput, err := c.run(ctx, c.contractsRootDir, "inspect", string(name), "metadata", "--json")
	if err != nil {
		return artifactJSON{}, fmt.Errorf("failed to get metadata: %w", err)
	}
	var metadata forgeMetadata
	if err := json.Unmarshal(metadataOutput, &metadata); err != nil {
		return artifactJSON{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	standardInput, err := c.run(ctx, c.contractsRootDir, "verify-contract", placeholderAddress, string(name), "--show-standard-json-input")
	if err != nil {
		return artifactJSON{}, fmt.Errorf("failed to build standard JSON input: %w", err)
	}
	if !json.Valid(standardInput) {
		return artifactJSON{}, fmt.Errorf("forge returned an invalid standard JSON input")
	}

	return artifactJSON{
		ABI:               json.RawMessage(abiOutput),
		Bytecode:          strings.TrimSpace(string(bytecodeOutput)),
		SourceName:        sourceNameFor(metadata, name),
		CompilerVersion:   explorerCompilerVersion(metadata.Compiler.Version),
		StandardJSONInput: json.RawMessage(standardInput),
	}, nil
}

func (c *Compiler) writeContractsJSON(contracts map[string]artifactJSON) error {
	if err := os.MkdirAll(filepath.Dir(c.outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(contracts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal contracts: %w", err)
	}

	if err := os.WriteFile(c.outputPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func sourceNameFor(metadata forgeMetadata, name Name) string {
	for path, target := range metadata.Settings.CompilationTarget {
		if target == string(name) {
			return path
		}
	}
	return ""
}

// explorerCompilerVersion converts solc's "0.8.24+commit.e11b9ed9" into the "v"-prefixed
// form Etherscan-compatible explorers expect.
func explorerCompilerVersion(version string) string {
	if version == "" || strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}

func runForge(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "forge", args...)
	// Forge automatically looks for contracts in src/ relative to the working directory
	cmd.Dir = dir
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("forge %s failed: %w", strings.Join(args, " "), err)
	}

	return out, nil
}

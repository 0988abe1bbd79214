// Package output exports the deployed contract addresses for the frontend.
package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hedgepod/deployer/internal/contracts"
	"github.com/hedgepod/deployer/internal/logger"
	"github.com/hedgepod/deployer/internal/record"
	"gopkg.in/yaml.v3"
)

type Generator struct {
	store     record.Store
	artifacts map[contracts.Name]contracts.Artifact
	logger    *slog.Logger
}

// NewGenerator creates a generator. artifacts may be nil, in which case no ABIs are exported.
func NewGenerator(store record.Store, artifacts map[contracts.Name]contracts.Artifact) *Generator {
	return &Generator{
		store:     store,
		artifacts: artifacts,
		logger:    logger.Named("address_export"),
	}
}

// Build assembles the address table from every stored record.
func (g *Generator) Build(ctx context.Context) (*Model, error) {
	ids, err := g.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list deployment records: %w", err)
	}

	model := &Model{Networks: make(map[string]Network, len(ids))}
	for _, id := range ids {
		rec, err := g.store.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("could not load deployment record of '%s': %w", id, err)
		}
		if !rec.Complete() {
			g.logger.With("network", id).Warn("deployment record does not contain the whole contract suite")
		}

		addresses := make(map[string]string, len(rec.Contracts))
		for name, addr := range rec.Contracts {
			addresses[string(name)] = addr.Hex()
		}

		model.Networks[id] = Network{
			Name:       rec.Config.Name,
			ChainID:    rec.ChainID,
			Testnet:    rec.Config.Testnet,
			Explorer:   rec.Config.ExplorerURL,
			Deployer:   rec.Deployer.Hex(),
			DeployedAt: rec.Timestamp.UTC().Format(time.RFC3339),
			Contracts:  addresses,
		}
	}

	if len(g.artifacts) > 0 {
		model.ABIs = make(map[string]SingleQuotedString, len(g.artifacts))
		for name, artifact := range g.artifacts {
			model.ABIs[string(name)] = SingleQuotedString(compactJSON(artifact.RawABI))
		}
	}

	return model, nil
}

// Generate writes the address table to path.
func (g *Generator) Generate(ctx context.Context, path string) error {
	model, err := g.Build(ctx)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(model)
	if err != nil {
		return fmt.Errorf("could not marshal output model: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("could not write output file: %w", err)
	}

	g.logger.With("path", path).With("networks", len(model.Networks)).Info("contract addresses exported")

	return nil
}

func compactJSON(jsonStr string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(jsonStr)); err != nil {
		return jsonStr
	}
	return buf.String()
}

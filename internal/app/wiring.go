// Package app builds the components shared by the commands from the loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hedgepod/deployer/configs"
	"github.com/hedgepod/deployer/internal/chain"
	"github.com/hedgepod/deployer/internal/contracts"
	"github.com/hedgepod/deployer/internal/network"
	"github.com/hedgepod/deployer/internal/pipeline"
	"github.com/hedgepod/deployer/internal/record"
)

// ErrFailures is returned by commands that completed but reported failed networks or
// contracts. The process exits with status 1.
var ErrFailures = errors.New("one or more operations failed")

// Registry builds the network registry and shared price feed table from configuration.
func Registry(cfg configs.Config) (*network.Registry, network.PriceIDs, error) {
	registry, err := network.FromSettings(cfg.Networks)
	if err != nil {
		return nil, nil, err
	}

	priceIDs, err := network.ParsePriceIDs(cfg.PriceIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid price-ids: %w", err)
	}

	return registry, priceIDs, nil
}

func OpenStore(cfg configs.Config) (record.Store, error) {
	store, err := record.Open(cfg.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to open deployment records: %w", err)
	}
	return store, nil
}

func Artifacts(cfg configs.Config) (map[contracts.Name]contracts.Artifact, error) {
	artifacts, err := contracts.LoadArtifacts(cfg.Artifacts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract artifacts from %s (run the compile command first): %w", cfg.Artifacts.Path, err)
	}
	return artifacts, nil
}

// Dialer connects to the RPC of a network with the configured deployer key. Environment
// variables in the RPC URL are expanded so provider keys can stay out of the config file.
func Dialer(cfg configs.Config) pipeline.Dialer {
	return func(ctx context.Context, n network.Config) (pipeline.ChainClient, error) {
		rpcURL := os.ExpandEnv(n.RPCURL)
		if rpcURL == "" {
			return nil, fmt.Errorf("%w: network '%s' has no rpc-url", pipeline.ErrMisconfiguredNetwork, n.ID)
		}

		client, err := chain.Dial(ctx, rpcURL, n.ChainID, chain.Options{
			PrivateKey:        cfg.Deployer.PrivateKey,
			SubmissionTimeout: cfg.Chain.SubmissionTimeout,
			GasLimit:          cfg.Chain.GasLimit,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Pipeline wires a deployment pipeline. The returned store must be closed by the caller.
func Pipeline(cfg configs.Config) (*pipeline.Pipeline, *network.Registry, record.Store, error) {
	registry, priceIDs, err := Registry(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	supply, err := pipeline.ParseInitialSupply(cfg.Deploy.InitialSupply)
	if err != nil {
		return nil, nil, nil, err
	}

	artifacts, err := Artifacts(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	deployer := DeployerAddress(cfg)

	store, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	p := pipeline.New(registry, priceIDs, artifacts, Dialer(cfg), store, pipeline.Options{
		Deployer:      deployer,
		InitialSupply: supply,
	})

	return p, registry, store, nil
}

// DeployerAddress derives the deployer account, or the zero address when no key is
// configured (dry runs).
func DeployerAddress(cfg configs.Config) common.Address {
	if cfg.Deployer.PrivateKey == "" {
		return common.Address{}
	}
	addr, err := chain.AddressFromPrivateKey(cfg.Deployer.PrivateKey)
	if err != nil {
		slog.With("err", err.Error()).Warn("could not derive the deployer address")
		return common.Address{}
	}
	return addr
}

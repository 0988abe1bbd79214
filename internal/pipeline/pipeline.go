// Package pipeline deploys the contract suite to one network and records the result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/hedgepod/deployer/internal/contracts"
	"github.com/hedgepod/deployer/internal/logger"
	"github.com/hedgepod/deployer/internal/network"
	"github.com/hedgepod/deployer/internal/record"
)

type (
	ChainClient interface {
		From() common.Address
		Deploy(ctx context.Context, artifact contracts.Artifact, args ...any) (common.Address, *types.Transaction, error)
		WaitForInclusion(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
		Close()
	}

	// Dialer opens a chain client for a network.
	Dialer func(ctx context.Context, cfg network.Config) (ChainClient, error)

	Registry interface {
		Resolve(id string) (network.Config, error)
	}

	Options struct {
		// Deployer is the account that will sign. It is used to resolve arguments before
		// connecting to the chain.
		Deployer      common.Address
		InitialSupply *big.Int
	}

	Pipeline struct {
		registry  Registry
		priceIDs  network.PriceIDs
		artifacts map[contracts.Name]contracts.Artifact
		dial      Dialer
		store     record.Store
		opts      Options
		steps     []Step
		now       func() time.Time
		logger    *slog.Logger
	}

	// PlannedStep is a step with its arguments resolved against the network configuration.
	PlannedStep struct {
		Name      contracts.Name
		DependsOn []contracts.Name
		Args      []string
	}
)

func New(registry Registry, priceIDs network.PriceIDs, artifacts map[contracts.Name]contracts.Artifact, dial Dialer, store record.Store, opts Options) *Pipeline {
	return &Pipeline{
		registry:  registry,
		priceIDs:  priceIDs,
		artifacts: artifacts,
		dial:      dial,
		store:     store,
		opts:      opts,
		steps:     Steps(),
		now:       time.Now,
		logger:    logger.Named("deployment_pipeline"),
	}
}

// ParseInitialSupply parses a base-10 token amount in wei.
func ParseInitialSupply(s string) (*big.Int, error) {
	supply, ok := new(big.Int).SetString(s, 10)
	if !ok || supply.Sign() <= 0 {
		return nil, fmt.Errorf("initial supply '%s' must be a positive base-10 integer", s)
	}
	return supply, nil
}

// Plan resolves every step of networkID without touching the chain.
func (p *Pipeline) Plan(networkID string) ([]PlannedStep, error) {
	cfg, err := p.registry.Resolve(networkID)
	if err != nil {
		return nil, err
	}

	in := p.input(cfg, p.opts.Deployer, true)
	planned := make([]PlannedStep, 0, len(p.steps))
	for _, step := range p.steps {
		args, err := step.resolve(in)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s arguments: %w", step.Name, err)
		}
		planned = append(planned, PlannedStep{Name: step.Name, DependsOn: step.DependsOn, Args: formatArgs(args)})
	}

	return planned, nil
}

// Deploy deploys the whole suite to networkID and saves its record. Nothing is persisted
// unless every contract was deployed and included.
func (p *Pipeline) Deploy(ctx context.Context, networkID string) (record.Record, error) {
	cfg, err := p.registry.Resolve(networkID)
	if err != nil {
		return record.Record{}, err
	}

	log := p.logger.With("network", networkID)

	if _, err := p.Plan(networkID); err != nil {
		return record.Record{}, err
	}
	if !cfg.PoolManager.IsSet() {
		log.Warn("no pool manager configured, the deployer address will be used for VolatilityFeeHook")
	}
	if cfg.AllowMockOracles && (!cfg.PythOracle.IsSet() || !cfg.ChainlinkOracle.IsSet() || !cfg.LZEndpoint.IsSet()) {
		log.Warn("mock mode: unset oracles and endpoints are passed as the zero address")
	}

	log.Info("deploying contracts")

	client, err := p.dial(ctx, cfg)
	if err != nil {
		return record.Record{}, fmt.Errorf("failed to connect to network '%s': %w", networkID, err)
	}
	defer client.Close()

	deployer := client.From()
	in := p.input(cfg, deployer, false)

	rec := record.Record{
		Version:         record.SchemaVersion,
		Network:         networkID,
		ChainID:         cfg.ChainID,
		Deployer:        deployer,
		Config:          record.SnapshotOf(cfg),
		PriceIDs:        p.resolvedPriceIDs(cfg),
		Contracts:       make(map[contracts.Name]common.Address, len(p.steps)),
		ConstructorArgs: make(map[contracts.Name]record.ConstructorArgs, len(p.steps)),
		TxHashes:        make(map[contracts.Name]common.Hash, len(p.steps)),
	}

	for i, step := range p.steps {
		args, err := step.resolve(in)
		if err != nil {
			return record.Record{}, fmt.Errorf("failed to resolve %s arguments: %w", step.Name, err)
		}

		address, txHash, encoded, err := p.deployStep(ctx, client, step, args)
		if err != nil {
			return record.Record{}, fmt.Errorf("failed to deploy %s to '%s': %w", step.Name, networkID, err)
		}

		in.deployed[step.Name] = address
		rec.Contracts[step.Name] = address
		rec.TxHashes[step.Name] = txHash
		rec.ConstructorArgs[step.Name] = record.ConstructorArgs{Values: formatArgs(args), Encoded: encoded}

		stepLog := log.
			With("step", fmt.Sprintf("%d/%d", i+1, len(p.steps))).
			With("contract", step.Name).
			With("address", address.Hex())
		if url := cfg.AddressURL(address); url != "" {
			stepLog = stepLog.With("explorer", url)
		}
		stepLog.Info("contract deployed")
	}

	rec.Timestamp = p.now().UTC().Truncate(time.Second)

	if err := p.store.Save(ctx, rec); err != nil {
		return record.Record{}, err
	}

	log.Info("deployment completed")

	return rec, nil
}

func (p *Pipeline) deployStep(ctx context.Context, client ChainClient, step Step, args []any) (common.Address, common.Hash, []byte, error) {
	artifact, ok := p.artifacts[step.Name]
	if !ok {
		return common.Address{}, common.Hash{}, nil, fmt.Errorf("no compiled artifact for %s", step.Name)
	}

	encoded, err := artifact.PackConstructor(args...)
	if err != nil {
		return common.Address{}, common.Hash{}, nil, err
	}

	address, tx, err := client.Deploy(ctx, artifact, args...)
	if err != nil {
		return common.Address{}, common.Hash{}, nil, err
	}

	if _, err := client.WaitForInclusion(ctx, tx); err != nil {
		return common.Address{}, common.Hash{}, nil, err
	}

	return address, tx.Hash(), encoded, nil
}

func (p *Pipeline) input(cfg network.Config, deployer common.Address, planning bool) stepInput {
	return stepInput{
		cfg:           cfg,
		priceIDs:      p.priceIDs,
		deployer:      deployer,
		initialSupply: p.opts.InitialSupply,
		deployed:      make(map[contracts.Name]common.Address),
		planning:      planning,
	}
}

func (p *Pipeline) resolvedPriceIDs(cfg network.Config) map[string]common.Hash {
	out := make(map[string]common.Hash)
	for _, symbol := range []string{network.SymbolETHUSD, network.SymbolUSDCUSD} {
		if id, err := p.priceIDs.Resolve(cfg, symbol); err == nil {
			out[symbol] = id
		}
	}
	return out
}

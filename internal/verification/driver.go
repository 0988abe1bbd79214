// Package verification submits the contracts of a recorded deployment to the network's
// block explorer.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hedgepod/deployer/configs"
	"github.com/hedgepod/deployer/internal/contracts"
	"github.com/hedgepod/deployer/internal/explorer"
	"github.com/hedgepod/deployer/internal/logger"
	"github.com/hedgepod/deployer/internal/network"
	"github.com/hedgepod/deployer/internal/record"
	"golang.org/x/sync/errgroup"
)

var ErrNoExplorer = errors.New("network has no explorer verification API")

const (
	OutcomeVerified           Outcome = "verified"
	OutcomeAlreadyVerified    Outcome = "already verified"
	OutcomeVerificationFailed Outcome = "failed"
)

type (
	Outcome string

	Explorer interface {
		Verify(ctx context.Context, req explorer.Request) (explorer.Status, error)
	}

	// ExplorerFactory returns the explorer of a network, or ErrNoExplorer.
	ExplorerFactory func(cfg network.Config) (Explorer, error)

	Registry interface {
		Resolve(id string) (network.Config, error)
	}

	Result struct {
		Contract contracts.Name
		Address  common.Address
		Outcome  Outcome
		Err      error
	}

	// Report lists one result per contract in deployment order.
	Report struct {
		Network string
		Results []Result
	}

	Driver struct {
		store       record.Store
		registry    Registry
		artifacts   map[contracts.Name]contracts.Artifact
		newExplorer ExplorerFactory
		parallelism int
		logger      *slog.Logger
	}
)

func New(store record.Store, registry Registry, artifacts map[contracts.Name]contracts.Artifact, newExplorer ExplorerFactory, parallelism int) *Driver {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Driver{
		store:       store,
		registry:    registry,
		artifacts:   artifacts,
		newExplorer: newExplorer,
		parallelism: parallelism,
		logger:      logger.Named("verification_driver"),
	}
}

// NewExplorerFactory builds Etherscan-compatible clients. The API key is read from the
// environment variable named by the network configuration.
func NewExplorerFactory(settings configs.Verify) ExplorerFactory {
	return func(cfg network.Config) (Explorer, error) {
		if cfg.ExplorerAPIURL == "" {
			return nil, fmt.Errorf("%w: '%s'", ErrNoExplorer, cfg.ID)
		}

		var apiKey string
		if cfg.ExplorerAPIKeyEnv != "" {
			apiKey = os.Getenv(cfg.ExplorerAPIKeyEnv)
		}

		return explorer.New(explorer.Options{
			APIURL:            cfg.ExplorerAPIURL,
			APIKey:            apiKey,
			ChainID:           cfg.ChainID,
			PollInterval:      settings.PollInterval,
			MaxPollAttempts:   settings.MaxPollAttempts,
			RequestsPerSecond: settings.RequestsPerSecond,
			RequestTimeout:    settings.RequestTimeout,
		}), nil
	}
}

// Verify submits every contract recorded for networkID. Failures are reported per contract;
// the returned error is only set when the record itself cannot be loaded.
func (d *Driver) Verify(ctx context.Context, networkID string) (Report, error) {
	rec, err := d.store.Load(ctx, networkID)
	if err != nil {
		return Report{}, err
	}

	log := d.logger.With("network", networkID)
	report := Report{Network: networkID, Results: make([]Result, len(contracts.DeploymentOrder))}
	for i, name := range contracts.DeploymentOrder {
		report.Results[i] = Result{Contract: name, Address: rec.Contracts[name]}
	}

	exp, err := d.newExplorer(d.explorerConfig(rec))
	if err != nil {
		log.With("err", err.Error()).Error("cannot verify contracts")
		for i := range report.Results {
			report.Results[i].Outcome = OutcomeVerificationFailed
			report.Results[i].Err = err
		}
		return report, nil
	}

	var g errgroup.Group
	g.SetLimit(d.parallelism)
	for i := range report.Results {
		g.Go(func() error {
			res := &report.Results[i]
			res.Outcome, res.Err = d.verifyContract(ctx, exp, rec, res.Contract)

			resLog := log.With("contract", res.Contract).With("address", res.Address.Hex())
			if res.Err != nil {
				resLog.With("err", res.Err.Error()).Error("verification failed")
			} else {
				resLog.With("outcome", res.Outcome).Info("contract verified")
			}
			return nil
		})
	}
	_ = g.Wait()

	return report, nil
}

func (d *Driver) verifyContract(ctx context.Context, exp Explorer, rec record.Record, name contracts.Name) (Outcome, error) {
	address, err := rec.Address(name)
	if err != nil {
		return OutcomeVerificationFailed, err
	}
	artifact, ok := d.artifacts[name]
	if !ok {
		return OutcomeVerificationFailed, fmt.Errorf("no compiled artifact for %s", name)
	}
	args, ok := rec.ConstructorArgs[name]
	if !ok {
		return OutcomeVerificationFailed, fmt.Errorf("record of network '%s' has no constructor arguments for %s", rec.Network, name)
	}

	status, err := exp.Verify(ctx, explorer.Request{
		Address:           address,
		ContractName:      artifact.SourceRef(),
		CompilerVersion:   artifact.CompilerVersion,
		StandardJSONInput: string(artifact.StandardJSONInput),
		ConstructorArgs:   args.Encoded,
	})
	if err != nil {
		return OutcomeVerificationFailed, err
	}

	if status == explorer.StatusAlreadyVerified {
		return OutcomeAlreadyVerified, nil
	}
	return OutcomeVerified, nil
}

// explorerConfig prefers the explorer recorded at deployment time and falls back to the
// registry for records written before the explorer API was part of the snapshot.
func (d *Driver) explorerConfig(rec record.Record) network.Config {
	cfg := rec.Config.NetworkConfig(rec.Network, rec.ChainID)
	if cfg.ExplorerAPIURL != "" || d.registry == nil {
		return cfg
	}

	live, err := d.registry.Resolve(rec.Network)
	if err != nil {
		return cfg
	}
	cfg.ExplorerAPIURL = live.ExplorerAPIURL
	cfg.ExplorerAPIKeyEnv = live.ExplorerAPIKeyEnv
	if cfg.ChainID == 0 {
		cfg.ChainID = live.ChainID
	}
	return cfg
}

// Failed lists the contracts that could not be verified.
func (r Report) Failed() []contracts.Name {
	var out []contracts.Name
	for _, res := range r.Results {
		if res.Outcome == OutcomeVerificationFailed {
			out = append(out, res.Contract)
		}
	}
	return out
}

func (r Report) ExitCode() int {
	if len(r.Failed()) > 0 {
		return 1
	}
	return 0
}

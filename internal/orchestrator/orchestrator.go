// Package orchestrator deploys to several networks, isolating failures between them.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hedgepod/deployer/internal/logger"
	"github.com/hedgepod/deployer/internal/network"
	"github.com/hedgepod/deployer/internal/record"
	"golang.org/x/sync/errgroup"
)

type (
	Deployer interface {
		Deploy(ctx context.Context, networkID string) (record.Record, error)
	}

	Registry interface {
		Resolve(id string) (network.Config, error)
	}

	Options struct {
		// Delay is waited between two deployments, never after the last one.
		Delay time.Duration
		// Parallelism bounds how many networks deploy at once. Values below 2 run sequentially.
		Parallelism int
	}

	Orchestrator struct {
		deployer Deployer
		registry Registry
		opts     Options
		after    func(time.Duration) <-chan time.Time
		logger   *slog.Logger
	}
)

func New(deployer Deployer, registry Registry, opts Options) *Orchestrator {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	return &Orchestrator{
		deployer: deployer,
		registry: registry,
		opts:     opts,
		after:    time.After,
		logger:   logger.Named("orchestrator"),
	}
}

// Run deploys to every network in ids and reports one outcome per id, in input order. A
// failing network never stops the others. Once ctx is cancelled no further network is
// started and the remaining ones are reported as failed.
func (o *Orchestrator) Run(ctx context.Context, ids []string) Summary {
	outcomes := make([]Outcome, len(ids))
	for i, id := range ids {
		outcomes[i] = Outcome{Network: id, State: StatePending}
	}

	o.logger.With("networks", ids).With("parallelism", o.opts.Parallelism).Info("starting deployments")

	// Each goroutine only writes its own index of outcomes.
	var g errgroup.Group
	g.SetLimit(o.opts.Parallelism)

	started := 0
	for i, id := range ids {
		if _, err := o.registry.Resolve(id); err != nil {
			outcomes[i] = failed(id, err, 0)
			o.logger.With("network", id).With("err", err.Error()).Error("skipping network")
			continue
		}

		if started > 0 && !o.wait(ctx) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		started++

		outcomes[i].State = StateDeploying
		if o.opts.Parallelism == 1 {
			outcomes[i] = o.deployOne(ctx, id)
			continue
		}
		g.Go(func() error {
			outcomes[i] = o.deployOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	for i := range outcomes {
		if outcomes[i].State == StatePending {
			outcomes[i] = failed(outcomes[i].Network, fmt.Errorf("deployment not started: %w", context.Cause(ctx)), 0)
		}
	}

	summary := Summary{Outcomes: outcomes}
	o.logger.
		With("succeeded", summary.Succeeded()).
		With("failed", summary.Failed()).
		Info("deployments finished")

	return summary
}

func (o *Orchestrator) deployOne(ctx context.Context, id string) Outcome {
	log := o.logger.With("network", id)
	log.Info("deploying network")

	start := time.Now()
	rec, err := o.deployer.Deploy(ctx, id)
	elapsed := time.Since(start)
	if err != nil {
		log.With("err", err.Error()).Error("network deployment failed")
		return failed(id, err, elapsed)
	}

	log.With("duration", elapsed.String()).Info("network deployed")
	return Outcome{Network: id, State: StateSucceeded, Record: rec, Duration: elapsed}
}

// wait sleeps for the configured delay and reports false if ctx ended first.
func (o *Orchestrator) wait(ctx context.Context) bool {
	if o.opts.Delay <= 0 {
		return ctx.Err() == nil
	}

	o.logger.With("delay", o.opts.Delay.String()).Info("waiting before the next network")

	select {
	case <-ctx.Done():
		return false
	case <-o.after(o.opts.Delay):
		return true
	}
}

func failed(id string, err error, elapsed time.Duration) Outcome {
	return Outcome{Network: id, State: StateFailed, Err: err, Duration: elapsed}
}

package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hedgepod/deployer/configs"
	"github.com/hedgepod/deployer/internal/contracts"
	"github.com/hedgepod/deployer/internal/contracts/contractstest"
	"github.com/hedgepod/deployer/internal/network"
	"github.com/hedgepod/deployer/internal/pipeline"
	"github.com/hedgepod/deployer/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeployer struct {
	mu      sync.Mutex
	calls   []string
	failing map[string]error
	hook    func(id string)
}

func (f *fakeDeployer) Deploy(_ context.Context, id string) (record.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()

	if f.hook != nil {
		f.hook(id)
	}
	if err := f.failing[id]; err != nil {
		return record.Record{}, err
	}
	return record.Record{
		Network:   id,
		Contracts: map[contracts.Name]common.Address{contracts.NameHedgePodVault: common.HexToAddress("0x12")},
	}, nil
}

func abcRegistry(t *testing.T) *network.Registry {
	r, err := network.NewRegistry([]network.Config{{ID: "A"}, {ID: "B"}, {ID: "C"}})
	require.NoError(t, err)
	return r
}

func TestFailureIsIsolated(t *testing.T) {
	deployer := &fakeDeployer{failing: map[string]error{"B": errors.New("rpc unreachable")}}
	o := New(deployer, abcRegistry(t), Options{})

	summary := o.Run(context.Background(), []string{"A", "B", "C"})

	assert.Equal(t, []string{"A", "B", "C"}, deployer.calls)
	assert.Equal(t, []string{"A", "C"}, summary.Succeeded())
	assert.Equal(t, []string{"B"}, summary.Failed())
	assert.Equal(t, 1, summary.ExitCode())
	assert.EqualError(t, summary.Outcomes[1].Err, "rpc unreachable")
}

func TestAllSucceededExitsZero(t *testing.T) {
	o := New(&fakeDeployer{}, abcRegistry(t), Options{})

	summary := o.Run(context.Background(), []string{"A", "C"})

	assert.Empty(t, summary.Failed())
	assert.Equal(t, 0, summary.ExitCode())
}

func TestDelayOnlyBetweenNetworks(t *testing.T) {
	o := New(&fakeDeployer{}, abcRegistry(t), Options{Delay: time.Hour})

	var waits []time.Duration
	o.after = func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	o.Run(context.Background(), []string{"A", "B", "C"})
	assert.Equal(t, []time.Duration{time.Hour, time.Hour}, waits)

	waits = nil
	o.Run(context.Background(), []string{"A"})
	assert.Empty(t, waits)
}

func TestCancellationStopsStartingNetworks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deployer := &fakeDeployer{hook: func(id string) {
		if id == "A" {
			cancel()
		}
	}}
	o := New(deployer, abcRegistry(t), Options{Delay: time.Hour})

	summary := o.Run(ctx, []string{"A", "B", "C"})

	assert.Equal(t, []string{"A"}, deployer.calls)
	assert.Equal(t, []string{"A"}, summary.Succeeded())
	assert.Equal(t, []string{"B", "C"}, summary.Failed())
	for _, outcome := range summary.Outcomes[1:] {
		assert.ErrorIs(t, outcome.Err, context.Canceled)
	}
}

func TestParallelRunKeepsInputOrder(t *testing.T) {
	release := make(chan struct{})
	var running sync.WaitGroup
	running.Add(3)

	deployer := &fakeDeployer{
		failing: map[string]error{"B": errors.New("boom")},
		hook: func(string) {
			running.Done()
			<-release
		},
	}
	o := New(deployer, abcRegistry(t), Options{Parallelism: 3})

	go func() {
		// All three deployments must be in flight at the same time.
		running.Wait()
		close(release)
	}()

	summary := o.Run(context.Background(), []string{"C", "B", "A"})

	require.Len(t, summary.Outcomes, 3)
	assert.Equal(t, "C", summary.Outcomes[0].Network)
	assert.Equal(t, "B", summary.Outcomes[1].Network)
	assert.Equal(t, "A", summary.Outcomes[2].Network)
	assert.Equal(t, []string{"C", "A"}, summary.Succeeded())
	assert.Equal(t, []string{"B"}, summary.Failed())
}

func TestPrintSummary(t *testing.T) {
	summary := Summary{Outcomes: []Outcome{
		{Network: "base", State: StateSucceeded, Record: record.Record{
			Contracts: map[contracts.Name]common.Address{contracts.NameHedgePodVault: common.HexToAddress("0x12")},
		}},
		{Network: "polygon", State: StateFailed, Err: errors.New("insufficient funds")},
	}}

	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, summary))

	out := buf.String()
	assert.Contains(t, out, "base")
	assert.Contains(t, out, "polygon")
	assert.Contains(t, out, "insufficient funds")
	assert.Contains(t, out, common.HexToAddress("0x12").Hex())
}

type stubChain struct {
	nonce uint64
}

func (s *stubChain) From() common.Address { return common.HexToAddress("0xde") }

func (s *stubChain) Deploy(_ context.Context, artifact contracts.Artifact, _ ...any) (common.Address, *types.Transaction, error) {
	addr := crypto.CreateAddress(s.From(), s.nonce)
	tx := types.NewTx(&types.LegacyTx{Nonce: s.nonce, Data: artifact.Bytecode})
	s.nonce++
	return addr, tx, nil
}

func (s *stubChain) WaitForInclusion(_ context.Context, _ *types.Transaction) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (s *stubChain) Close() {}

func TestDeployAllWithUnknownNetwork(t *testing.T) {
	defaults := configs.MustDefaultConfig()
	registry, err := network.FromSettings(defaults.Networks)
	require.NoError(t, err)
	priceIDs, err := network.ParsePriceIDs(defaults.PriceIDs)
	require.NoError(t, err)
	store, err := record.NewFileStore(t.TempDir())
	require.NoError(t, err)

	dial := func(context.Context, network.Config) (pipeline.ChainClient, error) {
		return &stubChain{}, nil
	}
	p := pipeline.New(registry, priceIDs, contractstest.Artifacts(), dial, store, pipeline.Options{
		Deployer:      common.HexToAddress("0xde"),
		InitialSupply: big.NewInt(1),
	})

	summary := New(p, registry, Options{}).Run(context.Background(), []string{"baseSepolia", "unknownNet"})

	assert.Equal(t, []string{"baseSepolia"}, summary.Succeeded())
	assert.Equal(t, []string{"unknownNet"}, summary.Failed())
	assert.ErrorIs(t, summary.Outcomes[1].Err, network.ErrUnknownNetwork)
	assert.Equal(t, 1, summary.ExitCode())

	rec, err := store.Load(context.Background(), "baseSepolia")
	require.NoError(t, err)
	assert.True(t, rec.Complete())
}

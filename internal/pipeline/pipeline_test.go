package pipeline

import (
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
	"github.com/hedgepod/deployer/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deployerAddress = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

type fakeChain struct {
	mu        sync.Mutex
	from      common.Address
	nonce     uint64
	failOn    contracts.Name
	submitted []contracts.Name
	args      map[contracts.Name][]any
	closed    bool
}

func newFakeChain() *fakeChain {
	return &fakeChain{from: deployerAddress, args: make(map[contracts.Name][]any)}
}

func (f *fakeChain) From() common.Address { return f.from }

func (f *fakeChain) Deploy(_ context.Context, artifact contracts.Artifact, args ...any) (common.Address, *types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submitted = append(f.submitted, artifact.Name)
	if artifact.Name == f.failOn {
		return common.Address{}, nil, errors.New("execution reverted")
	}
	f.args[artifact.Name] = args

	addr := crypto.CreateAddress(f.from, f.nonce)
	tx := types.NewTx(&types.LegacyTx{Nonce: f.nonce, Data: artifact.Bytecode})
	f.nonce++
	return addr, tx, nil
}

func (f *fakeChain) WaitForInclusion(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}, nil
}

func (f *fakeChain) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

type failingStore struct {
	record.Store
}

func (failingStore) Save(_ context.Context, r record.Record) error {
	return &record.PersistenceError{Network: r.Network, Op: "write", Err: errors.New("disk full")}
}

type fixture struct {
	chain    *fakeChain
	dials    int
	store    record.Store
	pipeline *Pipeline
}

func newFixture(t *testing.T, settings []configs.Network) *fixture {
	t.Helper()

	defaults := configs.MustDefaultConfig()
	if settings == nil {
		settings = defaults.Networks
	}

	registry, err := network.FromSettings(settings)
	require.NoError(t, err)
	priceIDs, err := network.ParsePriceIDs(defaults.PriceIDs)
	require.NoError(t, err)
	store, err := record.NewFileStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{chain: newFakeChain(), store: store}
	dial := func(context.Context, network.Config) (ChainClient, error) {
		f.dials++
		return f.chain, nil
	}

	f.pipeline = New(registry, priceIDs, contractstest.Artifacts(), dial, store, Options{
		Deployer:      deployerAddress,
		InitialSupply: big.NewInt(1_000_000),
	})
	f.pipeline.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	return f
}

func TestStepsFollowDependencyOrder(t *testing.T) {
	steps := Steps()

	names := make([]contracts.Name, len(steps))
	position := make(map[contracts.Name]int, len(steps))
	for i, s := range steps {
		names[i] = s.Name
		position[s.Name] = i
	}
	assert.Equal(t, contracts.DeploymentOrder, names)

	for i, s := range steps {
		for _, dep := range s.DependsOn {
			depPos, ok := position[dep]
			require.True(t, ok, "%s depends on unknown step %s", s.Name, dep)
			assert.Less(t, depPos, i, "%s must be deployed after %s", s.Name, dep)
		}
	}
}

func TestStepsOnlySeeDeclaredDependencies(t *testing.T) {
	token := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	in := stepInput{
		deployed: map[contracts.Name]common.Address{contracts.NameAutoYieldToken: token},
	}

	undeclared := Step{
		Name: contracts.NameVolatilityFeeHook,
		Args: func(in stepInput) ([]any, error) {
			addr, err := in.dependency(contracts.NameAutoYieldToken)
			return []any{addr}, err
		},
	}
	_, err := undeclared.resolve(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a declared dependency")

	declared := undeclared
	declared.DependsOn = []contracts.Name{contracts.NameAutoYieldToken}
	args, err := declared.resolve(in)
	require.NoError(t, err)
	assert.Equal(t, []any{token}, args)
}

func TestDeployHardhatInMockMode(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	rec, err := f.pipeline.Deploy(ctx, "hardhat")
	require.NoError(t, err)

	assert.Equal(t, contracts.DeploymentOrder, f.chain.submitted)
	assert.True(t, f.chain.closed)
	assert.True(t, rec.Complete())
	assert.Equal(t, int64(31337), rec.ChainID)
	assert.Equal(t, deployerAddress, rec.Deployer)

	// Unset oracles are passed as the zero address in mock mode.
	assert.Equal(t, []any{common.Address{}, common.Address{}}, f.chain.args[contracts.NameYieldOracle])

	vaultArgs := f.chain.args[contracts.NameHedgePodVault]
	require.Len(t, vaultArgs, 5)
	assert.Equal(t, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), vaultArgs[0])
	assert.Equal(t, rec.Contracts[contracts.NameAutoYieldToken], vaultArgs[1])

	hookArgs := f.chain.args[contracts.NameVolatilityFeeHook]
	require.Len(t, hookArgs, 3)
	assert.Equal(t, deployerAddress, hookArgs[1], "deployer stands in for the missing pool manager")

	for _, name := range contracts.DeploymentOrder {
		assert.NotEmpty(t, rec.ConstructorArgs[name].Encoded, name)
		assert.NotEqual(t, common.Hash{}, rec.TxHashes[name], name)
	}

	stored, err := f.store.Load(ctx, "hardhat")
	require.NoError(t, err)
	assert.Equal(t, rec, stored)
}

func TestZeroOracleNetworkNeverSubmits(t *testing.T) {
	zero := "0x0000000000000000000000000000000000000000"
	f := newFixture(t, []configs.Network{{
		ID:              "bare",
		ChainID:         1,
		PythOracle:      zero,
		ChainlinkOracle: zero,
		LZEndpoint:      "0x1a44076050125825900e736c501f859c50fE728c",
		DepositToken:    "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
	}})

	_, err := f.pipeline.Deploy(context.Background(), "bare")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMisconfiguredOracle)
	assert.Empty(t, f.chain.submitted)
	assert.Zero(t, f.dials)

	_, err = f.store.Load(context.Background(), "bare")
	assert.ErrorIs(t, err, record.ErrRecordNotFound)
}

func TestMisconfiguredNetworks(t *testing.T) {
	valid := configs.Network{
		ID:           "net",
		ChainID:      10,
		PythOracle:   "0xff1a0f4744e8582DF1aE09D5611b887B6a12925C",
		LZEndpoint:   "0x1a44076050125825900e736c501f859c50fE728c",
		DepositToken: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
	}

	tests := []struct {
		name    string
		mutate  func(n *configs.Network)
		wantErr error
	}{
		{
			name:    "missing layerzero endpoint",
			mutate:  func(n *configs.Network) { n.LZEndpoint = "" },
			wantErr: ErrMisconfiguredNetwork,
		},
		{
			name: "missing deposit token in mock mode",
			mutate: func(n *configs.Network) {
				n.DepositToken = ""
				n.AllowMockOracles = true
			},
			wantErr: ErrMisconfiguredNetwork,
		},
		{
			name: "chainlink only leaves the vault without pyth",
			mutate: func(n *configs.Network) {
				n.PythOracle = ""
				n.ChainlinkOracle = "0x694AA1769357215DE4FAC081bf1f309aDC325306"
			},
			wantErr: ErrMisconfiguredOracle,
		},
		{
			name:    "empty network price ids fall back to the shared table",
			mutate:  func(n *configs.Network) { n.PriceIDs = map[string]string{} },
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := valid
			tt.mutate(&n)
			f := newFixture(t, []configs.Network{n})

			_, err := f.pipeline.Deploy(context.Background(), "net")
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.chain.submitted)
		})
	}
}

func TestMissingPriceFeedIsMisconfiguration(t *testing.T) {
	f := newFixture(t, nil)
	f.pipeline.priceIDs = network.PriceIDs{}

	_, err := f.pipeline.Deploy(context.Background(), "hardhat")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMisconfiguredNetwork)
	assert.ErrorIs(t, err, network.ErrUnknownPriceFeed)
	assert.Empty(t, f.chain.submitted)
}

func TestDeployAbortsOnFirstFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.chain.failOn = contracts.NameHedgePodVault

	_, err := f.pipeline.Deploy(context.Background(), "hardhat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(contracts.NameHedgePodVault))
	assert.Equal(t, []contracts.Name{
		contracts.NameYieldOracle,
		contracts.NameAutoYieldToken,
		contracts.NameHedgePodVault,
	}, f.chain.submitted)

	_, err = f.store.Load(context.Background(), "hardhat")
	assert.ErrorIs(t, err, record.ErrRecordNotFound)
}

func TestDeployFailsWhenRecordCannotBeSaved(t *testing.T) {
	f := newFixture(t, nil)
	f.pipeline.store = failingStore{Store: f.store}

	_, err := f.pipeline.Deploy(context.Background(), "hardhat")

	var perr *record.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "hardhat", perr.Network)
	assert.Len(t, f.chain.submitted, len(contracts.DeploymentOrder))
}

func TestDeployUnknownNetwork(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.pipeline.Deploy(context.Background(), "unknownNet")
	assert.ErrorIs(t, err, network.ErrUnknownNetwork)
	assert.Zero(t, f.dials)
}

func TestPlanResolvesWithoutChain(t *testing.T) {
	f := newFixture(t, nil)

	planned, err := f.pipeline.Plan("baseSepolia")
	require.NoError(t, err)
	require.Len(t, planned, len(contracts.DeploymentOrder))
	assert.Zero(t, f.dials)

	vault := planned[2]
	assert.Equal(t, contracts.NameHedgePodVault, vault.Name)
	assert.Equal(t, []contracts.Name{contracts.NameAutoYieldToken}, vault.DependsOn)
	require.Len(t, vault.Args, 5)
	assert.Equal(t, "1000000", planned[1].Args[1])
}

func TestParseInitialSupply(t *testing.T) {
	supply, err := ParseInitialSupply("1000000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000000000", supply.String())

	for _, bad := range []string{"", "0", "-5", "1e24", "0x10"} {
		_, err := ParseInitialSupply(bad)
		assert.Error(t, err, bad)
	}
}

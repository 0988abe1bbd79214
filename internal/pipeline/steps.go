package pipeline

import (
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hedgepod/deployer/internal/contracts"
	"github.com/hedgepod/deployer/internal/network"
)

var (
	ErrMisconfiguredOracle  = errors.New("misconfigured oracle")
	ErrMisconfiguredNetwork = errors.New("misconfigured network")
)

type (
	// Step deploys one contract of the suite. Args may only read addresses of the contracts
	// listed in DependsOn.
	Step struct {
		Name      contracts.Name
		DependsOn []contracts.Name
		Args      func(in stepInput) ([]any, error)
	}

	stepInput struct {
		cfg           network.Config
		priceIDs      network.PriceIDs
		deployer      common.Address
		initialSupply *big.Int
		deployed      map[contracts.Name]common.Address
		dependsOn     []contracts.Name
		// planning resolves arguments before anything is deployed. Dependencies resolve to the
		// zero address.
		planning bool
	}
)

// Steps returns the suite in deployment order.
func Steps() []Step {
	return []Step{
		{
			Name: contracts.NameYieldOracle,
			Args: yieldOracleArgs,
		},
		{
			Name: contracts.NameAutoYieldToken,
			Args: autoYieldTokenArgs,
		},
		{
			Name:      contracts.NameHedgePodVault,
			DependsOn: []contracts.Name{contracts.NameAutoYieldToken},
			Args:      hedgePodVaultArgs,
		},
		{
			Name: contracts.NameVolatilityFeeHook,
			Args: volatilityFeeHookArgs,
		},
	}
}

func yieldOracleArgs(in stepInput) ([]any, error) {
	if !in.cfg.PythOracle.IsSet() && !in.cfg.ChainlinkOracle.IsSet() && !in.cfg.AllowMockOracles {
		return nil, fmt.Errorf("%w: network '%s' has neither a pyth nor a chainlink oracle", ErrMisconfiguredOracle, in.cfg.ID)
	}
	return []any{in.cfg.PythOracle.OrZero(), in.cfg.ChainlinkOracle.OrZero()}, nil
}

func autoYieldTokenArgs(in stepInput) ([]any, error) {
	if !in.cfg.LZEndpoint.IsSet() && !in.cfg.AllowMockOracles {
		return nil, fmt.Errorf("%w: network '%s' has no layerzero endpoint", ErrMisconfiguredNetwork, in.cfg.ID)
	}
	if in.initialSupply == nil || in.initialSupply.Sign() <= 0 {
		return nil, fmt.Errorf("%w: initial supply must be positive", ErrMisconfiguredNetwork)
	}
	return []any{in.cfg.LZEndpoint.OrZero(), new(big.Int).Set(in.initialSupply)}, nil
}

func hedgePodVaultArgs(in stepInput) ([]any, error) {
	depositToken, ok := in.cfg.DepositToken.Get()
	if !ok {
		return nil, fmt.Errorf("%w: network '%s' has no deposit token", ErrMisconfiguredNetwork, in.cfg.ID)
	}
	pyth, err := requirePyth(in)
	if err != nil {
		return nil, err
	}
	token, err := in.dependency(contracts.NameAutoYieldToken)
	if err != nil {
		return nil, err
	}
	ethUSD, err := in.priceID(network.SymbolETHUSD)
	if err != nil {
		return nil, err
	}
	usdcUSD, err := in.priceID(network.SymbolUSDCUSD)
	if err != nil {
		return nil, err
	}
	return []any{depositToken, token, pyth, ethUSD, usdcUSD}, nil
}

func volatilityFeeHookArgs(in stepInput) ([]any, error) {
	pyth, err := requirePyth(in)
	if err != nil {
		return nil, err
	}
	ethUSD, err := in.priceID(network.SymbolETHUSD)
	if err != nil {
		return nil, err
	}
	poolManager, ok := in.cfg.PoolManager.Get()
	if !ok {
		poolManager = in.deployer
	}
	return []any{pyth, poolManager, ethUSD}, nil
}

func requirePyth(in stepInput) (common.Address, error) {
	if !in.cfg.PythOracle.IsSet() && !in.cfg.AllowMockOracles {
		return common.Address{}, fmt.Errorf("%w: network '%s' has no pyth oracle", ErrMisconfiguredOracle, in.cfg.ID)
	}
	return in.cfg.PythOracle.OrZero(), nil
}

// resolve computes the constructor arguments of s. Only the dependencies s declares are
// visible to its Args.
func (s Step) resolve(in stepInput) ([]any, error) {
	in.dependsOn = s.DependsOn
	return s.Args(in)
}

func (in stepInput) dependency(name contracts.Name) (common.Address, error) {
	if !slices.Contains(in.dependsOn, name) {
		return common.Address{}, fmt.Errorf("%s is not a declared dependency", name)
	}
	addr, ok := in.deployed[name]
	if !ok && !in.planning {
		return common.Address{}, fmt.Errorf("%s has not been deployed yet", name)
	}
	return addr, nil
}

func (in stepInput) priceID(symbol string) (common.Hash, error) {
	id, err := in.priceIDs.Resolve(in.cfg, symbol)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %w", ErrMisconfiguredNetwork, err)
	}
	return id, nil
}

func formatArg(v any) string {
	switch t := v.(type) {
	case common.Address:
		return t.Hex()
	case common.Hash:
		return t.Hex()
	case *big.Int:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func formatArgs(args []any) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = formatArg(a)
	}
	return out
}

// Package network holds the immutable registry of deployment targets.
package network

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hedgepod/deployer/configs"
)

var ErrUnknownNetwork = errors.New("unknown network")

type (
	// Config is the resolved, validated definition of one network.
	Config struct {
		ID                string
		Name              string
		ChainID           int64
		RPCURL            string
		ExplorerURL       string
		ExplorerAPIURL    string
		ExplorerAPIKeyEnv string
		PythOracle        Address
		ChainlinkOracle   Address
		LZEndpoint        Address
		DepositToken      Address
		PoolManager       Address
		Testnet           bool
		AllowMockOracles  bool
		PriceIDs          map[string]common.Hash
	}

	// Registry maps network identifiers to their configuration. It is never mutated
	// after construction and may be shared between goroutines.
	Registry struct {
		order []string
		byID  map[string]Config
	}
)

// NewRegistry builds a registry preserving the order of networks.
func NewRegistry(networks []Config) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(networks)),
		byID:  make(map[string]Config, len(networks)),
	}

	for _, n := range networks {
		if n.ID == "" {
			return nil, errors.New("network identifier must not be empty")
		}
		if _, dup := r.byID[n.ID]; dup {
			return nil, fmt.Errorf("network '%s' is declared more than once", n.ID)
		}
		r.order = append(r.order, n.ID)
		n.PriceIDs = maps.Clone(n.PriceIDs)
		r.byID[n.ID] = n
	}

	return r, nil
}

// FromSettings converts configuration entries into a Registry, rejecting malformed addresses
// and price feed identifiers.
func FromSettings(settings []configs.Network) (*Registry, error) {
	networks := make([]Config, 0, len(settings))
	var errs []error

	for _, s := range settings {
		cfg, err := fromSetting(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		networks = append(networks, cfg)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid network configuration: %w", errors.Join(errs...))
	}

	return NewRegistry(networks)
}

func fromSetting(s configs.Network) (Config, error) {
	id := strings.TrimSpace(s.ID)
	cfg := Config{
		ID:                id,
		Name:              s.Name,
		ChainID:           s.ChainID,
		RPCURL:            s.RPCURL,
		ExplorerURL:       strings.TrimRight(s.ExplorerURL, "/"),
		ExplorerAPIURL:    s.ExplorerAPIURL,
		ExplorerAPIKeyEnv: s.ExplorerAPIKeyEnv,
		Testnet:           s.Testnet,
		AllowMockOracles:  s.AllowMockOracles,
	}
	if cfg.Name == "" {
		cfg.Name = id
	}

	fields := []struct {
		name  string
		value string
		dst   *Address
	}{
		{"pyth-oracle", s.PythOracle, &cfg.PythOracle},
		{"chainlink-oracle", s.ChainlinkOracle, &cfg.ChainlinkOracle},
		{"lz-endpoint", s.LZEndpoint, &cfg.LZEndpoint},
		{"deposit-token", s.DepositToken, &cfg.DepositToken},
		{"pool-manager", s.PoolManager, &cfg.PoolManager},
	}

	var errs []error
	for _, f := range fields {
		addr, err := ParseAddress(f.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("networks.%s.%s: %w", id, f.name, err))
			continue
		}
		*f.dst = addr
	}

	priceIDs, err := ParsePriceIDs(s.PriceIDs)
	if err != nil {
		errs = append(errs, fmt.Errorf("networks.%s.price-ids: %w", id, err))
	}
	cfg.PriceIDs = priceIDs

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

// Resolve returns the configuration of the given network. The error lists every configured
// identifier so an operator can correct a typo.
func (r *Registry) Resolve(id string) (Config, error) {
	cfg, ok := r.byID[id]
	if !ok {
		return Config{}, fmt.Errorf("%w '%s' (configured networks: %s)", ErrUnknownNetwork, id, strings.Join(r.order, ", "))
	}
	cfg.PriceIDs = maps.Clone(cfg.PriceIDs)
	return cfg, nil
}

// List returns the configured identifiers in declaration order.
func (r *Registry) List() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) IsConfigured(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// AddressURL returns the explorer page of addr, or an empty string when the network has no
// public explorer.
func (c Config) AddressURL(addr common.Address) string {
	if c.ExplorerURL == "" {
		return ""
	}
	return c.ExplorerURL + "/address/" + addr.Hex()
}

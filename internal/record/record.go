// Package record persists one deployment record per network.
package record

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/hedgepod/deployer/internal/contracts"
	"github.com/hedgepod/deployer/internal/network"
)

// SchemaVersion is bumped whenever a field is added. Field names are never renamed so older
// documents stay readable.
const SchemaVersion = 1

type (
	// Record describes a complete deployment of the contract suite to one network.
	Record struct {
		Version         int                                `json:"version"`
		Network         string                             `json:"network"`
		ChainID         int64                              `json:"chainId"`
		Deployer        common.Address                     `json:"deployer"`
		Timestamp       time.Time                          `json:"timestamp"`
		Config          NetworkSnapshot                    `json:"config"`
		PriceIDs        map[string]common.Hash             `json:"priceIds"`
		Contracts       map[contracts.Name]common.Address  `json:"contracts"`
		ConstructorArgs map[contracts.Name]ConstructorArgs `json:"constructorArgs"`
		TxHashes        map[contracts.Name]common.Hash     `json:"txHashes"`
	}

	// ConstructorArgs keeps both the readable arguments and the exact ABI encoding that was
	// appended to the creation bytecode.
	ConstructorArgs struct {
		Values  []string      `json:"values"`
		Encoded hexutil.Bytes `json:"encoded"`
	}

	// NetworkSnapshot is the network configuration at deployment time. Unset addresses are
	// written as the zero address, which older readers treat as "not configured".
	NetworkSnapshot struct {
		Name              string         `json:"name"`
		ExplorerURL       string         `json:"explorerUrl"`
		ExplorerAPIURL    string         `json:"explorerApiUrl,omitempty"`
		ExplorerAPIKeyEnv string         `json:"explorerApiKeyEnv,omitempty"`
		PythOracle        common.Address `json:"pythOracle"`
		ChainlinkOracle   common.Address `json:"chainlinkOracle"`
		LZEndpoint        common.Address `json:"lzEndpoint"`
		DepositToken      common.Address `json:"depositToken"`
		PoolManager       common.Address `json:"poolManager"`
		Testnet           bool           `json:"testnet,omitempty"`
		AllowMockOracles  bool           `json:"allowMockOracles,omitempty"`
	}
)

// SnapshotOf converts a resolved network configuration into its persisted form.
func SnapshotOf(cfg network.Config) NetworkSnapshot {
	return NetworkSnapshot{
		Name:              cfg.Name,
		ExplorerURL:       cfg.ExplorerURL,
		ExplorerAPIURL:    cfg.ExplorerAPIURL,
		ExplorerAPIKeyEnv: cfg.ExplorerAPIKeyEnv,
		PythOracle:        cfg.PythOracle.OrZero(),
		ChainlinkOracle:   cfg.ChainlinkOracle.OrZero(),
		LZEndpoint:        cfg.LZEndpoint.OrZero(),
		DepositToken:      cfg.DepositToken.OrZero(),
		PoolManager:       cfg.PoolManager.OrZero(),
		Testnet:           cfg.Testnet,
		AllowMockOracles:  cfg.AllowMockOracles,
	}
}

// NetworkConfig restores the snapshot of network id, mapping zero addresses back to unset.
func (s NetworkSnapshot) NetworkConfig(id string, chainID int64) network.Config {
	return network.Config{
		ID:                id,
		Name:              s.Name,
		ChainID:           chainID,
		ExplorerURL:       s.ExplorerURL,
		ExplorerAPIURL:    s.ExplorerAPIURL,
		ExplorerAPIKeyEnv: s.ExplorerAPIKeyEnv,
		PythOracle:        network.Some(s.PythOracle),
		ChainlinkOracle:   network.Some(s.ChainlinkOracle),
		LZEndpoint:        network.Some(s.LZEndpoint),
		DepositToken:      network.Some(s.DepositToken),
		PoolManager:       network.Some(s.PoolManager),
		Testnet:           s.Testnet,
		AllowMockOracles:  s.AllowMockOracles,
	}
}

// Address returns the deployed address of name.
func (r Record) Address(name contracts.Name) (common.Address, error) {
	addr, ok := r.Contracts[name]
	if !ok {
		return common.Address{}, fmt.Errorf("record for network '%s' has no address for %s", r.Network, name)
	}
	return addr, nil
}

// Complete reports whether every member of the suite has an address.
func (r Record) Complete() bool {
	for _, name := range contracts.DeploymentOrder {
		if _, ok := r.Contracts[name]; !ok {
			return false
		}
	}
	return true
}

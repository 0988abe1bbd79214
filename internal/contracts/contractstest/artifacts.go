// Package contractstest provides compiled artifacts with the real constructor ABIs for tests
// that do not need working bytecode.
package contractstest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/hedgepod/deployer/internal/contracts"
)

// ConstructorABIs holds a constructor-only ABI per contract of the suite.
var ConstructorABIs = map[contracts.Name]string{
	contracts.NameYieldOracle:       `[{"type":"constructor","inputs":[{"name":"pyth","type":"address"},{"name":"chainlink","type":"address"}],"stateMutability":"nonpayable"}]`,
	contracts.NameAutoYieldToken:    `[{"type":"constructor","inputs":[{"name":"lzEndpoint","type":"address"},{"name":"initialSupply","type":"uint256"}],"stateMutability":"nonpayable"}]`,
	contracts.NameHedgePodVault:     `[{"type":"constructor","inputs":[{"name":"asset","type":"address"},{"name":"token","type":"address"},{"name":"pyth","type":"address"},{"name":"ethUsd","type":"bytes32"},{"name":"usdcUsd","type":"bytes32"}],"stateMutability":"nonpayable"}]`,
	contracts.NameVolatilityFeeHook: `[{"type":"constructor","inputs":[{"name":"pyth","type":"address"},{"name":"poolManager","type":"address"},{"name":"ethUsd","type":"bytes32"}],"stateMutability":"nonpayable"}]`,
}

// Artifacts returns one artifact per contract. The bytecode is a single STOP instruction.
func Artifacts() map[contracts.Name]contracts.Artifact {
	out := make(map[contracts.Name]contracts.Artifact, len(ConstructorABIs))
	for name, raw := range ConstructorABIs {
		parsed, err := abi.JSON(strings.NewReader(raw))
		if err != nil {
			panic(fmt.Sprintf("invalid test ABI for %s: %v", name, err))
		}
		out[name] = contracts.Artifact{
			Name:              name,
			ABI:               parsed,
			RawABI:            raw,
			Bytecode:          []byte{0x00},
			SourceName:        fmt.Sprintf("src/%s.sol", name),
			CompilerVersion:   "v0.8.24+commit.e11b9ed9",
			StandardJSONInput: json.RawMessage(`{"language":"Solidity","sources":{}}`),
		}
	}
	return out
}

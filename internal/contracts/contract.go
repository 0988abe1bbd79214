// Package contracts describes the compiled artifacts of the HedgePod contract suite.
package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

type (
	Name string

	Artifact struct {
		Name              Name
		ABI               abi.ABI
		RawABI            string
		Bytecode          []byte
		SourceName        string
		CompilerVersion   string
		StandardJSONInput json.RawMessage
	}
)

const (
	NameYieldOracle       Name = "YieldOracle"
	NameAutoYieldToken    Name = "AutoYieldToken"
	NameHedgePodVault     Name = "HedgePodVault"
	NameVolatilityFeeHook Name = "VolatilityFeeHook"
)

// DeploymentOrder lists the suite in the order its members must be deployed.
var DeploymentOrder = []Name{
	NameYieldOracle,
	NameAutoYieldToken,
	NameHedgePodVault,
	NameVolatilityFeeHook,
}

var Contracts = map[Name]struct{}{
	NameYieldOracle:       {},
	NameAutoYieldToken:    {},
	NameHedgePodVault:     {},
	NameVolatilityFeeHook: {},
}

// SourceRef is the fully qualified "path:Contract" identifier explorers expect.
func (a Artifact) SourceRef() string {
	if a.SourceName == "" {
		return string(a.Name)
	}
	return a.SourceName + ":" + string(a.Name)
}

// PackConstructor ABI-encodes constructor arguments, without the creation bytecode.
func (a Artifact) PackConstructor(args ...any) ([]byte, error) {
	packed, err := a.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s constructor arguments: %w", a.Name, err)
	}
	return packed, nil
}

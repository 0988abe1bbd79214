package contracts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Constructor-only ABIs matching the deployed suite. The bytecode is a trivial STOP program.
var testABIs = map[Name]string{
	NameYieldOracle:       `[{"type":"constructor","inputs":[{"name":"pyth","type":"address"},{"name":"chainlink","type":"address"}],"stateMutability":"nonpayable"}]`,
	NameAutoYieldToken:    `[{"type":"constructor","inputs":[{"name":"lzEndpoint","type":"address"},{"name":"initialSupply","type":"uint256"}],"stateMutability":"nonpayable"}]`,
	NameHedgePodVault:     `[{"type":"constructor","inputs":[{"name":"asset","type":"address"},{"name":"token","type":"address"},{"name":"pyth","type":"address"},{"name":"ethUsd","type":"bytes32"},{"name":"usdcUsd","type":"bytes32"}],"stateMutability":"nonpayable"}]`,
	NameVolatilityFeeHook: `[{"type":"constructor","inputs":[{"name":"pyth","type":"address"},{"name":"poolManager","type":"address"},{"name":"ethUsd","type":"bytes32"}],"stateMutability":"nonpayable"}]`,
}

func writeTestArtifacts(t *testing.T, skip ...Name) string {
	t.Helper()

	skipped := make(map[Name]bool)
	for _, s := range skip {
		skipped[s] = true
	}

	out := make(map[string]any)
	for name, rawABI := range testABIs {
		if skipped[name] {
			continue
		}
		out[string(name)] = map[string]any{
			"abi":               json.RawMessage(rawABI),
			"bytecode":          "0x00",
			"sourceName":        fmt.Sprintf("src/%s.sol", name),
			"compilerVersion":   "v0.8.24+commit.e11b9ed9",
			"standardJsonInput": map[string]any{"language": "Solidity"},
		}
	}

	data, err := json.Marshal(out)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

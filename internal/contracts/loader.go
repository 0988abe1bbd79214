package contracts

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const FileName = "contracts.json"

type artifactJSON struct {
	ABI               json.RawMessage `json:"abi"`
	Bytecode          string          `json:"bytecode"`
	SourceName        string          `json:"sourceName,omitempty"`
	CompilerVersion   string          `json:"compilerVersion,omitempty"`
	StandardJSONInput json.RawMessage `json:"standardJsonInput,omitempty"`
}

// LoadArtifacts reads compiled contracts from a contracts.json file produced by the compile
// command. Every member of the suite must be present.
func LoadArtifacts(path string) (map[Name]Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compiled contracts: %w", err)
	}

	return parseArtifacts(data)
}

// parseArtifacts parses contract JSON data into an Artifact map
func parseArtifacts(data []byte) (map[Name]Artifact, error) {
	var result map[string]artifactJSON
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse compiled contracts: %w", err)
	}

	loaded := make(map[Name]Artifact)
	for name, contract := range result {
		if _, ok := Contracts[Name(name)]; !ok {
			continue
		}

		parsedABI, err := abi.JSON(strings.NewReader(string(contract.ABI)))
		if err != nil {
			return nil, fmt.Errorf("failed to parse ABI for %s: %w", name, err)
		}

		bytecode := common.FromHex(contract.Bytecode)
		if len(bytecode) == 0 {
			return nil, fmt.Errorf("bytecode for %s is empty", name)
		}

		loaded[Name(name)] = Artifact{
			Name:              Name(name),
			ABI:               parsedABI,
			RawABI:            string(contract.ABI),
			Bytecode:          bytecode,
			SourceName:        contract.SourceName,
			CompilerVersion:   contract.CompilerVersion,
			StandardJSONInput: contract.StandardJSONInput,
		}
	}

	for _, name := range DeploymentOrder {
		if _, ok := loaded[name]; !ok {
			return nil, fmt.Errorf("compiled contracts are missing %s", name)
		}
	}

	return loaded, nil
}

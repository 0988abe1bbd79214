package output

import (
	"gopkg.in/yaml.v3"
)

type (
	// Model is the contract address table consumed by the frontend.
	Model struct {
		Networks map[string]Network            `yaml:"networks"`
		ABIs     map[string]SingleQuotedString `yaml:"abis,omitempty"`
	}

	Network struct {
		Name       string            `yaml:"name"`
		ChainID    int64             `yaml:"chain-id"`
		Testnet    bool              `yaml:"testnet"`
		Explorer   string            `yaml:"explorer,omitempty"`
		Deployer   string            `yaml:"deployer"`
		DeployedAt string            `yaml:"deployed-at"`
		Contracts  map[string]string `yaml:"contracts"`
	}

	SingleQuotedString string
)

func (s SingleQuotedString) MarshalYAML() (any, error) {
	node := &yaml.Node{
		Kind:  yaml.ScalarNode,
		Style: yaml.SingleQuotedStyle,
		Value: string(s),
	}
	return node, nil
}

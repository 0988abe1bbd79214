package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var Values Config

type (
	RecordBackend string

	Config struct {
		Log       Log               `mapstructure:"log"`
		Deployer  Deployer          `mapstructure:"deployer"`
		Artifacts Artifacts         `mapstructure:"artifacts"`
		Records   Records           `mapstructure:"records"`
		Chain     Chain             `mapstructure:"chain"`
		Deploy    Deploy            `mapstructure:"deploy"`
		Verify    Verify            `mapstructure:"verify"`
		Output    Output            `mapstructure:"output"`
		PriceIDs  map[string]string `mapstructure:"price-ids"`
		Networks  []Network         `mapstructure:"networks"`
	}

	Log struct {
		Level string `mapstructure:"level"`
	}

	Deployer struct {
		PrivateKey string `mapstructure:"private-key"`
	}

	Artifacts struct {
		Path         string `mapstructure:"path"`
		ContractsDir string `mapstructure:"contracts-dir"`
	}

	Records struct {
		Backend  RecordBackend `mapstructure:"backend"`
		Dir      string        `mapstructure:"dir"`
		BoltPath string        `mapstructure:"bolt-path"`
	}

	Chain struct {
		SubmissionTimeout time.Duration `mapstructure:"submission-timeout"`
		GasLimit          uint64        `mapstructure:"gas-limit"`
	}

	Deploy struct {
		InitialSupply string        `mapstructure:"initial-supply"`
		DefaultOrder  []string      `mapstructure:"default-order"`
		Delay         time.Duration `mapstructure:"delay"`
		Parallelism   int           `mapstructure:"parallelism"`
	}

	Verify struct {
		PollInterval      time.Duration `mapstructure:"poll-interval"`
		MaxPollAttempts   int           `mapstructure:"max-poll-attempts"`
		RequestsPerSecond float64       `mapstructure:"requests-per-second"`
		RequestTimeout    time.Duration `mapstructure:"request-timeout"`
		Parallelism       int           `mapstructure:"parallelism"`
	}

	Output struct {
		AddressesFile string `mapstructure:"addresses-file"`
	}

	// Network is the raw, string-typed network entry as it appears in configuration.
	// Addresses are validated and converted when the registry is built.
	Network struct {
		ID                string            `mapstructure:"id"`
		Name              string            `mapstructure:"name"`
		ChainID           int64             `mapstructure:"chain-id"`
		RPCURL            string            `mapstructure:"rpc-url"`
		ExplorerURL       string            `mapstructure:"explorer-url"`
		ExplorerAPIURL    string            `mapstructure:"explorer-api-url"`
		ExplorerAPIKeyEnv string            `mapstructure:"explorer-api-key-env"`
		PythOracle        string            `mapstructure:"pyth-oracle"`
		ChainlinkOracle   string            `mapstructure:"chainlink-oracle"`
		LZEndpoint        string            `mapstructure:"lz-endpoint"`
		DepositToken      string            `mapstructure:"deposit-token"`
		PoolManager       string            `mapstructure:"pool-manager"`
		Testnet           bool              `mapstructure:"testnet"`
		AllowMockOracles  bool              `mapstructure:"allow-mock-oracles"`
		PriceIDs          map[string]string `mapstructure:"price-ids"`
	}
)

const (
	RecordBackendFile RecordBackend = "file"
	RecordBackendBolt RecordBackend = "bolt"
)

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Networks) == 0 {
		errs = append(errs, errors.New("networks must contain at least one entry"))
	}

	seen := make(map[string]struct{}, len(c.Networks))
	for i, n := range c.Networks {
		id := strings.TrimSpace(n.ID)
		if id == "" {
			errs = append(errs, fmt.Errorf("networks[%d].id is required", i))
			continue
		}
		if _, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("networks[%d].id '%s' is declared more than once", i, id))
		}
		seen[id] = struct{}{}
		if n.ChainID == 0 {
			errs = append(errs, fmt.Errorf("networks.%s.chain-id is required", id))
		}
	}

	switch c.Records.Backend {
	case RecordBackendFile:
		if c.Records.Dir == "" {
			errs = append(errs, errors.New("records.dir is required for the file backend"))
		}
	case RecordBackendBolt:
		if c.Records.BoltPath == "" {
			errs = append(errs, errors.New("records.bolt-path is required for the bolt backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("records.backend must be either '%s' or '%s'", RecordBackendFile, RecordBackendBolt))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// ValidateDeploy checks the settings needed to submit transactions.
func (c *Config) ValidateDeploy() error {
	var errs []error

	if c.Deployer.PrivateKey == "" {
		errs = append(errs, errors.New("deployer.private-key is required (or set DEPLOYER_PRIVATE_KEY)"))
	}
	if c.Artifacts.Path == "" {
		errs = append(errs, errors.New("artifacts.path is required"))
	}
	if c.Chain.SubmissionTimeout <= 0 {
		errs = append(errs, errors.New("chain.submission-timeout must be positive"))
	}
	if c.Deploy.InitialSupply == "" {
		errs = append(errs, errors.New("deploy.initial-supply is required"))
	}
	if c.Deploy.Delay < 0 {
		errs = append(errs, errors.New("deploy.delay must not be negative"))
	}
	if c.Deploy.Parallelism < 1 {
		errs = append(errs, errors.New("deploy.parallelism must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("deploy configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// ValidateVerify checks the settings needed to talk to block explorers.
func (c *Config) ValidateVerify() error {
	var errs []error

	if c.Artifacts.Path == "" {
		errs = append(errs, errors.New("artifacts.path is required"))
	}
	if c.Verify.PollInterval <= 0 {
		errs = append(errs, errors.New("verify.poll-interval must be positive"))
	}
	if c.Verify.MaxPollAttempts < 1 {
		errs = append(errs, errors.New("verify.max-poll-attempts must be at least 1"))
	}
	if c.Verify.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("verify.requests-per-second must be positive"))
	}
	if c.Verify.Parallelism < 1 {
		errs = append(errs, errors.New("verify.parallelism must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("verify configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

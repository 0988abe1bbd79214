// Package chain submits contract deployments through go-ethereum.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/hedgepod/deployer/internal/contracts"
	"github.com/hedgepod/deployer/internal/logger"
)

var (
	// ErrSubmission is returned when a deployment transaction is rejected, reverted or not
	// included before the submission timeout.
	ErrSubmission      = errors.New("chain submission failed")
	ErrChainIDMismatch = errors.New("chain id mismatch")
)

type (
	Options struct {
		PrivateKey        string
		SubmissionTimeout time.Duration
		// GasLimit of zero lets the node estimate gas.
		GasLimit uint64
	}

	// backend is the part of the RPC client that deployments use. *ethclient.Client
	// implements it.
	backend interface {
		bind.ContractBackend
		bind.DeployBackend
	}

	// Client deploys contracts on a single chain from a single deployer account.
	Client struct {
		eth               backend
		closeFn           func()
		privateKey        *ecdsa.PrivateKey
		from              common.Address
		chainID           *big.Int
		submissionTimeout time.Duration
		gasLimit          uint64
		logger            *slog.Logger
	}
)

// Dial connects to rpcURL and checks that it serves expectedChainID. An expectedChainID of
// zero skips the check.
func Dial(ctx context.Context, rpcURL string, expectedChainID int64, opts Options) (*Client, error) {
	privateKey, err := ParsePrivateKey(opts.PrivateKey)
	if err != nil {
		return nil, err
	}

	log := logger.Named("chain_client").With("url", rpcURL)
	log.Info("dialing the RPC")

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", rpcURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if expectedChainID != 0 && chainID.Cmp(big.NewInt(expectedChainID)) != 0 {
		eth.Close()
		return nil, fmt.Errorf("%w: %s serves %s, expected %d", ErrChainIDMismatch, rpcURL, chainID, expectedChainID)
	}
	log.With("chain_id", chainID).Info("chain ID was fetched")

	return newClient(eth, eth.Close, privateKey, chainID, opts, log), nil
}

func newClient(eth backend, closeFn func(), privateKey *ecdsa.PrivateKey, chainID *big.Int, opts Options, log *slog.Logger) *Client {
	return &Client{
		eth:               eth,
		closeFn:           closeFn,
		privateKey:        privateKey,
		from:              addressOf(privateKey),
		chainID:           chainID,
		submissionTimeout: opts.SubmissionTimeout,
		gasLimit:          opts.GasLimit,
		logger:            log,
	}
}

// From is the deployer account.
func (c *Client) From() common.Address {
	return c.from
}

// Deploy sends the creation transaction of artifact. It does not wait for inclusion.
func (c *Client) Deploy(ctx context.Context, artifact contracts.Artifact, args ...any) (common.Address, *types.Transaction, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.chainID)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: failed to get gas price: %w", ErrSubmission, err)
	}

	auth.Context = ctx
	auth.GasLimit = c.gasLimit
	auth.GasPrice = gasPrice

	address, tx, _, err := bind.DeployContract(auth, artifact.ABI, artifact.Bytecode, c.eth, args...)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: failed to deploy %s: %w", ErrSubmission, artifact.Name, err)
	}

	c.logger.
		With("contract", artifact.Name).
		With("address", address.Hex()).
		With("tx_hash", tx.Hash().Hex()).
		Info("contract deployment transaction sent")

	return address, tx, nil
}

// WaitForInclusion blocks until tx is mined and fails unless it succeeded.
func (c *Client) WaitForInclusion(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to wait for transaction %s: %w", ErrSubmission, tx.Hash().Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: transaction %s failed with status %d", ErrSubmission, tx.Hash().Hex(), receipt.Status)
	}

	return receipt, nil
}

func (c *Client) Close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.submissionTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.submissionTimeout)
}

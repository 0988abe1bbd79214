package network

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Price feed symbols consumed by the deployment pipeline.
const (
	SymbolETHUSD  = "ETH_USD"
	SymbolUSDCUSD = "USDC_USD"
)

var ErrUnknownPriceFeed = errors.New("unknown price feed")

// PriceIDs maps a symbol pair to an oracle feed identifier.
type PriceIDs map[string]common.Hash

// ParsePriceIDs validates a raw symbol -> hex table. Symbols are upper-cased because
// configuration loaders lowercase map keys.
func ParsePriceIDs(raw map[string]string) (PriceIDs, error) {
	out := make(PriceIDs, len(raw))
	var errs []error

	for symbol, value := range raw {
		key := strings.ToUpper(strings.TrimSpace(symbol))
		hexValue := strings.TrimPrefix(strings.TrimSpace(value), "0x")
		if len(hexValue) != 2*common.HashLength {
			errs = append(errs, fmt.Errorf("price id for %s must be 32 bytes of hex, got '%s'", key, value))
			continue
		}
		if _, err := hex.DecodeString(hexValue); err != nil {
			errs = append(errs, fmt.Errorf("price id for %s: %w", key, err))
			continue
		}
		out[key] = common.HexToHash(hexValue)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return out, nil
}

// Resolve returns the feed identifier for symbol on network cfg, preferring the network's
// own override over the shared table.
func (p PriceIDs) Resolve(cfg Config, symbol string) (common.Hash, error) {
	symbol = strings.ToUpper(symbol)
	if id, ok := cfg.PriceIDs[symbol]; ok {
		return id, nil
	}
	if id, ok := p[symbol]; ok {
		return id, nil
	}
	return common.Hash{}, fmt.Errorf("%w %s on network '%s'", ErrUnknownPriceFeed, symbol, cfg.ID)
}

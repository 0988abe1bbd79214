package network

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ethUSD  = "0xff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace"
	usdcUSD = "0xeaa020c61cc479712813461ce153894a96a6c00b21ed0cfc2798d1f9a9e9c94a"
)

func TestParsePriceIDsNormalizesSymbols(t *testing.T) {
	ids, err := ParsePriceIDs(map[string]string{"eth_usd": ethUSD, "USDC_USD": usdcUSD})
	require.NoError(t, err)

	assert.Equal(t, common.HexToHash(ethUSD), ids[SymbolETHUSD])
	assert.Equal(t, common.HexToHash(usdcUSD), ids[SymbolUSDCUSD])
}

func TestParsePriceIDsRejectsInvalid(t *testing.T) {
	_, err := ParsePriceIDs(map[string]string{"ETH_USD": "0x1234"})
	assert.Error(t, err)

	_, err = ParsePriceIDs(map[string]string{"ETH_USD": "0xzz61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace"})
	assert.Error(t, err)
}

func TestPriceIDsResolvePrefersNetworkOverride(t *testing.T) {
	global, err := ParsePriceIDs(map[string]string{"ETH_USD": ethUSD, "USDC_USD": usdcUSD})
	require.NoError(t, err)

	override := common.HexToHash("0x01")
	cfg := Config{ID: "polygon", PriceIDs: map[string]common.Hash{SymbolETHUSD: override}}

	got, err := global.Resolve(cfg, "eth_usd")
	require.NoError(t, err)
	assert.Equal(t, override, got)

	got, err = global.Resolve(cfg, SymbolUSDCUSD)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(usdcUSD), got)

	_, err = global.Resolve(cfg, "BTC_USD")
	assert.True(t, errors.Is(err, ErrUnknownPriceFeed))
}

package network

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantSet bool
		wantErr bool
	}{
		{name: "empty", in: ""},
		{name: "zero sentinel", in: zeroAddress},
		{name: "valid", in: "0x036CbD53842c5426634e7929541eC2318f3dCF7e", wantSet: true},
		{name: "valid without prefix", in: "036CbD53842c5426634e7929541eC2318f3dCF7e", wantSet: true},
		{name: "too short", in: "0x1234", wantErr: true},
		{name: "garbage", in: "hello", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSet, got.IsSet())
		})
	}
}

func TestSomeTreatsZeroAsUnset(t *testing.T) {
	assert.False(t, Some(common.Address{}).IsSet())
	assert.Equal(t, "unset", Some(common.Address{}).String())

	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	assert.True(t, Some(addr).IsSet())
	assert.Equal(t, addr, Some(addr).OrZero())
	assert.Equal(t, common.Address{}, Address{}.OrZero())
}

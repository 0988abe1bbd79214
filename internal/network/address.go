package network

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Address is an optional account address. The zero value means "not configured".
type Address struct {
	value common.Address
	set   bool
}

// ParseAddress converts a configuration value into an Address. Empty strings and the
// all-zero sentinel decode to an unset Address; anything else must be a hex address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return Address{}, fmt.Errorf("invalid address '%s'", s)
	}

	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return Address{}, nil
	}

	return Address{value: addr, set: true}, nil
}

// Some wraps a concrete address. The zero address is still treated as unset.
func Some(addr common.Address) Address {
	if addr == (common.Address{}) {
		return Address{}
	}
	return Address{value: addr, set: true}
}

func (a Address) IsSet() bool {
	return a.set
}

func (a Address) Get() (common.Address, bool) {
	return a.value, a.set
}

// OrZero returns the address, or the zero sentinel when unset. Only record writers and
// mock deployments should need it.
func (a Address) OrZero() common.Address {
	return a.value
}

func (a Address) String() string {
	if !a.set {
		return "unset"
	}
	return a.value.Hex()
}

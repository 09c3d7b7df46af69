// Package tpkg provides test fixtures shared by the ledger and vault tests.
package tpkg

import (
	"math/rand"
	"strings"

	"github.com/holiman/uint256"

	"github.com/trillestprotocol/trillest-core/pkg/fixedpoint"
	"github.com/trillestprotocol/trillest-core/pkg/model"
)

// RandAddress returns a random non-zero address.
func RandAddress() model.Address {
	var addr model.Address
	for i := range addr {
		addr[i] = byte(rand.Intn(256))
	}
	addr[0] |= 1

	return addr
}

// Units parses a decimal amount string into an integer at the given decimal
// resolution, e.g. Units("99.5", 18) -> 99.5e18.
func Units(amount string, decimals uint32) *uint256.Int {
	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		panic("tpkg: too many fractional digits: " + amount)
	}

	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", int(decimals)-len(frac)), "0")
	if digits == "" {
		return uint256.NewInt(0)
	}

	return uint256.MustFromDecimal(digits)
}

// Tokens returns n whole tokens at the standard 18-decimal resolution.
func Tokens(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), fixedpoint.One)
}

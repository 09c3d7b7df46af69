package model

import (
	"encoding/hex"
	"strings"

	"github.com/iotaledger/hive.go/ierrors"
)

// AddressLength is the length of an account address in bytes.
const AddressLength = 20

// Address identifies an account on the host ledger.
type Address [AddressLength]byte

// ZeroAddress is the all-zero address. It is not a valid recipient.
var ZeroAddress = Address{}

// AddressFromBytes parses an Address from its binary representation.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, ierrors.Errorf("invalid address length: expected %d bytes, got %d", AddressLength, len(b))
	}

	var addr Address
	copy(addr[:], b)

	return addr, nil
}

// AddressFromHex parses an Address from a hex string with an optional 0x prefix.
func AddressFromHex(s string) (Address, error) {
	s = strings.TrimPrefix(s, "0x")

	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, ierrors.Wrap(err, "invalid address hex")
	}

	return AddressFromBytes(b)
}

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Bytes returns the binary representation of the address.
func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

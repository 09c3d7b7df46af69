// Package fixedpoint implements truncating fixed-point arithmetic on 256-bit
// integers at the two resolutions used by the protocol: the standard 1e18
// token scale and the 1e27 "highres" credit scale.
//
// Division always truncates. This bias is load-bearing for the supply
// invariants: balances may only round down, never invent value.
package fixedpoint

import (
	"github.com/holiman/uint256"
	"github.com/iotaledger/hive.go/ierrors"
)

var (
	// One is the standard 1e18 fixed-point unit.
	One = uint256.NewInt(1e18)

	// OneHighres is the 1e27 fixed-point unit used for credit exchange rates.
	OneHighres = uint256.MustFromDecimal("1000000000000000000000000000")

	// ResolutionIncrease is the factor between the highres and standard scales.
	ResolutionIncrease = uint256.NewInt(1e9)
)

var (
	// ErrOverflow is returned when an operation does not fit into 256 bits.
	ErrOverflow = ierrors.New("fixed-point operation overflows 256 bits")

	// ErrDivisionByZero is returned on division with a zero denominator.
	ErrDivisionByZero = ierrors.New("fixed-point division by zero")
)

// MulTruncate returns x*y/1e18, truncating the remainder.
func MulTruncate(x, y *uint256.Int) (*uint256.Int, error) {
	return MulTruncateScale(x, y, One)
}

// MulTruncateScale returns x*y/scale, truncating the remainder. The product
// is computed at full 512-bit width, so only the final quotient can overflow.
func MulTruncateScale(x, y, scale *uint256.Int) (*uint256.Int, error) {
	if scale.IsZero() {
		return nil, ErrDivisionByZero
	}

	z, overflow := new(uint256.Int).MulDivOverflow(x, y, scale)
	if overflow {
		return nil, ierrors.Wrapf(ErrOverflow, "%s * %s / %s", x, y, scale)
	}

	return z, nil
}

// MulTruncateCeil returns x*y/1e18, rounding the quotient up.
func MulTruncateCeil(x, y *uint256.Int) (*uint256.Int, error) {
	z, err := MulTruncate(x, y)
	if err != nil {
		return nil, err
	}

	if rem := new(uint256.Int).MulMod(x, y, One); !rem.IsZero() {
		var carry bool
		if z, carry = z.AddOverflow(z, uint256.NewInt(1)); carry {
			return nil, ierrors.Wrapf(ErrOverflow, "ceil of %s * %s", x, y)
		}
	}

	return z, nil
}

// DivPrecisely returns x*1e18/y, truncating the remainder.
func DivPrecisely(x, y *uint256.Int) (*uint256.Int, error) {
	if y.IsZero() {
		return nil, ErrDivisionByZero
	}

	z, overflow := new(uint256.Int).MulDivOverflow(x, One, y)
	if overflow {
		return nil, ierrors.Wrapf(ErrOverflow, "%s * 1e18 / %s", x, y)
	}

	return z, nil
}

// ScaleBy converts x between decimal resolutions, truncating when scaling
// down. Scaling up fails with ErrOverflow if the result exceeds 256 bits.
func ScaleBy(x *uint256.Int, to, from uint32) (*uint256.Int, error) {
	switch {
	case to == from:
		return new(uint256.Int).Set(x), nil
	case to > from:
		z, overflow := new(uint256.Int).MulOverflow(x, pow10(to-from))
		if overflow {
			return nil, ierrors.Wrapf(ErrOverflow, "scaling %s from %d to %d decimals", x, from, to)
		}

		return z, nil
	default:
		return new(uint256.Int).Div(x, pow10(from-to)), nil
	}
}

func pow10(n uint32) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(n)))
}

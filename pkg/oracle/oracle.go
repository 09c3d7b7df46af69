// Package oracle defines the price-feed capability the vault consults for
// collateral valuation, and a static implementation used in tests and as a
// stand-in where no live feed is wired.
package oracle

import (
	"github.com/holiman/uint256"
	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/syncutils"
)

// ErrPriceUnavailable is returned when no price is known for a symbol.
// Callers must treat it as a hard abort of the surrounding operation.
var ErrPriceUnavailable = ierrors.New("oracle price unavailable")

// PriceOracle resolves an asset symbol to its USD price as a 1e18 fixed-point
// value.
type PriceOracle interface {
	Price(symbol string) (*uint256.Int, error)
}

// StaticOracle is a PriceOracle backed by an in-memory price table.
type StaticOracle struct {
	prices *shrinkingmap.ShrinkingMap[string, *uint256.Int]

	mutex syncutils.RWMutex
}

var _ PriceOracle = &StaticOracle{}

// NewStaticOracle creates an oracle with no known prices.
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{
		prices: shrinkingmap.New[string, *uint256.Int](),
	}
}

// SetPrice sets the USD price for a symbol. A nil price removes the entry.
func (o *StaticOracle) SetPrice(symbol string, price *uint256.Int) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if price == nil {
		o.prices.Delete(symbol)
		return
	}

	o.prices.Set(symbol, new(uint256.Int).Set(price))
}

// Price returns the USD price for a symbol.
func (o *StaticOracle) Price(symbol string) (*uint256.Int, error) {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	price, exists := o.prices.Get(symbol)
	if !exists {
		return nil, ierrors.Wrapf(ErrPriceUnavailable, "no feed for %q", symbol)
	}

	return new(uint256.Int).Set(price), nil
}

// Package strategy defines the read-only capability through which the vault
// values assets held by external yield strategies. Deposit and withdrawal
// orchestration into strategies lives outside this core.
package strategy

import (
	"github.com/holiman/uint256"
	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/runtime/syncutils"

	"github.com/trillestprotocol/trillest-core/pkg/model"
)

// YieldStrategy reports the amount of an asset a strategy holds on the
// vault's behalf, in the asset's native decimals.
type YieldStrategy interface {
	BalanceOfAsset(asset model.Address) (*uint256.Int, error)
}

// MockStrategy is an in-memory YieldStrategy for tests.
type MockStrategy struct {
	balances *shrinkingmap.ShrinkingMap[model.Address, *uint256.Int]

	mutex syncutils.RWMutex
}

var _ YieldStrategy = &MockStrategy{}

// NewMockStrategy creates an empty mock strategy.
func NewMockStrategy() *MockStrategy {
	return &MockStrategy{
		balances: shrinkingmap.New[model.Address, *uint256.Int](),
	}
}

// SetBalance sets the amount of asset the strategy reports.
func (s *MockStrategy) SetBalance(asset model.Address, amount *uint256.Int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.balances.Set(asset, new(uint256.Int).Set(amount))
}

// BalanceOfAsset returns the recorded balance, zero for unknown assets.
func (s *MockStrategy) BalanceOfAsset(asset model.Address) (*uint256.Int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	balance, exists := s.balances.Get(asset)
	if !exists {
		return uint256.NewInt(0), nil
	}

	return new(uint256.Int).Set(balance), nil
}

// Package registry tracks the set of collateral assets the vault accepts,
// with the per-asset decimals and oracle symbol the accounting needs.
package registry

import (
	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/syncutils"

	"github.com/trillestprotocol/trillest-core/pkg/access"
	"github.com/trillestprotocol/trillest-core/pkg/model"
)

var (
	// ErrAssetNotSupported is returned when an operation references an unknown asset.
	ErrAssetNotSupported = ierrors.New("asset is not supported")

	// ErrAssetAlreadySupported is returned when an asset is registered twice.
	ErrAssetAlreadySupported = ierrors.New("asset already supported")

	// ErrInvalidAsset is returned for assets with a zero address or empty symbol.
	ErrInvalidAsset = ierrors.New("invalid asset definition")
)

// Asset describes one supported collateral asset.
type Asset struct {
	// Address identifies the asset on the host ledger.
	Address model.Address

	// Symbol is the identifier used to query the price oracle.
	Symbol string

	// Decimals is the asset's native decimal resolution.
	Decimals uint32
}

// Registry is the ordered set of supported assets. Redemption baskets are
// computed in registration order.
type Registry struct {
	roles *access.Control

	assets *shrinkingmap.ShrinkingMap[model.Address, *Asset]
	order  []model.Address

	mutex syncutils.RWMutex
}

// New creates an empty asset registry governed by the given roles.
func New(roles *access.Control) *Registry {
	return &Registry{
		roles:  roles,
		assets: shrinkingmap.New[model.Address, *Asset](),
	}
}

// SupportAsset registers a new collateral asset. Governor only.
func (r *Registry) SupportAsset(caller model.Address, asset *Asset) error {
	if !r.roles.IsGovernor(caller) {
		return access.ErrNotGovernor
	}
	if asset == nil || asset.Address.IsZero() || asset.Symbol == "" {
		return ErrInvalidAsset
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.assets.Has(asset.Address) {
		return ierrors.Wrapf(ErrAssetAlreadySupported, "%s", asset.Symbol)
	}

	stored := *asset
	r.assets.Set(asset.Address, &stored)
	r.order = append(r.order, asset.Address)

	return nil
}

// Lookup returns the asset registered under addr.
func (r *Registry) Lookup(addr model.Address) (*Asset, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.assets.Get(addr)
}

// IsSupported reports whether addr is a registered asset.
func (r *Registry) IsSupported(addr model.Address) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.assets.Has(addr)
}

// All returns the supported assets in registration order.
func (r *Registry) All() []*Asset {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	all := make([]*Asset, 0, len(r.order))
	for _, addr := range r.order {
		asset, _ := r.assets.Get(addr)
		all = append(all, asset)
	}

	return all
}

// Count returns the number of supported assets.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.assets.Size()
}

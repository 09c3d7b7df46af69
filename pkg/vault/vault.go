// Package vault implements the collateral vault that backs the token: users
// deposit supported assets to mint, redeem tokens for a proportional basket,
// and the vault periodically resynchronizes the token supply with the value
// of its holdings.
package vault

import (
	"github.com/holiman/uint256"
	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/runtime/syncutils"

	"github.com/trillestprotocol/trillest-core/pkg/access"
	"github.com/trillestprotocol/trillest-core/pkg/fixedpoint"
	"github.com/trillestprotocol/trillest-core/pkg/ledger"
	"github.com/trillestprotocol/trillest-core/pkg/model"
	"github.com/trillestprotocol/trillest-core/pkg/oracle"
	"github.com/trillestprotocol/trillest-core/pkg/registry"
	"github.com/trillestprotocol/trillest-core/pkg/strategy"
)

const (
	basisPointsScale = 10000

	// MaxRedeemFeeBps caps the redemption fee at 10%.
	MaxRedeemFeeBps = 1000

	// MaxTrusteeFeeBps caps the trustee's share of the yield at 50%.
	MaxTrusteeFeeBps = 5000
)

// Vault custodies collateral assets and drives the token ledger. All value
// computations happen at the 1e18 unit scale, asset custody is tracked in
// each asset's native decimals.
type Vault struct {
	events  *Events
	metrics *Metrics

	address model.Address
	token   *ledger.Ledger
	assets  *registry.Registry
	roles   *access.Control
	prices  oracle.PriceOracle

	custody    *shrinkingmap.ShrinkingMap[model.Address, *uint256.Int]
	strategies []strategy.YieldStrategy

	redeemFeeBps    uint64
	trusteeFeeBps   uint64
	trustee         model.Address
	rebaseThreshold *uint256.Int
	rebasePaused    bool

	mutex syncutils.RWMutex

	log.Logger
}

// WithRebaseThreshold sets the minimum unit value a mint or redeem must move
// before it triggers an automatic rebase. The default of zero rebases on
// every mint and redeem.
func WithRebaseThreshold(threshold *uint256.Int) options.Option[Vault] {
	return func(v *Vault) {
		v.rebaseThreshold = new(uint256.Int).Set(threshold)
	}
}

// WithRedeemFeeBps presets the redemption fee in basis points.
func WithRedeemFeeBps(bps uint64) options.Option[Vault] {
	return func(v *Vault) {
		v.redeemFeeBps = bps
	}
}

// WithTrustee presets the trustee account and its share of the yield.
func WithTrustee(trustee model.Address, feeBps uint64) options.Option[Vault] {
	return func(v *Vault) {
		v.trustee = trustee
		v.trusteeFeeBps = feeBps
	}
}

// WithRebasePaused presets the rebase pause flag, e.g. when restoring a
// vault that was paused at shutdown.
func WithRebasePaused(paused bool) options.Option[Vault] {
	return func(v *Vault) {
		v.rebasePaused = paused
	}
}

// WithMetrics attaches prometheus metrics to the vault.
func WithMetrics(metrics *Metrics) options.Option[Vault] {
	return func(v *Vault) {
		v.metrics = metrics
	}
}

// New creates a vault operating the given token ledger. The vault's address
// must be registered as the ledger's vault identity for mints and burns to
// pass the ledger's role check.
func New(logger log.Logger, address model.Address, token *ledger.Ledger, assets *registry.Registry, roles *access.Control, prices oracle.PriceOracle, opts ...options.Option[Vault]) *Vault {
	return options.Apply(&Vault{
		events:          NewEvents(),
		address:         address,
		token:           token,
		assets:          assets,
		roles:           roles,
		prices:          prices,
		custody:         shrinkingmap.New[model.Address, *uint256.Int](),
		rebaseThreshold: uint256.NewInt(0),
		Logger:          logger.NewChildLogger("vault"),
	}, opts)
}

// Events returns the vault's event group.
func (v *Vault) Events() *Events {
	return v.events
}

// Address returns the vault's identity on the token ledger.
func (v *Vault) Address() model.Address {
	return v.address
}

// Mint deposits amount of asset and mints the corresponding token amount to
// caller. Deposits priced above one unit are credited at par, deposits
// priced below are credited at the oracle price. The mint fails with
// ErrSlippageExceeded if the minted amount falls below minimumMint.
func (v *Vault) Mint(caller model.Address, asset model.Address, amount *uint256.Int, minimumMint *uint256.Int) error {
	supported, exists := v.assets.Lookup(asset)
	if !exists {
		return ierrors.Wrapf(registry.ErrAssetNotSupported, "%s", asset)
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	amount = new(uint256.Int).Set(amount)

	v.mutex.Lock()
	defer v.mutex.Unlock()

	price, err := v.prices.Price(supported.Symbol)
	if err != nil {
		return ierrors.Wrapf(err, "cannot price %s deposit", supported.Symbol)
	}
	if price.Gt(fixedpoint.One) {
		price = fixedpoint.One
	}

	unitAdjusted, err := fixedpoint.ScaleBy(amount, ledger.Decimals, supported.Decimals)
	if err != nil {
		return ierrors.Wrap(ErrInvalidAmount, "deposit out of range")
	}

	toMint, err := fixedpoint.MulTruncate(unitAdjusted, price)
	if err != nil {
		return ierrors.Wrap(ErrInvalidAmount, "deposit out of range")
	}

	if minimumMint != nil && toMint.Lt(minimumMint) {
		return ErrSlippageExceeded
	}

	// The deposit joins the rebase it triggers, new value is distributed
	// before the depositor's own credits exist.
	if !v.rebasePaused && unitAdjusted.Cmp(v.rebaseThreshold) >= 0 {
		if err := v.rebase(); err != nil {
			return ierrors.Wrap(err, "pre-mint rebase failed")
		}
	}

	if err := v.token.Mint(v.address, caller, toMint); err != nil {
		return ierrors.Wrap(err, "mint failed")
	}
	v.creditCustody(asset, amount)

	v.LogDebugf("minted %s to %s for %s %s", toMint, caller, amount, supported.Symbol)
	v.events.Minted.Trigger(&MintedEvent{Account: caller, Asset: asset, AssetAmount: amount, Minted: toMint})
	v.metrics.mintRecorded()

	return nil
}

// CreditAsset records amount of asset arriving in the vault outside of a
// mint, e.g. harvested yield or a direct transfer. The surplus is picked up
// by the next rebase.
func (v *Vault) CreditAsset(asset model.Address, amount *uint256.Int) error {
	if !v.assets.IsSupported(asset) {
		return ierrors.Wrapf(registry.ErrAssetNotSupported, "%s", asset)
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.creditCustody(asset, amount)

	return nil
}

// AssetBalance returns the amount of asset held directly by the vault, in
// the asset's native decimals.
func (v *Vault) AssetBalance(asset model.Address) *uint256.Int {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	return v.custodyOf(asset)
}

// CheckBalance returns the total amount of asset backing the token, vault
// custody plus strategy holdings, in the asset's native decimals.
func (v *Vault) CheckBalance(asset model.Address) (*uint256.Int, error) {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	return v.totalAssetBalance(asset)
}

// TotalValue returns the unit value of all assets backing the token at the
// 1e18 scale. Collateral is valued at par, one asset unit backs one token
// unit regardless of the oracle price.
func (v *Vault) TotalValue() (*uint256.Int, error) {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	return v.totalValue()
}

func (v *Vault) totalValue() (*uint256.Int, error) {
	total := uint256.NewInt(0)
	for _, asset := range v.assets.All() {
		balance, err := v.totalAssetBalance(asset.Address)
		if err != nil {
			return nil, err
		}

		units, err := fixedpoint.ScaleBy(balance, ledger.Decimals, asset.Decimals)
		if err != nil {
			return nil, ierrors.Wrapf(err, "cannot value %s holdings", asset.Symbol)
		}

		var overflow bool
		if total, overflow = total.AddOverflow(total, units); overflow {
			return nil, ierrors.Wrap(fixedpoint.ErrOverflow, "total value")
		}
	}

	return total, nil
}

func (v *Vault) totalAssetBalance(asset model.Address) (*uint256.Int, error) {
	total := v.custodyOf(asset)
	for _, strat := range v.strategies {
		held, err := strat.BalanceOfAsset(asset)
		if err != nil {
			return nil, ierrors.Wrap(err, "strategy balance unavailable")
		}
		total.Add(total, held)
	}

	return total, nil
}

func (v *Vault) custodyOf(asset model.Address) *uint256.Int {
	balance, exists := v.custody.Get(asset)
	if !exists {
		return uint256.NewInt(0)
	}

	return new(uint256.Int).Set(balance)
}

func (v *Vault) creditCustody(asset model.Address, amount *uint256.Int) {
	v.custody.Set(asset, new(uint256.Int).Add(v.custodyOf(asset), amount))
}

func (v *Vault) debitCustody(asset model.Address, amount *uint256.Int) error {
	balance, underflow := new(uint256.Int).SubOverflow(v.custodyOf(asset), amount)
	if underflow {
		return ierrors.Wrapf(ErrInsufficientAssets, "%s", asset)
	}

	v.custody.Set(asset, balance)

	return nil
}

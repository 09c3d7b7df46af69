package vault_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/trillestprotocol/trillest-core/pkg/access"
	"github.com/trillestprotocol/trillest-core/pkg/fixedpoint"
	"github.com/trillestprotocol/trillest-core/pkg/ledger"
	"github.com/trillestprotocol/trillest-core/pkg/model"
	"github.com/trillestprotocol/trillest-core/pkg/oracle"
	"github.com/trillestprotocol/trillest-core/pkg/registry"
	"github.com/trillestprotocol/trillest-core/pkg/tpkg"
	"github.com/trillestprotocol/trillest-core/pkg/vault"
)

type testVault struct {
	*vault.Vault

	token      *ledger.Ledger
	prices     *oracle.StaticOracle
	governor   model.Address
	strategist model.Address
	usdc       model.Address
	dai        model.Address
}

func newTestVault(t *testing.T, opts ...options.Option[vault.Vault]) *testVault {
	t.Helper()

	tv := &testVault{
		prices:     oracle.NewStaticOracle(),
		governor:   tpkg.RandAddress(),
		strategist: tpkg.RandAddress(),
		usdc:       tpkg.RandAddress(),
		dai:        tpkg.RandAddress(),
	}

	vaultAddress := tpkg.RandAddress()
	roles := access.New(tv.governor, access.WithVault(vaultAddress), access.WithStrategist(tv.strategist))

	logger := log.NewLogger().NewChildLogger(t.Name())
	tv.token = ledger.New(logger, roles)

	assets := registry.New(roles)
	require.NoError(t, assets.SupportAsset(tv.governor, &registry.Asset{Address: tv.usdc, Symbol: "USDC", Decimals: 6}))
	require.NoError(t, assets.SupportAsset(tv.governor, &registry.Asset{Address: tv.dai, Symbol: "DAI", Decimals: 18}))

	tv.prices.SetPrice("USDC", fixedpoint.One)
	tv.prices.SetPrice("DAI", fixedpoint.One)

	tv.Vault = vault.New(logger, vaultAddress, tv.token, assets, roles, tv.prices, opts...)

	return tv
}

// usdcUnits returns n whole USDC at its native 6 decimal resolution.
func usdcUnits(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e6))
}

func TestVault_MintAtPar(t *testing.T) {
	tv := newTestVault(t)
	alice := tpkg.RandAddress()

	require.NoError(t, tv.Mint(alice, tv.usdc, usdcUnits(50), nil))

	require.Equal(t, tpkg.Tokens(50), tv.token.BalanceOf(alice))
	require.Equal(t, usdcUnits(50), tv.AssetBalance(tv.usdc))

	value, err := tv.TotalValue()
	require.NoError(t, err)
	require.Equal(t, tpkg.Tokens(50), value)
}

func TestVault_MintCapsPriceAtPar(t *testing.T) {
	tv := newTestVault(t)
	alice := tpkg.RandAddress()

	// A deposit above peg is still credited one to one.
	tv.prices.SetPrice("USDC", tpkg.Units("1.20", 18))
	require.NoError(t, tv.Mint(alice, tv.usdc, usdcUnits(50), nil))
	require.Equal(t, tpkg.Tokens(50), tv.token.BalanceOf(alice))
}

func TestVault_MintBelowPeg(t *testing.T) {
	tv := newTestVault(t)
	alice := tpkg.RandAddress()

	tv.prices.SetPrice("USDC", tpkg.Units("0.98", 18))
	require.NoError(t, tv.Mint(alice, tv.usdc, usdcUnits(50), nil))
	require.Equal(t, tpkg.Units("49", 18), tv.token.BalanceOf(alice))
}

func TestVault_MintValidation(t *testing.T) {
	tv := newTestVault(t)
	alice := tpkg.RandAddress()

	require.ErrorIs(t, tv.Mint(alice, tpkg.RandAddress(), usdcUnits(1), nil), registry.ErrAssetNotSupported)
	require.ErrorIs(t, tv.Mint(alice, tv.usdc, uint256.NewInt(0), nil), vault.ErrInvalidAmount)
	require.ErrorIs(t, tv.Mint(alice, tv.usdc, nil, nil), vault.ErrInvalidAmount)
}

func TestVault_MintSlippage(t *testing.T) {
	tv := newTestVault(t)
	alice := tpkg.RandAddress()

	tv.prices.SetPrice("USDC", tpkg.Units("0.98", 18))
	require.ErrorIs(t, tv.Mint(alice, tv.usdc, usdcUnits(50), tpkg.Tokens(50)), vault.ErrSlippageExceeded)

	// At the exact minimum the mint goes through.
	require.NoError(t, tv.Mint(alice, tv.usdc, usdcUnits(50), tpkg.Units("49", 18)))
}

func TestVault_MintWithoutPriceFeed(t *testing.T) {
	tv := newTestVault(t)
	alice := tpkg.RandAddress()

	tv.prices.SetPrice("USDC", nil)
	require.ErrorIs(t, tv.Mint(alice, tv.usdc, usdcUnits(1), nil), oracle.ErrPriceUnavailable)
}

func TestVault_MintRebasesBeforeCreditingDeposit(t *testing.T) {
	tv := newTestVault(t)
	alice := tpkg.RandAddress()
	bob := tpkg.RandAddress()

	require.NoError(t, tv.Mint(alice, tv.dai, tpkg.Tokens(100), nil))
	require.NoError(t, tv.CreditAsset(tv.dai, tpkg.Tokens(10)))

	// The yield sitting in the vault belongs to alice, bob's deposit only
	// joins afterwards.
	require.NoError(t, tv.Mint(bob, tv.dai, tpkg.Tokens(100), nil))

	require.Equal(t, tpkg.Tokens(110), tv.token.BalanceOf(alice))
	require.Equal(t, tpkg.Tokens(100), tv.token.BalanceOf(bob))
	require.Equal(t, tpkg.Tokens(210), tv.token.TotalSupply())
}

func TestVault_RebaseDistributesYield(t *testing.T) {
	tv := newTestVault(t)
	alice := tpkg.RandAddress()

	require.NoError(t, tv.Mint(alice, tv.dai, tpkg.Tokens(100), nil))
	require.NoError(t, tv.CreditAsset(tv.dai, tpkg.Tokens(25)))

	require.NoError(t, tv.Rebase())
	require.Equal(t, tpkg.Tokens(125), tv.token.BalanceOf(alice))
	require.Equal(t, tpkg.Tokens(125), tv.token.TotalSupply())
}

func TestVault_RebaseIsIdempotent(t *testing.T) {
	tv := newTestVault(t)
	alice := tpkg.RandAddress()

	require.NoError(t, tv.Mint(alice, tv.dai, tpkg.Tokens(100), nil))
	require.NoError(t, tv.CreditAsset(tv.dai, tpkg.Tokens(10)))

	require.NoError(t, tv.Rebase())
	supply := tv.token.TotalSupply()

	require.NoError(t, tv.Rebase())
	require.Equal(t, supply, tv.token.TotalSupply())
}

func TestVault_RebaseIgnoresOraclePrices(t *testing.T) {
	tv := newTestVault(t)
	alice := tpkg.RandAddress()

	require.NoError(t, tv.Mint(alice, tv.dai, tpkg.Tokens(100), nil))

	// Collateral is valued at par, a price move alone never changes supply.
	tv.prices.SetPrice("DAI", tpkg.Units("1.25", 18))
	require.NoError(t, tv.Rebase())
	require.Equal(t, tpkg.Tokens(100), tv.token.TotalSupply())

	tv.prices.SetPrice("DAI", tpkg.Units("0.75", 18))
	require.NoError(t, tv.Rebase())
	require.Equal(t, tpkg.Tokens(100), tv.token.TotalSupply())
}

func TestVault_RebaseOnEmptyVault(t *testing.T) {
	tv := newTestVault(t)

	require.NoError(t, tv.Rebase())
	require.True(t, tv.token.TotalSupply().IsZero())
}

func TestVault_TrusteeFee(t *testing.T) {
	tv := newTestVault(t)
	alice := tpkg.RandAddress()
	trustee := tpkg.RandAddress()

	require.NoError(t, tv.SetTrusteeAddress(tv.governor, trustee))
	require.NoError(t, tv.SetTrusteeFeeBps(tv.governor, 1000))

	require.NoError(t, tv.Mint(alice, tv.dai, tpkg.Tokens(100), nil))
	require.NoError(t, tv.CreditAsset(tv.dai, tpkg.Tokens(10)))

	var rebased []*vault.RebasedEvent
	tv.Events().Rebased.Hook(func(ev *vault.RebasedEvent) { rebased = append(rebased, ev) })

	require.NoError(t, tv.Rebase())

	// 10% of the 10 token yield goes to the trustee, the rest is
	// distributed through the supply change.
	require.Len(t, rebased, 1)
	require.Equal(t, tpkg.Tokens(1), rebased[0].TrusteeFee)
	require.Equal(t, tpkg.Tokens(110), rebased[0].TotalSupply)

	// The trustee's fee itself rebases, so their final balance is at least
	// the fee.
	require.True(t, tv.token.BalanceOf(trustee).Cmp(tpkg.Tokens(1)) >= 0)

	sum := new(uint256.Int).Add(tv.token.BalanceOf(alice), tv.token.BalanceOf(trustee))
	require.True(t, sum.Cmp(tv.token.TotalSupply()) <= 0)
	drift := new(uint256.Int).Sub(tv.token.TotalSupply(), sum)
	require.True(t, drift.LtUint64(10), "drift %s too large", drift)
}

func TestVault_NoTrusteeFeeWithoutYield(t *testing.T) {
	tv := newTestVault(t)
	alice := tpkg.RandAddress()
	trustee := tpkg.RandAddress()

	require.NoError(t, tv.SetTrusteeAddress(tv.governor, trustee))
	require.NoError(t, tv.SetTrusteeFeeBps(tv.governor, 1000))
	require.NoError(t, tv.Mint(alice, tv.dai, tpkg.Tokens(100), nil))

	require.NoError(t, tv.Rebase())
	require.True(t, tv.token.BalanceOf(trustee).IsZero())
}

func TestVault_RebaseThreshold(t *testing.T) {
	tv := newTestVault(t, vault.WithRebaseThreshold(tpkg.Tokens(10)))
	alice := tpkg.RandAddress()
	bob := tpkg.RandAddress()

	require.NoError(t, tv.Mint(alice, tv.dai, tpkg.Tokens(100), nil))
	require.NoError(t, tv.CreditAsset(tv.dai, tpkg.Tokens(50)))

	// A deposit below the threshold does not trigger the rebase, the yield
	// stays undistributed.
	require.NoError(t, tv.Mint(bob, tv.dai, tpkg.Tokens(5), nil))
	require.Equal(t, tpkg.Tokens(100), tv.token.BalanceOf(alice))

	// One at the threshold does.
	require.NoError(t, tv.Mint(bob, tv.dai, tpkg.Tokens(10), nil))
	require.True(t, tv.token.BalanceOf(alice).Gt(tpkg.Tokens(100)))
}

func TestVault_PauseGating(t *testing.T) {
	tv := newTestVault(t)
	outsider := tpkg.RandAddress()

	require.ErrorIs(t, tv.PauseRebase(outsider), access.ErrNotGovernorOrStrategist)

	// The strategist may pause but not unpause.
	require.NoError(t, tv.PauseRebase(tv.strategist))
	require.True(t, tv.RebasePaused())
	require.ErrorIs(t, tv.UnpauseRebase(tv.strategist), access.ErrNotGovernor)

	require.NoError(t, tv.UnpauseRebase(tv.governor))
	require.False(t, tv.RebasePaused())
}

func TestVault_PausedRebase(t *testing.T) {
	tv := newTestVault(t)
	alice := tpkg.RandAddress()
	bob := tpkg.RandAddress()

	require.NoError(t, tv.Mint(alice, tv.dai, tpkg.Tokens(100), nil))
	require.NoError(t, tv.CreditAsset(tv.dai, tpkg.Tokens(10)))
	require.NoError(t, tv.PauseRebase(tv.governor))

	require.ErrorIs(t, tv.Rebase(), vault.ErrRebasePaused)

	// Mints and redeems skip the automatic rebase while paused.
	require.NoError(t, tv.Mint(bob, tv.dai, tpkg.Tokens(100), nil))
	require.Equal(t, tpkg.Tokens(100), tv.token.BalanceOf(alice))

	require.NoError(t, tv.UnpauseRebase(tv.governor))
	require.NoError(t, tv.Rebase())
	require.True(t, tv.token.BalanceOf(alice).Gt(tpkg.Tokens(100)))
}

func TestVault_FeeCaps(t *testing.T) {
	tv := newTestVault(t)

	require.ErrorIs(t, tv.SetRedeemFeeBps(tv.governor, 1001), vault.ErrFeeTooHigh)
	require.NoError(t, tv.SetRedeemFeeBps(tv.governor, 1000))
	require.Equal(t, uint64(1000), tv.RedeemFeeBps())

	require.ErrorIs(t, tv.SetTrusteeFeeBps(tv.governor, 5001), vault.ErrFeeTooHigh)
	require.NoError(t, tv.SetTrusteeFeeBps(tv.governor, 5000))
}

func TestVault_AdminGating(t *testing.T) {
	tv := newTestVault(t)
	outsider := tpkg.RandAddress()

	require.ErrorIs(t, tv.SetRedeemFeeBps(outsider, 10), access.ErrNotGovernor)
	require.ErrorIs(t, tv.SetTrusteeFeeBps(outsider, 10), access.ErrNotGovernor)
	require.ErrorIs(t, tv.SetTrusteeAddress(outsider, tpkg.RandAddress()), access.ErrNotGovernor)
	require.ErrorIs(t, tv.SetRebaseThreshold(outsider, tpkg.Tokens(1)), access.ErrNotGovernor)
	require.ErrorIs(t, tv.SetPriceOracle(outsider, tv.prices), access.ErrNotGovernor)
	require.ErrorIs(t, tv.AddStrategy(outsider, nil), access.ErrNotGovernor)

	require.ErrorIs(t, tv.SetTrusteeAddress(tv.governor, model.ZeroAddress), vault.ErrInvalidTrustee)
}

func TestVault_MintedEventsAndMetrics(t *testing.T) {
	registerer := prometheus.NewRegistry()
	tv := newTestVault(t, vault.WithMetrics(vault.NewMetrics(registerer)))
	alice := tpkg.RandAddress()

	var minted []*vault.MintedEvent
	tv.Events().Minted.Hook(func(ev *vault.MintedEvent) { minted = append(minted, ev) })

	require.NoError(t, tv.Mint(alice, tv.usdc, usdcUnits(50), nil))

	require.Len(t, minted, 1)
	require.Equal(t, alice, minted[0].Account)
	require.Equal(t, tv.usdc, minted[0].Asset)
	require.Equal(t, usdcUnits(50), minted[0].AssetAmount)
	require.Equal(t, tpkg.Tokens(50), minted[0].Minted)

	families, err := registerer.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

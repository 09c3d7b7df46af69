package vault

import (
	"github.com/holiman/uint256"
	"github.com/iotaledger/hive.go/ierrors"

	"github.com/trillestprotocol/trillest-core/pkg/access"
	"github.com/trillestprotocol/trillest-core/pkg/model"
	"github.com/trillestprotocol/trillest-core/pkg/oracle"
	"github.com/trillestprotocol/trillest-core/pkg/strategy"
)

// PauseRebase halts all rebasing, including the automatic rebases on mint
// and redeem. Governor or strategist.
func (v *Vault) PauseRebase(caller model.Address) error {
	if !v.roles.IsGovernor(caller) && !v.roles.IsStrategist(caller) {
		return access.ErrNotGovernorOrStrategist
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.rebasePaused = true
	v.events.RebasePaused.Trigger(caller)

	return nil
}

// UnpauseRebase resumes rebasing. Governor only.
func (v *Vault) UnpauseRebase(caller model.Address) error {
	if !v.roles.IsGovernor(caller) {
		return access.ErrNotGovernor
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.rebasePaused = false
	v.events.RebaseUnpaused.Trigger(caller)

	return nil
}

// RebasePaused reports whether rebasing is currently halted.
func (v *Vault) RebasePaused() bool {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	return v.rebasePaused
}

// SetRedeemFeeBps sets the redemption fee. Governor only, capped at
// MaxRedeemFeeBps.
func (v *Vault) SetRedeemFeeBps(caller model.Address, bps uint64) error {
	if !v.roles.IsGovernor(caller) {
		return access.ErrNotGovernor
	}
	if bps > MaxRedeemFeeBps {
		return ierrors.Wrap(ErrFeeTooHigh, "redeem fee must not exceed 10%")
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.redeemFeeBps = bps

	return nil
}

// RedeemFeeBps returns the current redemption fee.
func (v *Vault) RedeemFeeBps() uint64 {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	return v.redeemFeeBps
}

// TrusteeFeeBps returns the trustee's current share of the yield.
func (v *Vault) TrusteeFeeBps() uint64 {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	return v.trusteeFeeBps
}

// TrusteeAddress returns the account receiving the trustee fee.
func (v *Vault) TrusteeAddress() model.Address {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	return v.trustee
}

// RebaseThreshold returns the automatic rebase threshold.
func (v *Vault) RebaseThreshold() *uint256.Int {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	return new(uint256.Int).Set(v.rebaseThreshold)
}

// SetTrusteeFeeBps sets the trustee's share of every yield distribution.
// Governor only, capped at MaxTrusteeFeeBps.
func (v *Vault) SetTrusteeFeeBps(caller model.Address, bps uint64) error {
	if !v.roles.IsGovernor(caller) {
		return access.ErrNotGovernor
	}
	if bps > MaxTrusteeFeeBps {
		return ierrors.Wrap(ErrFeeTooHigh, "trustee fee must not exceed 50%")
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.trusteeFeeBps = bps

	return nil
}

// SetTrusteeAddress sets the account receiving the trustee fee. Governor only.
func (v *Vault) SetTrusteeAddress(caller model.Address, trustee model.Address) error {
	if !v.roles.IsGovernor(caller) {
		return access.ErrNotGovernor
	}
	if trustee.IsZero() {
		return ErrInvalidTrustee
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.trustee = trustee

	return nil
}

// SetRebaseThreshold sets the minimum unit value a mint or redeem must move
// before it triggers an automatic rebase. Governor only.
func (v *Vault) SetRebaseThreshold(caller model.Address, threshold *uint256.Int) error {
	if !v.roles.IsGovernor(caller) {
		return access.ErrNotGovernor
	}
	if threshold == nil {
		return ErrInvalidAmount
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.rebaseThreshold = new(uint256.Int).Set(threshold)

	return nil
}

// SetPriceOracle swaps the oracle used to price deposits and redemptions.
// Governor only.
func (v *Vault) SetPriceOracle(caller model.Address, prices oracle.PriceOracle) error {
	if !v.roles.IsGovernor(caller) {
		return access.ErrNotGovernor
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.prices = prices

	return nil
}

// AddStrategy registers a yield strategy whose holdings count towards the
// vault's collateral. Governor only.
func (v *Vault) AddStrategy(caller model.Address, strat strategy.YieldStrategy) error {
	if !v.roles.IsGovernor(caller) {
		return access.ErrNotGovernor
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.strategies = append(v.strategies, strat)

	return nil
}

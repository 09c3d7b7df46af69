package vault

import (
	"github.com/holiman/uint256"
	"github.com/iotaledger/hive.go/ierrors"

	"github.com/trillestprotocol/trillest-core/pkg/fixedpoint"
)

// Rebase resynchronizes the token supply with the vault's collateral value.
// Anyone may call it, the result is the same regardless of the caller.
func (v *Vault) Rebase() error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if v.rebasePaused {
		return ErrRebasePaused
	}

	return v.rebase()
}

// rebase recomputes the collateral value and moves the token supply to it.
// If the vault gained value since the last rebase, the trustee's share of
// the yield is minted before the remainder is distributed through the
// supply change. Called with the vault lock held.
func (v *Vault) rebase() error {
	supply := v.token.TotalSupply()
	if supply.IsZero() {
		return nil
	}

	value, err := v.totalValue()
	if err != nil {
		return ierrors.Wrap(err, "cannot compute vault value")
	}
	if value.IsZero() {
		return nil
	}

	trusteeFee := uint256.NewInt(0)
	if value.Gt(supply) && v.trusteeFeeBps > 0 && !v.trustee.IsZero() {
		yield := new(uint256.Int).Sub(value, supply)

		trusteeFee, err = fixedpoint.MulTruncateScale(yield, uint256.NewInt(v.trusteeFeeBps), uint256.NewInt(basisPointsScale))
		if err != nil {
			return ierrors.Wrap(err, "cannot compute trustee fee")
		}

		if !trusteeFee.IsZero() {
			if err := v.token.Mint(v.address, v.trustee, trusteeFee); err != nil {
				return ierrors.Wrap(err, "cannot mint trustee fee")
			}
		}
	}

	if err := v.token.ChangeSupply(v.address, value); err != nil {
		return ierrors.Wrap(err, "cannot change supply")
	}

	v.LogDebugf("rebased supply from %s to %s, trustee fee %s", supply, value, trusteeFee)
	v.events.Rebased.Trigger(&RebasedEvent{TotalSupply: value, TrusteeFee: trusteeFee})
	v.metrics.rebaseRecorded()
	v.metrics.supplyUpdated(v.token.TotalSupply(), value)

	return nil
}

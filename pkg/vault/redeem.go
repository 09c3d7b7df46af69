package vault

import (
	"github.com/holiman/uint256"
	"github.com/iotaledger/hive.go/ierrors"

	"github.com/trillestprotocol/trillest-core/pkg/fixedpoint"
	"github.com/trillestprotocol/trillest-core/pkg/ledger"
	"github.com/trillestprotocol/trillest-core/pkg/model"
	"github.com/trillestprotocol/trillest-core/pkg/registry"
)

// RedeemOutput is one asset leg of a redemption basket, in the asset's
// native decimals.
type RedeemOutput struct {
	Asset  model.Address
	Symbol string
	Amount *uint256.Int
}

// Redeem burns amount of the caller's tokens and delivers a proportional
// slice of every collateral asset, after the redemption fee. The redemption
// fails with ErrBelowMinimumOutput if the delivered unit value falls below
// minimumUnitAmount.
func (v *Vault) Redeem(caller model.Address, amount *uint256.Int, minimumUnitAmount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	amount = new(uint256.Int).Set(amount)

	v.mutex.Lock()
	defer v.mutex.Unlock()

	// Settle outstanding yield first so the redeemer exits at the current
	// value, not the value of the last rebase.
	if !v.rebasePaused && amount.Gt(v.rebaseThreshold) {
		if err := v.rebase(); err != nil {
			return ierrors.Wrap(err, "pre-redeem rebase failed")
		}
	}

	outputs, err := v.calculateRedeemOutputs(amount)
	if err != nil {
		return err
	}

	if minimumUnitAmount != nil {
		totalUnits := uint256.NewInt(0)
		for _, output := range outputs {
			asset, _ := v.assets.Lookup(output.Asset)
			units, err := fixedpoint.ScaleBy(output.Amount, ledger.Decimals, asset.Decimals)
			if err != nil {
				return ierrors.Wrapf(err, "cannot value %s output", output.Symbol)
			}
			totalUnits.Add(totalUnits, units)
		}
		if totalUnits.Lt(minimumUnitAmount) {
			return ErrBelowMinimumOutput
		}
	}

	// Custody is validated for every leg before anything is burned or
	// debited, a failing leg leaves the vault untouched.
	for _, output := range outputs {
		if v.custodyOf(output.Asset).Lt(output.Amount) {
			return ierrors.Wrapf(ErrInsufficientAssets, "%s", output.Symbol)
		}
	}

	if err := v.token.Burn(v.address, caller, amount); err != nil {
		return ierrors.Wrap(err, "burn failed")
	}

	for _, output := range outputs {
		if err := v.debitCustody(output.Asset, output.Amount); err != nil {
			return err
		}
	}

	v.LogDebugf("redeemed %s from %s across %d assets", amount, caller, len(outputs))
	v.events.Redeemed.Trigger(&RedeemedEvent{Account: caller, Burned: amount, Outputs: outputs})
	v.metrics.redeemRecorded()

	return nil
}

// RedeemAll redeems the caller's entire balance.
func (v *Vault) RedeemAll(caller model.Address, minimumUnitAmount *uint256.Int) error {
	return v.Redeem(caller, v.token.BalanceOf(caller), minimumUnitAmount)
}

// CalculateRedeemOutputs previews the basket a redemption of amount would
// deliver. The preview runs the same computation as Redeem, the returned
// amounts are exact.
func (v *Vault) CalculateRedeemOutputs(amount *uint256.Int) ([]*RedeemOutput, error) {
	if amount == nil || amount.IsZero() {
		return nil, ErrInvalidAmount
	}

	v.mutex.RLock()
	defer v.mutex.RUnlock()

	return v.calculateRedeemOutputs(new(uint256.Int).Set(amount))
}

// calculateRedeemOutputs splits amount across all collateral proportionally
// to each asset's share of the total backing. Assets priced below one unit
// are floored to par so a depegged asset cannot drain the others.
func (v *Vault) calculateRedeemOutputs(amount *uint256.Int) ([]*RedeemOutput, error) {
	assets := v.assets.All()
	if len(assets) == 0 {
		return nil, ierrors.Wrap(registry.ErrAssetNotSupported, "no collateral assets registered")
	}

	if v.redeemFeeBps > 0 {
		fee, err := fixedpoint.MulTruncateScale(amount, uint256.NewInt(v.redeemFeeBps), uint256.NewInt(basisPointsScale))
		if err != nil {
			return nil, ierrors.Wrap(ErrInvalidAmount, "redeem amount out of range")
		}
		amount = new(uint256.Int).Sub(amount, fee)
	}

	// Each asset's backing in units and its price-weighted value. The
	// outputs are proportional to unit balances but normalized by total
	// value, the basket delivered is worth the redeemed amount.
	balances := make([]*uint256.Int, len(assets))
	totalOutputValue := uint256.NewInt(0)
	for i, asset := range assets {
		balance, err := v.totalAssetBalance(asset.Address)
		if err != nil {
			return nil, err
		}

		units, err := fixedpoint.ScaleBy(balance, ledger.Decimals, asset.Decimals)
		if err != nil {
			return nil, ierrors.Wrapf(err, "cannot value %s holdings", asset.Symbol)
		}
		balances[i] = units

		price, err := v.prices.Price(asset.Symbol)
		if err != nil {
			return nil, ierrors.Wrapf(err, "cannot price %s output", asset.Symbol)
		}
		if price.Lt(fixedpoint.One) {
			price = fixedpoint.One
		}

		value, err := fixedpoint.MulTruncate(units, price)
		if err != nil {
			return nil, ierrors.Wrapf(err, "cannot value %s holdings", asset.Symbol)
		}
		totalOutputValue.Add(totalOutputValue, value)
	}

	if totalOutputValue.IsZero() {
		return nil, ierrors.Wrap(ErrInsufficientAssets, "vault holds no collateral")
	}

	outputs := make([]*RedeemOutput, len(assets))
	for i, asset := range assets {
		share, overflow := new(uint256.Int).MulDivOverflow(amount, balances[i], totalOutputValue)
		if overflow {
			return nil, ierrors.Wrap(ErrInvalidAmount, "redeem amount out of range")
		}

		native, err := fixedpoint.ScaleBy(share, asset.Decimals, ledger.Decimals)
		if err != nil {
			return nil, ierrors.Wrapf(err, "cannot scale %s output", asset.Symbol)
		}

		outputs[i] = &RedeemOutput{Asset: asset.Address, Symbol: asset.Symbol, Amount: native}
	}

	return outputs, nil
}

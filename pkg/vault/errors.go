package vault

import (
	"github.com/iotaledger/hive.go/ierrors"
)

var (
	// ErrInvalidAmount is returned for nil or zero amounts.
	ErrInvalidAmount = ierrors.New("amount must be greater than 0")

	// ErrSlippageExceeded is returned when a mint would produce less than the
	// caller's minimum.
	ErrSlippageExceeded = ierrors.New("mint amount lower than minimum")

	// ErrBelowMinimumOutput is returned when a redemption would deliver less
	// value than the caller's minimum.
	ErrBelowMinimumOutput = ierrors.New("redeem amount lower than minimum")

	// ErrRebasePaused is returned when a rebase is attempted while rebasing
	// is paused.
	ErrRebasePaused = ierrors.New("rebasing is paused")

	// ErrInsufficientAssets is returned when the vault does not hold enough
	// of an asset to deliver a redemption.
	ErrInsufficientAssets = ierrors.New("not enough assets in the vault")

	// ErrFeeTooHigh is returned when a fee setter exceeds its cap.
	ErrFeeTooHigh = ierrors.New("fee exceeds maximum")

	// ErrInvalidTrustee is returned when the trustee is set to the zero address.
	ErrInvalidTrustee = ierrors.New("trustee cannot be the zero address")
)

package ledger

import (
	"github.com/iotaledger/hive.go/ierrors"
)

var (
	// ErrNotVault is returned when a vault-only operation is called by anyone else.
	ErrNotVault = ierrors.New("caller is not the vault")

	// ErrInvalidRecipient is returned for transfers or mints to the zero address.
	ErrInvalidRecipient = ierrors.New("invalid recipient")

	// ErrInvalidAmount is returned for nil amounts and for amounts whose credit
	// conversion would overflow 256 bits.
	ErrInvalidAmount = ierrors.New("invalid amount")

	// ErrInsufficientBalance is returned when a transfer or burn exceeds the
	// account's displayed balance.
	ErrInsufficientBalance = ierrors.New("amount exceeds balance")

	// ErrInsufficientAllowance is returned when a transferFrom exceeds the
	// spender's remaining approval.
	ErrInsufficientAllowance = ierrors.New("amount exceeds allowance")

	// ErrSupplyOverflow is returned when a mint would push the total supply
	// beyond MaxSupply.
	ErrSupplyOverflow = ierrors.New("max supply exceeded")

	// ErrSupplyUnderflow is returned when a supply change would leave the
	// rebasing pool with negative value.
	ErrSupplyUnderflow = ierrors.New("new total supply below non-rebasing supply")

	// ErrInvalidSupplyChange is returned when a supply change would zero the
	// rebasing exchange rate.
	ErrInvalidSupplyChange = ierrors.New("invalid change in supply")

	// ErrZeroSupply is returned when the supply is changed before anything was minted.
	ErrZeroSupply = ierrors.New("cannot change zero supply")

	// ErrAlreadyRebasing is returned when an account opts in without having opted out.
	ErrAlreadyRebasing = ierrors.New("account has not opted out")

	// ErrAlreadyNonRebasing is returned when an account opts out twice.
	ErrAlreadyNonRebasing = ierrors.New("account has not opted in")
)

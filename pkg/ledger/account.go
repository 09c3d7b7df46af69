package ledger

import (
	"github.com/holiman/uint256"
	"github.com/iotaledger/hive.go/ds/shrinkingmap"

	"github.com/trillestprotocol/trillest-core/pkg/model"
)

// RebaseState records an account's explicit rebase election. Accounts that
// never elected stay in RebaseStateNotSet and are classified lazily from
// their contract status.
type RebaseState uint8

const (
	RebaseStateNotSet RebaseState = iota
	RebaseStateOptIn
	RebaseStateOptOut
)

func (r RebaseState) String() string {
	switch r {
	case RebaseStateOptIn:
		return "OptIn"
	case RebaseStateOptOut:
		return "OptOut"
	default:
		return "NotSet"
	}
}

// rateKind tags whether an account converts credits at the live global rate
// or at a rate frozen when it became non-rebasing.
type rateKind uint8

const (
	rateGlobal rateKind = iota
	rateFixed
)

// creditRate is the per-account credits-per-token binding. A global rate
// tracks rebasingCreditsPerToken as it changes, a fixed rate pins the
// account's balance against further supply changes.
type creditRate struct {
	kind  rateKind
	fixed *uint256.Int
}

func globalRate() creditRate {
	return creditRate{kind: rateGlobal}
}

func fixedRate(value *uint256.Int) creditRate {
	return creditRate{kind: rateFixed, fixed: new(uint256.Int).Set(value)}
}

func (c creditRate) isFixed() bool {
	return c.kind == rateFixed
}

// account is the per-address ledger state. Balances are derived, only
// credits are stored.
type account struct {
	credits     *uint256.Int
	rate        creditRate
	rebaseState RebaseState
	allowances  *shrinkingmap.ShrinkingMap[model.Address, *uint256.Int]
}

func newAccount() *account {
	return &account{
		credits:    uint256.NewInt(0),
		rate:       globalRate(),
		allowances: shrinkingmap.New[model.Address, *uint256.Int](),
	}
}

func (a *account) allowance(spender model.Address) *uint256.Int {
	if value, exists := a.allowances.Get(spender); exists {
		return new(uint256.Int).Set(value)
	}

	return uint256.NewInt(0)
}

func (a *account) setAllowance(spender model.Address, value *uint256.Int) {
	if value.IsZero() {
		a.allowances.Delete(spender)

		return
	}

	a.allowances.Set(spender, new(uint256.Int).Set(value))
}

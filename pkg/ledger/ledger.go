package ledger

import (
	"github.com/holiman/uint256"
	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/runtime/syncutils"

	"github.com/trillestprotocol/trillest-core/pkg/access"
	"github.com/trillestprotocol/trillest-core/pkg/fixedpoint"
	"github.com/trillestprotocol/trillest-core/pkg/model"
)

// Token metadata.
const (
	Name     = "Trillest"
	Symbol   = "TRILLEST"
	Decimals = 18
)

var (
	// MaxSupply is the hard cap on the total supply, 2^128 - 1 base units.
	MaxSupply = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)

	// MaxAllowance is the sentinel approval that is treated as unlimited and
	// never decremented by TransferFrom.
	MaxAllowance = new(uint256.Int).SetAllOne()
)

// Ledger tracks elastic-supply balances as credits. Rebasing accounts share
// the global credits-per-token rate and see their balance move with every
// supply change, non-rebasing accounts pin a fixed rate and keep a constant
// balance. Only credits are stored, displayed balances are derived on read.
type Ledger struct {
	events *Events
	roles  *access.Control

	accounts *shrinkingmap.ShrinkingMap[model.Address, *account]

	totalSupply             *uint256.Int
	rebasingCredits         *uint256.Int
	rebasingCreditsPerToken *uint256.Int
	nonRebasingSupply       *uint256.Int

	detectContract ContractDetector

	mutex syncutils.RWMutex

	log.Logger
}

// New creates an empty ledger whose vault-only operations are gated by roles.
func New(logger log.Logger, roles *access.Control, opts ...options.Option[Ledger]) *Ledger {
	return options.Apply(&Ledger{
		events:                  NewEvents(),
		roles:                   roles,
		accounts:                shrinkingmap.New[model.Address, *account](),
		totalSupply:             uint256.NewInt(0),
		rebasingCredits:         uint256.NewInt(0),
		rebasingCreditsPerToken: new(uint256.Int).Set(fixedpoint.OneHighres),
		nonRebasingSupply:       uint256.NewInt(0),
		detectContract:          func(model.Address) bool { return false },
		Logger:                  logger.NewChildLogger("ledger"),
	}, opts)
}

// Events returns the ledger's event group.
func (l *Ledger) Events() *Events {
	return l.events
}

// TotalSupply returns the current total supply in base units.
func (l *Ledger) TotalSupply() *uint256.Int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return new(uint256.Int).Set(l.totalSupply)
}

// NonRebasingSupply returns the portion of the supply held by accounts that
// do not receive yield.
func (l *Ledger) NonRebasingSupply() *uint256.Int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return new(uint256.Int).Set(l.nonRebasingSupply)
}

// RebasingCreditsHighres returns the credits of the rebasing pool at full
// resolution.
func (l *Ledger) RebasingCreditsHighres() *uint256.Int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return new(uint256.Int).Set(l.rebasingCredits)
}

// RebasingCreditsPerTokenHighres returns the global exchange rate at full
// resolution.
func (l *Ledger) RebasingCreditsPerTokenHighres() *uint256.Int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return new(uint256.Int).Set(l.rebasingCreditsPerToken)
}

// RebasingCredits returns the rebasing pool's credits at the legacy 1e18
// resolution.
func (l *Ledger) RebasingCredits() *uint256.Int {
	return new(uint256.Int).Div(l.RebasingCreditsHighres(), fixedpoint.ResolutionIncrease)
}

// RebasingCreditsPerToken returns the global exchange rate at the legacy
// 1e18 resolution.
func (l *Ledger) RebasingCreditsPerToken() *uint256.Int {
	return new(uint256.Int).Div(l.RebasingCreditsPerTokenHighres(), fixedpoint.ResolutionIncrease)
}

// BalanceOf returns the displayed balance of address. Reading never mutates
// ledger state, unclassified contract accounts are projected at the global
// rate until a transfer or mint touches them.
func (l *Ledger) BalanceOf(address model.Address) *uint256.Int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	acct, exists := l.accounts.Get(address)
	if !exists {
		return uint256.NewInt(0)
	}

	return l.balanceOf(acct)
}

// CreditsBalanceOf returns the address's credits and rate at the legacy 1e18
// resolution.
func (l *Ledger) CreditsBalanceOf(address model.Address) (credits *uint256.Int, rate *uint256.Int) {
	creditsHighres, rateHighres, _ := l.CreditsBalanceOfHighres(address)

	return creditsHighres.Div(creditsHighres, fixedpoint.ResolutionIncrease), rateHighres.Div(rateHighres, fixedpoint.ResolutionIncrease)
}

// CreditsBalanceOfHighres returns the address's credits, its effective rate
// and whether the rate is pinned, all at full resolution.
func (l *Ledger) CreditsBalanceOfHighres(address model.Address) (credits *uint256.Int, rate *uint256.Int, pinned bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	acct, exists := l.accounts.Get(address)
	if !exists {
		return uint256.NewInt(0), new(uint256.Int).Set(l.rebasingCreditsPerToken), false
	}

	return new(uint256.Int).Set(acct.credits), new(uint256.Int).Set(l.effectiveRate(acct)), acct.rate.isFixed()
}

// RebaseState returns the address's explicit rebase election.
func (l *Ledger) RebaseState(address model.Address) RebaseState {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	acct, exists := l.accounts.Get(address)
	if !exists {
		return RebaseStateNotSet
	}

	return acct.rebaseState
}

// Allowance returns the amount spender may still transfer on behalf of owner.
func (l *Ledger) Allowance(owner model.Address, spender model.Address) *uint256.Int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	acct, exists := l.accounts.Get(owner)
	if !exists {
		return uint256.NewInt(0)
	}

	return acct.allowance(spender)
}

// Mint creates amount new tokens for to. Only the vault may mint.
func (l *Ledger) Mint(caller model.Address, to model.Address, amount *uint256.Int) error {
	if !l.roles.IsVault(caller) {
		return ErrNotVault
	}
	if to.IsZero() {
		return ierrors.Wrap(ErrInvalidRecipient, "mint to the zero address")
	}
	if amount == nil {
		return ErrInvalidAmount
	}
	if amount.IsZero() {
		return nil
	}
	amount = new(uint256.Int).Set(amount)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	acct := l.ensureAccount(to)
	isNonRebasing := l.isNonRebasingAccount(to, acct)

	credits, err := fixedpoint.MulTruncate(amount, l.effectiveRate(acct))
	if err != nil {
		return ierrors.Wrap(ErrInvalidAmount, "mint amount out of range")
	}

	newCredits, overflow := new(uint256.Int).AddOverflow(acct.credits, credits)
	if overflow {
		return ierrors.Wrap(ErrInvalidAmount, "mint overflows credit balance")
	}

	newSupply, overflow := new(uint256.Int).AddOverflow(l.totalSupply, amount)
	if overflow || newSupply.Gt(MaxSupply) {
		return ErrSupplyOverflow
	}

	acct.credits = newCredits
	if isNonRebasing {
		l.nonRebasingSupply.Add(l.nonRebasingSupply, amount)
	} else {
		l.rebasingCredits.Add(l.rebasingCredits, credits)
	}
	l.totalSupply = newSupply

	l.LogDebugf("minted %s to %s", amount, to)
	l.events.Transferred.Trigger(&TransferEvent{From: model.ZeroAddress, To: to, Amount: amount})

	return nil
}

// Burn destroys amount tokens held by from. Only the vault may burn.
func (l *Ledger) Burn(caller model.Address, from model.Address, amount *uint256.Int) error {
	if !l.roles.IsVault(caller) {
		return ErrNotVault
	}
	if from.IsZero() {
		return ierrors.Wrap(ErrInvalidRecipient, "burn from the zero address")
	}
	if amount == nil {
		return ErrInvalidAmount
	}
	if amount.IsZero() {
		return nil
	}
	amount = new(uint256.Int).Set(amount)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	acct := l.ensureAccount(from)
	isNonRebasing := l.isNonRebasingAccount(from, acct)

	credits, err := fixedpoint.MulTruncate(amount, l.effectiveRate(acct))
	if err != nil {
		return ierrors.Wrap(ErrInvalidAmount, "burn amount out of range")
	}

	if acct.credits.Lt(credits) {
		return ierrors.Wrap(ErrInsufficientBalance, "burn amount exceeds balance")
	}

	// Truncation when the account was credited can leave the stored credits
	// one unit above the recomputed value, burning the full balance then
	// clears the account instead of leaving a dust credit behind.
	newCredits := new(uint256.Int).Sub(acct.credits, credits)
	if newCredits.LtUint64(2) {
		newCredits = uint256.NewInt(0)
	}

	newSupply, underflow := new(uint256.Int).SubOverflow(l.totalSupply, amount)
	if underflow {
		return ierrors.Wrap(ErrInsufficientBalance, "burn amount exceeds total supply")
	}

	if isNonRebasing {
		newNonRebasing, underflow := new(uint256.Int).SubOverflow(l.nonRebasingSupply, amount)
		if underflow {
			return ierrors.Wrap(ErrInsufficientBalance, "burn amount exceeds non-rebasing supply")
		}
		l.nonRebasingSupply = newNonRebasing
	} else {
		newRebasingCredits, underflow := new(uint256.Int).SubOverflow(l.rebasingCredits, credits)
		if underflow {
			return ierrors.Wrap(ErrInsufficientBalance, "burn amount exceeds rebasing credits")
		}
		l.rebasingCredits = newRebasingCredits
	}

	acct.credits = newCredits
	l.totalSupply = newSupply

	l.LogDebugf("burned %s from %s", amount, from)
	l.events.Transferred.Trigger(&TransferEvent{From: from, To: model.ZeroAddress, Amount: amount})

	return nil
}

// Transfer moves amount from from to to. A zero amount is a successful no-op.
func (l *Ledger) Transfer(from model.Address, to model.Address, amount *uint256.Int) error {
	if to.IsZero() {
		return ierrors.Wrap(ErrInvalidRecipient, "transfer to the zero address")
	}
	if amount == nil {
		return ErrInvalidAmount
	}
	if amount.IsZero() {
		return nil
	}
	amount = new(uint256.Int).Set(amount)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.executeTransfer(from, to, amount)
}

// TransferFrom moves amount from from to to on behalf of spender, consuming
// allowance unless the approval is MaxAllowance.
func (l *Ledger) TransferFrom(spender model.Address, from model.Address, to model.Address, amount *uint256.Int) error {
	if to.IsZero() {
		return ierrors.Wrap(ErrInvalidRecipient, "transfer to the zero address")
	}
	if amount == nil {
		return ErrInvalidAmount
	}
	if amount.IsZero() {
		return nil
	}
	amount = new(uint256.Int).Set(amount)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	owner := l.ensureAccount(from)
	remaining := owner.allowance(spender)

	unlimited := remaining.Eq(MaxAllowance)
	if !unlimited && remaining.Lt(amount) {
		return ErrInsufficientAllowance
	}

	if err := l.executeTransfer(from, to, amount); err != nil {
		return err
	}

	if !unlimited {
		owner.setAllowance(spender, remaining.Sub(remaining, amount))
	}

	return nil
}

// Approve sets spender's allowance over owner's tokens to amount, replacing
// any previous approval.
func (l *Ledger) Approve(owner model.Address, spender model.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.ensureAccount(owner).setAllowance(spender, amount)
	l.events.Approved.Trigger(&ApprovalEvent{Owner: owner, Spender: spender, Amount: new(uint256.Int).Set(amount)})

	return nil
}

// IncreaseAllowance raises spender's allowance by amount.
func (l *Ledger) IncreaseAllowance(owner model.Address, spender model.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	acct := l.ensureAccount(owner)
	updated, overflow := new(uint256.Int).AddOverflow(acct.allowance(spender), amount)
	if overflow {
		return ierrors.Wrap(ErrInvalidAmount, "allowance overflows")
	}

	acct.setAllowance(spender, updated)
	l.events.Approved.Trigger(&ApprovalEvent{Owner: owner, Spender: spender, Amount: new(uint256.Int).Set(updated)})

	return nil
}

// DecreaseAllowance lowers spender's allowance by amount, clamping at zero.
func (l *Ledger) DecreaseAllowance(owner model.Address, spender model.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	acct := l.ensureAccount(owner)
	updated, underflow := new(uint256.Int).SubOverflow(acct.allowance(spender), amount)
	if underflow {
		updated = uint256.NewInt(0)
	}

	acct.setAllowance(spender, updated)
	l.events.Approved.Trigger(&ApprovalEvent{Owner: owner, Spender: spender, Amount: new(uint256.Int).Set(updated)})

	return nil
}

// RebaseOptIn converts caller from non-rebasing to rebasing. Its displayed
// balance is preserved and re-enters the rebasing pool at the current global
// rate.
func (l *Ledger) RebaseOptIn(caller model.Address) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	acct := l.ensureAccount(caller)
	if !l.isNonRebasingAccount(caller, acct) {
		return ErrAlreadyRebasing
	}

	balance := l.balanceOf(acct)
	newCredits, err := fixedpoint.MulTruncate(balance, l.rebasingCreditsPerToken)
	if err != nil {
		return ierrors.Wrap(ErrInvalidAmount, "balance out of range")
	}

	newNonRebasing, underflow := new(uint256.Int).SubOverflow(l.nonRebasingSupply, balance)
	if underflow {
		return ierrors.Wrap(ErrInsufficientBalance, "balance exceeds non-rebasing supply")
	}

	l.nonRebasingSupply = newNonRebasing
	l.rebasingCredits.Add(l.rebasingCredits, newCredits)
	acct.credits = newCredits
	acct.rate = globalRate()
	acct.rebaseState = RebaseStateOptIn

	l.LogDebugf("account %s opted in at rate %s", caller, l.rebasingCreditsPerToken)

	return nil
}

// RebaseOptOut converts caller from rebasing to non-rebasing, pinning its
// balance at the current global rate.
func (l *Ledger) RebaseOptOut(caller model.Address) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	acct := l.ensureAccount(caller)
	if l.isNonRebasingAccount(caller, acct) {
		return ErrAlreadyNonRebasing
	}

	balance := l.balanceOf(acct)
	newRebasingCredits, underflow := new(uint256.Int).SubOverflow(l.rebasingCredits, acct.credits)
	if underflow {
		return ierrors.Wrap(ErrInsufficientBalance, "credits exceed rebasing pool")
	}

	l.nonRebasingSupply.Add(l.nonRebasingSupply, balance)
	l.rebasingCredits = newRebasingCredits
	acct.rate = fixedRate(l.rebasingCreditsPerToken)
	acct.rebaseState = RebaseStateOptOut

	l.LogDebugf("account %s opted out at rate %s", caller, l.rebasingCreditsPerToken)

	return nil
}

// ChangeSupply sets the total supply to newSupply by adjusting the global
// exchange rate. The difference is distributed pro rata across rebasing
// accounts, non-rebasing balances are untouched. Only the vault may change
// the supply.
func (l *Ledger) ChangeSupply(caller model.Address, newSupply *uint256.Int) error {
	if !l.roles.IsVault(caller) {
		return ErrNotVault
	}
	if newSupply == nil {
		return ErrInvalidAmount
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.totalSupply.IsZero() {
		return ErrZeroSupply
	}

	if newSupply.Eq(l.totalSupply) {
		l.triggerTotalSupplyUpdated()

		return nil
	}

	capped := new(uint256.Int).Set(newSupply)
	if capped.Gt(MaxSupply) {
		capped.Set(MaxSupply)
	}

	rebasingPool, underflow := new(uint256.Int).SubOverflow(capped, l.nonRebasingSupply)
	if underflow {
		return ErrSupplyUnderflow
	}

	newRate, err := fixedpoint.DivPrecisely(l.rebasingCredits, rebasingPool)
	if err != nil || newRate.IsZero() {
		return ErrInvalidSupplyChange
	}

	// The truncating division makes the derived supply authoritative, it can
	// undershoot the requested value by a few base units.
	derivedPool, err := fixedpoint.DivPrecisely(l.rebasingCredits, newRate)
	if err != nil {
		return ErrInvalidSupplyChange
	}

	derivedSupply, overflow := new(uint256.Int).AddOverflow(derivedPool, l.nonRebasingSupply)
	if overflow {
		return ErrSupplyOverflow
	}

	l.rebasingCreditsPerToken = newRate
	l.totalSupply = derivedSupply

	l.LogDebugf("supply changed to %s, rate %s", l.totalSupply, l.rebasingCreditsPerToken)
	l.triggerTotalSupplyUpdated()

	return nil
}

func (l *Ledger) triggerTotalSupplyUpdated() {
	l.events.TotalSupplyUpdated.Trigger(&TotalSupplyUpdatedEvent{
		TotalSupply:             new(uint256.Int).Set(l.totalSupply),
		RebasingCredits:         new(uint256.Int).Set(l.rebasingCredits),
		RebasingCreditsPerToken: new(uint256.Int).Set(l.rebasingCreditsPerToken),
	})
}

func (l *Ledger) executeTransfer(from model.Address, to model.Address, amount *uint256.Int) error {
	fromAcct := l.ensureAccount(from)
	toAcct := l.ensureAccount(to)

	fromNonRebasing := l.isNonRebasingAccount(from, fromAcct)
	toNonRebasing := l.isNonRebasingAccount(to, toAcct)

	creditsDeducted, err := fixedpoint.MulTruncate(amount, l.effectiveRate(fromAcct))
	if err != nil {
		return ierrors.Wrap(ErrInvalidAmount, "transfer amount out of range")
	}
	creditsCredited, err := fixedpoint.MulTruncate(amount, l.effectiveRate(toAcct))
	if err != nil {
		return ierrors.Wrap(ErrInvalidAmount, "transfer amount out of range")
	}

	if fromAcct.credits.Lt(creditsDeducted) {
		return ierrors.Wrap(ErrInsufficientBalance, "transfer amount exceeds balance")
	}

	newFromCredits := new(uint256.Int).Sub(fromAcct.credits, creditsDeducted)

	// A self-transfer aliases both sides to the same account, so the credit
	// must be applied on top of the deducted value.
	toCredits := toAcct.credits
	if from == to {
		toCredits = newFromCredits
	}
	newToCredits, overflow := new(uint256.Int).AddOverflow(toCredits, creditsCredited)
	if overflow {
		return ierrors.Wrap(ErrInvalidAmount, "transfer overflows credit balance")
	}

	// Movements between the rebasing pool and the pinned side change the
	// pool boundaries, movements within one side do not.
	switch {
	case toNonRebasing && !fromNonRebasing:
		newRebasingCredits, underflow := new(uint256.Int).SubOverflow(l.rebasingCredits, creditsDeducted)
		if underflow {
			return ierrors.Wrap(ErrInsufficientBalance, "transfer amount exceeds rebasing credits")
		}
		l.rebasingCredits = newRebasingCredits
		l.nonRebasingSupply.Add(l.nonRebasingSupply, amount)
	case !toNonRebasing && fromNonRebasing:
		newNonRebasing, underflow := new(uint256.Int).SubOverflow(l.nonRebasingSupply, amount)
		if underflow {
			return ierrors.Wrap(ErrInsufficientBalance, "transfer amount exceeds non-rebasing supply")
		}
		l.nonRebasingSupply = newNonRebasing
		l.rebasingCredits.Add(l.rebasingCredits, creditsCredited)
	}

	fromAcct.credits = newFromCredits
	toAcct.credits = newToCredits

	l.events.Transferred.Trigger(&TransferEvent{From: from, To: to, Amount: new(uint256.Int).Set(amount)})

	return nil
}

func (l *Ledger) ensureAccount(address model.Address) *account {
	return lo.Return1(l.accounts.GetOrCreate(address, newAccount))
}

// isNonRebasingAccount resolves the classification of an account, migrating
// contract accounts that never made an election out of the rebasing pool on
// first use.
func (l *Ledger) isNonRebasingAccount(address model.Address, acct *account) bool {
	switch acct.rebaseState {
	case RebaseStateOptIn:
		return false
	case RebaseStateOptOut:
		return true
	}

	if acct.rate.isFixed() {
		return true
	}

	if !l.detectContract(address) {
		return false
	}

	l.migrateToNonRebasing(acct)

	return true
}

// migrateToNonRebasing pins an unclassified contract account's rate. A
// fresh account pins one to one so later credit conversions stay exact, a
// funded account captures the current global rate and moves its balance
// out of the rebasing pool.
func (l *Ledger) migrateToNonRebasing(acct *account) {
	if acct.credits.IsZero() {
		acct.rate = fixedRate(fixedpoint.OneHighres)

		return
	}

	balance := l.balanceOf(acct)
	acct.rate = fixedRate(l.rebasingCreditsPerToken)
	l.nonRebasingSupply.Add(l.nonRebasingSupply, balance)
	l.rebasingCredits.Sub(l.rebasingCredits, acct.credits)
}

func (l *Ledger) effectiveRate(acct *account) *uint256.Int {
	if acct.rate.isFixed() {
		return acct.rate.fixed
	}

	return l.rebasingCreditsPerToken
}

func (l *Ledger) balanceOf(acct *account) *uint256.Int {
	if acct.credits.IsZero() {
		return uint256.NewInt(0)
	}

	return lo.PanicOnErr(fixedpoint.DivPrecisely(acct.credits, l.effectiveRate(acct)))
}

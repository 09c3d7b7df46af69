// Package access implements the role checks gating the protocol's mutating
// entry points: a governor with a two-step handover, an optional strategist,
// and the vault identity that is allowed to drive the token ledger.
package access

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/runtime/syncutils"

	"github.com/trillestprotocol/trillest-core/pkg/model"
)

var (
	// ErrNotGovernor is returned when a governor-only operation is called by someone else.
	ErrNotGovernor = ierrors.New("caller is not the governor")

	// ErrNotGovernorOrStrategist is returned when an operation requires the governor or the strategist.
	ErrNotGovernorOrStrategist = ierrors.New("caller is not the strategist or governor")

	// ErrNotPendingGovernor is returned when governance is claimed by anyone but the pending governor.
	ErrNotPendingGovernor = ierrors.New("caller is not the pending governor")

	// ErrInvalidRole is returned when a role would be assigned to the zero address.
	ErrInvalidRole = ierrors.New("role cannot be the zero address")
)

// Control tracks the protocol roles and answers the predicates consulted by
// every mutating entry point.
type Control struct {
	governor        model.Address
	pendingGovernor model.Address
	strategist      model.Address
	vault           model.Address

	mutex syncutils.RWMutex
}

// WithStrategist presets the strategist role.
func WithStrategist(strategist model.Address) options.Option[Control] {
	return func(c *Control) {
		c.strategist = strategist
	}
}

// WithVault presets the vault identity.
func WithVault(vault model.Address) options.Option[Control] {
	return func(c *Control) {
		c.vault = vault
	}
}

// New creates a role registry owned by the given governor.
func New(governor model.Address, opts ...options.Option[Control]) *Control {
	return options.Apply(&Control{
		governor: governor,
	}, opts)
}

// IsGovernor reports whether addr holds the governor role.
func (c *Control) IsGovernor(addr model.Address) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return addr == c.governor
}

// IsStrategist reports whether addr holds the strategist role.
func (c *Control) IsStrategist(addr model.Address) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return !c.strategist.IsZero() && addr == c.strategist
}

// IsVault reports whether addr is the vault identity.
func (c *Control) IsVault(addr model.Address) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return !c.vault.IsZero() && addr == c.vault
}

// Governor returns the current governor.
func (c *Control) Governor() model.Address {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.governor
}

// SetStrategist assigns the strategist role. Governor only.
func (c *Control) SetStrategist(caller, strategist model.Address) error {
	if !c.IsGovernor(caller) {
		return ErrNotGovernor
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.strategist = strategist

	return nil
}

// SetVault assigns the vault identity. Governor only.
func (c *Control) SetVault(caller, vault model.Address) error {
	if !c.IsGovernor(caller) {
		return ErrNotGovernor
	}
	if vault.IsZero() {
		return ErrInvalidRole
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.vault = vault

	return nil
}

// TransferGovernance nominates a new governor. The handover only completes
// once the nominee calls ClaimGovernance.
func (c *Control) TransferGovernance(caller, newGovernor model.Address) error {
	if !c.IsGovernor(caller) {
		return ErrNotGovernor
	}
	if newGovernor.IsZero() {
		return ErrInvalidRole
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.pendingGovernor = newGovernor

	return nil
}

// ClaimGovernance completes a pending governance handover.
func (c *Control) ClaimGovernance(caller model.Address) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.pendingGovernor.IsZero() || caller != c.pendingGovernor {
		return ErrNotPendingGovernor
	}

	c.governor = c.pendingGovernor
	c.pendingGovernor = model.ZeroAddress

	return nil
}

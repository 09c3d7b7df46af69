package access_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trillestprotocol/trillest-core/pkg/access"
	"github.com/trillestprotocol/trillest-core/pkg/model"
	"github.com/trillestprotocol/trillest-core/pkg/tpkg"
)

func TestControl_Roles(t *testing.T) {
	governor := tpkg.RandAddress()
	strategist := tpkg.RandAddress()
	vault := tpkg.RandAddress()

	roles := access.New(governor, access.WithStrategist(strategist), access.WithVault(vault))

	require.True(t, roles.IsGovernor(governor))
	require.False(t, roles.IsGovernor(strategist))
	require.True(t, roles.IsStrategist(strategist))
	require.True(t, roles.IsVault(vault))
	require.False(t, roles.IsVault(governor))
}

func TestControl_UnsetRolesMatchNobody(t *testing.T) {
	roles := access.New(tpkg.RandAddress())

	// The zero address must not be mistaken for an unset strategist or vault.
	require.False(t, roles.IsStrategist(model.ZeroAddress))
	require.False(t, roles.IsVault(model.ZeroAddress))
}

func TestControl_Setters(t *testing.T) {
	governor := tpkg.RandAddress()
	roles := access.New(governor)

	outsider := tpkg.RandAddress()
	require.ErrorIs(t, roles.SetStrategist(outsider, outsider), access.ErrNotGovernor)
	require.ErrorIs(t, roles.SetVault(outsider, outsider), access.ErrNotGovernor)
	require.ErrorIs(t, roles.SetVault(governor, model.ZeroAddress), access.ErrInvalidRole)

	strategist := tpkg.RandAddress()
	require.NoError(t, roles.SetStrategist(governor, strategist))
	require.True(t, roles.IsStrategist(strategist))

	vault := tpkg.RandAddress()
	require.NoError(t, roles.SetVault(governor, vault))
	require.True(t, roles.IsVault(vault))
}

func TestControl_GovernanceHandover(t *testing.T) {
	governor := tpkg.RandAddress()
	successor := tpkg.RandAddress()
	roles := access.New(governor)

	require.ErrorIs(t, roles.TransferGovernance(successor, successor), access.ErrNotGovernor)
	require.ErrorIs(t, roles.TransferGovernance(governor, model.ZeroAddress), access.ErrInvalidRole)

	// Nomination alone does not move the role.
	require.NoError(t, roles.TransferGovernance(governor, successor))
	require.True(t, roles.IsGovernor(governor))
	require.False(t, roles.IsGovernor(successor))

	require.ErrorIs(t, roles.ClaimGovernance(tpkg.RandAddress()), access.ErrNotPendingGovernor)

	require.NoError(t, roles.ClaimGovernance(successor))
	require.True(t, roles.IsGovernor(successor))
	require.False(t, roles.IsGovernor(governor))

	// The claim consumes the nomination.
	require.ErrorIs(t, roles.ClaimGovernance(successor), access.ErrNotPendingGovernor)
}

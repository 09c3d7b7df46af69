package vault

import (
	"github.com/holiman/uint256"
	"github.com/iotaledger/hive.go/runtime/event"

	"github.com/trillestprotocol/trillest-core/pkg/model"
)

// MintedEvent is triggered after a successful mint.
type MintedEvent struct {
	Account     model.Address
	Asset       model.Address
	AssetAmount *uint256.Int
	Minted      *uint256.Int
}

// RedeemedEvent is triggered after a successful redemption.
type RedeemedEvent struct {
	Account model.Address
	Burned  *uint256.Int
	Outputs []*RedeemOutput
}

// RebasedEvent is triggered after a supply resynchronization, carrying the
// new total supply and the trustee fee that was carved out of the yield.
type RebasedEvent struct {
	TotalSupply *uint256.Int
	TrusteeFee  *uint256.Int
}

// Events exposes the vault's observable state transitions.
type Events struct {
	Minted         *event.Event1[*MintedEvent]
	Redeemed       *event.Event1[*RedeemedEvent]
	Rebased        *event.Event1[*RebasedEvent]
	RebasePaused   *event.Event1[model.Address]
	RebaseUnpaused *event.Event1[model.Address]

	event.Group[Events, *Events]
}

// NewEvents creates a new Events instance.
var NewEvents = event.CreateGroupConstructor(func() (newEvents *Events) {
	return &Events{
		Minted:         event.New1[*MintedEvent](),
		Redeemed:       event.New1[*RedeemedEvent](),
		Rebased:        event.New1[*RebasedEvent](),
		RebasePaused:   event.New1[model.Address](),
		RebaseUnpaused: event.New1[model.Address](),
	}
})

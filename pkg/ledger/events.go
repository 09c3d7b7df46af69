package ledger

import (
	"github.com/holiman/uint256"
	"github.com/iotaledger/hive.go/runtime/event"

	"github.com/trillestprotocol/trillest-core/pkg/model"
)

// TransferEvent is triggered for every balance movement, including mints
// (From is the zero address) and burns (To is the zero address).
type TransferEvent struct {
	From   model.Address
	To     model.Address
	Amount *uint256.Int
}

// ApprovalEvent is triggered whenever an owner sets, increases or decreases
// a spender's allowance.
type ApprovalEvent struct {
	Owner   model.Address
	Spender model.Address
	Amount  *uint256.Int
}

// TotalSupplyUpdatedEvent is triggered after every supply change, carrying
// the post-change totals.
type TotalSupplyUpdatedEvent struct {
	TotalSupply             *uint256.Int
	RebasingCredits         *uint256.Int
	RebasingCreditsPerToken *uint256.Int
}

// Events exposes the ledger's observable state transitions.
type Events struct {
	Transferred        *event.Event1[*TransferEvent]
	Approved           *event.Event1[*ApprovalEvent]
	TotalSupplyUpdated *event.Event1[*TotalSupplyUpdatedEvent]

	event.Group[Events, *Events]
}

// NewEvents creates a new Events instance.
var NewEvents = event.CreateGroupConstructor(func() (newEvents *Events) {
	return &Events{
		Transferred:        event.New1[*TransferEvent](),
		Approved:           event.New1[*ApprovalEvent](),
		TotalSupplyUpdated: event.New1[*TotalSupplyUpdatedEvent](),
	}
})

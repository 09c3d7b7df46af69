package ledger

import (
	"github.com/iotaledger/hive.go/runtime/options"

	"github.com/trillestprotocol/trillest-core/pkg/model"
)

// ContractDetector reports whether an address hosts contract code. Accounts
// backed by contracts default to non-rebasing until they explicitly opt in.
type ContractDetector func(address model.Address) bool

// WithContractDetector overrides the detector used to classify accounts
// that never made an explicit rebase election. The default treats every
// address as externally owned.
func WithContractDetector(detector ContractDetector) options.Option[Ledger] {
	return func(l *Ledger) {
		l.detectContract = detector
	}
}

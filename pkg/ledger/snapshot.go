package ledger

import (
	"bytes"
	"io"
	"sort"

	"github.com/holiman/uint256"
	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/core/marshalutil"

	"github.com/trillestprotocol/trillest-core/pkg/model"
)

const snapshotVersion byte = 1

// ErrUnsupportedSnapshotVersion is returned when importing a snapshot
// written by an incompatible version.
var ErrUnsupportedSnapshotVersion = ierrors.New("unsupported snapshot version")

// Export writes the full ledger state to w. Accounts and allowances are
// serialized in address order so equal states produce equal snapshots.
func (l *Ledger) Export(w io.Writer) error {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	m := marshalutil.New()
	m.WriteByte(snapshotVersion)
	writeUint256(m, l.totalSupply)
	writeUint256(m, l.rebasingCredits)
	writeUint256(m, l.rebasingCreditsPerToken)
	writeUint256(m, l.nonRebasingSupply)

	addresses := sortedAddresses(l.accounts.Keys())
	m.WriteUint64(uint64(len(addresses)))

	for _, address := range addresses {
		acct, _ := l.accounts.Get(address)

		m.WriteBytes(address.Bytes())
		writeUint256(m, acct.credits)

		m.WriteByte(byte(acct.rate.kind))
		if acct.rate.isFixed() {
			writeUint256(m, acct.rate.fixed)
		}
		m.WriteByte(byte(acct.rebaseState))

		spenders := sortedAddresses(acct.allowances.Keys())
		m.WriteUint64(uint64(len(spenders)))
		for _, spender := range spenders {
			amount, _ := acct.allowances.Get(spender)
			m.WriteBytes(spender.Bytes())
			writeUint256(m, amount)
		}
	}

	if _, err := w.Write(m.Bytes()); err != nil {
		return ierrors.Wrap(err, "failed to write ledger snapshot")
	}

	return nil
}

// Import replaces the ledger state with the snapshot read from r. The
// snapshot is fully parsed before any state is touched, a malformed stream
// leaves the ledger unchanged.
func (l *Ledger) Import(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return ierrors.Wrap(err, "failed to read ledger snapshot")
	}

	m := marshalutil.New(data)

	version, err := m.ReadByte()
	if err != nil {
		return ierrors.Wrap(err, "failed to read snapshot version")
	}
	if version != snapshotVersion {
		return ierrors.Wrapf(ErrUnsupportedSnapshotVersion, "got %d, expected %d", version, snapshotVersion)
	}

	totalSupply, err := readUint256(m)
	if err != nil {
		return ierrors.Wrap(err, "failed to read total supply")
	}
	rebasingCredits, err := readUint256(m)
	if err != nil {
		return ierrors.Wrap(err, "failed to read rebasing credits")
	}
	rebasingCreditsPerToken, err := readUint256(m)
	if err != nil {
		return ierrors.Wrap(err, "failed to read exchange rate")
	}
	if rebasingCreditsPerToken.IsZero() {
		return ierrors.New("snapshot has zero exchange rate")
	}
	nonRebasingSupply, err := readUint256(m)
	if err != nil {
		return ierrors.Wrap(err, "failed to read non-rebasing supply")
	}

	accountCount, err := m.ReadUint64()
	if err != nil {
		return ierrors.Wrap(err, "failed to read account count")
	}

	accounts := shrinkingmap.New[model.Address, *account]()
	for i := uint64(0); i < accountCount; i++ {
		address, err := readAddress(m)
		if err != nil {
			return ierrors.Wrapf(err, "failed to read account %d", i)
		}

		acct := newAccount()
		if acct.credits, err = readUint256(m); err != nil {
			return ierrors.Wrapf(err, "failed to read credits of %s", address)
		}

		kind, err := m.ReadByte()
		if err != nil {
			return ierrors.Wrapf(err, "failed to read rate kind of %s", address)
		}
		switch rateKind(kind) {
		case rateGlobal:
			acct.rate = globalRate()
		case rateFixed:
			pinned, err := readUint256(m)
			if err != nil {
				return ierrors.Wrapf(err, "failed to read pinned rate of %s", address)
			}
			if pinned.IsZero() {
				return ierrors.Errorf("account %s has zero pinned rate", address)
			}
			acct.rate = fixedRate(pinned)
		default:
			return ierrors.Errorf("account %s has unknown rate kind %d", address, kind)
		}

		state, err := m.ReadByte()
		if err != nil {
			return ierrors.Wrapf(err, "failed to read rebase state of %s", address)
		}
		if RebaseState(state) > RebaseStateOptOut {
			return ierrors.Errorf("account %s has unknown rebase state %d", address, state)
		}
		acct.rebaseState = RebaseState(state)

		allowanceCount, err := m.ReadUint64()
		if err != nil {
			return ierrors.Wrapf(err, "failed to read allowance count of %s", address)
		}
		for j := uint64(0); j < allowanceCount; j++ {
			spender, err := readAddress(m)
			if err != nil {
				return ierrors.Wrapf(err, "failed to read spender %d of %s", j, address)
			}
			amount, err := readUint256(m)
			if err != nil {
				return ierrors.Wrapf(err, "failed to read allowance of %s", spender)
			}
			acct.allowances.Set(spender, amount)
		}

		accounts.Set(address, acct)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.accounts = accounts
	l.totalSupply = totalSupply
	l.rebasingCredits = rebasingCredits
	l.rebasingCreditsPerToken = rebasingCreditsPerToken
	l.nonRebasingSupply = nonRebasingSupply

	l.LogDebugf("imported snapshot with %d accounts, total supply %s", accountCount, totalSupply)

	return nil
}

func writeUint256(m *marshalutil.MarshalUtil, value *uint256.Int) {
	valueBytes := value.Bytes32()
	m.WriteBytes(valueBytes[:])
}

func readUint256(m *marshalutil.MarshalUtil) (*uint256.Int, error) {
	valueBytes, err := m.ReadBytes(32)
	if err != nil {
		return nil, err
	}

	return new(uint256.Int).SetBytes(valueBytes), nil
}

func readAddress(m *marshalutil.MarshalUtil) (model.Address, error) {
	addressBytes, err := m.ReadBytes(model.AddressLength)
	if err != nil {
		return model.ZeroAddress, err
	}

	return model.AddressFromBytes(addressBytes)
}

func sortedAddresses(addresses []model.Address) []model.Address {
	sort.Slice(addresses, func(i, j int) bool {
		return bytes.Compare(addresses[i][:], addresses[j][:]) < 0
	})

	return addresses
}

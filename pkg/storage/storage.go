// Package storage persists the protocol state across restarts: the token
// ledger snapshot and the vault's operating settings, both in a key-value
// store.
package storage

import (
	"bytes"

	"github.com/holiman/uint256"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/core/marshalutil"

	"github.com/trillestprotocol/trillest-core/pkg/ledger"
	"github.com/trillestprotocol/trillest-core/pkg/model"
)

var (
	ledgerRealm   = kvstore.Realm{0x00}
	settingsRealm = kvstore.Realm{0x01}

	snapshotKey = []byte("snapshot")
	settingsKey = []byte("settings")
)

// Settings is the persisted slice of the vault's configuration.
type Settings struct {
	RedeemFeeBps    uint64
	TrusteeFeeBps   uint64
	Trustee         model.Address
	RebaseThreshold *uint256.Int
	RebasePaused    bool
}

// Store persists ledger snapshots and vault settings.
type Store struct {
	ledgerStore   kvstore.KVStore
	settingsStore kvstore.KVStore
}

// New creates a store on top of the given key-value backend.
func New(backend kvstore.KVStore) (*Store, error) {
	ledgerStore, err := backend.WithExtendedRealm(ledgerRealm)
	if err != nil {
		return nil, ierrors.Wrap(err, "cannot open ledger realm")
	}

	settingsStore, err := backend.WithExtendedRealm(settingsRealm)
	if err != nil {
		return nil, ierrors.Wrap(err, "cannot open settings realm")
	}

	return &Store{
		ledgerStore:   ledgerStore,
		settingsStore: settingsStore,
	}, nil
}

// SaveLedger writes a snapshot of the ledger state.
func (s *Store) SaveLedger(l *ledger.Ledger) error {
	var buffer bytes.Buffer
	if err := l.Export(&buffer); err != nil {
		return ierrors.Wrap(err, "cannot export ledger")
	}

	if err := s.ledgerStore.Set(snapshotKey, buffer.Bytes()); err != nil {
		return ierrors.Wrap(err, "cannot store ledger snapshot")
	}

	return s.ledgerStore.Flush()
}

// LoadLedger restores the ledger from the last saved snapshot. It reports
// false without touching the ledger when no snapshot exists.
func (s *Store) LoadLedger(l *ledger.Ledger) (bool, error) {
	data, err := s.ledgerStore.Get(snapshotKey)
	if err != nil {
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			return false, nil
		}

		return false, ierrors.Wrap(err, "cannot read ledger snapshot")
	}

	if err := l.Import(bytes.NewReader(data)); err != nil {
		return false, ierrors.Wrap(err, "cannot import ledger snapshot")
	}

	return true, nil
}

// SaveSettings writes the vault settings.
func (s *Store) SaveSettings(settings *Settings) error {
	m := marshalutil.New()
	m.WriteUint64(settings.RedeemFeeBps)
	m.WriteUint64(settings.TrusteeFeeBps)
	m.WriteBytes(settings.Trustee.Bytes())

	threshold := settings.RebaseThreshold
	if threshold == nil {
		threshold = uint256.NewInt(0)
	}
	thresholdBytes := threshold.Bytes32()
	m.WriteBytes(thresholdBytes[:])

	m.WriteBool(settings.RebasePaused)

	if err := s.settingsStore.Set(settingsKey, m.Bytes()); err != nil {
		return ierrors.Wrap(err, "cannot store settings")
	}

	return s.settingsStore.Flush()
}

// LoadSettings reads the vault settings. It reports false when none were
// ever saved.
func (s *Store) LoadSettings() (*Settings, bool, error) {
	data, err := s.settingsStore.Get(settingsKey)
	if err != nil {
		if ierrors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, false, nil
		}

		return nil, false, ierrors.Wrap(err, "cannot read settings")
	}

	m := marshalutil.New(data)
	settings := &Settings{}

	if settings.RedeemFeeBps, err = m.ReadUint64(); err != nil {
		return nil, false, ierrors.Wrap(err, "cannot read redeem fee")
	}
	if settings.TrusteeFeeBps, err = m.ReadUint64(); err != nil {
		return nil, false, ierrors.Wrap(err, "cannot read trustee fee")
	}

	trusteeBytes, err := m.ReadBytes(model.AddressLength)
	if err != nil {
		return nil, false, ierrors.Wrap(err, "cannot read trustee")
	}
	if settings.Trustee, err = model.AddressFromBytes(trusteeBytes); err != nil {
		return nil, false, ierrors.Wrap(err, "cannot read trustee")
	}

	thresholdBytes, err := m.ReadBytes(32)
	if err != nil {
		return nil, false, ierrors.Wrap(err, "cannot read rebase threshold")
	}
	settings.RebaseThreshold = new(uint256.Int).SetBytes(thresholdBytes)

	if settings.RebasePaused, err = m.ReadBool(); err != nil {
		return nil, false, ierrors.Wrap(err, "cannot read pause flag")
	}

	return settings, true, nil
}

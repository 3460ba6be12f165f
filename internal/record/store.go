// Package record persists the board lifecycle record: the status code, the
// secret material, and the restart counter. The record lives in its own
// key-value partition, separate from the file volume, and every field is
// written through an atomic transaction so a power cut never leaves a
// half-updated record.
package record

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"

	"github.com/valerio-vaccaro/BitFloppy/internal/model"
)

// Record partition keys. These names are part of the persisted format.
const (
	keyStatus         = "status"
	keyMnemonic       = "mnemonic"
	keyPassphrase     = "passphrase"
	keyNetwork        = "network"
	keyRestartCounter = "restart_counter"
)

// Store is the handle to the record partition.
type Store struct {
	db  *badger.DB
	log zerolog.Logger
}

// Open opens (or creates) the record partition in dir.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open record partition: %w", err)
	}
	return &Store{
		db:  db,
		log: log.With().Str("component", "record").Logger(),
	}, nil
}

// Close releases the partition.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close record partition: %w", err)
	}
	return nil
}

// Load reads the full record. Keys that are absent or fail to decode fall
// back to their defaults individually, so one bad field never takes the
// board down; each fallback is logged. The returned error covers only a
// failure of the read transaction itself.
func (s *Store) Load() (model.Record, error) {
	rec := model.DefaultRecord()
	err := s.db.View(func(txn *badger.Txn) error {
		var status uint8
		if ok := s.loadKey(txn, keyStatus, &status); ok {
			if st := model.LifecycleStatus(status); st.Valid() {
				rec.Status = st
			} else {
				s.log.Warn().Uint8("code", status).Msg("invalid status code, falling back to unknown")
			}
		}
		var mnemonic string
		if ok := s.loadKey(txn, keyMnemonic, &mnemonic); ok {
			rec.Secret.Mnemonic = mnemonic
		}
		var passphrase string
		if ok := s.loadKey(txn, keyPassphrase, &passphrase); ok {
			rec.Secret.Passphrase = passphrase
		}
		testnet := true
		if ok := s.loadKey(txn, keyNetwork, &testnet); ok {
			rec.Secret.Network = model.NetworkFromTestnetFlag(testnet)
		}
		var counter int32
		if ok := s.loadKey(txn, keyRestartCounter, &counter); ok {
			rec.RestartCounter = counter
		}
		return nil
	})
	if err != nil {
		return model.DefaultRecord(), fmt.Errorf("failed to load record: %w", err)
	}
	return rec, nil
}

// loadKey retrieves one key into value and reports whether it was read.
// Absent keys are silent; unreadable ones are logged and skipped.
func (s *Store) loadKey(txn *badger.Txn, key string, value interface{}) bool {
	err := retrieve(key, value)(txn)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrNotFound):
		return false
	default:
		s.log.Warn().Err(err).Str("key", key).Msg("record key unreadable, using default")
		return false
	}
}

// PutStatus persists a status transition on its own.
func (s *Store) PutStatus(status model.LifecycleStatus) error {
	return s.db.Update(upsert(keyStatus, uint8(status)))
}

// PutSecretAndStatus persists new secret material together with the status
// it moves the board into, in a single transaction.
func (s *Store) PutSecretAndStatus(secret model.SecretMaterial, status model.LifecycleStatus) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := upsert(keyMnemonic, secret.Mnemonic)(txn); err != nil {
			return err
		}
		if err := upsert(keyPassphrase, secret.Passphrase)(txn); err != nil {
			return err
		}
		if err := upsert(keyNetwork, secret.Network.IsTestnet())(txn); err != nil {
			return err
		}
		return upsert(keyStatus, uint8(status))(txn)
	})
}

// WipeSecretAndStatus removes every secret field and persists the status
// the wipe lands in, in a single transaction. The restart counter is
// deliberately left untouched.
func (s *Store) WipeSecretAndStatus(status model.LifecycleStatus) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := remove(keyMnemonic)(txn); err != nil {
			return err
		}
		if err := remove(keyPassphrase)(txn); err != nil {
			return err
		}
		if err := remove(keyNetwork)(txn); err != nil {
			return err
		}
		return upsert(keyStatus, uint8(status))(txn)
	})
}

// PutRestartCounter persists the boot counter.
func (s *Store) PutRestartCounter(counter int32) error {
	return s.db.Update(upsert(keyRestartCounter, counter))
}

// Sync flushes the partition to stable storage. Called before any restart
// so the record the next boot reads is the one this boot committed.
func (s *Store) Sync() error {
	if err := s.db.Sync(); err != nil {
		return fmt.Errorf("failed to sync record partition: %w", err)
	}
	return nil
}

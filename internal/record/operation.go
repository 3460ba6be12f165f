package record

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/vmihailenco/msgpack/v4"
)

// ErrNotFound is returned when a record key has never been written.
var ErrNotFound = errors.New("record: key not found")

// upsert returns a transaction function that encodes value under key,
// inserting or overwriting as needed.
func upsert(key string, value interface{}) func(*badger.Txn) error {
	return func(txn *badger.Txn) error {
		val, err := msgpack.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode value for key %s: %w", key, err)
		}
		if err := txn.Set([]byte(key), val); err != nil {
			return fmt.Errorf("failed to store value for key %s: %w", key, err)
		}
		return nil
	}
}

// retrieve returns a transaction function that decodes the value stored
// under key into the given pointer. A missing key yields ErrNotFound.
func retrieve(key string, value interface{}) func(*badger.Txn) error {
	return func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		if err != nil {
			return fmt.Errorf("failed to load value for key %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			if err := msgpack.Unmarshal(val, value); err != nil {
				return fmt.Errorf("failed to decode value for key %s: %w", key, err)
			}
			return nil
		})
	}
}

// remove returns a transaction function that deletes key. Deleting an
// absent key is a no-op, matching how a wipe treats never-written fields.
func remove(key string) func(*badger.Txn) error {
	return func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to remove value for key %s: %w", key, err)
		}
		return nil
	}
}

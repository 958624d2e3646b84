// Package badger provides a BadgerDB-backed implementation of the
// write-path coordinator's SystemStorage interface, for single-instance
// deployments that need their state to survive a restart.
package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/goclaw/goclaw/pkg/model"
	"github.com/goclaw/goclaw/pkg/storage"
)

// Config holds configuration for BadgerStorage.
type Config struct {
	Path              string
	SyncWrites        bool
	ValueLogFileSize  int64
	NumVersionsToKeep int
	LockLifetime      time.Duration
}

// BadgerStorage implements storage.SystemStorage using Badger. Locking is
// implemented as a conditional update of a lock record guarded by a badger
// transaction: Commit fails with a conflict if another writer touched the
// same key concurrently, which Badger surfaces as ErrConflict and we retry
// as a lock refusal rather than an error.
type BadgerStorage struct {
	db       *badger.DB
	lifetime time.Duration
}

// NewBadgerStorage opens (or creates) a Badger database at config.Path.
func NewBadgerStorage(config *Config) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(config.Path)
	opts.SyncWrites = config.SyncWrites
	if config.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = config.ValueLogFileSize
	}
	if config.NumVersionsToKeep > 0 {
		opts.NumVersionsToKeep = config.NumVersionsToKeep
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &storage.StorageUnavailableError{Cause: err}
	}

	lifetime := config.LockLifetime
	if lifetime <= 0 {
		lifetime = storage.DefaultLockLifetime
	}

	return &BadgerStorage{db: db, lifetime: lifetime}, nil
}

func nodeKey(path string) []byte  { return []byte(fmt.Sprintf("node:%s", path)) }
func lockKey(path string) []byte  { return []byte(fmt.Sprintf("lock:%s", path)) }
func sessionKey(id string) []byte { return []byte(fmt.Sprintf("session:%s", id)) }
func counterKey(shard int) []byte { return []byte(fmt.Sprintf("counter:%d", shard)) }

func serialize(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &storage.SerializationError{Operation: "marshal", Cause: err}
	}
	return data, nil
}

func deserialize(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &storage.SerializationError{Operation: "unmarshal", Cause: err}
	}
	return nil
}

// lockRecord is the on-disk shape of a path's lease.
type lockRecord struct {
	LockedUntilUnixNano int64 `json:"locked_until_unix_nano"`
}

// LockLifetime implements storage.SystemStorage.
func (b *BadgerStorage) LockLifetime() time.Duration {
	return b.lifetime
}

// LockNode implements storage.SystemStorage.
func (b *BadgerStorage) LockNode(ctx context.Context, path string, timestamp time.Time) (bool, *model.Node, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}

	var acquired bool
	var node *model.Node

	// Badger's transaction commit can fail with ErrConflict when two
	// callers race on the same lock key; that's not a real lock refusal,
	// so retry the whole read-modify-write rather than surface it.
	for attempt := 0; attempt < 10; attempt++ {
		acquired = false
		node = nil

		err := b.db.Update(func(txn *badger.Txn) error {
			var rec lockRecord
			item, err := txn.Get(lockKey(path))
			switch {
			case err == nil:
				if ierr := item.Value(func(val []byte) error { return deserialize(val, &rec) }); ierr != nil {
					return ierr
				}
				if timestamp.UnixNano() < rec.LockedUntilUnixNano {
					return nil
				}
			case err == badger.ErrKeyNotFound:
				// no lease exists yet
			default:
				return err
			}

			rec.LockedUntilUnixNano = timestamp.Add(b.lifetime).UnixNano()
			data, err := serialize(rec)
			if err != nil {
				return err
			}
			if err := txn.Set(lockKey(path), data); err != nil {
				return err
			}
			acquired = true

			nodeItem, err := txn.Get(nodeKey(path))
			if err == badger.ErrKeyNotFound {
				return nil
			}
			if err != nil {
				return err
			}
			var n model.Node
			if ierr := nodeItem.Value(func(val []byte) error { return deserialize(val, &n) }); ierr != nil {
				return ierr
			}
			node = &n
			return nil
		})
		if err == badger.ErrConflict {
			continue
		}
		if err != nil {
			return false, nil, err
		}
		return acquired, node, nil
	}
	return false, nil, ctx.Err()
}

// UnlockNode implements storage.SystemStorage.
func (b *BadgerStorage) UnlockNode(ctx context.Context, path string, timestamp time.Time) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var rec lockRecord
		item, err := txn.Get(lockKey(path))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if ierr := item.Value(func(val []byte) error { return deserialize(val, &rec) }); ierr != nil {
			return ierr
		}
		if rec.LockedUntilUnixNano != timestamp.Add(b.lifetime).UnixNano() {
			// lease was stolen by another writer; leave it alone
			return nil
		}
		return txn.Delete(lockKey(path))
	})
}

// CommitNode implements storage.SystemStorage.
func (b *BadgerStorage) CommitNode(ctx context.Context, node *model.Node, timestamp time.Time, attrs model.AttributeSet) (bool, error) {
	var committed bool

	err := b.db.Update(func(txn *badger.Txn) error {
		committed = false

		var rec lockRecord
		item, err := txn.Get(lockKey(node.Path))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if ierr := item.Value(func(val []byte) error { return deserialize(val, &rec) }); ierr != nil {
			return ierr
		}
		if rec.LockedUntilUnixNano != timestamp.Add(b.lifetime).UnixNano() {
			return nil
		}

		current := model.NewNode(node.Path)
		if nodeItem, err := txn.Get(nodeKey(node.Path)); err == nil {
			if ierr := nodeItem.Value(func(val []byte) error { return deserialize(val, current) }); ierr != nil {
				return ierr
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		merged := current.Clone()
		merged.Path = node.Path
		if attrs.Has(model.AttrCreated) {
			merged.Created = node.Created
		}
		if attrs.Has(model.AttrModified) {
			merged.Modified = node.Modified
		}
		if attrs.Has(model.AttrChildren) {
			children := make([]string, len(node.Children))
			copy(children, node.Children)
			merged.Children = children
		}
		if attrs.Has(model.AttrData) {
			merged.DataB64 = node.DataB64
		}

		data, err := serialize(merged)
		if err != nil {
			return err
		}
		if err := txn.Set(nodeKey(node.Path), data); err != nil {
			return err
		}
		committed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return committed, nil
}

// DeleteNode implements storage.SystemStorage.
func (b *BadgerStorage) DeleteNode(ctx context.Context, node *model.Node, timestamp time.Time) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(nodeKey(node.Path)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
}

// IncreaseSystemCounter implements storage.SystemStorage.
func (b *BadgerStorage) IncreaseSystemCounter(ctx context.Context, shard int) (int64, error) {
	var value int64

	err := b.db.Update(func(txn *badger.Txn) error {
		var current int64
		item, err := txn.Get(counterKey(shard))
		switch {
		case err == nil:
			if ierr := item.Value(func(val []byte) error {
				current = int64(binary.BigEndian.Uint64(val))
				return nil
			}); ierr != nil {
				return ierr
			}
		case err == badger.ErrKeyNotFound:
			current = 0
		default:
			return err
		}

		current++
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(current))
		if err := txn.Set(counterKey(shard), buf); err != nil {
			return err
		}
		value = current
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// DeleteUser implements storage.SystemStorage.
func (b *BadgerStorage) DeleteUser(ctx context.Context, sessionID string) (bool, error) {
	var existed bool

	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(sessionKey(sessionID))
		if err == badger.ErrKeyNotFound {
			existed = false
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		return txn.Delete(sessionKey(sessionID))
	})
	if err != nil {
		return false, err
	}
	return existed, nil
}

// TouchSession implements storage.SystemStorage.
func (b *BadgerStorage) TouchSession(ctx context.Context, sessionID string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(sessionID), []byte{})
	})
}

// Close implements storage.SystemStorage. It runs a final value-log GC pass
// before closing the database.
func (b *BadgerStorage) Close() error {
	if err := b.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
		// best-effort; a failed GC pass doesn't block shutdown
	}
	return b.db.Close()
}

package statestore

import (
	"errors"
	"fmt"
	"strconv"

	"time"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Badger is the durable Store implementation backed by an embedded badger
// database. All import runs on a host share one directory, which is what
// keeps concurrent runs inside a source's external rate limit.
type Badger struct {
	db *badger.DB
}

// NewBadger opens (or creates) the store at dir.
func NewBadger(dir string, logger *zap.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	if logger != nil {
		logger.Debug("opening state store", zap.String("dir", dir))
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

// Get implements Store.
func (b *Badger) Get(key string) ([]byte, bool, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get %q: %w", key, err)
	}
	return out, true, nil
}

// Set implements Store.
func (b *Badger) Set(key string, value []byte, ttl time.Duration) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger set %q: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (b *Badger) Delete(key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("badger delete %q: %w", key, err)
	}
	return nil
}

// IncrBy implements Store. The read-modify-write runs inside one badger
// transaction; on write conflict with a concurrent run it retries.
func (b *Badger) IncrBy(key string, delta int64, ttl time.Duration) (int64, error) {
	for {
		var next int64
		err := b.db.Update(func(txn *badger.Txn) error {
			var current int64
			var remaining time.Duration
			item, err := txn.Get([]byte(key))
			switch {
			case err == nil:
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				if parsed, perr := strconv.ParseInt(string(val), 10, 64); perr == nil {
					current = parsed
				}
				if exp := item.ExpiresAt(); exp > 0 {
					remaining = time.Until(time.Unix(int64(exp), 0))
				}
			case errors.Is(err, badger.ErrKeyNotFound):
				remaining = ttl
			default:
				return err
			}
			next = current + delta
			entry := badger.NewEntry([]byte(key), []byte(strconv.FormatInt(next, 10)))
			if remaining > 0 {
				entry = entry.WithTTL(remaining)
			}
			return txn.SetEntry(entry)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("badger incr %q: %w", key, err)
		}
		return next, nil
	}
}

// Close implements Store.
func (b *Badger) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/jonwraymond/foldops/observe"
)

// BadgerConfig configures a BadgerDB-backed cache.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory keeps the database entirely in RAM.
	InMemory bool

	// SyncWrites fsyncs each write. Off by default; a lost cache entry is recomputed.
	SyncWrites bool

	// Logger receives BadgerDB's internal log lines. Nil disables them.
	Logger observe.Logger
}

// BadgerCache stores entries in a private BadgerDB instance.
//
// One BadgerCache must back exactly one engine; Reset drops the whole database.
type BadgerCache struct {
	db *badger.DB

	mu     sync.RWMutex
	closed bool
}

// NewBadgerCache opens a BadgerDB instance with the given configuration.
func NewBadgerCache(cfg BadgerConfig) (*BadgerCache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("cache: badger path is required for persistent storage")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("cache: create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open badger: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

// Get retrieves a stored value. Returns (nil, false) on miss or on any storage error.
func (c *BadgerCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, false
	}

	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false
	}
	if value == nil {
		value = []byte{}
	}
	return value, true
}

// Put stores value under key, overwriting any previous entry.
func (c *BadgerCache) Put(_ context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}

	v := clone(value)
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), v)
	})
}

// Reset drops every entry in the database.
func (c *BadgerCache) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.db.DropAll(); err != nil {
		return fmt.Errorf("cache: badger drop all: %w", err)
	}
	return nil
}

// Len counts the stored entries.
func (c *BadgerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0
	}

	n := 0
	_ = c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n
}

// Close releases the database. Further calls behave as an empty, read-only cache.
func (c *BadgerCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

// badgerLogger adapts observe.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger observe.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(context.Background(), fmt.Sprintf(format, args...), observe.Field{Key: "component", Value: "badger"})
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(context.Background(), fmt.Sprintf(format, args...), observe.Field{Key: "component", Value: "badger"})
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(context.Background(), fmt.Sprintf(format, args...), observe.Field{Key: "component", Value: "badger"})
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(context.Background(), fmt.Sprintf(format, args...), observe.Field{Key: "component", Value: "badger"})
}

// Ensure BadgerCache implements Cache
var _ Cache = (*BadgerCache)(nil)

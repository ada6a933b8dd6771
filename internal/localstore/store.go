// Package localstore is the small key-value store the session engine uses for
// state that must survive a process restart but never reaches the durable
// database: recovery snapshots and per-routine temporary exercises.
package localstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("localstore: key not found")

// Store is a scoped key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Options selects and configures a Store driver.
type Options struct {
	Driver    string // sqlite, redis or memory
	Path      string // sqlite directory
	RedisAddr string
	RedisDB   int
}

// Open returns the Store for the configured driver.
func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case "", "sqlite":
		return OpenSQLite(opts.Path)
	case "redis":
		return NewRedis(opts.RedisAddr, opts.RedisDB), nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown local store driver %q", opts.Driver)
	}
}

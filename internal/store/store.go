// Package store persists editor documents and preference scalars.
package store

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rbright/livetune/internal/config"
)

// Keys used by the structured document editor.
const (
	KeyDocument  = "chatUpdate"
	KeyReplyMode = "replyMode"
)

// Store is durable string key/value storage. Writers race last-write-wins.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
}

// Handle is an opened store plus its release hook.
type Handle struct {
	Store
	io.Closer
	// Location describes where values live, for diagnostics.
	Location string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the configured backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Handle, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return Handle{Store: NewMemory(), Closer: nopCloser{}, Location: "memory"}, nil
	case config.BackendFile, "":
		path, err := resolveFilePath(cfg.Path)
		if err != nil {
			return Handle{}, err
		}
		return Handle{Store: NewFile(path), Closer: nopCloser{}, Location: path}, nil
	case config.BackendRedis:
		r, err := DialRedis(ctx, RedisOptions{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			KeyPrefix:   cfg.Redis.KeyPrefix,
			DialTimeout: time.Duration(cfg.Redis.DialTimeoutMS) * time.Millisecond,
		})
		if err != nil {
			return Handle{}, err
		}
		return Handle{Store: r, Closer: r, Location: "redis://" + cfg.Redis.Addr}, nil
	default:
		return Handle{}, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}

func resolveFilePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	dir, err := config.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "store.json"), nil
}

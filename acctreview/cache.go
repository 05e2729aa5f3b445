package acctreview

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"
)

// BlobStore is a key/value store for raw payloads. Get returns ErrNotFound
// when the key has no object.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
}

// PrefixRemover is implemented by stores that can drop every key under a prefix.
type PrefixRemover interface {
	RemovePrefix(ctx context.Context, prefix string) error
}

// Fetcher retrieves the raw payload of one reporting period for an account.
// Implementations return *AccountError when the account is unknown to the
// source and *FetchError for transport or API failures.
type Fetcher interface {
	Fetch(ctx context.Context, account string, date time.Time) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, account string, date time.Time) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, account string, date time.Time) ([]byte, error) {
	return f(ctx, account, date)
}

// CacheKey returns the key of a source's cached payload. Payloads are cached
// per calendar month of date.
func CacheKey(account string, date time.Time, source string) string {
	return path.Join(account, date.Format("2006-01"), source+".json")
}

// Cache decides whether a payload is served from the local cache, the remote
// cache, or a fresh fetch.
type Cache struct {
	local  BlobStore
	remote BlobStore

	// Logger receives progress messages. Nil disables logging.
	Logger func(format string, args ...any)
}

// NewCache creates a Cache over a local store and an optional remote store.
func NewCache(local, remote BlobStore) *Cache {
	return &Cache{local: local, remote: remote}
}

func (c *Cache) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger(format, args...)
	}
}

// Resolve returns the payload for source, account and the month of date.
// Unless expire is set, a local entry is returned as is and a remote entry is
// copied into the local cache. Otherwise, or when neither cache holds the key,
// fetcher is called and its payload written to both caches. Fetcher errors are
// returned unchanged.
func (c *Cache) Resolve(ctx context.Context, fetcher Fetcher, source, account string, date time.Time, expire bool) ([]byte, error) {
	key := CacheKey(account, date, source)

	if !expire {
		exists, err := c.local.Exists(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("check local cache %s: %w", key, err)
		}
		if exists {
			c.logf("cache: local hit %s", key)
			return c.local.Get(ctx, key)
		}

		if c.remote != nil {
			data, err := c.remote.Get(ctx, key)
			switch {
			case err == nil:
				c.logf("cache: remote hit %s", key)
				if err := c.local.Put(ctx, key, data); err != nil {
					return nil, fmt.Errorf("write local cache %s: %w", key, err)
				}
				return data, nil
			case errors.Is(err, ErrNotFound):
				c.logf("cache: remote miss %s", key)
			default:
				c.logf("cache: remote read %s failed, fetching: %v", key, err)
			}
		}
	}

	c.logf("cache: fetching %s", key)
	data, err := fetcher.Fetch(ctx, account, date)
	if err != nil {
		return nil, err
	}

	if err := c.local.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("write local cache %s: %w", key, err)
	}
	if c.remote != nil {
		if err := c.remote.Put(ctx, key, data); err != nil {
			c.logf("cache: remote write %s failed: %v", key, err)
		}
	}
	return data, nil
}

// Invalidate drops the local entries of every source for an account's month.
func (c *Cache) Invalidate(ctx context.Context, account string, date time.Time) error {
	remover, ok := c.local.(PrefixRemover)
	if !ok {
		return fmt.Errorf("local cache does not support invalidation")
	}
	return remover.RemovePrefix(ctx, path.Join(account, date.Format("2006-01")))
}

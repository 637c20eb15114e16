package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// ErrNotStored is returned when the cache drops or refuses a write.
var ErrNotStored = errors.New("value was not stored")

// RistrettoStorage implements fiber.Storage on top of a Ristretto cache. It
// backs the auth rate limiter and the revoked token list.
type RistrettoStorage struct {
	cache *ristretto.Cache[string, []byte]
}

// NewRistrettoStorage wraps an existing cache.
func NewRistrettoStorage(cache *ristretto.Cache[string, []byte]) *RistrettoStorage {
	return &RistrettoStorage{cache: cache}
}

// NewDefaultRistrettoStorage builds a small dedicated cache.
func NewDefaultRistrettoStorage() (*RistrettoStorage, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e5,
		MaxCost:     16 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return NewRistrettoStorage(cache), nil
}

// Get returns nil without an error for missing keys, as fiber.Storage requires.
func (r *RistrettoStorage) Get(key string) ([]byte, error) {
	if value, found := r.cache.Get(key); found {
		return value, nil
	}
	return nil, nil
}

// Set blocks until the write is applied so the next Get observes it. Writes
// dropped from a full set buffer or rejected by admission return ErrNotStored.
func (r *RistrettoStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" {
		return nil
	}
	if !r.cache.SetWithTTL(key, val, int64(len(val))+1, exp) {
		return fmt.Errorf("%w: %s", ErrNotStored, key)
	}
	r.cache.Wait()

	if _, found := r.cache.Get(key); !found {
		return fmt.Errorf("%w: %s", ErrNotStored, key)
	}
	return nil
}

func (r *RistrettoStorage) Delete(key string) error {
	r.cache.Del(key)
	r.cache.Wait()
	return nil
}

func (r *RistrettoStorage) Reset() error {
	r.cache.Clear()
	return nil
}

func (r *RistrettoStorage) Close() error {
	r.cache.Close()
	return nil
}

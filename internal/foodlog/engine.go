// Package foodlog keeps the daily food log, its rolling rollups, category
// favorites, and the refined-carb clean streak on top of a string-keyed store.
package foodlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
)

// Store keys. These and the JSON shapes stored under them are durable.
const (
	KeyFoodMap      = "foodMap"
	KeyReverseMap   = "foodReverseMap"
	KeyEntries      = "foodEntries"
	KeyLastCarbDate = "lastCarbDate"
)

// engineKeys is also the lock order for operations touching several keys.
var engineKeys = []string{KeyFoodMap, KeyReverseMap, KeyEntries, KeyLastCarbDate}

var (
	ErrCorruptState    = errors.New("corrupt stored document")
	ErrInvalidDate     = errors.New("invalid date")
	ErrUnknownCategory = errors.New("unknown category")
	ErrFoodExists      = errors.New("food already in catalog")
	ErrEmptyName       = errors.New("food name is required")
)

// CorruptStateError reports a stored document that could not be decoded.
type CorruptStateError struct {
	Key string
	Err error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCorruptState, e.Key, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

func (e *CorruptStateError) Is(target error) bool { return target == ErrCorruptState }

// KV is the persistent store the engine reads and writes.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context) error
}

// Engine owns the food log documents in a KV store. Mutations of one key are
// serialized, so concurrent writers to the same document do not lose updates.
type Engine struct {
	kv     KV
	seed   Catalog
	logger *slog.Logger

	randMu sync.Mutex
	rand   *rand.Rand

	locks keyedMutex
}

type Option func(*Engine)

// WithSeedCatalog replaces the catalog written on first launch.
func WithSeedCatalog(c Catalog) Option {
	return func(e *Engine) { e.seed = c }
}

// WithRand makes favorites sampling draw from r.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rand = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func New(kv KV, opts ...Option) *Engine {
	e := &Engine{
		kv:     kv,
		seed:   SeedCatalog(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize writes the seed catalog, its reverse index, and an empty entry
// log for whichever of those keys are absent. Calling it again writes nothing.
func (e *Engine) Initialize(ctx context.Context) error {
	unlock := e.locks.lock(engineKeys...)
	defer unlock()
	return e.seedAbsent(ctx)
}

// Reset clears the whole store, including account records, and seeds it again.
func (e *Engine) Reset(ctx context.Context) error {
	unlock := e.locks.lock(engineKeys...)
	defer unlock()

	if err := e.kv.Clear(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return e.seedAbsent(ctx)
}

func (e *Engine) seedAbsent(ctx context.Context) error {
	seeds := []struct {
		key string
		val any
	}{
		{KeyFoodMap, e.seed},
		{KeyReverseMap, e.seed.ReverseIndex()},
		{KeyEntries, Entries{}},
	}
	for _, s := range seeds {
		_, ok, err := e.kv.Get(ctx, s.key)
		if err != nil {
			return fmt.Errorf("initialize %s: %w", s.key, err)
		}
		if ok {
			continue
		}
		if err := e.save(ctx, s.key, s.val); err != nil {
			return fmt.Errorf("initialize %s: %w", s.key, err)
		}
		e.logger.Debug("seeded", "key", s.key)
	}
	return nil
}

// load decodes the document at key into v. ok is false when the key is absent.
func (e *Engine) load(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := e.kv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		e.logger.Warn("corrupt stored document", "key", key, "error", err)
		return false, &CorruptStateError{Key: key, Err: err}
	}
	return true, nil
}

func (e *Engine) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return e.kv.Set(ctx, key, string(data))
}

// keyedMutex hands out one mutex per store key.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

// lock acquires the mutexes for keys in the order given and returns a func
// releasing them. Callers pass keys in engineKeys order.
func (k *keyedMutex) lock(keys ...string) func() {
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[string]*sync.Mutex)
	}
	held := make([]*sync.Mutex, 0, len(keys))
	for _, key := range keys {
		m, ok := k.m[key]
		if !ok {
			m = &sync.Mutex{}
			k.m[key] = m
		}
		held = append(held, m)
	}
	k.mu.Unlock()

	for _, m := range held {
		m.Lock()
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

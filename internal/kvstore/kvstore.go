package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/faideww/catchlog/internal/clock"
	"github.com/faideww/catchlog/internal/logging"
	"github.com/faideww/catchlog/internal/store"
)

const (
	Prefix  = "mm_fishing_demo_"
	Version = "1.0.0"
	MaxAge  = 7 * 24 * time.Hour
)

var (
	ErrStorageFailed = errors.New("storage operation failed")
	ErrSensitiveKey  = errors.New("refusing to store sensitive key")

	ErrNotFound        = errors.New("item not found")
	ErrExpired         = errors.New("item expired")
	ErrVersionMismatch = errors.New("item written by another storage version")
	ErrCorrupt         = errors.New("item is corrupt")
)

var sensitiveMarkers = []string{"password", "secret", "token"}

// IsSensitive reports whether a key looks like it would hold a credential.
func IsSensitive(key string) bool {
	for _, m := range sensitiveMarkers {
		if strings.Contains(key, m) {
			return true
		}
	}
	return false
}

type envelope struct {
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp"`
	Version   string          `json:"version"`
}

// KV namespaces, versions, timestamps and sanitizes values on top of a
// raw store.Store.
type KV struct {
	st    store.Store
	clock clock.Clock
	log   *log.Logger
}

func New(st store.Store, clk clock.Clock, logger *log.Logger) *KV {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &KV{st: st, clock: clk, log: logger}
}

func (kv *KV) Set(ctx context.Context, key string, value any) error {
	if IsSensitive(key) {
		kv.log.Warn("blocked attempt to store sensitive data", "item", key)
		return ErrSensitiveKey
	}

	raw, err := json.Marshal(value)
	if err != nil {
		kv.log.Error("failed to encode item", "item", key, "err", err)
		return fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}
	clean, err := json.Marshal(Sanitize(tree))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}

	payload, err := json.Marshal(envelope{
		Value:     clean,
		Timestamp: kv.clock.Now().UnixMilli(),
		Version:   Version,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}

	if err := kv.st.Set(ctx, Prefix+key, string(payload)); err != nil {
		kv.log.Error("failed to store item", "item", key, "err", err)
		return fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}
	return nil
}

// Get decodes the stored value for key into dst. It reports false when
// the item is absent, written by another version, older than MaxAge or
// unreadable; the last three also remove the item.
func (kv *KV) Get(ctx context.Context, key string, dst any) bool {
	return kv.Lookup(ctx, key, dst) == nil
}

// Lookup is Get with the reason for a miss: ErrNotFound, ErrExpired,
// ErrVersionMismatch, ErrCorrupt, or the store's read error.
func (kv *KV) Lookup(ctx context.Context, key string, dst any) error {
	raw, ok, err := kv.st.Get(ctx, Prefix+key)
	if err != nil {
		kv.log.Error("failed to read item", "item", key, "err", err)
		return err
	}
	if !ok || raw == "" {
		return ErrNotFound
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		kv.log.Warn("corrupt item, clearing", "item", key, "err", err)
		kv.Remove(ctx, key)
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if env.Version != Version {
		kv.log.Warn("storage version mismatch, clearing item", "item", key, "version", env.Version)
		kv.Remove(ctx, key)
		return ErrVersionMismatch
	}
	age := kv.clock.Now().Sub(time.UnixMilli(env.Timestamp))
	if age > MaxAge {
		kv.log.Warn("stored data too old, clearing item", "item", key, "age", age.Round(time.Second))
		kv.Remove(ctx, key)
		return ErrExpired
	}
	if len(env.Value) == 0 || bytes.Equal(env.Value, []byte("null")) {
		return ErrNotFound
	}
	if dst != nil {
		if err := json.Unmarshal(env.Value, dst); err != nil {
			kv.log.Warn("item does not decode, clearing", "item", key, "err", err)
			kv.Remove(ctx, key)
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	}
	return nil
}

func (kv *KV) Remove(ctx context.Context, key string) {
	if err := kv.st.Delete(ctx, Prefix+key); err != nil {
		kv.log.Error("failed to remove item", "item", key, "err", err)
	}
}

// Clear removes every namespaced item and leaves foreign keys alone.
func (kv *KV) Clear(ctx context.Context) {
	keys, err := kv.st.Keys(ctx)
	if err != nil {
		kv.log.Error("failed to list items", "err", err)
		return
	}
	for _, k := range keys {
		if strings.HasPrefix(k, Prefix) {
			if err := kv.st.Delete(ctx, k); err != nil {
				kv.log.Error("failed to remove item", "item", k, "err", err)
			}
		}
	}
}

// RawKeys lists every key in the underlying store, namespaced or not.
func (kv *KV) RawKeys(ctx context.Context) ([]string, error) {
	return kv.st.Keys(ctx)
}

func (kv *KV) RemoveRaw(ctx context.Context, rawKey string) error {
	return kv.st.Delete(ctx, rawKey)
}

package achievement

import (
	"context"
	"time"

	"github.com/faideww/catchlog/internal/fish"
	"github.com/faideww/catchlog/internal/kvstore"
)

const (
	KeyPersonalBests = "personal_bests"
	KeyCatchHistory  = "catch_history"
)

// LoadPersonalBests returns the stored ledger, or the default one when
// nothing usable is stored.
func LoadPersonalBests(ctx context.Context, kv *kvstore.KV, now time.Time) []PersonalBest {
	var bests []PersonalBest
	if kv.Get(ctx, KeyPersonalBests, &bests) && len(bests) > 0 {
		return bests
	}
	return DefaultPersonalBests(now)
}

func LoadCatchHistory(ctx context.Context, kv *kvstore.KV) []fish.CatchRecord {
	var history []fish.CatchRecord
	if kv.Get(ctx, KeyCatchHistory, &history) {
		return history
	}
	return []fish.CatchRecord{}
}

// SavePersonalBests is a no-op for an empty ledger.
func SavePersonalBests(ctx context.Context, kv *kvstore.KV, bests []PersonalBest) error {
	if len(bests) == 0 {
		return nil
	}
	return kv.Set(ctx, KeyPersonalBests, bests)
}

// SaveCatchHistory is a no-op for an empty history.
func SaveCatchHistory(ctx context.Context, kv *kvstore.KV, history []fish.CatchRecord) error {
	if len(history) == 0 {
		return nil
	}
	return kv.Set(ctx, KeyCatchHistory, history)
}

package userdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/faideww/catchlog/internal/achievement"
	"github.com/faideww/catchlog/internal/clock"
	"github.com/faideww/catchlog/internal/fish"
	"github.com/faideww/catchlog/internal/kvstore"
	"github.com/faideww/catchlog/internal/logging"
)

const (
	StorageKey     = "user_data"
	PreferencesKey = "preferences"

	SaveDelay    = time.Second
	writeTimeout = 5 * time.Second
)

var (
	ErrLoadFailed = errors.New("failed to load user data, using defaults")
	ErrNotFound   = errors.New("not found")
)

type State int

const (
	StateClean State = iota
	StateDirty
	StateWriting
)

func (s State) String() string {
	switch s {
	case StateDirty:
		return "dirty"
	case StateWriting:
		return "writing"
	default:
		return "clean"
	}
}

// Repository owns the user's aggregate. Every mutation goes through it;
// persistence is debounced so a burst of updates produces one write of
// the latest state.
type Repository struct {
	kv    *kvstore.KV
	clock clock.Clock
	log   *log.Logger

	mu          sync.Mutex
	data        UserData
	state       State
	scheduledAt time.Time
	timer       clock.Timer
	gen         uint64

	// serializes writes so Flush waits for an in-flight debounce write
	writeMu sync.Mutex
}

func NewRepository(kv *kvstore.KV, clk clock.Clock, logger *log.Logger) *Repository {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Repository{
		kv:    kv,
		clock: clk,
		log:   logger,
		data:  Default(clk.Now()),
	}
}

// Load merges the persisted aggregate over the defaults. When the stored
// blob is unusable the defaults are kept and ErrLoadFailed is returned;
// the repository stays usable either way.
func (r *Repository) Load(ctx context.Context) error {
	now := r.clock.Now()
	loaded := Default(now)
	err := r.kv.Lookup(ctx, StorageKey, &loaded)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked()
	r.state = StateClean
	r.gen++

	switch {
	case err == nil:
		loaded.normalize(newID)
		r.data = loaded
		r.log.Info("user data loaded", "catches", len(loaded.Catches), "lures", len(loaded.Lures))
		return nil
	case errors.Is(err, kvstore.ErrNotFound):
		r.data = Default(now)
		return nil
	default:
		r.data = Default(now)
		r.log.Warn("failed to load user data, using defaults", "err", err)
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
}

// Data returns a copy of the current aggregate.
func (r *Repository) Data() UserData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.Clone()
}

func (r *Repository) Status() (State, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.scheduledAt
}

// Update replaces the top-level fields present in p and schedules a
// save. It returns the merged aggregate.
func (r *Repository) Update(p Patch) UserData {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.apply(p)
	r.data.normalize(newID)
	r.markDirtyLocked()
	return r.data.Clone()
}

func (r *Repository) markDirtyLocked() {
	r.gen++
	r.state = StateDirty
	r.stopTimerLocked()
	if !r.data.Preferences.AutoSave {
		r.scheduledAt = time.Time{}
		return
	}
	r.scheduledAt = r.clock.Now().Add(SaveDelay)
	r.timer = r.clock.AfterFunc(SaveDelay, r.debouncedSave)
}

func (r *Repository) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Repository) debouncedSave() {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_ = r.write(ctx)
}

// Flush writes pending changes now, bypassing the debounce delay and
// the autosave preference. It is a no-op when nothing is pending.
func (r *Repository) Flush(ctx context.Context) error {
	r.mu.Lock()
	r.stopTimerLocked()
	r.mu.Unlock()
	return r.write(ctx)
}

// Save writes the current aggregate unconditionally.
func (r *Repository) Save(ctx context.Context) error {
	r.mu.Lock()
	r.stopTimerLocked()
	if r.state == StateClean {
		r.state = StateDirty
	}
	r.mu.Unlock()
	return r.write(ctx)
}

func (r *Repository) write(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	if r.state != StateDirty {
		r.mu.Unlock()
		return nil
	}
	snapshot := r.data.Clone()
	gen := r.gen
	r.state = StateWriting
	r.mu.Unlock()

	err := r.kv.Set(ctx, StorageKey, snapshot)
	if err == nil {
		err = r.kv.Set(ctx, PreferencesKey, snapshot.Preferences)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		// stays dirty; the next update or Flush retries
		if r.state == StateWriting {
			r.state = StateDirty
		}
		r.log.Warn("failed to save user data, changes may be lost", "err", err)
		return err
	}
	if r.gen == gen {
		r.state = StateClean
		r.scheduledAt = time.Time{}
	}
	r.log.Debug("user data saved", "catches", len(snapshot.Catches))
	return nil
}

// Close flushes pending changes and stops the debounce timer.
func (r *Repository) Close(ctx context.Context) error {
	return r.Flush(ctx)
}

// Export writes the aggregate as indented JSON.
func (r *Repository) Export(w io.Writer) error {
	data := r.Data()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Clear resets the aggregate to defaults and wipes every namespaced
// item from storage.
func (r *Repository) Clear(ctx context.Context) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	r.stopTimerLocked()
	r.data = Default(r.clock.Now())
	r.state = StateClean
	r.scheduledAt = time.Time{}
	r.gen++
	r.mu.Unlock()

	r.kv.Clear(ctx)
	r.log.Info("all user data cleared")
}

// AddCatch prepends a manually logged catch and credits the profile.
// Missing id and date are filled in.
func (r *Repository) AddCatch(c fish.CatchRecord) fish.CatchRecord {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Date.IsZero() {
		c.Date = r.clock.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.Catches = append([]fish.CatchRecord{c}, r.data.Catches...)
	r.data.Profile.TotalCatches++
	r.data.Profile.Experience += 10
	r.markDirtyLocked()
	return c
}

// AddLure adds a lure with fresh statistics.
func (r *Repository) AddLure(l fish.Lure) fish.Lure {
	l.ID = newID()
	l.Catches = []fish.LureCatch{}
	l.TotalCatches = 0
	l.TimesUsed = 0

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.Lures = append(r.data.Lures, l)
	r.markDirtyLocked()
	return l.Clone()
}

func (r *Repository) Lure(id string) (fish.Lure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.data.Lures {
		if l.ID == id {
			return l.Clone(), true
		}
	}
	return fish.Lure{}, false
}

// RecordLureCatch credits one catch of species to the lure.
func (r *Repository) RecordLureCatch(lureID, species string) (fish.Lure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.data.Lures {
		if r.data.Lures[i].ID == lureID {
			r.data.Lures[i].RecordCatch(species, r.clock.Now())
			r.markDirtyLocked()
			return r.data.Lures[i].Clone(), nil
		}
	}
	return fish.Lure{}, fmt.Errorf("lure %q: %w", lureID, ErrNotFound)
}

// SetCatchLure records which lure landed a catch.
func (r *Repository) SetCatchLure(catchID, lureID, lureName string) (fish.CatchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.data.Catches {
		if r.data.Catches[i].ID == catchID {
			r.data.Catches[i].LureID = lureID
			r.data.Catches[i].LureUsed = lureName
			r.markDirtyLocked()
			return r.data.Catches[i], nil
		}
	}
	return fish.CatchRecord{}, fmt.Errorf("catch %q: %w", catchID, ErrNotFound)
}

// MirrorCatch prepends a catch saved elsewhere without touching the
// profile counters.
func (r *Repository) MirrorCatch(c fish.CatchRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.Catches = append([]fish.CatchRecord{c}, r.data.Catches...)
	r.markDirtyLocked()
}

// UpdatePersonalBest replaces the record of the same type, or appends it.
func (r *Repository) UpdatePersonalBest(pb achievement.PersonalBest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bests := append([]achievement.PersonalBest(nil), r.data.PersonalBests...)
	replaced := false
	for i := range bests {
		if bests[i].Type == pb.Type {
			bests[i] = pb
			replaced = true
			break
		}
	}
	if !replaced {
		bests = append(bests, pb)
	}
	r.data.PersonalBests = bests
	r.markDirtyLocked()
}

func newID() string { return uuid.NewString() }

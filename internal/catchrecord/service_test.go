package catchrecord

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/faideww/catchlog/internal/achievement"
	"github.com/faideww/catchlog/internal/clock"
	"github.com/faideww/catchlog/internal/fish"
	"github.com/faideww/catchlog/internal/geo"
	"github.com/faideww/catchlog/internal/identify"
	"github.com/faideww/catchlog/internal/kvstore"
	"github.com/faideww/catchlog/internal/notify"
	"github.com/faideww/catchlog/internal/store"
	"github.com/faideww/catchlog/internal/userdata"
)

type recordSink struct{ got []notify.Toast }

func (r *recordSink) Notify(_ context.Context, t notify.Toast) { r.got = append(r.got, t) }

// stallSink blocks its first delivery until release is closed.
type stallSink struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *stallSink) Notify(context.Context, notify.Toast) {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
}

type fixture struct {
	svc  *Service
	kv   *kvstore.KV
	st   *store.MemoryStore
	clk  *clock.Fake
	repo *userdata.Repository
	sink *recordSink
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st := store.NewMemoryStore(0)
	clk := clock.NewFake(time.Date(2026, 7, 4, 8, 0, 0, 0, time.UTC))
	kv := kvstore.New(st, clk, nil)
	repo := userdata.NewRepository(kv, clk, nil)
	sink := &recordSink{}
	engine := achievement.NewEngine(fish.MustDefaultRegistry(), clk)
	opts = append([]Option{WithLedger(repo), WithNotifier(sink), WithRegistry(fish.MustDefaultRegistry())}, opts...)
	return &fixture{
		svc:  NewService(kv, engine, clk, nil, opts...),
		kv:   kv,
		st:   st,
		clk:  clk,
		repo: repo,
		sink: sink,
	}
}

func fishResult(species, size, weight string) *identify.FishResult {
	return &identify.FishResult{Species: species, Size: size, Weight: weight, Confidence: 92, Rarity: "common"}
}

func TestParseWeight(t *testing.T) {
	t.Parallel()
	cases := map[string]float64{
		"1.5 lbs":  1.5,
		"8 oz":     0.5,
		"12.0 oz":  0.75,
		"3 lbs":    3,
		"Unknown":  0,
		"":         0,
		"approx 2": 2,
	}
	for in, want := range cases {
		if got := ParseWeight(in); math.Abs(got-want) > 1e-9 {
			t.Fatalf("ParseWeight(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseSize(t *testing.T) {
	t.Parallel()
	cases := map[string]float64{
		"14.5":     14.5,
		"18.2 in":  18.2,
		" 7":       7,
		".5":       0.5,
		"Unknown":  0,
		"about 12": 0,
		"":         0,
	}
	for in, want := range cases {
		if got := ParseSize(in); got != want {
			t.Fatalf("ParseSize(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSaveCatchTracksLongestFish(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	loc := &geo.Location{Name: "Lake Simcoe"}

	first, err := f.svc.SaveCatch(ctx, SaveOptions{Fish: fishResult("Walleye", "14.5", "1.5 lbs"), Location: loc, Image: "data:image/jpeg;base64,AAA"})
	if err != nil {
		t.Fatalf("SaveCatch() error = %v", err)
	}
	if !first.Success || !first.IsNewRecord {
		t.Fatalf("first save = %+v", first)
	}
	rec := first.CatchRecord
	if rec.ID == "" || rec.Length != 14.5 || rec.Weight == nil || *rec.Weight != 1.5 || rec.Location != "Lake Simcoe" {
		t.Fatalf("record = %+v", rec)
	}
	if !rec.Date.Equal(f.clk.Now()) {
		t.Fatalf("date = %v", rec.Date)
	}
	if first.SizeClass == "" {
		t.Fatalf("walleye catch not graded")
	}

	f.clk.Advance(time.Hour)
	second, err := f.svc.SaveCatch(ctx, SaveOptions{Fish: fishResult("Walleye", "10", "8 oz"), Location: loc, Image: "img"})
	if err != nil {
		t.Fatalf("SaveCatch() error = %v", err)
	}
	if *second.CatchRecord.Weight != 0.5 {
		t.Fatalf("weight = %v, want 0.5", *second.CatchRecord.Weight)
	}
	longest, _ := achievement.Find(second.NewPersonalBests, achievement.LongestFish)
	if longest.Value != 14.5 {
		t.Fatalf("longest after 10 = %v, want 14.5", longest.Value)
	}
	// two fish today is still a new daily count
	if !second.IsNewRecord {
		t.Fatalf("expected most-fish record on second save")
	}

	f.clk.Advance(time.Hour)
	third, err := f.svc.SaveCatch(ctx, SaveOptions{Fish: fishResult("Northern Pike", "20", "3 lbs"), Location: loc, Image: "img"})
	if err != nil {
		t.Fatalf("SaveCatch() error = %v", err)
	}
	longest, _ = achievement.Find(third.NewPersonalBests, achievement.LongestFish)
	if longest.Value != 20 || longest.Species != "Northern Pike" || longest.Location != "Lake Simcoe" {
		t.Fatalf("longest = %+v", longest)
	}
	most, _ := achievement.Find(third.NewPersonalBests, achievement.MostFishDay)
	if most.Value != 3 {
		t.Fatalf("most fish = %v, want 3", most.Value)
	}
	species, _ := achievement.Find(third.NewPersonalBests, achievement.MostSpeciesDay)
	if species.Value != 2 {
		t.Fatalf("most species = %v, want 2", species.Value)
	}

	history := achievement.LoadCatchHistory(ctx, f.kv)
	if len(history) != 3 || history[0].Species != "Northern Pike" {
		t.Fatalf("history = %+v", history)
	}
	stored := achievement.LoadPersonalBests(ctx, f.kv, f.clk.Now())
	if l, _ := achievement.Find(stored, achievement.LongestFish); l.Value != 20 {
		t.Fatalf("stored longest = %v", l.Value)
	}

	if got := len(f.repo.Data().Catches); got != 3 {
		t.Fatalf("mirrored catches = %d, want 3", got)
	}
}

func TestSaveCatchNoRecordLeavesBestsUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.SaveCatch(ctx, SaveOptions{Fish: fishResult("Carp", "30", "8 lbs"), Image: "img"}); err != nil {
		t.Fatalf("SaveCatch() error = %v", err)
	}
	// next day, smaller fish: no record of any kind
	f.clk.Advance(24 * time.Hour)
	before, _, _ := f.st.Get(ctx, kvstore.Prefix+achievement.KeyPersonalBests)

	res, err := f.svc.SaveCatch(ctx, SaveOptions{Fish: fishResult("Carp", "12", "2 lbs"), Image: "img"})
	if err != nil {
		t.Fatalf("SaveCatch() error = %v", err)
	}
	if res.IsNewRecord {
		t.Fatalf("unexpected record: %+v", res.NewPersonalBests)
	}
	after, _, _ := f.st.Get(ctx, kvstore.Prefix+achievement.KeyPersonalBests)
	if before != after {
		t.Fatalf("personal bests rewritten without a record")
	}
	if res.CatchRecord.Location != "Unknown Location" {
		t.Fatalf("location = %q", res.CatchRecord.Location)
	}
}

func TestSaveCatchValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SaveCatch(ctx, SaveOptions{Image: "img"}); !errors.Is(err, ErrFishRequired) {
		t.Fatalf("missing fish error = %v", err)
	}
	if _, err := f.svc.SaveCatch(ctx, SaveOptions{Fish: fishResult("Perch", "8", "4 oz")}); !errors.Is(err, ErrImageRequired) {
		t.Fatalf("missing image error = %v", err)
	}
}

func TestSaveCatchStorageFailure(t *testing.T) {
	t.Parallel()
	st := store.NewMemoryStore(64)
	clk := clock.NewFake(time.Date(2026, 7, 4, 8, 0, 0, 0, time.UTC))
	sink := &recordSink{}
	svc := NewService(kvstore.New(st, clk, nil), nil, clk, nil, WithNotifier(sink))

	_, err := svc.SaveCatch(context.Background(), SaveOptions{Fish: fishResult("Bluegill", "6", "4 oz"), Image: "img"})
	if !errors.Is(err, ErrSaveFailed) || !errors.Is(err, kvstore.ErrStorageFailed) {
		t.Fatalf("SaveCatch() error = %v, want ErrSaveFailed wrapping ErrStorageFailed", err)
	}
	if len(sink.got) != 1 || sink.got[0].Variant != notify.VariantDestructive {
		t.Fatalf("failure toast = %+v", sink.got)
	}
}

func TestSaveCatchAnnouncesRecords(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if _, err := f.svc.SaveCatch(context.Background(), SaveOptions{Fish: fishResult("Walleye", "16", "2 lbs"), Image: "img"}); err != nil {
		t.Fatalf("SaveCatch() error = %v", err)
	}
	// longest, most fish and most species all start at zero
	if len(f.sink.got) != 3 {
		t.Fatalf("toasts = %d, want 3: %+v", len(f.sink.got), f.sink.got)
	}
	for _, toast := range f.sink.got {
		if toast.Title != "New Personal Best!" || toast.Species != "Walleye" {
			t.Fatalf("toast = %+v", toast)
		}
	}

	pb, ok := achievement.Find(f.repo.Data().PersonalBests, achievement.LongestFish)
	if !ok || pb.Value != 16 || pb.Species != "Walleye" {
		t.Fatalf("aggregate longest fish = %+v, %v", pb, ok)
	}
}

type halfCompressor struct{ calls int }

func (h *halfCompressor) Compress(_ context.Context, image string, limit int) (string, error) {
	h.calls++
	return image[:limit/2], nil
}

type brokenCompressor struct{}

func (brokenCompressor) Compress(context.Context, string, int) (string, error) {
	return "", errors.New("codec unavailable")
}

func TestStalledNotifierDoesNotBlockSaves(t *testing.T) {
	t.Parallel()
	sink := &stallSink{entered: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(t, WithNotifier(sink))
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.svc.SaveCatch(ctx, SaveOptions{Fish: fishResult("Walleye", "20", "3 lbs"), Image: "img"})
		firstDone <- err
	}()
	<-sink.entered

	secondDone := make(chan error, 1)
	go func() {
		_, err := f.svc.SaveCatch(ctx, SaveOptions{Fish: fishResult("Yellow Perch", "8", "6 oz"), Image: "img"})
		secondDone <- err
	}()
	select {
	case err := <-secondDone:
		if err != nil {
			t.Fatalf("second SaveCatch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		close(sink.release)
		t.Fatalf("second save waited on a stalled notification")
	}

	close(sink.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first SaveCatch() error = %v", err)
	}
	if history := achievement.LoadCatchHistory(ctx, f.kv); len(history) != 2 {
		t.Fatalf("history = %d entries, want 2", len(history))
	}
}

func TestImageOptimization(t *testing.T) {
	t.Parallel()
	big := strings.Repeat("A", MaxImageBytes+10)

	plain := newFixture(t)
	if got := plain.svc.optimizeImage(context.Background(), "small"); got != "small" {
		t.Fatalf("small image changed: %q", got)
	}
	if got := plain.svc.optimizeImage(context.Background(), big); len(got) != MaxImageBytes {
		t.Fatalf("truncated len = %d", len(got))
	}

	hc := &halfCompressor{}
	withCodec := newFixture(t, WithCompressor(hc))
	if got := withCodec.svc.optimizeImage(context.Background(), big); len(got) != MaxImageBytes/2 || hc.calls != 1 {
		t.Fatalf("compressed len = %d calls = %d", len(got), hc.calls)
	}

	broken := newFixture(t, WithCompressor(brokenCompressor{}))
	if got := broken.svc.optimizeImage(context.Background(), big); len(got) != MaxImageBytes {
		t.Fatalf("fallback len = %d", len(got))
	}
}

func TestSaveManual(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.SaveManual(ctx, ManualOptions{Image: "img", LureID: "2"})
	if err != nil {
		t.Fatalf("SaveManual() error = %v", err)
	}
	if rec.Species != UnknownFish || rec.Notes != ManualNote || rec.LureUsed != "Jig Head 1/4oz" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Weight != nil || rec.Length != 0 {
		t.Fatalf("measurements = %v %v", rec.Length, rec.Weight)
	}

	data := f.repo.Data()
	if len(data.Catches) != 1 || data.Catches[0].ID != rec.ID {
		t.Fatalf("manual catch not in aggregate")
	}
	lure, _ := f.repo.Lure("2")
	if lure.TotalCatches != 1 || lure.Catches[0].Species != UnknownFish {
		t.Fatalf("lure stats = %+v", lure)
	}
	if history := achievement.LoadCatchHistory(ctx, f.kv); len(history) != 0 {
		t.Fatalf("manual entry reached history: %+v", history)
	}
	if len(f.sink.got) != 1 || !strings.Contains(f.sink.got[0].Description, "Jig Head") {
		t.Fatalf("toasts = %+v", f.sink.got)
	}
}

func TestAttachLure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.SaveCatch(ctx, SaveOptions{Fish: fishResult("Smallmouth Bass", "15", "2 lbs"), Image: "img"})
	if err != nil {
		t.Fatalf("SaveCatch() error = %v", err)
	}

	c, l, err := f.svc.AttachLure(ctx, res.CatchRecord.ID, "3")
	if err != nil {
		t.Fatalf("AttachLure() error = %v", err)
	}
	if c.LureID != "3" || c.LureUsed != "Crankbait Deep Diver" {
		t.Fatalf("catch = %+v", c)
	}
	if l.TotalCatches != 1 || l.TimesUsed != 1 || l.Catches[0].Species != "Smallmouth Bass" {
		t.Fatalf("lure = %+v", l)
	}
	history := achievement.LoadCatchHistory(ctx, f.kv)
	if history[0].LureID != "3" {
		t.Fatalf("history not updated: %+v", history[0])
	}

	if _, _, err := f.svc.AttachLure(ctx, res.CatchRecord.ID, "missing"); !errors.Is(err, userdata.ErrNotFound) {
		t.Fatalf("AttachLure(missing lure) error = %v", err)
	}
	if _, _, err := f.svc.AttachLure(ctx, "missing", "3"); !errors.Is(err, userdata.ErrNotFound) {
		t.Fatalf("AttachLure(missing catch) error = %v", err)
	}
}

func TestWithoutLedger(t *testing.T) {
	t.Parallel()
	st := store.NewMemoryStore(0)
	svc := NewService(kvstore.New(st, nil, nil), nil, nil, nil)
	if _, err := svc.SaveManual(context.Background(), ManualOptions{Image: "img"}); !errors.Is(err, ErrNoLedger) {
		t.Fatalf("SaveManual() error = %v", err)
	}
	if _, _, err := svc.AttachLure(context.Background(), "a", "b"); !errors.Is(err, ErrNoLedger) {
		t.Fatalf("AttachLure() error = %v", err)
	}
}

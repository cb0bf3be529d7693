package achievement

import (
	"testing"
	"time"

	"github.com/faideww/catchlog/internal/fish"
)

func catchAt(id, species string, length float64, at time.Time) fish.CatchRecord {
	return fish.CatchRecord{ID: id, Species: species, Length: length, Date: at}
}

func TestTopCatches(t *testing.T) {
	t.Parallel()

	if got := TopCatches(nil, 5); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}

	history := []fish.CatchRecord{
		catchAt("a", "Bass", 10, day),
		catchAt("b", "Pike", 30, day),
		catchAt("c", "Perch", 10, day),
		catchAt("d", "Walleye", 18, day),
		catchAt("e", "Trout", 12, day),
		catchAt("f", "Bluegill", 6, day),
	}
	top := TopCatches(history, 5)
	want := []string{"b", "d", "e", "a", "c"}
	if len(top) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(top))
	}
	for i, id := range want {
		if top[i].ID != id {
			t.Fatalf("position %d: expected %s got %s", i, id, top[i].ID)
		}
	}
	if history[0].ID != "a" {
		t.Fatalf("TopCatches reordered its input")
	}
	if got := TopCatches(history, 0); got == nil || len(got) != 0 {
		t.Fatalf("limit 0: expected empty slice, got %v", got)
	}
	if got := TopCatches(history, -1); len(got) != 0 {
		t.Fatalf("negative limit: expected empty, got %d", len(got))
	}
}

func TestTodaysCatchesAndUniqueSpecies(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("EDT", -4*3600)
	now := time.Date(2026, 6, 13, 20, 0, 0, 0, loc)

	history := []fish.CatchRecord{
		catchAt("1", "Bass", 10, now.Add(-time.Hour)),
		catchAt("2", "Bass", 11, now.Add(-2*time.Hour)),
		// 00:30 UTC on the 14th is still the 13th locally
		catchAt("3", "Pike", 20, time.Date(2026, 6, 14, 0, 30, 0, 0, time.UTC)),
		catchAt("4", "Pike", 22, now.AddDate(0, 0, -1)),
	}

	today := TodaysCatches(history, now)
	if len(today) != 3 {
		t.Fatalf("expected 3 catches today, got %d", len(today))
	}
	if n := UniqueSpeciesCount(today); n != 2 {
		t.Fatalf("expected 2 species, got %d", n)
	}
	if n := UniqueSpeciesCount(nil); n != 0 {
		t.Fatalf("expected 0 species for empty input, got %d", n)
	}
}

func TestSortByDate(t *testing.T) {
	t.Parallel()
	history := []fish.CatchRecord{
		catchAt("old", "Bass", 1, day.Add(-time.Hour)),
		catchAt("new", "Bass", 1, day),
	}
	sorted := SortByDate(history)
	if sorted[0].ID != "new" || history[0].ID != "old" {
		t.Fatalf("unexpected order %v / input %v", sorted, history)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	empty := Summarize(DefaultPersonalBests(day), nil, day)
	if empty != (Stats{}) {
		t.Fatalf("expected zero stats, got %+v", empty)
	}

	e := newEngine()
	bests, _ := e.CheckLongestFish(DefaultPersonalBests(day), 18, "Walleye", "Lake Huron", day)
	history := []fish.CatchRecord{
		catchAt("1", "Walleye", 18, day),
		catchAt("2", "Bass", 11, day.AddDate(0, 0, -3)),
	}
	s := Summarize(bests, history, day)
	want := Stats{TotalCatches: 2, UniqueSpecies: 2, TodaysCatches: 1, Records: 1, Longest: 18}
	if s != want {
		t.Fatalf("Summarize() = %+v, want %+v", s, want)
	}
}

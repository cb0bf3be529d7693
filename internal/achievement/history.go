package achievement

import (
	"sort"
	"time"

	"github.com/faideww/catchlog/internal/fish"
)

const DefaultTopLimit = 5

// TopCatches returns up to limit catches, longest first. Ties keep their
// history order. A non-positive limit yields none.
func TopCatches(history []fish.CatchRecord, limit int) []fish.CatchRecord {
	if limit <= 0 {
		return []fish.CatchRecord{}
	}
	out := make([]fish.CatchRecord, len(history))
	copy(out, history)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Length > out[j].Length })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SortByDate returns a copy of history, newest first.
func SortByDate(history []fish.CatchRecord) []fish.CatchRecord {
	out := make([]fish.CatchRecord, len(history))
	copy(out, history)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// CatchesForDate keeps the catches whose calendar date, read in day's
// location, matches day.
func CatchesForDate(history []fish.CatchRecord, day time.Time) []fish.CatchRecord {
	var out []fish.CatchRecord
	for _, c := range history {
		if sameDay(c.Date, day) {
			out = append(out, c)
		}
	}
	return out
}

func TodaysCatches(history []fish.CatchRecord, now time.Time) []fish.CatchRecord {
	return CatchesForDate(history, now)
}

// UniqueSpeciesCount counts distinct species names by exact match.
func UniqueSpeciesCount(catches []fish.CatchRecord) int {
	seen := make(map[string]struct{}, len(catches))
	for _, c := range catches {
		seen[c.Species] = struct{}{}
	}
	return len(seen)
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

type Stats struct {
	TotalCatches  int     `json:"totalCatches"`
	UniqueSpecies int     `json:"uniqueSpecies"`
	TodaysCatches int     `json:"todaysCatches"`
	Records       int     `json:"records"`
	Longest       float64 `json:"longest"`
}

// Summarize computes the quick-stats panel. Records counts ledger entries
// with a non-zero value.
func Summarize(bests []PersonalBest, history []fish.CatchRecord, now time.Time) Stats {
	s := Stats{
		TotalCatches:  len(history),
		UniqueSpecies: UniqueSpeciesCount(history),
		TodaysCatches: len(TodaysCatches(history, now)),
	}
	for _, pb := range bests {
		if pb.Value > 0 {
			s.Records++
		}
	}
	for _, c := range history {
		if c.Length > s.Longest {
			s.Longest = c.Length
		}
	}
	return s
}

package achievement

import (
	"fmt"
	"strconv"
	"time"

	"github.com/faideww/catchlog/internal/clock"
)

type Type string

const (
	LongestFish      Type = "longest_fish"
	MostFishDay      Type = "most_fish_day"
	MostSpeciesDay   Type = "most_species_day"
	MostLuresLostDay Type = "most_lures_lost_day"
)

const noCatchesYet = "No catches recorded yet"

type PersonalBest struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Date      time.Time `json:"date"`
	Location  string    `json:"location,omitempty"`
	Species   string    `json:"species,omitempty"`
	Details   string    `json:"details,omitempty"`
	FishImage string    `json:"fishImage,omitempty"`
}

// Candidate is a value offered to the ledger. Empty optional fields keep
// whatever the existing record has.
type Candidate struct {
	Type     Type
	Value    float64
	Date     time.Time
	Location string
	Species  string
	Details  string
}

type template struct {
	id    string
	title string
	unit  string
}

var templates = map[Type]template{
	LongestFish:      {"1", "Longest Fish", "inches"},
	MostFishDay:      {"2", "Most Fish in One Day", "fish"},
	MostSpeciesDay:   {"3", "Most Species in One Day", "species"},
	MostLuresLostDay: {"4", "Most Lures Lost in One Day", "lures"},
}

// Types lists the fixed record categories in ledger order.
var Types = []Type{LongestFish, MostFishDay, MostSpeciesDay, MostLuresLostDay}

func (t Type) Valid() bool {
	_, ok := templates[t]
	return ok
}

func (t Type) Title() string { return templates[t].title }

func (t Type) Unit() string { return templates[t].unit }

// DefaultPersonalBests is the empty ledger: one zero-valued record per type.
func DefaultPersonalBests(now time.Time) []PersonalBest {
	out := make([]PersonalBest, 0, len(Types))
	for _, t := range Types {
		out = append(out, blank(t, now))
	}
	return out
}

func blank(t Type, now time.Time) PersonalBest {
	tpl := templates[t]
	return PersonalBest{
		ID:      tpl.id,
		Type:    t,
		Title:   tpl.title,
		Unit:    tpl.unit,
		Date:    now,
		Details: noCatchesYet,
	}
}

// ImageLookup resolves a reference picture for a species name.
type ImageLookup interface {
	ImageFor(species string) string
}

type Engine struct {
	images ImageLookup
	clock  clock.Clock
}

func NewEngine(images ImageLookup, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Engine{images: images, clock: clk}
}

// CheckForPersonalBest replaces the record for c.Type when c.Value is
// strictly greater, or adds one when the type has no record yet. The
// input slice is never modified.
func (e *Engine) CheckForPersonalBest(bests []PersonalBest, c Candidate) ([]PersonalBest, bool) {
	idx := -1
	for i := range bests {
		if bests[i].Type == c.Type {
			idx = i
			break
		}
	}
	if idx >= 0 && !(c.Value > bests[idx].Value) {
		return bests, false
	}

	if c.Date.IsZero() {
		c.Date = e.clock.Now()
	}

	updated := make([]PersonalBest, len(bests), len(bests)+1)
	copy(updated, bests)
	if idx < 0 {
		if !c.Type.Valid() {
			return bests, false
		}
		updated = append(updated, blank(c.Type, c.Date))
		idx = len(updated) - 1
	}

	pb := &updated[idx]
	pb.Value = c.Value
	pb.Date = c.Date
	if c.Location != "" {
		pb.Location = c.Location
	}
	if c.Species != "" {
		pb.Species = c.Species
		if e.images != nil {
			if img := e.images.ImageFor(c.Species); img != "" {
				pb.FishImage = img
			}
		}
	}
	if c.Details != "" {
		pb.Details = c.Details
	} else {
		pb.Details = fmt.Sprintf("New record: %s %s", formatValue(c.Value), pb.Unit)
	}
	return updated, true
}

func (e *Engine) CheckLongestFish(bests []PersonalBest, length float64, species, location string, date time.Time) ([]PersonalBest, bool) {
	return e.CheckForPersonalBest(bests, Candidate{
		Type:     LongestFish,
		Value:    length,
		Date:     date,
		Location: location,
		Species:  species,
		Details:  fmt.Sprintf(`%s - %s" at %s`, species, formatValue(length), location),
	})
}

func (e *Engine) CheckMostFishInDay(bests []PersonalBest, count int, date time.Time, location string) ([]PersonalBest, bool) {
	return e.CheckForPersonalBest(bests, Candidate{
		Type:     MostFishDay,
		Value:    float64(count),
		Date:     date,
		Location: location,
		Details:  fmt.Sprintf("%d fish caught in one day", count),
	})
}

func (e *Engine) CheckMostSpeciesInDay(bests []PersonalBest, count int, date time.Time, location string) ([]PersonalBest, bool) {
	return e.CheckForPersonalBest(bests, Candidate{
		Type:     MostSpeciesDay,
		Value:    float64(count),
		Date:     date,
		Location: location,
		Details:  fmt.Sprintf("%d different species in one day", count),
	})
}

func (e *Engine) CheckMostLuresLostInDay(bests []PersonalBest, count int, date time.Time, location string) ([]PersonalBest, bool) {
	return e.CheckForPersonalBest(bests, Candidate{
		Type:     MostLuresLostDay,
		Value:    float64(count),
		Date:     date,
		Location: location,
		Details:  fmt.Sprintf("%d lures lost in one day", count),
	})
}

// Find returns the record for t, if any.
func Find(bests []PersonalBest, t Type) (PersonalBest, bool) {
	for _, pb := range bests {
		if pb.Type == t {
			return pb, true
		}
	}
	return PersonalBest{}, false
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

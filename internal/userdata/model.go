package userdata

import (
	"fmt"
	"time"

	"github.com/faideww/catchlog/internal/achievement"
	"github.com/faideww/catchlog/internal/fish"
	"github.com/faideww/catchlog/internal/geo"
)

type Profile struct {
	Name         string    `json:"name"`
	Avatar       string    `json:"avatar,omitempty"`
	JoinDate     time.Time `json:"joinDate"`
	TotalCatches int       `json:"totalCatches"`
	Level        int       `json:"level"`
	Experience   int       `json:"experience"`
}

type Preferences struct {
	Units         string `json:"units"`
	Notifications bool   `json:"notifications"`
	Theme         string `json:"theme"`
	AutoSave      bool   `json:"autoSave"`
}

type UserData struct {
	Catches       []fish.CatchRecord         `json:"catches"`
	PersonalBests []achievement.PersonalBest `json:"personalBests"`
	Achievements  []achievement.Achievement  `json:"achievements"`
	Lures         []fish.Lure                `json:"lures"`
	Locations     []geo.Location             `json:"locations"`
	Profile       Profile                    `json:"profile"`
	Preferences   Preferences                `json:"preferences"`
}

// Patch replaces whole top-level fields; nil fields are left alone.
type Patch struct {
	Catches       *[]fish.CatchRecord         `json:"catches,omitempty"`
	PersonalBests *[]achievement.PersonalBest `json:"personalBests,omitempty"`
	Achievements  *[]achievement.Achievement  `json:"achievements,omitempty"`
	Lures         *[]fish.Lure                `json:"lures,omitempty"`
	Locations     *[]geo.Location             `json:"locations,omitempty"`
	Profile       *Profile                    `json:"profile,omitempty"`
	Preferences   *Preferences                `json:"preferences,omitempty"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Catches == nil && p.PersonalBests == nil && p.Achievements == nil &&
		p.Lures == nil && p.Locations == nil && p.Profile == nil && p.Preferences == nil
}

func DefaultLures() []fish.Lure {
	return []fish.Lure{
		{ID: "1", Name: "Spinnerbait Silver", Type: "Spinnerbait", Color: "Silver/Blue", Catches: []fish.LureCatch{}},
		{ID: "2", Name: "Jig Head 1/4oz", Type: "Jig", Color: "Green", Catches: []fish.LureCatch{}},
		{ID: "3", Name: "Crankbait Deep Diver", Type: "Crankbait", Color: "Fire Tiger", Catches: []fish.LureCatch{}},
		{ID: "4", Name: "Soft Plastic Worm", Type: "Soft Bait", Color: "Watermelon", Catches: []fish.LureCatch{}},
	}
}

func DefaultPreferences() Preferences {
	return Preferences{Units: "imperial", Notifications: true, Theme: "ocean", AutoSave: true}
}

func Default(now time.Time) UserData {
	return UserData{
		Catches:       []fish.CatchRecord{},
		PersonalBests: []achievement.PersonalBest{},
		Achievements:  []achievement.Achievement{},
		Lures:         DefaultLures(),
		Locations:     []geo.Location{},
		Profile:       Profile{Name: "Angler", JoinDate: now, Level: 1},
		Preferences:   DefaultPreferences(),
	}
}

// Clone returns a copy that shares no slices with d.
func (d UserData) Clone() UserData {
	out := d
	out.Catches = cloneSlice(d.Catches)
	for i := range out.Catches {
		if w := out.Catches[i].Weight; w != nil {
			v := *w
			out.Catches[i].Weight = &v
		}
	}
	out.PersonalBests = cloneSlice(d.PersonalBests)
	out.Achievements = cloneSlice(d.Achievements)
	out.Locations = cloneSlice(d.Locations)
	out.Lures = make([]fish.Lure, len(d.Lures))
	for i, l := range d.Lures {
		out.Lures[i] = l.Clone()
	}
	return out
}

// cloneSlice copies s into a new non-nil slice, so an empty collection
// still encodes as [].
func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func (d *UserData) apply(p Patch) {
	if p.Catches != nil {
		d.Catches = cloneSlice(*p.Catches)
	}
	if p.PersonalBests != nil {
		d.PersonalBests = cloneSlice(*p.PersonalBests)
	}
	if p.Achievements != nil {
		d.Achievements = cloneSlice(*p.Achievements)
	}
	if p.Lures != nil {
		d.Lures = make([]fish.Lure, len(*p.Lures))
		for i, l := range *p.Lures {
			d.Lures[i] = l.Clone()
		}
	}
	if p.Locations != nil {
		d.Locations = cloneSlice(*p.Locations)
	}
	if p.Profile != nil {
		d.Profile = *p.Profile
	}
	if p.Preferences != nil {
		d.Preferences = *p.Preferences
	}
}

// normalize fills the holes a partial or older blob can leave.
func (d *UserData) normalize(newID func() string) {
	if d.Catches == nil {
		d.Catches = []fish.CatchRecord{}
	}
	if d.PersonalBests == nil {
		d.PersonalBests = []achievement.PersonalBest{}
	}
	if d.Achievements == nil {
		d.Achievements = []achievement.Achievement{}
	}
	if d.Locations == nil {
		d.Locations = []geo.Location{}
	}
	if d.Lures == nil {
		d.Lures = DefaultLures()
	}
	for i := range d.Lures {
		l := &d.Lures[i]
		if l.ID == "" {
			l.ID = newID()
		}
		if l.Catches == nil {
			l.Catches = []fish.LureCatch{}
		}
		if l.TotalCatches < 0 {
			l.TotalCatches = 0
		}
		if l.TimesUsed < 0 {
			l.TimesUsed = 0
		}
	}
}

// ExportFilename names an export taken at now (UTC date).
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("fishing-data-%s.json", now.UTC().Format("2006-01-02"))
}

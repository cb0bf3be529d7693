package fish

import "time"

type LureCatch struct {
	Species   string    `json:"species"`
	Count     int       `json:"count"`
	Notes     string    `json:"notes"`
	DateAdded time.Time `json:"dateAdded"`
}

type Lure struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	Color        string      `json:"color"`
	Image        string      `json:"image,omitempty"`
	Catches      []LureCatch `json:"catches"`
	TotalCatches int         `json:"totalCatches"`
	TimesUsed    int         `json:"timesUsed"`
}

// RecordCatch credits one catch of species to the lure. Each species
// has at most one entry; TotalCatches stays equal to the sum of counts.
func (l *Lure) RecordCatch(species string, now time.Time) {
	found := false
	for i := range l.Catches {
		if l.Catches[i].Species == species {
			l.Catches[i].Count++
			found = true
			break
		}
	}
	if !found {
		l.Catches = append(l.Catches, LureCatch{Species: species, Count: 1, DateAdded: now})
	}
	l.TotalCatches++
	l.TimesUsed++
}

// Clone returns a deep copy.
func (l Lure) Clone() Lure {
	out := l
	out.Catches = make([]LureCatch, len(l.Catches))
	copy(out.Catches, l.Catches)
	return out
}

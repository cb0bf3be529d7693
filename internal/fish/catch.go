package fish

import "time"

// CatchRecord is one logged catch. Records are immutable once saved,
// except that a lure may be attached afterwards.
type CatchRecord struct {
	ID       string    `json:"id"`
	Species  string    `json:"species"`
	Length   float64   `json:"length"`
	Weight   *float64  `json:"weight,omitempty"`
	Location string    `json:"location"`
	Date     time.Time `json:"date"`
	ImageURL string    `json:"imageUrl,omitempty"`
	LureUsed string    `json:"lureUsed,omitempty"`
	LureID   string    `json:"lureId,omitempty"`
	Notes    string    `json:"notes,omitempty"`
}

func (c CatchRecord) HasWeight() bool { return c.Weight != nil }

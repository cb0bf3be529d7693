package fish

// SizeClass grades a catch against the usual range for its species.
type SizeClass int

const (
	SizeUndersized SizeClass = iota
	SizeSmall
	SizeAverage
	SizeAboveAverage
	SizeTrophy
	SizeRecord
)

func (c SizeClass) String() string {
	switch c {
	case SizeUndersized:
		return "undersized"
	case SizeSmall:
		return "small"
	case SizeAverage:
		return "average"
	case SizeAboveAverage:
		return "above average"
	case SizeTrophy:
		return "trophy"
	default:
		return "record"
	}
}

func (c SizeClass) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// SizePercentile places length within the species' SizeRange, clamped
// to [0,1].
func SizePercentile(sp Species, length float64) float64 {
	lo, hi := SizeRange(sp)
	if hi <= lo {
		return 0
	}
	x := (length - lo) / (hi - lo)
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

func ClassFromPercentile(p float64) SizeClass {
	switch {
	case p < 0.10:
		return SizeUndersized
	case p < 0.30:
		return SizeSmall
	case p < 0.65:
		return SizeAverage
	case p < 0.85:
		return SizeAboveAverage
	case p < 0.97:
		return SizeTrophy
	default:
		return SizeRecord
	}
}

// SizeClassFor grades length; anything at or past the species maximum
// is a record.
func SizeClassFor(sp Species, length float64) SizeClass {
	if sp.MaxLength > 0 && length >= sp.MaxLength {
		return SizeRecord
	}
	return ClassFromPercentile(SizePercentile(sp, length))
}

// Grade looks the species up by name and grades length. It reports
// false for unknown species or a non-positive length.
func (r *Registry) Grade(species string, length float64) (SizeClass, bool) {
	if length <= 0 {
		return 0, false
	}
	sp, ok := r.BySpecies(species)
	if !ok {
		return 0, false
	}
	return SizeClassFor(sp, length), true
}

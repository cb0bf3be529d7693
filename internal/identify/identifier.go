package identify

import (
	"context"
	"time"

	"github.com/faideww/catchlog/internal/fish"
)

type FishResult struct {
	Species        string   `json:"species"`
	Confidence     int      `json:"confidence"`
	Size           string   `json:"size"`
	Weight         string   `json:"weight"`
	Rarity         string   `json:"rarity"`
	Habitat        []string `json:"habitat"`
	ScientificName string   `json:"scientificName"`
}

// Identifier guesses the species in an encoded image.
type Identifier interface {
	Identify(ctx context.Context, image string) (FishResult, error)
}

// SimulatedIdentifier stands in for a recognition backend: after Latency
// it reports a rarity-weighted species with plausible measurements.
type SimulatedIdentifier struct {
	reg     *fish.Registry
	picker  *fish.Picker
	Latency time.Duration
}

func NewSimulatedIdentifier(reg *fish.Registry, picker *fish.Picker, latency time.Duration) *SimulatedIdentifier {
	if picker == nil {
		picker = fish.NewPicker(reg, nil)
	}
	return &SimulatedIdentifier{reg: reg, picker: picker, Latency: latency}
}

func (s *SimulatedIdentifier) Identify(ctx context.Context, image string) (FishResult, error) {
	if image == "" {
		return FishResult{}, ErrNoImage
	}
	if err := sleep(ctx, s.Latency); err != nil {
		return FishResult{}, err
	}

	id := s.picker.PickId()
	sp, _ := s.reg.GetById(id)
	m := s.picker.Roll(id)
	return FishResult{
		Species:        sp.Name,
		Confidence:     s.picker.Confidence(),
		Size:           m.SizeString(),
		Weight:         m.WeightString(),
		Rarity:         sp.Rarity.String(),
		Habitat:        append([]string(nil), sp.Habitat...),
		ScientificName: sp.ScientificName,
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

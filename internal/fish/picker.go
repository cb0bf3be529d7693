package fish

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	mrand "math/rand"
	"sync"
	"time"
)

type Picker struct {
	reg         *Registry
	cumulative  []int
	totalWeight int

	mu  sync.Mutex
	rng *mrand.Rand
}

type Measurements struct {
	Length float64 // inches
	Weight float64 // pounds
}

func NewPicker(reg *Registry, rng *mrand.Rand) *Picker {
	if rng == nil {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
		} else {
			rng = mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
		}
	}

	p := &Picker{
		reg: reg,
		rng: rng,
	}

	all := reg.All()
	p.cumulative = make([]int, len(all))
	totalWeight := 0
	for i, sp := range all {
		totalWeight += sp.Rarity.Weight()
		p.cumulative[i] = totalWeight
	}
	p.totalWeight = totalWeight
	return p
}

func (p *Picker) PickId() SpeciesId {
	p.mu.Lock()
	roll := p.rng.Intn(p.totalWeight) // random int from [0,totalWeight)
	p.mu.Unlock()

	// binary search for the species using p.cumulative
	lo, hi := 0, len(p.cumulative)-1
	for lo < hi {
		mid := (lo + hi) >> 1
		if roll < p.cumulative[mid] {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return SpeciesId(lo)
}

// Confidence returns an identification confidence in [85, 99].
func (p *Picker) Confidence() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return 85 + p.rng.Intn(15)
}

// SizeRange is the plausible length range for a caught specimen:
// 60% to 180% of the average, floored at 4 inches and capped at the
// species maximum.
func SizeRange(sp Species) (lo, hi float64) {
	lo = math.Max(4, sp.AverageLength*0.6)
	hi = math.Min(sp.MaxLength, sp.AverageLength*1.8)
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Roll draws a length uniformly from SizeRange and estimates the weight
// as length^2.8/180 with +/-15% noise, never below 0.1 lb.
func (p *Picker) Roll(id SpeciesId) Measurements {
	sp, ok := p.reg.GetById(id)
	if !ok {
		return Measurements{}
	}
	lo, hi := SizeRange(sp)

	p.mu.Lock()
	u, noise := p.rng.Float64(), p.rng.Float64()
	p.mu.Unlock()

	length := lo + (hi-lo)*u
	est := math.Pow(length, 2.8) / 180
	weight := math.Max(0.1, est+(noise-0.5)*est*0.3)
	return Measurements{Length: length, Weight: weight}
}

func (m Measurements) SizeString() string {
	return fmt.Sprintf("%.1f", m.Length)
}

func (m Measurements) WeightString() string {
	return FormatWeight(m.Weight)
}

// FormatWeight renders pounds as "x.x oz" below one pound, else "x.x lbs".
func FormatWeight(lbs float64) string {
	if lbs < 1 {
		return fmt.Sprintf("%.1f oz", lbs*16)
	}
	return fmt.Sprintf("%.1f lbs", lbs)
}

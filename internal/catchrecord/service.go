package catchrecord

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/faideww/catchlog/internal/achievement"
	"github.com/faideww/catchlog/internal/clock"
	"github.com/faideww/catchlog/internal/fish"
	"github.com/faideww/catchlog/internal/geo"
	"github.com/faideww/catchlog/internal/identify"
	"github.com/faideww/catchlog/internal/kvstore"
	"github.com/faideww/catchlog/internal/logging"
	"github.com/faideww/catchlog/internal/notify"
	"github.com/faideww/catchlog/internal/userdata"
)

const (
	UnknownFish = "Unknown Fish"
	ManualNote  = "Manual entry - AI analysis failed"
	NoLure      = "No lure specified"
)

var (
	ErrSaveFailed    = errors.New("failed to save catch record")
	ErrImageRequired = errors.New("please capture an image first")
	ErrFishRequired  = errors.New("identification result required")
	ErrNoLedger      = errors.New("lure tracking not configured")
)

// Ledger is the user's aggregate as seen by the service: saved catches
// are mirrored into it and lure statistics live there.
type Ledger interface {
	MirrorCatch(c fish.CatchRecord)
	Lure(id string) (fish.Lure, bool)
	SetCatchLure(catchID, lureID, lureName string) (fish.CatchRecord, error)
	RecordLureCatch(lureID, species string) (fish.Lure, error)
	UpdatePersonalBest(pb achievement.PersonalBest)
}

type SaveOptions struct {
	Fish     *identify.FishResult
	Location *geo.Location
	Image    string
}

type SaveResult struct {
	Success     bool             `json:"success"`
	CatchRecord fish.CatchRecord `json:"catchRecord"`
	// NewPersonalBests is the full ledger after the save.
	NewPersonalBests []achievement.PersonalBest `json:"newPersonalBests"`
	IsNewRecord      bool                       `json:"isNewRecord"`
	// SizeClass grades the catch for its species when the species is
	// known to the registry.
	SizeClass string `json:"sizeClass,omitempty"`
}

type Option func(*Service)

func WithCompressor(c Compressor) Option { return func(s *Service) { s.compressor = c } }

func WithLedger(l Ledger) Option { return func(s *Service) { s.ledger = l } }

func WithNotifier(n notify.Sink) Option { return func(s *Service) { s.notify = n } }

func WithRegistry(reg *fish.Registry) Option { return func(s *Service) { s.reg = reg } }

type Service struct {
	kv         *kvstore.KV
	engine     *achievement.Engine
	clock      clock.Clock
	log        *log.Logger
	compressor Compressor
	ledger     Ledger
	notify     notify.Sink
	reg        *fish.Registry

	// guards the catch_history / personal_bests read-modify-write
	mu sync.Mutex
}

func NewService(kv *kvstore.KV, engine *achievement.Engine, clk clock.Clock, logger *log.Logger, opts ...Option) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if engine == nil {
		engine = achievement.NewEngine(nil, clk)
	}
	s := &Service{kv: kv, engine: engine, clock: clk, log: logger, notify: notify.Discard{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SaveCatch records an identified catch, appends it to the history and
// re-evaluates the personal bests it can affect.
func (s *Service) SaveCatch(ctx context.Context, opts SaveOptions) (SaveResult, error) {
	if opts.Fish == nil {
		return SaveResult{}, ErrFishRequired
	}
	if opts.Image == "" {
		return SaveResult{}, ErrImageRequired
	}
	fr := opts.Fish
	location := locationName(opts.Location)
	length := ParseSize(fr.Size)

	s.log.Info("saving catch", "species", fr.Species, "size", fr.Size)

	record := fish.CatchRecord{
		ID:       uuid.NewString(),
		Species:  fr.Species,
		Length:   length,
		Weight:   weightPtr(ParseWeight(fr.Weight)),
		Location: location,
		Date:     s.clock.Now(),
		ImageURL: s.optimizeImage(ctx, opts.Image),
	}

	s.mu.Lock()
	bests, updated, err := s.recordLocked(ctx, record)
	s.mu.Unlock()
	if err != nil {
		return SaveResult{}, s.fail(ctx, err)
	}
	changed := len(updated) > 0
	for _, pb := range updated {
		s.notify.Notify(ctx, notify.Toast{
			Title:       "New Personal Best!",
			Description: pb.Title + ": " + pb.Details,
			Species:     fr.Species,
			Rarity:      fr.Rarity,
		})
	}

	if s.ledger != nil {
		s.ledger.MirrorCatch(record)
		for _, pb := range updated {
			s.ledger.UpdatePersonalBest(pb)
		}
	}

	res := SaveResult{
		Success:          true,
		CatchRecord:      record,
		NewPersonalBests: bests,
		IsNewRecord:      changed,
	}
	if s.reg != nil {
		if class, ok := s.reg.Grade(record.Species, record.Length); ok {
			res.SizeClass = class.String()
		}
	}
	s.log.Info("catch saved", "id", record.ID, "newRecords", changed, "class", res.SizeClass)
	return res, nil
}

// recordLocked prepends record to the history and re-evaluates the
// bests against it. It returns the full ledger and the entries that
// changed, which the caller announces once s.mu is released.
func (s *Service) recordLocked(ctx context.Context, record fish.CatchRecord) ([]achievement.PersonalBest, []achievement.PersonalBest, error) {
	history := append([]fish.CatchRecord{record}, achievement.LoadCatchHistory(ctx, s.kv)...)
	if err := achievement.SaveCatchHistory(ctx, s.kv, history); err != nil {
		return nil, nil, err
	}

	prev := achievement.LoadPersonalBests(ctx, s.kv, record.Date)
	bests := prev
	changed := false

	if next, ok := s.engine.CheckLongestFish(bests, record.Length, record.Species, record.Location, record.Date); ok {
		bests, changed = next, true
		s.log.Info("new record: longest fish", "species", record.Species, "length", record.Length)
	}
	today := achievement.TodaysCatches(history, record.Date)
	if next, ok := s.engine.CheckMostFishInDay(bests, len(today), record.Date, record.Location); ok {
		bests, changed = next, true
		s.log.Info("new record: most fish in a day", "count", len(today))
	}
	species := achievement.UniqueSpeciesCount(today)
	if next, ok := s.engine.CheckMostSpeciesInDay(bests, species, record.Date, record.Location); ok {
		bests, changed = next, true
		s.log.Info("new record: most species in a day", "count", species)
	}
	if !changed {
		return bests, nil, nil
	}
	if err := achievement.SavePersonalBests(ctx, s.kv, bests); err != nil {
		return nil, nil, err
	}
	s.log.Debug("history updated", "totalCatches", len(history))
	return bests, changedBests(prev, bests), nil
}

type ManualOptions struct {
	// Fish may be nil when analysis failed outright.
	Fish     *identify.FishResult
	Location *geo.Location
	Image    string
	LureID   string
	LureName string
}

// SaveManual logs a catch whose analysis failed. It goes straight into
// the user's aggregate and does not touch the history or the bests.
func (s *Service) SaveManual(ctx context.Context, opts ManualOptions) (fish.CatchRecord, error) {
	if opts.Image == "" {
		return fish.CatchRecord{}, ErrImageRequired
	}
	if s.ledger == nil {
		return fish.CatchRecord{}, ErrNoLedger
	}
	species := UnknownFish
	var size, weight string
	if opts.Fish != nil {
		if opts.Fish.Species != "" {
			species = opts.Fish.Species
		}
		size, weight = opts.Fish.Size, opts.Fish.Weight
	}
	lureName := opts.LureName
	if opts.LureID != "" && lureName == "" {
		if l, ok := s.ledger.Lure(opts.LureID); ok {
			lureName = l.Name
		}
	}

	record := fish.CatchRecord{
		ID:       uuid.NewString(),
		Species:  species,
		Length:   ParseSize(size),
		Weight:   weightPtr(ParseWeight(weight)),
		Location: locationName(opts.Location),
		Date:     s.clock.Now(),
		ImageURL: s.optimizeImage(ctx, opts.Image),
		LureID:   opts.LureID,
		LureUsed: lureName,
		Notes:    ManualNote,
	}
	s.ledger.MirrorCatch(record)

	if opts.LureID != "" {
		if _, err := s.ledger.RecordLureCatch(opts.LureID, species); err != nil {
			s.log.Warn("lure stats not updated", "lure", opts.LureID, "err", err)
		}
	}
	s.notify.Notify(ctx, notify.Toast{Title: "Catch Saved!", Description: savedDescription(lureName)})
	return record, nil
}

// AttachLure records which lure landed a saved catch and credits the
// lure's statistics.
func (s *Service) AttachLure(ctx context.Context, catchID, lureID string) (fish.CatchRecord, fish.Lure, error) {
	if s.ledger == nil {
		return fish.CatchRecord{}, fish.Lure{}, ErrNoLedger
	}
	l, ok := s.ledger.Lure(lureID)
	if !ok {
		return fish.CatchRecord{}, fish.Lure{}, fmt.Errorf("lure %q: %w", lureID, userdata.ErrNotFound)
	}
	c, err := s.ledger.SetCatchLure(catchID, l.ID, l.Name)
	if err != nil {
		return fish.CatchRecord{}, fish.Lure{}, err
	}
	l, err = s.ledger.RecordLureCatch(l.ID, c.Species)
	if err != nil {
		return fish.CatchRecord{}, fish.Lure{}, err
	}

	s.mu.Lock()
	history := achievement.LoadCatchHistory(ctx, s.kv)
	for i := range history {
		if history[i].ID == catchID {
			history[i].LureID, history[i].LureUsed = l.ID, l.Name
			if err := achievement.SaveCatchHistory(ctx, s.kv, history); err != nil {
				s.log.Warn("catch history not updated with lure", "id", catchID, "err", err)
			}
			break
		}
	}
	s.mu.Unlock()

	s.notify.Notify(ctx, notify.Toast{Title: "Catch Saved!", Description: savedDescription(l.Name), Species: c.Species})
	return c, l, nil
}

func (s *Service) fail(ctx context.Context, err error) error {
	s.log.Error("failed to save catch", "err", err)
	s.notify.Notify(ctx, notify.Toast{
		Title:       "Save Failed",
		Description: "Failed to save your catch. Please try again.",
		Variant:     notify.VariantDestructive,
	})
	return fmt.Errorf("%w: %w", ErrSaveFailed, err)
}

// changedBests lists the entries of next that differ from prev.
func changedBests(prev, next []achievement.PersonalBest) []achievement.PersonalBest {
	var out []achievement.PersonalBest
	for _, pb := range next {
		old, had := achievement.Find(prev, pb.Type)
		if had && old.Value == pb.Value && old.Date.Equal(pb.Date) {
			continue
		}
		out = append(out, pb)
	}
	return out
}

func locationName(l *geo.Location) string {
	if l == nil || l.Name == "" {
		return geo.Unknown().Name
	}
	return l.Name
}

func weightPtr(w float64) *float64 {
	if w <= 0 {
		return nil
	}
	return &w
}

func savedDescription(lureName string) string {
	if lureName == "" || lureName == NoLure {
		return "Your catch has been logged"
	}
	return "Your catch has been logged with " + lureName
}

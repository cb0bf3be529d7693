package identify

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/faideww/catchlog/internal/geo"
	"github.com/faideww/catchlog/internal/kvstore"
	"github.com/faideww/catchlog/internal/logging"
)

const KeyLastLocation = "last_known_location"

type Config struct {
	IdentifyTimeout time.Duration
	LocateTimeout   time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
}

func DefaultConfig() Config {
	return Config{
		IdentifyTimeout: 10 * time.Second,
		LocateTimeout:   8 * time.Second,
		MaxRetries:      2,
		RetryBackoff:    time.Second,
	}
}

// Result carries the identification outcome and the location
// independently. Location is always populated.
type Result struct {
	Fish     *FishResult  `json:"fish,omitempty"`
	Err      *Error       `json:"error,omitempty"`
	Location geo.Location `json:"location"`
}

type Pipeline struct {
	identifier Identifier
	locator    geo.Geolocator
	probe      ConnectivityProbe
	kv         *kvstore.KV
	cfg        Config
	log        *log.Logger
}

func NewPipeline(identifier Identifier, locator geo.Geolocator, probe ConnectivityProbe, kv *kvstore.KV, cfg Config, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}
	if probe == nil {
		probe = NewStaticProbe(true)
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Pipeline{
		identifier: identifier,
		locator:    locator,
		probe:      probe,
		kv:         kv,
		cfg:        cfg,
		log:        logger,
	}
}

// Run identifies the fish in image and locates the device. When offline
// it skips identification and only consults the location cache.
func (p *Pipeline) Run(ctx context.Context, image string) Result {
	if image == "" {
		p.log.Warn("no image provided for analysis")
		return Result{Err: newError(KindUnknown, ErrNoImage), Location: geo.Unknown()}
	}

	if !p.probe.Online(ctx) {
		p.log.Warn("analysis attempted while offline")
		return Result{Err: newError(KindOffline, nil), Location: p.offlineLocation(ctx)}
	}

	var (
		res     Result
		fishRes FishResult
	)

	// A plain Group, not WithContext: an identify failure must not cancel
	// locate. Only the identify branch can fail.
	var g errgroup.Group
	g.Go(func() error {
		var err error
		fishRes, err = withTimeout(ctx, p.cfg.IdentifyTimeout, func(ctx context.Context) (FishResult, error) {
			return p.identifyWithRetry(ctx, image)
		})
		return err
	})
	g.Go(func() error {
		res.Location = p.locate(ctx)
		return nil
	})
	idErr := g.Wait()

	if idErr != nil {
		res.Err = classify(idErr)
		p.log.Error("fish identification failed", "kind", res.Err.Kind, "err", idErr)
	} else {
		res.Fish = &fishRes
		p.log.Info("fish identified", "species", fishRes.Species, "confidence", fishRes.Confidence)
	}
	return res
}

func (p *Pipeline) identifyWithRetry(ctx context.Context, image string) (FishResult, error) {
	attempts := p.cfg.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		if !p.probe.Online(ctx) {
			return FishResult{}, newError(KindNetwork, ErrConnectionLost)
		}

		p.log.Debug("identification attempt", "attempt", attempt, "of", attempts, "imageKB", len(image)/1024)
		res, err := p.identifier.Identify(ctx, image)
		if err == nil {
			return res, nil
		}
		p.log.Warn("identification attempt failed", "attempt", attempt, "err", err)

		if ctx.Err() != nil {
			return FishResult{}, ctx.Err()
		}
		if !p.probe.Online(ctx) {
			return FishResult{}, newError(KindNetwork, ErrConnectionLost)
		}
		if attempt >= attempts {
			return FishResult{}, newError(KindExhausted, err)
		}
		if err := sleep(ctx, p.cfg.RetryBackoff); err != nil {
			return FishResult{}, err
		}
	}
}

func (p *Pipeline) locate(ctx context.Context) geo.Location {
	if p.locator == nil {
		return p.fallbackLocation(ctx, geo.ErrUnavailable)
	}
	loc, err := withTimeout(ctx, p.cfg.LocateTimeout, func(ctx context.Context) (geo.Location, error) {
		pos, err := p.locator.CurrentPosition(ctx)
		if err != nil {
			return geo.Location{}, err
		}
		return geo.Describe(pos), nil
	})
	if err != nil {
		return p.fallbackLocation(ctx, err)
	}

	if p.kv != nil {
		if err := p.kv.Set(ctx, KeyLastLocation, loc); err != nil {
			p.log.Warn("failed to cache location", "err", err)
		}
	}
	return loc
}

func (p *Pipeline) fallbackLocation(ctx context.Context, err error) geo.Location {
	p.log.Warn("location detection failed, using fallback", "err", err)
	if loc, ok := p.cachedLocation(ctx); ok {
		return loc
	}
	return geo.Unknown()
}

func (p *Pipeline) offlineLocation(ctx context.Context) geo.Location {
	if loc, ok := p.cachedLocation(ctx); ok {
		p.log.Info("using cached location")
		return loc
	}
	return geo.OfflineUnknown()
}

func (p *Pipeline) cachedLocation(ctx context.Context) (geo.Location, bool) {
	if p.kv == nil {
		return geo.Location{}, false
	}
	var loc geo.Location
	if p.kv.Get(ctx, KeyLastLocation, &loc) && loc.Name != "" {
		return loc, true
	}
	return geo.Location{}, false
}

type outcome[T any] struct {
	val T
	err error
}

// withTimeout runs fn under its own deadline. A result that arrives
// after the deadline is dropped.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	ch := make(chan outcome[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- outcome[T]{v, err}
	}()

	select {
	case o := <-ch:
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

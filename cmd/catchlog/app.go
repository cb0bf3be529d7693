package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/faideww/catchlog/internal/achievement"
	"github.com/faideww/catchlog/internal/catchrecord"
	"github.com/faideww/catchlog/internal/clock"
	"github.com/faideww/catchlog/internal/fish"
	"github.com/faideww/catchlog/internal/geo"
	"github.com/faideww/catchlog/internal/httpapi"
	"github.com/faideww/catchlog/internal/identify"
	"github.com/faideww/catchlog/internal/kvstore"
	"github.com/faideww/catchlog/internal/logging"
	"github.com/faideww/catchlog/internal/notify"
	"github.com/faideww/catchlog/internal/ratelimit"
	"github.com/faideww/catchlog/internal/session"
	"github.com/faideww/catchlog/internal/store"
	"github.com/faideww/catchlog/internal/userdata"
)

// app is every component wired against one store.
type app struct {
	cfg      *Config
	logs     *logging.Logging
	clock    clock.Clock
	closers  []io.Closer
	reg      *fish.Registry
	kv       *kvstore.KV
	session  *session.Manager
	repo     *userdata.Repository
	pipeline *identify.Pipeline
	catches  *catchrecord.Service
	notify   notify.Sink
}

func newApp(ctx context.Context, cfg *Config) (*app, error) {
	a := &app{cfg: cfg, clock: clock.Real{}}

	out := io.Writer(os.Stderr)
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.closers = append(a.closers, f)
		out = f
	}
	a.logs = logging.New(logging.Options{Output: out, Level: cfg.LogLevel, Prefix: "catchlog"})
	logger := a.logs.Logger

	reg, err := fish.LoadRegistry(cfg.SpeciesJson)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("load species: %w", err)
	}
	a.reg = reg

	st, closer, err := store.Open(cfg.StoreEngine, cfg.DBPath)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreEngine, err)
	}
	a.closers = append(a.closers, closer)
	logger.Info("store opened", "engine", cfg.StoreEngine, "path", cfg.DBPath)

	a.kv = kvstore.New(st, a.clock, a.logs.Component("kv"))
	a.session = session.NewManager(a.kv, a.clock, a.logs.Component("session"))

	a.repo = userdata.NewRepository(a.kv, a.clock, a.logs.Component("userdata"))
	if err := a.repo.Load(ctx); err != nil {
		// defaults are in place; keep going
		logger.Warn("starting with default user data", "err", err)
	}

	sinks := notify.Multi{notify.NewLogSink(a.logs.Component("notify"))}
	if cfg.DiscordWebhook != "" {
		d, err := notify.NewDiscordSink(cfg.DiscordWebhook, reg, a.logs.Component("discord"))
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		sinks = append(sinks, d)
	}
	a.notify = sinks

	var identifier identify.Identifier
	if cfg.IdentifyEndpoint != "" {
		identifier = identify.NewHTTPIdentifier(cfg.IdentifyEndpoint, cfg.IdentifyRPS)
	} else {
		identifier = identify.NewSimulatedIdentifier(reg, nil, cfg.IdentifyLatency)
	}
	var probe identify.ConnectivityProbe = identify.NewStaticProbe(true)
	if cfg.ConnectivityAddr != "" {
		probe = identify.DialProbe{Addr: cfg.ConnectivityAddr}
	}
	locator := geo.StaticGeolocator{Pos: geo.Position{Lat: cfg.HomeLat, Lng: cfg.HomeLng}}
	a.pipeline = identify.NewPipeline(identifier, locator, probe, a.kv, identify.DefaultConfig(), a.logs.Component("identify"))

	a.catches = catchrecord.NewService(
		a.kv,
		achievement.NewEngine(reg, a.clock),
		a.clock,
		a.logs.Component("catches"),
		catchrecord.WithLedger(a.repo),
		catchrecord.WithNotifier(a.notify),
		catchrecord.WithRegistry(reg),
	)
	return a, nil
}

func (a *app) server() *httpapi.Server {
	return httpapi.New(httpapi.Deps{
		Session:  a.session,
		Pipeline: a.pipeline,
		Catches:  a.catches,
		Repo:     a.repo,
		KV:       a.kv,
		Registry: a.reg,
		Guard:    ratelimit.NewGuard(a.clock),
		Clock:    a.clock,
		Logger:   a.logs.Component("http"),
		Logs:     a.logs.Buffer,
	})
}

// Close flushes pending user data and releases the store.
func (a *app) Close(ctx context.Context) {
	if a.repo != nil {
		if err := a.repo.Close(ctx); err != nil {
			a.logger().Error("final save failed", "err", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger().Error("close failed", "err", err)
		}
	}
	a.closers = nil
}

func (a *app) logger() *log.Logger {
	if a.logs == nil {
		return logging.Discard()
	}
	return a.logs.Logger
}

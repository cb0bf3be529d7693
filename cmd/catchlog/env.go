package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/faideww/catchlog/internal/store"
)

type Config struct {
	Addr             string
	StoreEngine      string
	DBPath           string
	SpeciesJson      string
	IdentifyEndpoint string
	IdentifyRPS      float64
	IdentifyLatency  time.Duration
	DiscordWebhook   string
	HomeLat          float64
	HomeLng          float64
	ConnectivityAddr string
	LogLevel         string
	LogFile          string
	SessionPoll      time.Duration
}

// LoadConfig reads .env when present, then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	engine := loadString("STORE_ENGINE", store.EngineSQLite)
	switch engine {
	case store.EngineSQLite, store.EngineJSON, store.EngineMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_ENGINE %q", engine)
	}

	rps, err := loadFloat("IDENTIFY_RPS", 2)
	if err != nil {
		return nil, err
	}
	latencyMs, err := loadInt("IDENTIFY_LATENCY_MS", 3000)
	if err != nil {
		return nil, err
	}
	lat, err := loadFloat("HOME_LAT", 44.3894)
	if err != nil {
		return nil, err
	}
	lng, err := loadFloat("HOME_LNG", -79.6903)
	if err != nil {
		return nil, err
	}
	pollSecs, err := loadInt("SESSION_POLL_SECONDS", 120)
	if err != nil {
		return nil, err
	}

	return &Config{
		Addr:             loadString("CATCHLOG_ADDR", "127.0.0.1:8080"),
		StoreEngine:      engine,
		DBPath:           loadString("DB_PATH", store.DefaultPath(engine)),
		SpeciesJson:      os.Getenv("SPECIES_JSON"),
		IdentifyEndpoint: os.Getenv("IDENTIFY_ENDPOINT"),
		IdentifyRPS:      rps,
		IdentifyLatency:  time.Duration(latencyMs) * time.Millisecond,
		DiscordWebhook:   os.Getenv("DISCORD_WEBHOOK_URL"),
		HomeLat:          lat,
		HomeLng:          lng,
		ConnectivityAddr: os.Getenv("CONNECTIVITY_ADDR"),
		LogLevel:         loadString("LOG_LEVEL", "info"),
		LogFile:          os.Getenv("LOG_FILE"),
		SessionPoll:      time.Duration(pollSecs) * time.Second,
	}, nil
}

func loadString(key, defValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defValue
}

func loadInt(key string, defValue int) (int, error) {
	value := os.Getenv(key)
	if value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return n, nil
	}

	return defValue, nil
}

func loadFloat(key string, defValue float64) (float64, error) {
	value := os.Getenv(key)
	if value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return f, nil
	}

	return defValue, nil
}

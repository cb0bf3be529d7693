package store

import (
	"errors"
	"io"
	"strings"
)

const (
	EngineSQLite = "sqlite"
	EngineJSON   = "json"
	EngineMemory = "memory"
)

// Open returns the Store for engine. The closer is a no-op for engines
// without resources to release.
func Open(engine, path string) (Store, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineSQLite:
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case EngineJSON:
		s, err := OpenJSONFile(path)
		if err != nil {
			return nil, nil, err
		}
		return s, io.NopCloser(nil), nil
	case EngineMemory:
		return NewMemoryStore(0), io.NopCloser(nil), nil
	default:
		return nil, nil, errors.New("unsupported store engine: " + engine)
	}
}

func DefaultPath(engine string) string {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case EngineJSON:
		return "data/catchlog.json"
	default:
		return "data/catchlog.db"
	}
}

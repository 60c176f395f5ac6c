package store

import (
	"fmt"

	"github.com/dshills/stepwise/internal/config"
)

// Open returns the store named by kind ("memory", "toml", "yaml", "sqlite").
func Open(kind, path string) (config.Store, error) {
	switch kind {
	case "", "memory":
		return NewMemory(), nil
	case "toml":
		return OpenTOML(path)
	case "yaml", "yml":
		return OpenYAML(path)
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("%q: %w", kind, config.ErrUnknownStoreKind)
	}
}

// OpenSettings opens the store selected by settings.
func OpenSettings(s config.StoreSettings) (config.Store, error) {
	return Open(s.Kind, s.Path)
}

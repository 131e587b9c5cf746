package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nhle/quiz-ledger/internal/model"
)

// Open returns the store selected by cfg.Driver.
func Open(cfg model.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("creating store directory: %w", err)
			}
		}
		return NewSQLiteStore(cfg.Path)
	case "redis":
		return NewRedisStore(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Config selects and tunes an engine connection.
type Config struct {
	Type            string
	DSN             string
	MaxOpenConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	TimeZone        string
}

// Opener connects an engine and returns a ready session.
type Opener func(ctx context.Context, cfg Config, logger *slog.Logger) (*Session, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Opener)
)

// Register adds an engine. Engine packages call it from init.
func Register(name string, opener Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = opener
}

func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Session, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("engine type not specified")
	}
	registryMu.RLock()
	opener, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownEngineError{Type: cfg.Type, Available: ListEngines()}
	}
	return opener(ctx, cfg, logger)
}

func ListEngines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

type UnknownEngineError struct {
	Type      string
	Available []string
}

func (e *UnknownEngineError) Error() string {
	return fmt.Sprintf("unknown engine type %q (available: %v)", e.Type, e.Available)
}

// OpenDB opens and pings a pooled handle for driver.
func OpenDB(ctx context.Context, driver string, cfg Config) (*sql.DB, error) {
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// Start pins a session on db and applies the configured time zone.
func Start(ctx context.Context, db *sql.DB, dialect Dialect, cfg Config, logger *slog.Logger) (*Session, error) {
	session, err := NewSession(ctx, db, dialect, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if cfg.TimeZone != "" {
		if err := session.SetTimeZone(ctx, cfg.TimeZone); err != nil {
			_ = session.Close()
			return nil, err
		}
	}
	session.logger.Debug("session started", slog.String("engine", dialect.Name()), slog.String("time_zone", cfg.TimeZone))
	return session, nil
}

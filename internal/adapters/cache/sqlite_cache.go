package cache

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the CacheRepository interface
type SQLiteCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS mailsift_cache (
			cache_key TEXT PRIMARY KEY,
			value BLOB,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Index on expires_at for faster cleanup
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_expires_at ON mailsift_cache(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	cache := &SQLiteCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go cache.startCleanupTask()

	return cache, nil
}

// Get loads the value stored under key into out.
func (c *SQLiteCache) Get(ctx context.Context, key string, out any) (bool, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, `
		SELECT value
		FROM mailsift_cache
		WHERE cache_key = ? AND expires_at > ?
	`, key, time.Now().UTC().Format(time.RFC3339)).Scan(&data)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query cache: %w", err)
	}
	if err := decodeValue(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a cache entry
func (c *SQLiteCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO mailsift_cache (cache_key, value, expires_at)
		VALUES (?, ?, ?)
	`, key, data, time.Now().Add(ttl).UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Clear removes one entry, or every entry when key is empty.
func (c *SQLiteCache) Clear(ctx context.Context, key string) error {
	var err error
	if key == "" {
		_, err = c.db.ExecContext(ctx, `DELETE FROM mailsift_cache`)
	} else {
		_, err = c.db.ExecContext(ctx, `DELETE FROM mailsift_cache WHERE cache_key = ?`, key)
	}
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// cleanup removes expired entries
func (c *SQLiteCache) cleanup() {
	res, err := c.db.Exec(`
		DELETE FROM mailsift_cache WHERE expires_at <= ?
	`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		c.logger.Error("Failed to clean up cache", zap.Error(err))
		return
	}
	if n, err := res.RowsAffected(); err == nil {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", n))
	}
}

// startCleanupTask starts a background task to clean up expired entries
func (c *SQLiteCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database
func (c *SQLiteCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close SQLite cache", zap.Error(err))
		}
	})
}

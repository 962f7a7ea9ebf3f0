package cache

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLCache is a MySQL implementation of the CacheRepository interface
type MySQLCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS mailsift_cache (
			cache_key VARCHAR(255) PRIMARY KEY,
			value MEDIUMBLOB,
			expires_at TIMESTAMP,
			INDEX idx_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &MySQLCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go cache.startCleanupTask()

	return cache, nil
}

// Get loads the value stored under key into out.
func (c *MySQLCache) Get(ctx context.Context, key string, out any) (bool, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, `
		SELECT value
		FROM mailsift_cache
		WHERE cache_key = ? AND expires_at > NOW()
	`, key).Scan(&data)

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
func (c *MySQLCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx, `
		REPLACE INTO mailsift_cache (cache_key, value, expires_at)
		VALUES (?, ?, ?)
	`, key, data, time.Now().Add(ttl).UTC())
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Clear removes one entry, or every entry when key is empty.
func (c *MySQLCache) Clear(ctx context.Context, key string) error {
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
func (c *MySQLCache) cleanup() {
	res, err := c.db.Exec(`DELETE FROM mailsift_cache WHERE expires_at <= NOW()`)
	if err != nil {
		c.logger.Error("Failed to clean up cache", zap.Error(err))
		return
	}
	if n, err := res.RowsAffected(); err == nil {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", n))
	}
}

// startCleanupTask starts a background task to clean up expired entries
func (c *MySQLCache) startCleanupTask() {
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
func (c *MySQLCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close MySQL cache", zap.Error(err))
		}
	})
}

// Package pool wraps database/sql connection pooling for the execution
// runtime: driver selection per provider, bounded checkout, health checks.
package pool

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Config holds connection pool configuration.
type Config struct {
	// MaxOpenConns is the maximum number of open connections (0 = unlimited).
	MaxOpenConns int
	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int
	// ConnMaxLifetime is the maximum lifetime of a connection.
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum idle time of a connection.
	ConnMaxIdleTime time.Duration
	// HealthCheckInterval is how often to run background health checks
	// (0 disables them).
	HealthCheckInterval time.Duration
}

// DefaultConfig returns sensible default pool configuration.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:        25,
		MaxIdleConns:        5,
		ConnMaxLifetime:     30 * time.Minute,
		ConnMaxIdleTime:     10 * time.Minute,
		HealthCheckInterval: 1 * time.Minute,
	}
}

// DriverName maps a provider name to the registered database/sql driver.
func DriverName(provider string) (string, error) {
	switch provider {
	case "postgresql", "postgres", "cockroachdb":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlite":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("no driver registered for provider %q", provider)
	}
}

// Pool manages database connections with lifecycle management.
type Pool struct {
	db     *sql.DB
	config Config

	mu              sync.RWMutex
	failedChecks    int64
	lastHealthCheck time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Open creates a pool for the given provider and connection string.
func Open(provider, dsn string, config Config) (*Pool, error) {
	driver, err := DriverName(provider)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return FromDB(db, config), nil
}

// FromDB wraps an already opened *sql.DB.
func FromDB(db *sql.DB, config Config) *Pool {
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{db: db, config: config, ctx: ctx, cancel: cancel}

	if config.HealthCheckInterval > 0 {
		p.wg.Add(1)
		go p.healthCheckLoop()
	}
	return p
}

// DB returns the underlying *sql.DB.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// CheckOut reserves a dedicated connection. It suspends until the pool has
// capacity or ctx is cancelled; the caller must Close the connection to
// return it.
func (p *Pool) CheckOut(ctx context.Context) (*sql.Conn, error) {
	return p.db.Conn(ctx)
}

// Stats represents pool statistics.
type Stats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
	MaxIdleClosed      int64
	MaxLifetimeClosed  int64
	FailedHealthChecks int64
	LastHealthCheck    time.Time
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	dbStats := p.db.Stats()
	return Stats{
		MaxOpenConnections: p.config.MaxOpenConns,
		OpenConnections:    dbStats.OpenConnections,
		InUse:              dbStats.InUse,
		Idle:               dbStats.Idle,
		WaitCount:          dbStats.WaitCount,
		WaitDuration:       dbStats.WaitDuration,
		MaxIdleClosed:      dbStats.MaxIdleClosed,
		MaxLifetimeClosed:  dbStats.MaxLifetimeClosed,
		FailedHealthChecks: p.failedChecks,
		LastHealthCheck:    p.lastHealthCheck,
	}
}

// HealthCheck pings the database and records the outcome.
func (p *Pool) HealthCheck(ctx context.Context) error {
	p.mu.Lock()
	p.lastHealthCheck = time.Now()
	p.mu.Unlock()

	if err := p.db.PingContext(ctx); err != nil {
		p.mu.Lock()
		p.failedChecks++
		p.mu.Unlock()
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func (p *Pool) healthCheckLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = p.HealthCheck(ctx)
			cancel()
		}
	}
}

// Close closes the pool and waits for background routines to finish.
func (p *Pool) Close() error {
	p.cancel()
	p.wg.Wait()
	return p.db.Close()
}

// Package dbpool lazily opens and caches one *sql.DB per tenant database,
// plus the root pool holding the tenant directory.
package dbpool

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/docbox/internal/logging"
	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/dmitrijs2005/docbox/internal/server/secrets"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
)

const (
	rootKey = "root"

	// openTimeout bounds one pool creation, which outlives the caller that started it.
	openTimeout = 30 * time.Second
)

// Config describes the database server shared by the root and tenant databases.
type Config struct {
	Host           string
	Port           int
	RootName       string
	RootSecretName string
	MaxConnections int
	// RetireGrace is how long a flushed pool stays open for in-flight users.
	RetireGrace time.Duration
}

// seams for tests
var (
	sqlOpen   = sql.Open
	afterFunc = time.AfterFunc
)

// Cache hands out pooled connections. Pools live until Flush or Close.
type Cache struct {
	cfg     Config
	secrets secrets.Source
	log     logging.Logger

	mu    sync.RWMutex
	pools map[string]*sql.DB
	// gen changes on every Flush so pools built across a flush are not cached.
	gen     uint64
	retired []*sql.DB
	closed  bool

	group singleflight.Group
}

func New(cfg Config, src secrets.Source, log logging.Logger) *Cache {
	return &Cache{
		cfg:     cfg,
		secrets: src,
		log:     log,
		pools:   make(map[string]*sql.DB),
	}
}

// RootPool returns the pool of the root database.
func (c *Cache) RootPool(ctx context.Context) (*sql.DB, error) {
	return c.get(ctx, rootKey, c.cfg.RootName, c.cfg.RootSecretName)
}

// TenantPool returns the pool of t's database.
func (c *Cache) TenantPool(ctx context.Context, t *models.Tenant) (*sql.DB, error) {
	key := fmt.Sprintf("tenant:%s:%s", t.Env, t.ID)
	return c.get(ctx, key, t.DBName, t.DBSecretName)
}

func (c *Cache) get(ctx context.Context, key, dbName, secretName string) (*sql.DB, error) {
	c.mu.RLock()
	db, ok := c.pools[key]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		return db, nil
	}

	// Waiters share the result, so the open must not die with whichever
	// caller happened to start it.
	ch := c.group.DoChan(fmt.Sprintf("%d/%s", gen, key), func() (any, error) {
		c.mu.RLock()
		db, ok := c.pools[key]
		c.mu.RUnlock()
		if ok {
			return db, nil
		}

		openCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), openTimeout)
		defer cancel()
		db, err := c.open(openCtx, dbName, secretName)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			_ = db.Close()
			return nil, fmt.Errorf("pool cache closed")
		}
		if c.gen == gen {
			c.pools[key] = db
		} else {
			// Flushed while opening: hand it out once, then retire it.
			c.retireLocked(db)
		}
		return db, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*sql.DB), nil
	}
}

func (c *Cache) open(ctx context.Context, dbName, secretName string) (*sql.DB, error) {
	creds, err := c.secrets.Credentials(ctx, secretName)
	if err != nil {
		return nil, fmt.Errorf("database credentials: %w", err)
	}

	db, err := sqlOpen("pgx", DSN(c.cfg.Host, c.cfg.Port, dbName, creds))
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", dbName, err)
	}
	if c.cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(c.cfg.MaxConnections)
	}
	c.log.Debug(ctx, "database pool created", "database", dbName)
	return db, nil
}

// DSN builds a postgres connection URL; credentials are escaped.
func DSN(host string, port int, dbName string, creds *secrets.Credentials) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(creds.Username, creds.Password),
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + dbName,
	}
	return u.String()
}

// Flush drops every cached pool. Dropped pools are closed after
// Config.RetireGrace; the next request opens a fresh pool.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, db := range c.pools {
		c.retireLocked(db)
		delete(c.pools, key)
	}
	c.gen++
}

func (c *Cache) retireLocked(db *sql.DB) {
	c.retired = append(c.retired, db)
	afterFunc(c.cfg.RetireGrace, func() {
		c.mu.Lock()
		for i, r := range c.retired {
			if r == db {
				c.retired = append(c.retired[:i], c.retired[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
		_ = db.Close()
	})
}

// Close closes every pool, including retired ones still in their grace period.
func (c *Cache) Close() (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, db := range c.pools {
		err = multierr.Append(err, db.Close())
		delete(c.pools, key)
	}
	for _, db := range c.retired {
		err = multierr.Append(err, db.Close())
	}
	c.retired = nil
	c.closed = true
	return err
}

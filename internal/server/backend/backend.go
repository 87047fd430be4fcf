// Package backend connects the process to its backing services exactly once:
// the identity provider, object storage, push delivery, the worker bus and
// PostgreSQL. Everything else depends on the Connection interface only.
package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophadmin/internal/logging"
	"github.com/dmitrijs2005/gophadmin/internal/server/auth"
	"github.com/dmitrijs2005/gophadmin/internal/server/config"
	"github.com/dmitrijs2005/gophadmin/internal/server/push"
	"github.com/dmitrijs2005/gophadmin/internal/server/upload"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

// Connection is the capability the application is built on.
type Connection interface {
	Verifier() auth.Verifier
	Store() upload.ObjectStore
	Dispatcher() push.Dispatcher
	Bus() *push.RedisBus
	DB() *sql.DB
	Close() error
}

// Options selects the bootstrap flavour.
type Options struct {
	// Verbose logs every call made through the backend SDKs.
	Verbose bool
	Logger  logging.Logger
}

// Seams for tests.
var (
	openDB         = sql.Open
	newObjectStore = func(ctx context.Context, o upload.S3Options) (upload.ObjectStore, error) {
		return upload.NewS3Store(ctx, o)
	}
	newRedisClient = redis.NewClient
	pingRedis      = func(ctx context.Context, c *redis.Client) error { return c.Ping(ctx).Err() }
)

var (
	once    sync.Once
	conn    Connection
	connErr error
)

// Connect establishes the connection on first use and returns the same
// result on every later call, whatever the arguments.
func Connect(ctx context.Context, cfg *config.Config, opts Options) (Connection, error) {
	once.Do(func() {
		conn, connErr = connect(ctx, cfg, opts)
	})
	return conn, connErr
}

type connection struct {
	verifier   auth.Verifier
	store      upload.ObjectStore
	dispatcher push.Dispatcher
	bus        *push.RedisBus
	db         *sql.DB
	redis      *redis.Client
}

func (c *connection) Verifier() auth.Verifier     { return c.verifier }
func (c *connection) Store() upload.ObjectStore   { return c.store }
func (c *connection) Dispatcher() push.Dispatcher { return c.dispatcher }
func (c *connection) Bus() *push.RedisBus         { return c.bus }
func (c *connection) DB() *sql.DB                 { return c.db }

func (c *connection) Close() error {
	var errs []error
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	return errors.Join(errs...)
}

func connect(ctx context.Context, cfg *config.Config, opts Options) (_ Connection, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop{}
	}
	logger = logger.With("module", "backend")

	c := &connection{}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	c.db, err = openDB("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err = c.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	c.redis = newRedisClient(&redis.Options{Addr: cfg.RedisAddr})
	if err = pingRedis(ctx, c.redis); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	c.bus = push.NewRedisBus(c.redis, cfg.PushChannel, logger)

	c.store, err = newObjectStore(ctx, upload.S3Options{
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3RootUser,
		SecretKey:     cfg.S3RootPassword,
		Bucket:        cfg.S3Bucket,
		BaseEndpoint:  cfg.S3BaseEndpoint,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}

	if cfg.Firebase.Enabled() {
		if err = connectFirebase(ctx, c, cfg, logger); err != nil {
			return nil, fmt.Errorf("firebase: %w", err)
		}
		logger.Info(ctx, "connected to managed backend", "project_id", cfg.Firebase.ProjectID, "emulators", cfg.Emulators.Enabled())
	} else {
		c.verifier = auth.NewJWTVerifier(cfg.SecretKey)
		c.dispatcher = push.NewBusDispatcher(c.bus)
		logger.Info(ctx, "managed backend not configured, using local tokens and bus delivery")
	}

	if opts.Verbose {
		c.verifier = &verboseVerifier{next: c.verifier, logger: logger}
		c.store = &verboseStore{next: c.store, logger: logger}
		c.dispatcher = &verboseDispatcher{next: c.dispatcher, logger: logger}
	}

	return c, nil
}

// ConnectBus opens only the Redis bus, for processes such as the push worker
// that need nothing else. The returned close func releases the client.
func ConnectBus(ctx context.Context, cfg *config.Config, logger logging.Logger) (*push.RedisBus, func() error, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	client := newRedisClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := pingRedis(ctx, client); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return push.NewRedisBus(client, cfg.PushChannel, logger), client.Close, nil
}

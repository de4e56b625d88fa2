// Package config loads server configuration from the environment and wires
// the lifecycle service together with its repository, asset store, cache
// and notification bus.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/assets"
	"github.com/tendant/simple-cms/pkg/simplecms/cache"
	"github.com/tendant/simple-cms/pkg/simplecms/events"
	"github.com/tendant/simple-cms/pkg/simplecms/repo/memory"
	repopg "github.com/tendant/simple-cms/pkg/simplecms/repo/postgres"
)

// ServerConfig represents server configuration for the simple-cms service.
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"4001"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// Database configuration
	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"` // "memory", "postgres"
	DatabaseURL  string `env:"DATABASE_URL" env-default:""`

	// Asset storage configuration
	StorageType string `env:"STORAGE_TYPE" env-default:"fs"` // "fs", "s3"
	AssetDir    string `env:"ASSET_DIR" env-default:"public"`

	S3Region          string `env:"S3_REGION" env-default:""`
	S3Bucket          string `env:"S3_BUCKET" env-default:""`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID" env-default:""`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY" env-default:""`
	S3Endpoint        string `env:"S3_ENDPOINT" env-default:""`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	S3URLPrefix       string `env:"S3_URL_PREFIX" env-default:""`

	// Cache configuration. The TTL is a safety net; invalidation is scoped
	// and explicit.
	CacheCapacity int           `env:"CACHE_CAPACITY" env-default:"10000"`
	CacheTTL      time.Duration `env:"CACHE_TTL" env-default:"15m"`

	// Auth and notifications
	JWTSecret       string `env:"JWT_SECRET" env-default:""`
	EnableWebsocket bool   `env:"ENABLE_WEBSOCKET" env-default:"true"`
}

// Load reads the configuration from the environment.
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	if c.StorageType != "fs" && c.StorageType != "s3" {
		return errors.New("storage_type must be 'fs' or 's3'")
	}
	if c.StorageType == "s3" && c.S3Bucket == "" {
		return errors.New("s3_bucket is required when using s3 storage")
	}
	if c.Environment == "production" && c.JWTSecret == "" {
		return errors.New("jwt_secret is required in production")
	}
	return nil
}

// Runtime holds everything the server needs after wiring.
type Runtime struct {
	Service simplecms.Service
	Assets  assets.Store
	Cache   *cache.Cache
	Hub     *events.Hub // nil when websocket notifications are disabled
	Auth    *jwtauth.JWTAuth
	Pool    *pgxpool.Pool // nil for the memory repository
}

// Close releases the runtime's backends.
func (rt *Runtime) Close() {
	if rt.Hub != nil {
		rt.Hub.Close()
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
}

// Build wires a Runtime from the configuration.
func (c *ServerConfig) Build(ctx context.Context, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{}

	var repo simplecms.Repository
	switch c.DatabaseType {
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		rt.Pool = pool
		repo = repopg.NewWithPool(pool)
	default:
		repo = memory.New()
	}

	var store assets.Store
	var err error
	switch c.StorageType {
	case "s3":
		store, err = assets.NewS3(ctx, assets.S3Config{
			Region:          c.S3Region,
			Bucket:          c.S3Bucket,
			AccessKeyID:     c.S3AccessKeyID,
			SecretAccessKey: c.S3SecretAccessKey,
			Endpoint:        c.S3Endpoint,
			UsePathStyle:    c.S3UsePathStyle,
			URLPrefix:       c.S3URLPrefix,
		})
	default:
		store, err = assets.NewFS(assets.FSConfig{BaseDir: c.AssetDir})
	}
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to create asset store: %w", err)
	}
	rt.Assets = store

	rt.Cache = cache.New(cache.Config{
		Capacity: c.CacheCapacity,
		TTL:      c.CacheTTL,
	})

	var sink simplecms.EventSink
	if c.EnableWebsocket {
		rt.Hub = events.NewHub(logger)
		sink = rt.Hub
	} else {
		sink = events.NewLogSink(logger)
	}

	svc, err := simplecms.New(
		simplecms.WithRepository(repo),
		simplecms.WithAssetStore(store),
		simplecms.WithCache(rt.Cache),
		simplecms.WithEventSink(sink),
		simplecms.WithLogger(logger),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Service = svc

	rt.Auth = jwtauth.New("HS256", []byte(c.JWTSecret), nil)
	return rt, nil
}

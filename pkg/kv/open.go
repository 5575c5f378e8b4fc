package kv

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Type string

const (
	TypeMemory Type = "memory"
	TypeFile   Type = "file"
	TypeSQLite Type = "sqlite"
	TypeRedis  Type = "redis"
)

// Config selects and configures a Store backend.
type Config struct {
	Type Type `yaml:"type" mapstructure:"store-type"`
	// Path is the JSON file for TypeFile and the database file for TypeSQLite.
	Path          string `yaml:"path" mapstructure:"store-path"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis-addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis-password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis-db"`
	RedisPrefix   string `yaml:"redis_prefix" mapstructure:"redis-prefix"`
}

// Open builds the Store described by cfg. An empty type means memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	log.Debug().Str("type", string(cfg.Type)).Str("path", cfg.Path).Msg("Opening kv store")

	switch cfg.Type {
	case "", TypeMemory:
		return NewInMemoryStore(), nil
	case TypeFile:
		return NewJSONFileStore(cfg.Path)
	case TypeSQLite:
		dsn, err := SQLiteDSNForFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(dsn)
	case TypeRedis:
		return NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.RedisPrefix)
	default:
		return nil, errors.Wrapf(ErrUnknownType, "%q", cfg.Type)
	}
}

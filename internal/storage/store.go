// Package storage persists session tokens between CLI invocations.
package storage

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"btw-buddy/internal/config"

	"github.com/redis/go-redis/v9"
)

// Keys written by the session manager
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

// TokenStore is durable client storage for plain-text token material.
// Writes are last-write-wins; there is no cross-process locking.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Open builds the store selected by storage.backend
func Open(cfg *config.Config) (TokenStore, error) {
	switch cfg.Storage.Backend {
	case "", "file":
		return NewFileStore(cfg.Storage.File), nil
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + strconv.Itoa(cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis token store: %w", err)
		}
		log.Println("[Redis] Token store connected")
		return NewRedisStore(client, cfg.Storage.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown token store backend %q", cfg.Storage.Backend)
	}
}

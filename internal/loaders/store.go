package loaders

import (
	"context"
	"errors"
	"fmt"

	"github.com/Conversly/storefront/internal/config"
	"github.com/Conversly/storefront/internal/utils"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Get when a key has never been written or was
// deleted.
var ErrNotFound = errors.New("key not found")

// Store is the durable key/value state behind the storefront session: the
// cart mapping, the signed-in user and the bearer token. Values are opaque
// JSON documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Well-known keys.
const (
	KeyCartItems = "cartItems"
	KeyUser      = "user"
	KeyToken     = "token"
)

// Open builds the Store selected by cfg.StorageDriver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	utils.Zlog.Info("Opening state store",
		zap.String("driver", cfg.StorageDriver),
		zap.String("namespace", cfg.StorageNamespace))

	switch cfg.StorageDriver {
	case "memory":
		return NewMemoryStore(), nil
	case "file", "":
		return NewFileStore(cfg.StoragePath, cfg.StorageNamespace)
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL, cfg.StorageNamespace)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DatabaseURL, cfg.StorageNamespace)
	case "mongo":
		return NewMongoStore(ctx, cfg.MongoURL, cfg.MongoDatabase, cfg.StorageNamespace)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

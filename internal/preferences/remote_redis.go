package preferences

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	domainerrors "github.com/siralexgrey/yasno-zrozumilo/internal/domain/errors"
)

const redisSnapshotKey = "yasno_zrozumilo:preferences"

// RedisBackend тримає знімок одним ключем у Redis. Альтернатива
// HTTP-сховищу, коли поруч уже є Redis.
type RedisBackend struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisBackend(addr, password string, db int, logger *slog.Logger) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("помилка при підключенні до Redis: %w", err)
	}

	logger.Info("З'єднання з Redis успішно встановлено")

	return &RedisBackend{
		client: client,
		logger: logger,
	}, nil
}

func (b *RedisBackend) Name() string {
	return "redis:" + redisSnapshotKey
}

func (b *RedisBackend) Load(ctx context.Context) (*Snapshot, error) {
	data, err := b.client.Get(ctx, redisSnapshotKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, &domainerrors.ErrSnapshotNotFound{}
		}

		return nil, fmt.Errorf("помилка при читанні знімка з Redis: %w", err)
	}

	return decodeSnapshot(data)
}

func (b *RedisBackend) Store(ctx context.Context, snapshot *Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	if err := b.client.Set(ctx, redisSnapshotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("помилка при записі знімка в Redis: %w", err)
	}

	return nil
}

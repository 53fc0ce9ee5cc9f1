package preferences

import (
	"log/slog"

	"github.com/go-resty/resty/v2"

	"github.com/siralexgrey/yasno-zrozumilo/internal/config"
)

const (
	RemoteBackendNone  = ""
	RemoteBackendHTTP  = "http"
	RemoteBackendRedis = "redis"
)

// NewRemoteBackend створює віддалений бекенд знімків за конфігурацією.
// Повертає nil, якщо віддалене сховище не налаштоване: воно опційне,
// локальний файл лишається жорсткою гарантією.
func NewRemoteBackend(cfg *config.Config, logger *slog.Logger) (Backend, error) {
	switch cfg.RemoteStoreBackend {
	case RemoteBackendHTTP:
		if cfg.RemoteStoreURL == "" {
			logger.Warn("REMOTE_STORE_URL порожній, віддалене сховище вимкнено")
			return nil, nil
		}

		logger.Info("Створення HTTP бекенда знімків налаштувань",
			"url", cfg.RemoteStoreURL,
		)

		client := resty.New().SetTimeout(cfg.FetchTimeout)

		return NewHTTPBackend(client, cfg.RemoteStoreURL, cfg.RemoteStoreToken), nil
	case RemoteBackendRedis:
		logger.Info("Створення Redis бекенда знімків налаштувань",
			"addr", cfg.RedisURL,
		)

		return NewRedisBackend(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, logger)
	case RemoteBackendNone:
		return nil, nil
	default:
		logger.Warn("Невідомий тип віддаленого сховища, вимкнено",
			"backend", cfg.RemoteStoreBackend,
		)

		return nil, nil
	}
}

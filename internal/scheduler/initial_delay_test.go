package scheduler

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/siralexgrey/yasno-zrozumilo/internal/domain/models"
)

func newTestScheduler(sources []models.Source, interval time.Duration) *SyncScheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewSyncScheduler(nil, nil, nil, sources, interval, time.UTC, logger)
}

func TestInitialDelay(t *testing.T) {
	sources := []models.Source{{ID: "kyiv"}, {ID: "dnipro"}}
	interval := 10 * time.Minute
	now := time.Date(2025, 11, 18, 16, 0, 0, 0, time.UTC)

	t.Run("порожній кеш - негайний старт", func(t *testing.T) {
		s := newTestScheduler(sources, interval)

		assert.Equal(t, time.Duration(0), s.initialDelay(now))
	})

	t.Run("свіжий кеш - чекаємо залишок інтервалу", func(t *testing.T) {
		s := newTestScheduler(sources, interval)
		s.Seed("kyiv", models.ScheduleDocument{"5.1": {}}, now.Add(-3*time.Minute))
		s.Seed("dnipro", models.ScheduleDocument{"1.1": {}}, now.Add(-2*time.Minute))

		assert.Equal(t, 7*time.Minute, s.initialDelay(now), "delay follows the oldest fetch")
	})

	t.Run("застарілий кеш - негайний старт", func(t *testing.T) {
		s := newTestScheduler(sources, interval)
		s.Seed("kyiv", models.ScheduleDocument{"5.1": {}}, now.Add(-time.Hour))
		s.Seed("dnipro", models.ScheduleDocument{"1.1": {}}, now.Add(-time.Hour))

		assert.Equal(t, time.Duration(0), s.initialDelay(now))
	})

	t.Run("частково відоме отримання - негайний старт", func(t *testing.T) {
		s := newTestScheduler(sources, interval)
		s.Seed("kyiv", models.ScheduleDocument{"5.1": {}}, now.Add(-time.Minute))

		assert.Equal(t, time.Duration(0), s.initialDelay(now))
	})
}

package preferences

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/siralexgrey/yasno-zrozumilo/internal/common/metrics"
	domainerrors "github.com/siralexgrey/yasno-zrozumilo/internal/domain/errors"
	"github.com/siralexgrey/yasno-zrozumilo/internal/domain/models"
)

// Store — довговічне сховище налаштувань користувачів з подвійним
// зберіганням: локальний файл (жорстка гарантія) плюс опційне віддалене
// сховище (best-effort резерв між рестартами). Кожна мутація налаштувань
// тягне збереження знімка; мітки оновлення джерел зберігаються разом
// зі знімком, але самі по собі збереження не викликають.
type Store struct {
	mu         sync.Mutex
	prefs      map[int64]models.UserPreference
	sourceMeta map[string]models.SourceMeta
	local      Backend
	remote     Backend
	logger     *slog.Logger
}

func NewStore(local Backend, remote Backend, logger *slog.Logger) *Store {
	return &Store{
		prefs:      make(map[int64]models.UserPreference),
		sourceMeta: make(map[string]models.SourceMeta),
		local:      local,
		remote:     remote,
		logger:     logger,
	}
}

// Load піднімає знімок: спершу віддалене сховище, інакше локальний файл,
// інакше порожній стан. Успішне віддалене читання одразу дзеркалиться у
// локальний файл, щоб локальна копія не відставала від останнього
// відомого стану (read-repair).
func (s *Store) Load(ctx context.Context) error {
	if s.remote != nil {
		snapshot, err := s.remote.Load(ctx)
		if err == nil {
			s.apply(snapshot)

			if err := s.local.Store(ctx, snapshot); err != nil {
				s.logger.Error("Помилка дзеркалення знімка у локальний файл",
					"error", err,
				)
			}

			s.logger.Info("Налаштування підняті з віддаленого сховища",
				"backend", s.remote.Name(),
				"users", len(snapshot.Users),
			)

			return nil
		}

		if !errors.Is(err, &domainerrors.ErrSnapshotNotFound{}) {
			s.logger.Warn("Віддалене сховище недоступне, відкат на локальний файл",
				"backend", s.remote.Name(),
				"error", err,
			)
		}
	}

	snapshot, err := s.local.Load(ctx)
	if err != nil {
		if errors.Is(err, &domainerrors.ErrSnapshotNotFound{}) {
			s.logger.Info("Збережених налаштувань немає, старт з порожнього стану")
			return nil
		}

		return fmt.Errorf("помилка читання локального знімка: %w", err)
	}

	s.apply(snapshot)

	s.logger.Info("Налаштування підняті з локального файлу",
		"backend", s.local.Name(),
		"users", len(snapshot.Users),
	)

	return nil
}

func (s *Store) apply(snapshot *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, pref := range snapshot.Users {
		s.prefs[userID] = pref
	}

	for sourceID, meta := range snapshot.Sources {
		s.sourceMeta[sourceID] = meta
	}

	s.updateSubscribersGaugeLocked()
}

func (s *Store) Get(userID int64) (models.UserPreference, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pref, ok := s.prefs[userID]

	return pref, ok
}

// Ensure ліниво створює запис користувача при першій взаємодії.
func (s *Store) Ensure(ctx context.Context, userID, chatID int64) models.UserPreference {
	s.mu.Lock()

	pref, ok := s.prefs[userID]
	if ok && pref.ChatID == chatID {
		s.mu.Unlock()
		return pref
	}

	if !ok {
		pref = models.UserPreference{UserID: userID}
	}

	pref.ChatID = chatID
	s.prefs[userID] = pref
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)

	return pref
}

// SetQueue зберігає вибір черги. Вибір черги вмикає сповіщення;
// скидання черги прапорець не чіпає - доставка і так зупиниться,
// бо нема черги для звіряння.
func (s *Store) SetQueue(ctx context.Context, userID, chatID int64, sourceID, queueID string) models.UserPreference {
	s.mu.Lock()

	pref, ok := s.prefs[userID]
	if !ok {
		pref = models.UserPreference{UserID: userID}
	}

	pref.ChatID = chatID
	pref.SourceID = sourceID
	pref.QueueID = queueID

	if queueID != "" {
		pref.NotificationsEnabled = true
	}

	s.prefs[userID] = pref
	s.updateSubscribersGaugeLocked()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)

	return pref
}

func (s *Store) SetNotifications(ctx context.Context, userID int64, enabled bool) (models.UserPreference, error) {
	s.mu.Lock()

	pref, ok := s.prefs[userID]
	if !ok {
		s.mu.Unlock()
		return models.UserPreference{}, &domainerrors.ErrUserNotFound{UserID: userID}
	}

	pref.NotificationsEnabled = enabled
	s.prefs[userID] = pref
	s.updateSubscribersGaugeLocked()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)

	return pref, nil
}

// SubscribersBySource повертає користувачів із увімкненими сповіщеннями
// і чергою, підписаних на вказане джерело.
func (s *Store) SubscribersBySource(sourceID string) []models.UserPreference {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.UserPreference

	for _, pref := range s.prefs {
		if pref.SourceID == sourceID && pref.WantsNotifications() {
			out = append(out, pref)
		}
	}

	return out
}

func (s *Store) LastUpstreamUpdate(sourceID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.sourceMeta[sourceID]
	if !ok || meta.LastUpstreamUpdateAt.IsZero() {
		return time.Time{}, false
	}

	return meta.LastUpstreamUpdateAt, true
}

// SetLastUpstreamUpdate оновлює мітку джерела лише в пам'яті: знімок
// пишеться після мутацій налаштувань, а не після кожного циклу.
func (s *Store) SetLastUpstreamUpdate(sourceID string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sourceMeta[sourceID] = models.SourceMeta{LastUpstreamUpdateAt: t}
}

// Snapshot повертає копію поточного стану.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() *Snapshot {
	snapshot := &Snapshot{
		Users:   make(map[int64]models.UserPreference, len(s.prefs)),
		Sources: make(map[string]models.SourceMeta, len(s.sourceMeta)),
	}

	for userID, pref := range s.prefs {
		snapshot.Users[userID] = pref
	}

	for sourceID, meta := range s.sourceMeta {
		snapshot.Sources[sourceID] = meta
	}

	return snapshot
}

// persist пише знімок: локальний файл синхронно (невдача - помилка рівня
// error, налаштування лишаються недовговічними до наступного збереження),
// віддалене сховище best-effort.
func (s *Store) persist(ctx context.Context, snapshot *Snapshot) {
	if err := s.local.Store(ctx, snapshot); err != nil {
		s.logger.Error("Помилка збереження налаштувань у локальний файл",
			"backend", s.local.Name(),
			"error", err,
		)
	}

	if s.remote == nil {
		return
	}

	if err := s.remote.Store(ctx, snapshot); err != nil {
		s.logger.Warn("Помилка резервного запису у віддалене сховище",
			"backend", s.remote.Name(),
			"error", err,
		)
	}
}

func (s *Store) updateSubscribersGaugeLocked() {
	count := 0

	for _, pref := range s.prefs {
		if pref.WantsNotifications() {
			count++
		}
	}

	metrics.SubscribersGauge.Set(float64(count))
}

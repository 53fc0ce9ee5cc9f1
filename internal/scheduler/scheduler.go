package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/siralexgrey/yasno-zrozumilo/internal/common/metrics"
	"github.com/siralexgrey/yasno-zrozumilo/internal/common/timeutil"
	"github.com/siralexgrey/yasno-zrozumilo/internal/domain/models"
)

type Fetcher interface {
	Fetch(ctx context.Context, source models.Source) (models.ScheduleDocument, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, source models.Source, previous, current models.ScheduleDocument)
}

type SourceMetaStore interface {
	SetLastUpstreamUpdate(sourceID string, t time.Time)
}

// SyncScheduler крутить цикли fetch-diff-notify для всіх джерел і одноосібно
// володіє переходом previous/current. Невдале отримання не чіпає стан:
// наступний тик сам і є повтором, без експоненційного бекофу.
type SyncScheduler struct {
	scheduler  *gocron.Scheduler
	fetcher    Fetcher
	dispatcher Dispatcher
	meta       SourceMetaStore
	sources    []models.Source
	interval   time.Duration
	loc        *time.Location
	logger     *slog.Logger

	mu    sync.Mutex
	state map[string]*models.SyncState
}

func NewSyncScheduler(
	fetcher Fetcher,
	dispatcher Dispatcher,
	meta SourceMetaStore,
	sources []models.Source,
	interval time.Duration,
	loc *time.Location,
	logger *slog.Logger,
) *SyncScheduler {
	state := make(map[string]*models.SyncState, len(sources))
	for _, source := range sources {
		state[source.ID] = &models.SyncState{}
	}

	return &SyncScheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		fetcher:    fetcher,
		dispatcher: dispatcher,
		meta:       meta,
		sources:    sources,
		interval:   interval,
		loc:        loc,
		logger:     logger,
		state:      state,
	}
}

// Seed підкладає піднятий з диска документ як current з previous = nil:
// сам факт завантаження ніколи не породжує сповіщень.
func (s *SyncScheduler) Seed(sourceID string, doc models.ScheduleDocument, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[sourceID]
	if !ok {
		return
	}

	st.Current = doc
	st.LastFetchAt = fetchedAt
}

// Start запускає періодичні цикли. Перший запуск відкладається на
// max(0, інтервал - (зараз - найстаріше відоме отримання)): рестарт одразу
// після успішного циклу не перечитує апстрім, а застарілий кеш тягне
// майже негайне надолуження.
func (s *SyncScheduler) Start() {
	delay := s.initialDelay(time.Now())

	s.logger.Info("Запуск планувальника синхронізації",
		"interval", s.interval.String(),
		"initialDelay", delay.String(),
		"sources", len(s.sources),
	)

	job := s.scheduler.Every(s.interval)

	if delay > 0 {
		job = job.StartAt(time.Now().Add(delay))
	} else {
		job = job.StartImmediately()
	}

	_, err := job.Do(func() {
		s.Sync(context.Background())
	})

	if err != nil {
		s.logger.Error("Помилка при налаштуванні планувальника",
			"error", err,
		)

		return
	}

	s.scheduler.StartAsync()
}

func (s *SyncScheduler) Stop() {
	s.logger.Info("Зупинка планувальника синхронізації")
	s.scheduler.Stop()
}

func (s *SyncScheduler) initialDelay(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest time.Time

	for _, st := range s.state {
		if st.LastFetchAt.IsZero() {
			return 0
		}

		if oldest.IsZero() || st.LastFetchAt.Before(oldest) {
			oldest = st.LastFetchAt
		}
	}

	if oldest.IsZero() {
		return 0
	}

	delay := s.interval - now.Sub(oldest)
	if delay < 0 {
		return 0
	}

	return delay
}

// Sync — один тик: джерела обробляються незалежно і паралельно,
// збій одного не блокує інші.
func (s *SyncScheduler) Sync(ctx context.Context) {
	s.logger.Info("Запуск циклу синхронізації")

	wg := sync.WaitGroup{}

	for _, source := range s.sources {
		wg.Add(1)

		go func(source models.Source) {
			defer wg.Done()
			s.syncSource(ctx, source)
		}(source)
	}

	wg.Wait()

	s.logger.Info("Цикл синхронізації завершено")
}

func (s *SyncScheduler) syncSource(ctx context.Context, source models.Source) {
	start := time.Now()

	doc, err := s.fetcher.Fetch(ctx, source)

	metrics.FetchDuration.WithLabelValues(source.ID).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.RecordFetch(source.ID, "error")
		s.logger.Error("Не вдалося отримати графік",
			"source", source.ID,
			"error", err,
		)

		return
	}

	metrics.RecordFetch(source.ID, "ok")

	upstreamUpdate := s.maxUpstreamUpdate(source.ID, doc)

	s.mu.Lock()
	st := s.state[source.ID]
	st.Previous = st.Current
	st.Current = doc
	st.LastFetchAt = time.Now()
	st.LastUpstreamUpdateAt = upstreamUpdate
	previous, current := st.Previous, st.Current
	s.mu.Unlock()

	s.meta.SetLastUpstreamUpdate(source.ID, upstreamUpdate)

	if previous == nil {
		s.logger.Info("Перше успішне отримання, сповіщення пропущено",
			"source", source.ID,
		)

		return
	}

	s.dispatcher.Dispatch(ctx, source, previous, current)
}

// maxUpstreamUpdate — максимум updatedOn по чергах у звітному поясі.
// Якщо жодна черга не несе розбірливої мітки, відкат на годинник процесу.
func (s *SyncScheduler) maxUpstreamUpdate(sourceID string, doc models.ScheduleDocument) time.Time {
	var max time.Time

	for _, queue := range doc {
		if queue.UpdatedOn == "" {
			continue
		}

		t, err := timeutil.ParseUpstreamTime(queue.UpdatedOn, s.loc)
		if err != nil {
			continue
		}

		if t.After(max) {
			max = t
		}
	}

	if max.IsZero() {
		s.logger.Warn("Жодна черга не має розбірливої мітки updatedOn, відкат на годинник процесу",
			"source", sourceID,
		)

		return time.Now().In(s.loc)
	}

	return max
}

// State повертає копію стану джерела для звітів команди /status.
func (s *SyncScheduler) State(sourceID string) (models.SyncState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[sourceID]
	if !ok {
		return models.SyncState{}, false
	}

	return *st, true
}

// Interval повертає період між циклами.
func (s *SyncScheduler) Interval() time.Duration {
	return s.interval
}

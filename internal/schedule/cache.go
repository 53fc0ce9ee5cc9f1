package schedule

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/siralexgrey/yasno-zrozumilo/internal/domain/models"
)

type cacheSnapshot struct {
	Sources map[string]cacheEntry `json:"sources"`
}

type cacheEntry struct {
	FetchedAt time.Time               `json:"fetched_at"`
	Document  models.ScheduleDocument `json:"document"`
}

// Cache зберігає останній успішно отриманий документ кожного джерела в
// пам'яті з дзеркалом на диску. Запис дзеркала не блокує шлях отримання:
// невдалий запис логується, але не фатальний.
type Cache struct {
	mu        sync.Mutex
	fileMu    sync.Mutex
	current   map[string]models.ScheduleDocument
	fetchedAt map[string]time.Time
	filePath  string
	logger    *slog.Logger
}

func NewCache(filePath string, logger *slog.Logger) *Cache {
	return &Cache{
		current:   make(map[string]models.ScheduleDocument),
		fetchedAt: make(map[string]time.Time),
		filePath:  filePath,
		logger:    logger,
	}
}

// Load піднімає дзеркало з диска після рестарту. Відсутній файл - не помилка:
// кеш просто стартує порожнім.
func (c *Cache) Load() error {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("помилка читання дзеркала кешу: %w", err)
	}

	var snapshot cacheSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("помилка розбору дзеркала кешу: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for sourceID, entry := range snapshot.Sources {
		if len(entry.Document) == 0 {
			continue
		}

		c.current[sourceID] = entry.Document
		c.fetchedAt[sourceID] = entry.FetchedAt
	}

	c.logger.Info("Кеш графіків піднято з диска",
		"sources", len(c.current),
		"file", c.filePath,
	)

	return nil
}

func (c *Cache) Get(sourceID string) (models.ScheduleDocument, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, ok := c.current[sourceID]

	return doc, ok
}

func (c *Cache) FetchedAt(sourceID string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.fetchedAt[sourceID]

	return t, ok
}

// OldestFetch повертає найстаріший відомий час отримання серед джерел.
// Нульовий час означає, що жодне джерело ще не отримувалося.
func (c *Cache) OldestFetch() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	var oldest time.Time

	for _, t := range c.fetchedAt {
		if oldest.IsZero() || t.Before(oldest) {
			oldest = t
		}
	}

	return oldest
}

// Set оновлює документ джерела в пам'яті і асинхронно дзеркалить кеш на диск.
func (c *Cache) Set(sourceID string, doc models.ScheduleDocument) {
	c.mu.Lock()
	c.current[sourceID] = doc
	c.fetchedAt[sourceID] = time.Now()
	data, err := c.marshalLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("Помилка серіалізації дзеркала кешу",
			"source", sourceID,
			"error", err,
		)

		return
	}

	go func() {
		c.fileMu.Lock()
		defer c.fileMu.Unlock()

		if err := writeFileAtomic(c.filePath, data); err != nil {
			c.logger.Error("Помилка запису дзеркала кешу",
				"source", sourceID,
				"file", c.filePath,
				"error", err,
			)
		}
	}()
}

func (c *Cache) marshalLocked() ([]byte, error) {
	snapshot := cacheSnapshot{Sources: make(map[string]cacheEntry, len(c.current))}

	for sourceID, doc := range c.current {
		snapshot.Sources[sourceID] = cacheEntry{
			FetchedAt: c.fetchedAt[sourceID],
			Document:  doc,
		}
	}

	return json.MarshalIndent(snapshot, "", "  ")
}

// writeFileAtomic пише у тимчасовий файл і перейменовує, щоб обірваний
// процес не лишив наполовину записаного дзеркала.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), path)
}

package clients

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-resty/resty/v2"

	"github.com/siralexgrey/yasno-zrozumilo/internal/common/httputil"
	"github.com/siralexgrey/yasno-zrozumilo/internal/config"
	domainerrors "github.com/siralexgrey/yasno-zrozumilo/internal/domain/errors"
	"github.com/siralexgrey/yasno-zrozumilo/internal/domain/models"
)

// ScheduleMirror приймає свіжоотриманий документ до повернення з Fetch,
// щоб падіння між отриманням і порівнянням не втратило дані.
type ScheduleMirror interface {
	Set(sourceID string, doc models.ScheduleDocument)
}

// YasnoClient отримує документ графіка одного джерела. Без стану і без
// власних повторів: каденс повторів належить планувальнику.
type YasnoClient struct {
	client *resty.Client
	mirror ScheduleMirror
	logger *slog.Logger
}

func NewYasnoClient(cfg *config.Config, mirror ScheduleMirror, logger *slog.Logger) *YasnoClient {
	client := httputil.CreateResilientHTTPClient(cfg, logger, "yasno")

	return &YasnoClient{
		client: client,
		mirror: mirror,
		logger: logger,
	}
}

// Fetch повертає документ джерела або помилку. Будь-яка мережева помилка,
// не-2xx статус, некоректний JSON або документ без черг — невдале
// отримання, яке не перетирає збережений стан.
func (c *YasnoClient) Fetch(ctx context.Context, source models.Source) (models.ScheduleDocument, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(source.Endpoint)

	if err != nil {
		return nil, &domainerrors.ErrFetchFailed{SourceID: source.ID, Cause: err}
	}

	if !resp.IsSuccess() {
		return nil, &domainerrors.ErrFetchFailed{
			SourceID: source.ID,
			Cause:    &domainerrors.HTTPError{StatusCode: resp.StatusCode()},
		}
	}

	var doc models.ScheduleDocument
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, &domainerrors.ErrFetchFailed{SourceID: source.ID, Cause: err}
	}

	if len(doc) == 0 {
		return nil, &domainerrors.ErrEmptyDocument{SourceID: source.ID}
	}

	c.sanitize(source.ID, doc)

	c.mirror.Set(source.ID, doc)

	return doc, nil
}

// sanitize відкидає слоти з порушеним інваріантом інтервалу, не зриваючи
// весь цикл через одне зіпсоване поле.
func (c *YasnoClient) sanitize(sourceID string, doc models.ScheduleDocument) {
	for queueID, queue := range doc {
		queue.Today.Slots = c.validSlots(sourceID, queueID, queue.Today.Slots)
		queue.Tomorrow.Slots = c.validSlots(sourceID, queueID, queue.Tomorrow.Slots)
		doc[queueID] = queue
	}
}

func (c *YasnoClient) validSlots(sourceID, queueID string, slots []models.Slot) []models.Slot {
	valid := slots[:0]

	for _, slot := range slots {
		if !slot.Valid() {
			c.logger.Warn("Відкинуто слот з некоректним інтервалом",
				"source", sourceID,
				"queue", queueID,
				"start", slot.Start,
				"end", slot.End,
			)

			continue
		}

		valid = append(valid, slot)
	}

	return valid
}

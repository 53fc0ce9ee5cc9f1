package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/siralexgrey/yasno-zrozumilo/internal/common/metrics"
	"github.com/siralexgrey/yasno-zrozumilo/internal/domain/models"
	"github.com/siralexgrey/yasno-zrozumilo/internal/schedule"
)

type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type SubscriberStore interface {
	SubscribersBySource(sourceID string) []models.UserPreference
}

// Dispatcher розсилає сповіщення про зміни графіка підписникам джерела.
// Збій доставки одному користувачу ізолюється і не зриває решту розсилки.
type Dispatcher struct {
	prefs     SubscriberStore
	detector  *schedule.Detector
	formatter *schedule.Formatter
	sender    MessageSender
	logger    *slog.Logger
}

func NewDispatcher(
	prefs SubscriberStore,
	detector *schedule.Detector,
	formatter *schedule.Formatter,
	sender MessageSender,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		prefs:     prefs,
		detector:  detector,
		formatter: formatter,
		sender:    sender,
		logger:    logger,
	}
}

type detection struct {
	changed bool
	changes []string
}

// Dispatch проганяє детектор для черги кожного підписника джерела і
// надсилає повідомлення тим, чия черга суттєво змінилася. Результат
// детекції мемоізується по черзі: підписники однієї черги ділять один
// прогін.
func (d *Dispatcher) Dispatch(ctx context.Context, source models.Source, previous, current models.ScheduleDocument) {
	subscribers := d.prefs.SubscribersBySource(source.ID)
	if len(subscribers) == 0 {
		return
	}

	detections := make(map[string]detection)
	sent := 0

	for _, pref := range subscribers {
		result, ok := detections[pref.QueueID]
		if !ok {
			changed, changes := d.detector.Detect(previous, current, pref.QueueID)
			result = detection{changed: changed, changes: changes}
			detections[pref.QueueID] = result

			if changed {
				metrics.ChangesDetectedTotal.WithLabelValues(source.ID).Inc()
			}
		}

		if !result.changed {
			continue
		}

		message := d.renderMessage(pref.QueueID, result.changes, current)

		if err := d.sender.SendMessage(ctx, pref.ChatID, message); err != nil {
			metrics.RecordNotification(source.ID, "error")
			d.logger.Error("Не вдалося доставити сповіщення",
				"source", source.ID,
				"user", pref.UserID,
				"chat", pref.ChatID,
				"error", err,
			)

			continue
		}

		metrics.RecordNotification(source.ID, "ok")
		sent++

		d.logger.Info("Сповіщення надіслано",
			"source", source.ID,
			"user", pref.UserID,
			"queue", pref.QueueID,
		)
	}

	if sent > 0 {
		d.logger.Info("Розсилка по джерелу завершена",
			"source", source.ID,
			"sent", sent,
			"subscribers", len(subscribers),
		)
	}
}

func (d *Dispatcher) renderMessage(queueID string, changes []string, current models.ScheduleDocument) string {
	var sb strings.Builder

	sb.WriteString("🔔 *Оновлення для черги " + queueID + "*\n\n")

	for _, change := range changes {
		sb.WriteString("• " + change + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(d.formatter.FormatDocument(current, queueID))

	return sb.String()
}

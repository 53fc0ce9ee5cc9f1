package schedule

import (
	"sort"
	"strings"
	"time"

	"github.com/siralexgrey/yasno-zrozumilo/internal/common/timeutil"
	"github.com/siralexgrey/yasno-zrozumilo/internal/domain/models"
)

// Formatter рендерить графік у текст повідомлення Telegram (Markdown).
type Formatter struct {
	loc *time.Location
}

func NewFormatter(loc *time.Location) *Formatter {
	return &Formatter{loc: loc}
}

// FormatDocument форматує документ джерела, опційно фільтруючи за чергою.
func (f *Formatter) FormatDocument(doc models.ScheduleDocument, queueFilter string) string {
	if len(doc) == 0 {
		return "📋 Немає доступних даних про графік відключень"
	}

	var sb strings.Builder

	sb.WriteString("⚡️ *Графік планових відключень*\n\n")

	var queueNames []string

	if queueFilter != "" {
		if _, ok := doc[queueFilter]; !ok {
			available := doc.Queues()
			sort.Strings(available)

			return "❌ Черга " + queueFilter + " не знайдена.\n\nДоступні черги: " + strings.Join(available, ", ")
		}

		queueNames = []string{queueFilter}

		sb.WriteString("🔸 Фільтр: Черга " + queueFilter + "\n\n")
	} else {
		queueNames = doc.Queues()
		sort.Strings(queueNames)
	}

	for _, queueName := range queueNames {
		queue := doc[queueName]

		sb.WriteString("🔸 *Черга " + queueName + "*\n")
		f.writeDay(&sb, "Сьогодні", queue.Today)
		f.writeDay(&sb, "Завтра", queue.Tomorrow)
		sb.WriteString("\n")
	}

	return sb.String()
}

func (f *Formatter) writeDay(sb *strings.Builder, label string, day models.DaySchedule) {
	date := day.Date
	if len(date) > 10 {
		date = date[:10]
	}

	sb.WriteString("📅 " + label + " (" + date + "):\n")

	if day.Status == models.StatusWaitingForSchedule {
		sb.WriteString("  ⏳ Очікується графік\n")
		return
	}

	if day.Status == models.StatusEmergencyShutdowns {
		sb.WriteString("  ⚠️ Діють екстрені відключення\n")
		return
	}

	definite := day.DefiniteSlots()
	if len(definite) == 0 {
		sb.WriteString("  ✅ Відключень немає\n")
		return
	}

	for _, slot := range definite {
		sb.WriteString("  🔴 " + timeutil.MinutesToTime(slot.Start) + " - " + timeutil.MinutesToTime(slot.End) + " (відключення)\n")
	}
}

// FormatUpdatedAt додає до повідомлення мітку останнього оновлення.
func (f *Formatter) FormatUpdatedAt(t time.Time) string {
	return "\n\n🕐 Оновлено: " + timeutil.FormatMinute(t, f.loc)
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/siralexgrey/yasno-zrozumilo/internal/domain/models"
	"github.com/siralexgrey/yasno-zrozumilo/internal/preferences"
	"github.com/siralexgrey/yasno-zrozumilo/internal/schedule"
)

const queueButtonsPerRow = 3

// ScheduleReader — доступ команд до кешу графіків.
type ScheduleReader interface {
	Get(sourceID string) (models.ScheduleDocument, bool)
	FetchedAt(sourceID string) (time.Time, bool)
}

// SyncInfo — стан синхронізації для команди /status.
type SyncInfo interface {
	State(sourceID string) (models.SyncState, bool)
	Interval() time.Duration
}

// Reply — відповідь сервісу: текст і, опційно, inline-клавіатура.
type Reply struct {
	Text     string
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

// BotService обробляє команди і callback-кнопки користувачів. Весь стан
// живе у сховищі налаштувань і кеші графіків; сервіс лише читає, мутує
// і рендерить.
type BotService struct {
	cache     ScheduleReader
	prefs     *preferences.Store
	formatter *schedule.Formatter
	sync      SyncInfo
	sources   []models.Source
}

func NewBotService(
	cache ScheduleReader,
	prefs *preferences.Store,
	formatter *schedule.Formatter,
	sync SyncInfo,
	sources []models.Source,
) *BotService {
	return &BotService{
		cache:     cache,
		prefs:     prefs,
		formatter: formatter,
		sync:      sync,
		sources:   sources,
	}
}

func (s *BotService) ProcessCommand(ctx context.Context, userID, chatID int64, command, args string) Reply {
	s.prefs.Ensure(ctx, userID, chatID)

	switch command {
	case "start":
		return Reply{Text: startMessage}
	case "help":
		return Reply{Text: helpMessage}
	case "schedule":
		return s.handleSchedule(userID, strings.TrimSpace(args))
	case "queue":
		return s.handleQueue(userID)
	case "myqueue":
		return s.handleMyQueue(userID)
	case "status":
		return s.handleStatus()
	case "notifications":
		return s.handleNotifications(userID)
	default:
		return Reply{Text: "Невідома команда. Введіть /help для перегляду доступних команд."}
	}
}

// ProcessCallback обробляє натискання inline-кнопок: вибір джерела,
// вибір черги, перемикання сповіщень.
func (s *BotService) ProcessCallback(ctx context.Context, userID, chatID int64, data string) Reply {
	switch {
	case data == "queue_all":
		s.prefs.SetQueue(ctx, userID, chatID, "", "")

		return Reply{Text: "✅ Налаштування скинуто!\n\nТепер /myqueue буде показувати всі черги.\nВикористовуйте /schedule для перегляду графіка."}
	case strings.HasPrefix(data, "src_"):
		sourceID := strings.TrimPrefix(data, "src_")
		return s.queueKeyboardReply(userID, sourceID)
	case strings.HasPrefix(data, "queue_"):
		return s.handleQueueSelected(ctx, userID, chatID, strings.TrimPrefix(data, "queue_"))
	case data == "notif_on":
		return s.handleNotifToggle(ctx, userID, true)
	case data == "notif_off":
		return s.handleNotifToggle(ctx, userID, false)
	default:
		return Reply{Text: "Невідома дія."}
	}
}

func (s *BotService) handleSchedule(userID int64, queueFilter string) Reply {
	source := s.sourceForUser(userID)

	doc, ok := s.cache.Get(source.ID)
	if !ok {
		return Reply{Text: loadingMessage}
	}

	text := s.formatter.FormatDocument(doc, queueFilter)

	if fetchedAt, ok := s.cache.FetchedAt(source.ID); ok {
		text += s.formatter.FormatUpdatedAt(fetchedAt)
	}

	return Reply{Text: text}
}

func (s *BotService) handleQueue(userID int64) Reply {
	if len(s.sources) > 1 {
		return s.sourceKeyboardReply()
	}

	return s.queueKeyboardReply(userID, s.sources[0].ID)
}

func (s *BotService) sourceKeyboardReply() Reply {
	var rows [][]tgbotapi.InlineKeyboardButton

	for _, source := range s.sources {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(source.DisplayName, "src_"+source.ID),
		))
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	return Reply{
		Text:     "🔸 *Виберіть своє місто:*",
		Keyboard: &keyboard,
	}
}

func (s *BotService) queueKeyboardReply(userID int64, sourceID string) Reply {
	doc, ok := s.cache.Get(sourceID)
	if !ok {
		return Reply{Text: loadingMessage}
	}

	queueNames := doc.Queues()
	sort.Strings(queueNames)

	var rows [][]tgbotapi.InlineKeyboardButton

	row := make([]tgbotapi.InlineKeyboardButton, 0, queueButtonsPerRow)

	for _, queueName := range queueNames {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(queueName, "queue_"+sourceID+"_"+queueName))

		if len(row) == queueButtonsPerRow {
			rows = append(rows, row)
			row = make([]tgbotapi.InlineKeyboardButton, 0, queueButtonsPerRow)
		}
	}

	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📋 Показати всі черги", "queue_all"),
	))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	var sb strings.Builder

	sb.WriteString("🔸 *Виберіть свою чергу відключень:*\n\n")

	if pref, ok := s.prefs.Get(userID); ok && pref.QueueID != "" {
		sb.WriteString("Поточна черга: *" + pref.QueueID + "*\n\n")
	}

	sb.WriteString("Після вибору команда /myqueue буде показувати тільки вашу чергу.")

	return Reply{
		Text:     sb.String(),
		Keyboard: &keyboard,
	}
}

func (s *BotService) handleQueueSelected(ctx context.Context, userID, chatID int64, payload string) Reply {
	sourceID, queueName, ok := strings.Cut(payload, "_")
	if !ok {
		return Reply{Text: "Невідома дія."}
	}

	s.prefs.SetQueue(ctx, userID, chatID, sourceID, queueName)

	return Reply{Text: fmt.Sprintf(
		"✅ Черга *%s* збережена!\n\n"+
			"Тепер команда /myqueue буде показувати тільки чергу %s.\n"+
			"🔔 Ви будете отримувати оновлення для цієї черги.\n\n"+
			"Використовуйте:\n"+
			"• /myqueue - ваша черга (%s)\n"+
			"• /schedule - всі черги\n"+
			"• /notifications - керувати сповіщеннями",
		queueName, queueName, queueName,
	)}
}

func (s *BotService) handleMyQueue(userID int64) Reply {
	pref, ok := s.prefs.Get(userID)
	if !ok || pref.QueueID == "" {
		return Reply{Text: "❌ Ви ще не вибрали чергу.\n\nВикористовуйте /queue щоб вибрати свою чергу."}
	}

	doc, cached := s.cache.Get(pref.SourceID)
	if !cached {
		return Reply{Text: loadingMessage}
	}

	text := s.formatter.FormatDocument(doc, pref.QueueID)

	if fetchedAt, ok := s.cache.FetchedAt(pref.SourceID); ok {
		text += s.formatter.FormatUpdatedAt(fetchedAt)
	}

	return Reply{Text: text}
}

func (s *BotService) handleStatus() Reply {
	var sb strings.Builder

	sb.WriteString("✅ *Статус системи*\n\n")

	now := time.Now()

	for _, source := range s.sources {
		st, ok := s.sync.State(source.ID)
		if !ok || st.LastFetchAt.IsZero() {
			sb.WriteString("🔸 " + source.DisplayName + ": ⏳ дані ще не завантажені\n")
			continue
		}

		minutesAgo := int(now.Sub(st.LastFetchAt).Minutes())
		minutesUntil := int(st.LastFetchAt.Add(s.sync.Interval()).Sub(now).Minutes())

		if minutesUntil < 0 {
			minutesUntil = 0
		}

		sb.WriteString(fmt.Sprintf(
			"🔸 %s\nОстаннє оновлення: %d хв тому\nНаступне оновлення: через %d хв\n\n",
			source.DisplayName, minutesAgo, minutesUntil,
		))
	}

	return Reply{Text: sb.String()}
}

func (s *BotService) handleNotifications(userID int64) Reply {
	pref, _ := s.prefs.Get(userID)

	var (
		rows   [][]tgbotapi.InlineKeyboardButton
		status string
	)

	if pref.NotificationsEnabled {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔔 Вимкнути сповіщення", "notif_off"),
		))
		status = "✅ Сповіщення включені для черги *" + pref.QueueID + "*"
	} else {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔔 Включити сповіщення", "notif_on"),
		))

		if pref.QueueID != "" {
			status = "❌ Сповіщення вимкнені для черги *" + pref.QueueID + "*"
		} else {
			status = "❌ Сповіщення вимкнені\n\nВиберіть чергу з /queue щоб включити сповіщення"
		}
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	return Reply{
		Text: "🔔 *Керування сповіщеннями*\n\n" + status + "\n\n" +
			"Ви будете отримувати повідомлення коли:\n" +
			"• Графік для вашої черги оновлюється\n" +
			"• З'являється графік на завтра",
		Keyboard: &keyboard,
	}
}

func (s *BotService) handleNotifToggle(ctx context.Context, userID int64, enabled bool) Reply {
	pref, ok := s.prefs.Get(userID)

	if enabled {
		if !ok || pref.QueueID == "" {
			return Reply{Text: "❌ Спочатку виберіть чергу з /queue"}
		}

		if _, err := s.prefs.SetNotifications(ctx, userID, true); err != nil {
			return Reply{Text: "Сталася помилка. Спробуйте ще раз."}
		}

		return Reply{Text: "✅ Сповіщення включені для черги *" + pref.QueueID + "*"}
	}

	if !ok {
		return Reply{Text: "❌ Сповіщення і так вимкнені."}
	}

	if _, err := s.prefs.SetNotifications(ctx, userID, false); err != nil {
		return Reply{Text: "Сталася помилка. Спробуйте ще раз."}
	}

	queueName := pref.QueueID
	if queueName == "" {
		queueName = "невідома"
	}

	return Reply{Text: "❌ Сповіщення вимкнені для черги *" + queueName + "*\n\n" +
		"Ви не будете отримувати оновлення, але /myqueue працюватиме як раніше."}
}

// sourceForUser повертає джерело користувача або перше налаштоване.
func (s *BotService) sourceForUser(userID int64) models.Source {
	if pref, ok := s.prefs.Get(userID); ok && pref.SourceID != "" {
		for _, source := range s.sources {
			if source.ID == pref.SourceID {
				return source
			}
		}
	}

	return s.sources[0]
}

const loadingMessage = "⏳ Завантажую дані... Спробуйте ще раз через кілька секунд."

const startMessage = "👋 Вітаю! Я бот Yasno Zrozumilo.\n\n" +
	"Я надаю інформацію про планові відключення електроенергії.\n\n" +
	"Доступні команди:\n" +
	"/schedule - Показати актуальний графік відключень\n" +
	"/queue - Вибрати свою чергу для фільтрації\n" +
	"/myqueue - Показати графік тільки для вашої черги\n" +
	"/notifications - Керувати сповіщеннями про оновлення\n" +
	"/status - Статус оновлення даних\n" +
	"/help - Допомога\n\n" +
	"🔔 *Як використовувати сповіщення:*\n" +
	"1. Виконайте /queue та виберіть вашу чергу\n" +
	"2. Виконайте /notifications та включіть сповіщення\n" +
	"3. Ви будете отримувати оновлення автоматично!\n\n" +
	"Я працюю як в особистих повідомленнях, так і в групових чатах!"

const helpMessage = "ℹ️ *Допомога*\n\n" +
	"*Команди:*\n" +
	"/start - Початок роботи з ботом\n" +
	"/schedule - Отримати актуальний графік відключень\n" +
	"/queue - Вибрати свою чергу\n" +
	"/myqueue - Показати графік вашої черги\n" +
	"/notifications - Керувати сповіщеннями\n" +
	"/status - Перевірити статус оновлення даних\n" +
	"/help - Показати цю довідку\n\n" +
	"*Сповіщення:*\n" +
	"Коли ви вибрали чергу та включили сповіщення, ви будете отримувати:\n" +
	"• Оновлення коли змінюється графік вашої черги\n" +
	"• Сповіщення коли з'являється графік на завтра\n\n" +
	"*Про бота:*\n" +
	"Бот автоматично оновлює дані за розкладом.\n" +
	"Можна використовувати в груповому чаті."

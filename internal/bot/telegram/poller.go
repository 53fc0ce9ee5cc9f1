package telegram

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/siralexgrey/yasno-zrozumilo/internal/bot/service"
	"github.com/siralexgrey/yasno-zrozumilo/internal/common/metrics"
	"github.com/siralexgrey/yasno-zrozumilo/internal/infrastructure/clients"
)

// Poller читає оновлення Telegram довгим опитуванням і роздає їх сервісу.
// Командна поверхня не блокує цикл синхронізації: вони координуються лише
// через кеш графіків і сховище налаштувань.
type Poller struct {
	telegramClient *clients.TelegramClient
	botService     *service.BotService
	logger         *slog.Logger
	updatesChan    tgbotapi.UpdatesChannel
	stopChan       chan struct{}
}

func NewPoller(telegramClient *clients.TelegramClient, botService *service.BotService, logger *slog.Logger) *Poller {
	return &Poller{
		telegramClient: telegramClient,
		botService:     botService,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

func (p *Poller) Start() {
	p.logger.Info("Запуск Telegram поллера")

	bot := p.telegramClient.GetBot()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	p.updatesChan = bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-p.stopChan:
				p.logger.Info("Отримано сигнал зупинки поллера")
				return
			case update := <-p.updatesChan:
				p.processUpdate(&update)
			}
		}
	}()
}

func (p *Poller) Stop() {
	p.logger.Info("Зупинка Telegram поллера")
	close(p.stopChan)
}

func (p *Poller) processUpdate(update *tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		p.processCallback(update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		p.processCommand(update.Message)
	}
}

func (p *Poller) processCommand(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID
	command := message.Command()

	p.logger.Info("Отримано команду",
		"chat_id", chatID,
		"user_id", userID,
		"command", command,
	)

	metrics.RecordCommand(command)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reply := p.botService.ProcessCommand(ctx, userID, chatID, command, message.CommandArguments())

	p.sendReply(ctx, chatID, reply)
}

func (p *Poller) processCallback(callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID

	p.logger.Info("Отримано callback",
		"chat_id", chatID,
		"user_id", userID,
		"data", callback.Data,
	)

	p.telegramClient.AnswerCallback(callback.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reply := p.botService.ProcessCallback(ctx, userID, chatID, callback.Data)

	// Вибір джерела розгортається у клавіатуру черг новим повідомленням;
	// решта callback'ів замінює текст вихідного.
	if reply.Keyboard != nil {
		if err := p.telegramClient.SendMessageWithKeyboard(ctx, chatID, reply.Text, *reply.Keyboard); err != nil {
			p.logger.Error("Помилка при відправці клавіатури",
				"error", err,
				"chat_id", chatID,
			)
		}

		return
	}

	if err := p.telegramClient.EditMessage(ctx, chatID, callback.Message.MessageID, reply.Text); err != nil {
		p.logger.Error("Помилка при редагуванні повідомлення",
			"error", err,
			"chat_id", chatID,
		)
	}
}

func (p *Poller) sendReply(ctx context.Context, chatID int64, reply service.Reply) {
	var err error

	if reply.Keyboard != nil {
		err = p.telegramClient.SendMessageWithKeyboard(ctx, chatID, reply.Text, *reply.Keyboard)
	} else {
		err = p.telegramClient.SendMessage(ctx, chatID, reply.Text)
	}

	if err != nil {
		p.logger.Error("Помилка при відправці відповіді",
			"error", err,
			"chat_id", chatID,
		)
	}
}

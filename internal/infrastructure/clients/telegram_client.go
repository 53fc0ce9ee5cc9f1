package clients

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// TelegramClient — тонка обгортка над Bot API з обмежувачем вихідного
// темпу, щоб розсилка по багатьох підписниках не впиралася в ліміти Telegram.
type TelegramClient struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewTelegramClient(token string, sendRate float64, sendBurst int, logger *slog.Logger) (*TelegramClient, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("помилка при створенні Telegram клієнта: %w", err)
	}

	logger.Info("Telegram клієнт авторизовано",
		"username", bot.Self.UserName,
	)

	return &TelegramClient{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(sendRate), sendBurst),
		logger:  logger,
	}, nil
}

func (c *TelegramClient) GetBot() *tgbotapi.BotAPI {
	return c.bot
}

func (c *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("очікування обмежувача темпу: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("помилка при відправці повідомлення: %w", err)
	}

	return nil
}

// SendMessageWithKeyboard надсилає повідомлення з inline-клавіатурою.
func (c *TelegramClient) SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("очікування обмежувача темпу: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = keyboard

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("помилка при відправці повідомлення: %w", err)
	}

	return nil
}

// EditMessage замінює текст повідомлення (відповідь на callback кнопки).
func (c *TelegramClient) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("очікування обмежувача темпу: %w", err)
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown

	if _, err := c.bot.Send(edit); err != nil {
		return fmt.Errorf("помилка при редагуванні повідомлення: %w", err)
	}

	return nil
}

func (c *TelegramClient) AnswerCallback(callbackID string) {
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		c.logger.Warn("Помилка при відповіді на callback",
			"error", err,
		)
	}
}

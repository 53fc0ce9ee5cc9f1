package models

import "time"

// UserPreference — налаштування користувача: вибране джерело, черга і
// прапорець сповіщень. Створюється ліниво при першій взаємодії і ніколи
// не видаляється.
type UserPreference struct {
	UserID               int64  `json:"user_id"`
	ChatID               int64  `json:"chat_id"`
	SourceID             string `json:"source_id,omitempty"`
	QueueID              string `json:"queue_id,omitempty"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
}

// WantsNotifications — чи підлягає користувач розсилці: прапорець увімкнено
// і є черга, з якою можна звіряти зміни.
func (p *UserPreference) WantsNotifications() bool {
	return p.NotificationsEnabled && p.QueueID != ""
}

// SourceMeta — збережені метадані джерела.
type SourceMeta struct {
	LastUpstreamUpdateAt time.Time `json:"last_updated_at"`
}

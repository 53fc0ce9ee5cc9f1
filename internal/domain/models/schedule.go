package models

import "time"

// Source — одне налаштоване джерело графіків (місто/регіон обленерго).
type Source struct {
	ID          string
	DisplayName string
	Endpoint    string
}

// ScheduleStatus — статус дня у черги. Словник відкритий: невідомі значення
// зберігаються як є і зіставляються тільки з іменованими константами.
type ScheduleStatus string

const (
	StatusNormal             ScheduleStatus = "Normal"
	StatusWaitingForSchedule ScheduleStatus = "WaitingForSchedule"
	StatusEmergencyShutdowns ScheduleStatus = "EmergencyShutdowns"
)

// SlotType — тип інтервалу відключення.
type SlotType string

const (
	SlotDefinite  SlotType = "Definite"
	SlotEstimated SlotType = "Estimated"
)

// Slot — інтервал у хвилинах від півночі, start < end, 0 <= start, end <= 1440.
type Slot struct {
	Type  SlotType `json:"type"`
	Start int      `json:"start"`
	End   int      `json:"end"`
}

// Valid перевіряє інваріант інтервалу.
func (s Slot) Valid() bool {
	return s.Start < s.End && s.Start >= 0 && s.End <= MinutesPerDay
}

const MinutesPerDay = 1440

// DaySchedule — графік на один день однієї черги.
type DaySchedule struct {
	Date   string         `json:"date"`
	Status ScheduleStatus `json:"status"`
	Slots  []Slot         `json:"slots"`
}

// DefiniteSlots повертає тільки підтверджені відключення.
func (d DaySchedule) DefiniteSlots() []Slot {
	var out []Slot

	for _, slot := range d.Slots {
		if slot.Type == SlotDefinite {
			out = append(out, slot)
		}
	}

	return out
}

// QueueSchedule — графік однієї черги (наприклад "5.1").
type QueueSchedule struct {
	UpdatedOn string      `json:"updatedOn"`
	Today     DaySchedule `json:"today"`
	Tomorrow  DaySchedule `json:"tomorrow"`
}

// ScheduleDocument — отриманий документ джерела: черга -> графік.
// Документ без жодної черги вважається невдалим отриманням, не порожнім графіком.
type ScheduleDocument map[string]QueueSchedule

// Queues повертає назви черг документа.
func (d ScheduleDocument) Queues() []string {
	out := make([]string, 0, len(d))
	for name := range d {
		out = append(out, name)
	}

	return out
}

// SyncState — стан синхронізації одного джерела. Належить виключно
// планувальнику і змінюється тільки наприкінці успішного циклу.
type SyncState struct {
	Previous             ScheduleDocument
	Current              ScheduleDocument
	LastFetchAt          time.Time
	LastUpstreamUpdateAt time.Time
}

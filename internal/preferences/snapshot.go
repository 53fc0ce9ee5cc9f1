package preferences

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/siralexgrey/yasno-zrozumilo/internal/domain/models"
)

// Snapshot — серіалізований стан сховища: усі налаштування користувачів
// плюс мітки останнього оновлення апстріму по джерелах.
type Snapshot struct {
	Users   map[int64]models.UserPreference
	Sources map[string]models.SourceMeta
}

// Дротовий формат тримає ідентифікатори користувачів рядковими ключами:
// JSON-об'єкт не має нечислових ключів, а text-based межа зобов'язана
// повертати id без втрат.
type snapshotWire struct {
	Users   map[string]models.UserPreference `json:"users"`
	Sources map[string]models.SourceMeta     `json:"sources"`
}

func encodeSnapshot(s *Snapshot) ([]byte, error) {
	wire := snapshotWire{
		Users:   make(map[string]models.UserPreference, len(s.Users)),
		Sources: s.Sources,
	}

	for userID, pref := range s.Users {
		wire.Users[strconv.FormatInt(userID, 10)] = pref
	}

	return json.MarshalIndent(wire, "", "  ")
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var wire snapshotWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("помилка розбору знімка налаштувань: %w", err)
	}

	snapshot := &Snapshot{
		Users:   make(map[int64]models.UserPreference, len(wire.Users)),
		Sources: wire.Sources,
	}

	if snapshot.Sources == nil {
		snapshot.Sources = make(map[string]models.SourceMeta)
	}

	for key, pref := range wire.Users {
		userID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("некоректний ключ користувача %q: %w", key, err)
		}

		pref.UserID = userID
		snapshot.Users[userID] = pref
	}

	return snapshot, nil
}

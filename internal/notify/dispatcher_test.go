package notify_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siralexgrey/yasno-zrozumilo/internal/domain/models"
	"github.com/siralexgrey/yasno-zrozumilo/internal/notify"
	"github.com/siralexgrey/yasno-zrozumilo/internal/preferences"
	"github.com/siralexgrey/yasno-zrozumilo/internal/schedule"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu       sync.Mutex
	failFor  map[int64]error
	messages []sentMessage
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: make(map[int64]error)}
}

func (s *fakeSender) SendMessage(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failFor[chatID]; ok {
		return err
	}

	s.messages = append(s.messages, sentMessage{chatID: chatID, text: text})

	return nil
}

func (s *fakeSender) sent() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]sentMessage(nil), s.messages...)
}

func newPrefStore(t *testing.T) *preferences.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "preferences.json")

	return preferences.NewStore(preferences.NewFileBackend(path), nil, testLogger())
}

func newDispatcher(prefs *preferences.Store, sender *fakeSender) *notify.Dispatcher {
	detector := schedule.NewDetector(time.UTC)
	formatter := schedule.NewFormatter(time.UTC)

	return notify.NewDispatcher(prefs, detector, formatter, sender, testLogger())
}

func kyivSource() models.Source {
	return models.Source{ID: "kyiv", DisplayName: "Київ"}
}

func documents() (previous, current models.ScheduleDocument) {
	slot := func(start, end int) models.Slot {
		return models.Slot{Type: models.SlotDefinite, Start: start, End: end}
	}

	previous = models.ScheduleDocument{
		"5.1": {
			UpdatedOn: "2025-11-18T16:00:00+00:00",
			Today:     models.DaySchedule{Date: "2025-11-18", Status: models.StatusNormal, Slots: []models.Slot{slot(570, 660)}},
			Tomorrow:  models.DaySchedule{Date: "2025-11-19", Status: models.StatusWaitingForSchedule},
		},
		"2.2": {
			UpdatedOn: "2025-11-18T16:00:00+00:00",
			Today:     models.DaySchedule{Date: "2025-11-18", Status: models.StatusNormal, Slots: []models.Slot{slot(60, 120)}},
			Tomorrow:  models.DaySchedule{Date: "2025-11-19", Status: models.StatusWaitingForSchedule},
		},
	}

	// Змінюється лише черга 5.1.
	current = models.ScheduleDocument{
		"5.1": {
			UpdatedOn: previous["5.1"].UpdatedOn,
			Today:     models.DaySchedule{Date: "2025-11-18", Status: models.StatusNormal, Slots: []models.Slot{slot(570, 720)}},
			Tomorrow:  previous["5.1"].Tomorrow,
		},
		"2.2": previous["2.2"],
	}

	return previous, current
}

func TestDispatch_SendsOnlyToChangedQueue(t *testing.T) {
	prefs := newPrefStore(t)
	ctx := context.Background()

	prefs.SetQueue(ctx, 1, 10, "kyiv", "5.1")
	prefs.SetQueue(ctx, 2, 20, "kyiv", "2.2")

	sender := newFakeSender()
	dispatcher := newDispatcher(prefs, sender)

	previous, current := documents()
	dispatcher.Dispatch(ctx, kyivSource(), previous, current)

	sent := sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(10), sent[0].chatID)
	assert.Contains(t, sent[0].text, "🔔 *Оновлення для черги 5.1*")
	assert.Contains(t, sent[0].text, "• Змінився графік на сьогодні")
	assert.Contains(t, sent[0].text, "🔸 Фільтр: Черга 5.1", "message carries the rendered schedule")
}

func TestDispatch_OtherSourceSubscribersGetNothing(t *testing.T) {
	prefs := newPrefStore(t)
	ctx := context.Background()

	// Підписник іншого джерела, навіть з тією самою чергою.
	prefs.SetQueue(ctx, 1, 10, "dnipro", "5.1")

	sender := newFakeSender()
	dispatcher := newDispatcher(prefs, sender)

	previous, current := documents()
	dispatcher.Dispatch(ctx, kyivSource(), previous, current)

	assert.Empty(t, sender.sent())
}

func TestDispatch_DisabledNotificationsSkipped(t *testing.T) {
	prefs := newPrefStore(t)
	ctx := context.Background()

	prefs.SetQueue(ctx, 1, 10, "kyiv", "5.1")
	_, err := prefs.SetNotifications(ctx, 1, false)
	require.NoError(t, err)

	sender := newFakeSender()
	dispatcher := newDispatcher(prefs, sender)

	previous, current := documents()
	dispatcher.Dispatch(ctx, kyivSource(), previous, current)

	assert.Empty(t, sender.sent())
}

func TestDispatch_DeliveryFailureIsolated(t *testing.T) {
	prefs := newPrefStore(t)
	ctx := context.Background()

	prefs.SetQueue(ctx, 1, 10, "kyiv", "5.1")
	prefs.SetQueue(ctx, 2, 20, "kyiv", "5.1")
	prefs.SetQueue(ctx, 3, 30, "kyiv", "5.1")

	sender := newFakeSender()
	sender.failFor[20] = errors.New("bot was blocked by the user")

	dispatcher := newDispatcher(prefs, sender)

	previous, current := documents()
	dispatcher.Dispatch(ctx, kyivSource(), previous, current)

	sent := sender.sent()
	require.Len(t, sent, 2, "one blocked user must not break the rest of the fan-out")

	delivered := map[int64]bool{}
	for _, msg := range sent {
		delivered[msg.chatID] = true
	}

	assert.True(t, delivered[10])
	assert.True(t, delivered[30])
}

func TestDispatch_NoChangesNoMessages(t *testing.T) {
	prefs := newPrefStore(t)
	ctx := context.Background()

	prefs.SetQueue(ctx, 1, 10, "kyiv", "5.1")

	sender := newFakeSender()
	dispatcher := newDispatcher(prefs, sender)

	previous, _ := documents()
	dispatcher.Dispatch(ctx, kyivSource(), previous, previous)

	assert.Empty(t, sender.sent())
}

func TestDispatch_FirstFetchWithNilPrevious(t *testing.T) {
	prefs := newPrefStore(t)
	ctx := context.Background()

	prefs.SetQueue(ctx, 1, 10, "kyiv", "5.1")

	sender := newFakeSender()
	dispatcher := newDispatcher(prefs, sender)

	_, current := documents()
	dispatcher.Dispatch(ctx, kyivSource(), nil, current)

	assert.Empty(t, sender.sent())
}

package preferences_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/siralexgrey/yasno-zrozumilo/internal/domain/errors"
	"github.com/siralexgrey/yasno-zrozumilo/internal/domain/models"
	"github.com/siralexgrey/yasno-zrozumilo/internal/preferences"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeBackend грає роль віддаленого сховища у тестах.
type fakeBackend struct {
	snapshot *preferences.Snapshot
	loadErr  error
	storeErr error
	stores   int
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Load(_ context.Context) (*preferences.Snapshot, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}

	if b.snapshot == nil {
		return nil, &domainerrors.ErrSnapshotNotFound{}
	}

	return b.snapshot, nil
}

func (b *fakeBackend) Store(_ context.Context, snapshot *preferences.Snapshot) error {
	b.stores++

	if b.storeErr != nil {
		return b.storeErr
	}

	b.snapshot = snapshot

	return nil
}

func newFileStore(t *testing.T) (*preferences.Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "preferences.json")
	store := preferences.NewStore(preferences.NewFileBackend(path), nil, testLogger())

	return store, path
}

func TestStore_LoadEmptyState(t *testing.T) {
	store, _ := newFileStore(t)

	require.NoError(t, store.Load(context.Background()))

	_, ok := store.Get(42)
	assert.False(t, ok)
}

func TestStore_SaveLoadFixpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	ctx := context.Background()

	first := preferences.NewStore(preferences.NewFileBackend(path), nil, testLogger())
	first.SetQueue(ctx, 42, 100, "kyiv", "5.1")
	first.SetLastUpstreamUpdate("kyiv", time.Date(2025, 11, 18, 16, 0, 0, 0, time.UTC))
	first.Ensure(ctx, 43, 101)

	second := preferences.NewStore(preferences.NewFileBackend(path), nil, testLogger())
	require.NoError(t, second.Load(ctx))

	pref, ok := second.Get(42)
	require.True(t, ok)
	assert.Equal(t, int64(42), pref.UserID, "user id must survive the JSON round-trip exactly")
	assert.Equal(t, int64(100), pref.ChatID)
	assert.Equal(t, "kyiv", pref.SourceID)
	assert.Equal(t, "5.1", pref.QueueID)
	assert.True(t, pref.NotificationsEnabled)

	other, ok := second.Get(43)
	require.True(t, ok)
	assert.Equal(t, int64(43), other.UserID)
	assert.False(t, other.WantsNotifications())

	// Повторне завантаження нічого не змінює.
	third := preferences.NewStore(preferences.NewFileBackend(path), nil, testLogger())
	require.NoError(t, third.Load(ctx))
	assert.Equal(t, second.Snapshot(), third.Snapshot())
}

func TestStore_LargeUserIDRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	ctx := context.Background()

	// Telegram-ідентифікатори виходять за межі точності float64.
	const userID int64 = 9007199254740995

	first := preferences.NewStore(preferences.NewFileBackend(path), nil, testLogger())
	first.SetQueue(ctx, userID, userID, "kyiv", "5.1")

	second := preferences.NewStore(preferences.NewFileBackend(path), nil, testLogger())
	require.NoError(t, second.Load(ctx))

	pref, ok := second.Get(userID)
	require.True(t, ok)
	assert.Equal(t, userID, pref.UserID)
	assert.Equal(t, userID, pref.ChatID)
}

func TestStore_SetQueueEnablesNotifications(t *testing.T) {
	store, _ := newFileStore(t)

	pref := store.SetQueue(context.Background(), 42, 100, "kyiv", "5.1")

	assert.True(t, pref.NotificationsEnabled)
	assert.True(t, pref.WantsNotifications())
}

func TestStore_SetQueueAllKeepsNotificationsFlag(t *testing.T) {
	store, _ := newFileStore(t)
	ctx := context.Background()

	store.SetQueue(ctx, 42, 100, "kyiv", "5.1")
	pref := store.SetQueue(ctx, 42, 100, "kyiv", "")

	assert.True(t, pref.NotificationsEnabled, "clearing the queue does not touch the flag")
	assert.False(t, pref.WantsNotifications(), "but delivery stops without a queue")
}

func TestStore_SetNotificationsUnknownUser(t *testing.T) {
	store, _ := newFileStore(t)

	_, err := store.SetNotifications(context.Background(), 42, true)

	var notFound *domainerrors.ErrUserNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestStore_SubscribersBySource(t *testing.T) {
	store, _ := newFileStore(t)
	ctx := context.Background()

	store.SetQueue(ctx, 1, 10, "kyiv", "5.1")
	store.SetQueue(ctx, 2, 20, "kyiv", "2.2")
	store.SetQueue(ctx, 3, 30, "dnipro", "1.1")
	store.Ensure(ctx, 4, 40)

	_, err := store.SetNotifications(ctx, 2, false)
	require.NoError(t, err)

	subs := store.SubscribersBySource("kyiv")
	require.Len(t, subs, 1)
	assert.Equal(t, int64(1), subs[0].UserID)
}

func TestStore_RemoteReadRepair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	ctx := context.Background()

	remote := &fakeBackend{snapshot: &preferences.Snapshot{
		Users: map[int64]models.UserPreference{
			42: {UserID: 42, ChatID: 100, SourceID: "kyiv", QueueID: "5.1", NotificationsEnabled: true},
		},
		Sources: map[string]models.SourceMeta{},
	}}

	store := preferences.NewStore(preferences.NewFileBackend(path), remote, testLogger())
	require.NoError(t, store.Load(ctx))

	pref, ok := store.Get(42)
	require.True(t, ok)
	assert.Equal(t, "5.1", pref.QueueID)

	// Віддалений знімок має бути віддзеркалений у локальний файл.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"42"`), "user ids are stored as string keys")
}

func TestStore_RemoteUnavailableFallsBackToLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	ctx := context.Background()

	seed := preferences.NewStore(preferences.NewFileBackend(path), nil, testLogger())
	seed.SetQueue(ctx, 42, 100, "kyiv", "5.1")

	remote := &fakeBackend{loadErr: errors.New("сховище лежить")}
	store := preferences.NewStore(preferences.NewFileBackend(path), remote, testLogger())

	require.NoError(t, store.Load(ctx))

	pref, ok := store.Get(42)
	require.True(t, ok)
	assert.Equal(t, "kyiv", pref.SourceID)
}

func TestStore_RemoteWriteFailureIsTolerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	ctx := context.Background()

	remote := &fakeBackend{storeErr: errors.New("сховище лежить")}
	store := preferences.NewStore(preferences.NewFileBackend(path), remote, testLogger())

	pref := store.SetQueue(ctx, 42, 100, "kyiv", "5.1")
	assert.Equal(t, "5.1", pref.QueueID)
	assert.Positive(t, remote.stores, "remote write is attempted")

	// Локальний файл усе одно записано.
	fresh := preferences.NewStore(preferences.NewFileBackend(path), nil, testLogger())
	require.NoError(t, fresh.Load(ctx))

	_, ok := fresh.Get(42)
	assert.True(t, ok)
}

func TestStore_RemoteReceivesMutations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	ctx := context.Background()

	remote := &fakeBackend{}
	store := preferences.NewStore(preferences.NewFileBackend(path), remote, testLogger())

	store.SetQueue(ctx, 42, 100, "kyiv", "5.1")

	require.NotNil(t, remote.snapshot)
	assert.Contains(t, remote.snapshot.Users, int64(42))
}

func TestStore_EnsureIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	ctx := context.Background()

	remote := &fakeBackend{}
	store := preferences.NewStore(preferences.NewFileBackend(path), remote, testLogger())

	store.Ensure(ctx, 42, 100)
	before := remote.stores

	store.Ensure(ctx, 42, 100)
	assert.Equal(t, before, remote.stores, "unchanged user must not trigger a save")

	store.Ensure(ctx, 42, 200)
	assert.Greater(t, remote.stores, before, "chat change persists")
}

func TestStore_SourceMetaDoesNotPersistAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")

	store := preferences.NewStore(preferences.NewFileBackend(path), nil, testLogger())
	store.SetLastUpstreamUpdate("kyiv", time.Now())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "source meta updates are memory-only")

	got, ok := store.LastUpstreamUpdate("kyiv")
	assert.True(t, ok)
	assert.False(t, got.IsZero())
}

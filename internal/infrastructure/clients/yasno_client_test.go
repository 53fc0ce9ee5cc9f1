package clients_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siralexgrey/yasno-zrozumilo/internal/config"
	domainerrors "github.com/siralexgrey/yasno-zrozumilo/internal/domain/errors"
	"github.com/siralexgrey/yasno-zrozumilo/internal/domain/models"
	"github.com/siralexgrey/yasno-zrozumilo/internal/infrastructure/clients"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() *config.Config {
	return &config.Config{
		FetchTimeout:               5 * time.Second,
		RetryCount:                 0,
		RetryBackoff:               10 * time.Millisecond,
		RetryableStatusCodes:       []int{429, 500, 502, 503, 504},
		CBSlidingWindowSize:        100,
		CBMinimumRequiredCalls:     100,
		CBFailureRateThreshold:     60,
		CBPermittedCallsInHalfOpen: 10,
		CBWaitDurationInOpenState:  time.Second,
	}
}

type recordingMirror struct {
	mu   sync.Mutex
	docs map[string]models.ScheduleDocument
}

func newRecordingMirror() *recordingMirror {
	return &recordingMirror{docs: make(map[string]models.ScheduleDocument)}
}

func (m *recordingMirror) Set(sourceID string, doc models.ScheduleDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[sourceID] = doc
}

func (m *recordingMirror) get(sourceID string) (models.ScheduleDocument, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[sourceID]

	return doc, ok
}

const validPayload = `{
	"5.1": {
		"updatedOn": "2025-11-18T16:00:00+00:00",
		"today": {
			"date": "2025-11-18",
			"status": "Normal",
			"slots": [{"type": "Definite", "start": 570, "end": 660}]
		},
		"tomorrow": {
			"date": "2025-11-19",
			"status": "WaitingForSchedule",
			"slots": []
		}
	}
}`

func testSource(endpoint string) models.Source {
	return models.Source{ID: "kyiv", DisplayName: "Київ", Endpoint: endpoint}
}

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(validPayload))
	}))
	defer server.Close()

	mirror := newRecordingMirror()
	client := clients.NewYasnoClient(testConfig(), mirror, testLogger())

	doc, err := client.Fetch(context.Background(), testSource(server.URL))

	require.NoError(t, err)
	require.Contains(t, doc, "5.1")

	queue := doc["5.1"]
	assert.Equal(t, "2025-11-18T16:00:00+00:00", queue.UpdatedOn)
	assert.Equal(t, models.StatusWaitingForSchedule, queue.Tomorrow.Status)
	require.Len(t, queue.Today.Slots, 1)
	assert.Equal(t, models.SlotDefinite, queue.Today.Slots[0].Type)

	mirrored, ok := mirror.get("kyiv")
	require.True(t, ok, "successful fetch must hit the mirror")
	assert.Equal(t, doc, mirrored)
}

func TestFetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	mirror := newRecordingMirror()
	client := clients.NewYasnoClient(testConfig(), mirror, testLogger())

	_, err := client.Fetch(context.Background(), testSource(server.URL))

	var fetchErr *domainerrors.ErrFetchFailed
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "kyiv", fetchErr.SourceID)

	var httpErr *domainerrors.HTTPError
	require.True(t, errors.As(fetchErr.Cause, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)

	_, ok := mirror.get("kyiv")
	assert.False(t, ok, "failed fetch must not touch the mirror")
}

func TestFetch_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"5.1": не json`))
	}))
	defer server.Close()

	mirror := newRecordingMirror()
	client := clients.NewYasnoClient(testConfig(), mirror, testLogger())

	_, err := client.Fetch(context.Background(), testSource(server.URL))

	var fetchErr *domainerrors.ErrFetchFailed
	assert.ErrorAs(t, err, &fetchErr)
}

func TestFetch_EmptyDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	mirror := newRecordingMirror()
	client := clients.NewYasnoClient(testConfig(), mirror, testLogger())

	_, err := client.Fetch(context.Background(), testSource(server.URL))

	var emptyErr *domainerrors.ErrEmptyDocument
	require.ErrorAs(t, err, &emptyErr)
	assert.Equal(t, "kyiv", emptyErr.SourceID)
}

func TestFetch_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	mirror := newRecordingMirror()
	client := clients.NewYasnoClient(testConfig(), mirror, testLogger())

	_, err := client.Fetch(context.Background(), testSource(server.URL))

	var fetchErr *domainerrors.ErrFetchFailed
	assert.ErrorAs(t, err, &fetchErr)
}

func TestFetch_DropsInvalidSlots(t *testing.T) {
	payload := `{
		"5.1": {
			"updatedOn": "2025-11-18T16:00:00+00:00",
			"today": {
				"date": "2025-11-18",
				"status": "Normal",
				"slots": [
					{"type": "Definite", "start": 570, "end": 660},
					{"type": "Definite", "start": 700, "end": 700},
					{"type": "Definite", "start": 800, "end": 750},
					{"type": "Definite", "start": 1400, "end": 1500}
				]
			},
			"tomorrow": {"date": "2025-11-19", "status": "WaitingForSchedule", "slots": []}
		}
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	mirror := newRecordingMirror()
	client := clients.NewYasnoClient(testConfig(), mirror, testLogger())

	doc, err := client.Fetch(context.Background(), testSource(server.URL))

	require.NoError(t, err)
	require.Len(t, doc["5.1"].Today.Slots, 1, "degenerate and out-of-range slots are dropped")
	assert.Equal(t, 570, doc["5.1"].Today.Slots[0].Start)
}

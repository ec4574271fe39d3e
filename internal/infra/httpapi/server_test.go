package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"posti_delivery_tracker/internal/app"
	"posti_delivery_tracker/internal/domain/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFetcher struct {
	rawDates []string
}

func (f *staticFetcher) Fetch(context.Context, schedule.PostalCode) (schedule.RawDeliveryResponse, error) {
	return schedule.RawDeliveryResponse{Success: true, RawDates: f.rawDates}, nil
}

func testServer(t *testing.T) (*Server, *app.CoordinatorRegistry) {
	t.Helper()
	registry := app.NewCoordinatorRegistry(
		&staticFetcher{rawDates: []string{"2099-06-01", "2099-06-03"}},
		nil,
		app.RegistryConfig{BaseInterval: time.Hour},
		nil,
	)
	t.Cleanup(registry.Shutdown)
	return NewServer(registry, nil), registry
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	server, _ := testServer(t)
	rec := doRequest(server, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTrackAndGetSchedule(t *testing.T) {
	t.Parallel()

	server, _ := testServer(t)

	rec := doRequest(server, http.MethodPost, "/api/v1/schedules", `{"postal_code":"00100"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		rec := doRequest(server, http.MethodGet, "/api/v1/schedules/00100", "")
		if rec.Code != http.StatusOK {
			return false
		}
		var out scheduleResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			return false
		}
		return out.Available
	}, 2*time.Second, 10*time.Millisecond)

	rec = doRequest(server, http.MethodGet, "/api/v1/schedules/00100", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out scheduleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "00100", out.PostalCode)
	assert.Equal(t, "2099-06-01", out.State)
	require.NotNil(t, out.NextScheduledDate)
	assert.Equal(t, "2099-06-01", *out.NextScheduledDate)
	assert.Equal(t, 2, out.DeliveryCount)
	assert.Equal(t, []string{"2099-06-01", "2099-06-03"}, out.AllDeliveryDates)
	assert.True(t, out.LastFetchSucceeded)
	require.NotNil(t, out.LastUpdated)
}

func TestTrackValidation(t *testing.T) {
	t.Parallel()

	server, _ := testServer(t)

	rec := doRequest(server, http.MethodPost, "/api/v1/schedules", `{"postal_code":"12ab5"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(server, http.MethodPost, "/api/v1/schedules", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(server, http.MethodPost, "/api/v1/schedules", `{"postal_code":"00100"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = doRequest(server, http.MethodPost, "/api/v1/schedules", `{"postal_code":"00100"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetUntrackedCode(t *testing.T) {
	t.Parallel()

	server, _ := testServer(t)
	rec := doRequest(server, http.MethodGet, "/api/v1/schedules/99999", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUntrackEndpoint(t *testing.T) {
	t.Parallel()

	server, _ := testServer(t)

	rec := doRequest(server, http.MethodPost, "/api/v1/schedules", `{"postal_code":"00100"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(server, http.MethodDelete, "/api/v1/schedules/00100", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(server, http.MethodGet, "/api/v1/schedules/00100", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// idempotent
	rec = doRequest(server, http.MethodDelete, "/api/v1/schedules/00100", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListSchedules(t *testing.T) {
	t.Parallel()

	server, registry := testServer(t)

	seed := &schedule.Seed{RawDates: []string{"2099-06-01"}, FetchedAt: time.Now()}
	_, err := registry.Track(context.Background(), "00100", seed)
	require.NoError(t, err)
	_, err = registry.Track(context.Background(), "00530", seed)
	require.NoError(t, err)

	rec := doRequest(server, http.MethodGet, "/api/v1/schedules", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []scheduleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out, 2)
}

func TestProjectionWhileUnavailable(t *testing.T) {
	t.Parallel()

	// A coordinator whose only fetch attempt failed has no data yet.
	registry := app.NewCoordinatorRegistry(
		failingFetcher{},
		nil,
		app.RegistryConfig{BaseInterval: time.Hour},
		nil,
	)
	t.Cleanup(registry.Shutdown)
	server := NewServer(registry, nil)

	rec := doRequest(server, http.MethodPost, "/api/v1/schedules", `{"postal_code":"00100"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		rec := doRequest(server, http.MethodGet, "/api/v1/schedules/00100", "")
		var out scheduleResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			return false
		}
		return !out.Available && out.State == "unknown" && out.DeliveryCount == 0
	}, 2*time.Second, 10*time.Millisecond)
}

type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context, schedule.PostalCode) (schedule.RawDeliveryResponse, error) {
	return schedule.RawDeliveryResponse{}, context.DeadlineExceeded
}

package admin_api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-relay/internal/admin/admin_api"
	"ticket-relay/internal/counter"
	"ticket-relay/internal/utils"
)

type stubCoordinator struct {
	totals map[string]int

	snapshotErr error
	setErr      error

	setCalls   int
	resetCalls int
}

func (s *stubCoordinator) SetAbsolute(ctx context.Context, eventName string, total int) (counter.Result, error) {
	s.setCalls++
	if s.setErr != nil {
		return counter.Result{}, s.setErr
	}
	if s.totals == nil {
		s.totals = make(map[string]int)
	}
	s.totals[eventName] = total
	return counter.Result{EventName: eventName, NewTotal: total}, nil
}

func (s *stubCoordinator) Delete(ctx context.Context, eventName string) (bool, error) {
	_, existed := s.totals[eventName]
	delete(s.totals, eventName)
	return existed, nil
}

func (s *stubCoordinator) ResetAll(ctx context.Context) error {
	s.resetCalls++
	s.totals = make(map[string]int)
	return nil
}

func (s *stubCoordinator) Snapshot(ctx context.Context) (map[string]int, error) {
	if s.snapshotErr != nil {
		return nil, s.snapshotErr
	}
	return s.totals, nil
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestListCounters(t *testing.T) {
	coord := &stubCoordinator{totals: map[string]int{"Gala": 10, "Expo": 2}}
	handler := &admin_api.Handler{Counters: coord}

	req := httptest.NewRequest(http.MethodGet, "/tickets", nil)
	rec := httptest.NewRecorder()
	handler.ListCounters(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var totals map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &totals))
	assert.Equal(t, map[string]int{"Gala": 10, "Expo": 2}, totals)
}

func TestListCountersStoreFailure(t *testing.T) {
	coord := &stubCoordinator{snapshotErr: counter.ErrStoreUnavailable}
	handler := &admin_api.Handler{Counters: coord}

	req := httptest.NewRequest(http.MethodGet, "/tickets", nil)
	rec := httptest.NewRecorder()
	handler.ListCounters(rec, req)

	// Fail closed: an outage never masquerades as an empty store.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestSetTotal(t *testing.T) {
	coord := &stubCoordinator{totals: map[string]int{"Gala": 3}}
	handler := &admin_api.Handler{Counters: coord}

	req := httptest.NewRequest(http.MethodPost, "/set", strings.NewReader(`{"event_name":"Gala","total":10}`))
	rec := httptest.NewRecorder()
	handler.SetTotal(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, 10, coord.totals["Gala"], "total must be replaced, not added")
}

func TestSetTotalValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing event_name", `{"total":10}`},
		{"missing total", `{"event_name":"Gala"}`},
		{"non-integer total", `{"event_name":"Gala","total":2.5}`},
		{"malformed body", `{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			coord := &stubCoordinator{}
			handler := &admin_api.Handler{Counters: coord}

			req := httptest.NewRequest(http.MethodPost, "/set", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.SetTotal(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, 0, coord.setCalls, "invalid requests must not reach the coordinator")
		})
	}
}

func TestSetTotalNegative(t *testing.T) {
	coord := &stubCoordinator{setErr: counter.ErrInvalidTotal}
	handler := &admin_api.Handler{Counters: coord}

	req := httptest.NewRequest(http.MethodPost, "/set", strings.NewReader(`{"event_name":"Gala","total":-1}`))
	rec := httptest.NewRecorder()
	handler.SetTotal(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteCounter(t *testing.T) {
	coord := &stubCoordinator{totals: map[string]int{"Gala": 10}}
	handler := &admin_api.Handler{Counters: coord}

	req := httptest.NewRequest(http.MethodPost, "/delete", strings.NewReader(`{"event_name":"Gala"}`))
	rec := httptest.NewRecorder()
	handler.DeleteCounter(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["deleted"])

	// Second delete reports the counter no longer exists.
	req = httptest.NewRequest(http.MethodPost, "/delete", strings.NewReader(`{"event_name":"Gala"}`))
	rec = httptest.NewRecorder()
	handler.DeleteCounter(rec, req)

	resp = decodeEnvelope(t, rec)
	data = resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["deleted"])
}

func TestResetCounters(t *testing.T) {
	coord := &stubCoordinator{totals: map[string]int{"Gala": 10, "Expo": 2}}
	handler := &admin_api.Handler{Counters: coord}

	req := httptest.NewRequest(http.MethodPost, "/reset", nil)
	rec := httptest.NewRecorder()
	handler.ResetCounters(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)
	assert.Equal(t, 1, coord.resetCalls)
	assert.Empty(t, coord.totals)
}

package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realmlist/metarboard/internal/httputil"
	"github.com/realmlist/metarboard/internal/models"
)

func TestAviationWeather_URL(t *testing.T) {
	a := NewAviationWeather("https://aviationweather.gov/api/data/", "", nil, 0)
	assert.Equal(t, "https://aviationweather.gov/api/data/metar?format=json&ids=EHGR", a.URL(models.KindMETAR, "EHGR"))

	raw := NewAviationWeather("https://aviationweather.gov/api/data", "raw", nil, 0)
	assert.Equal(t, "https://aviationweather.gov/api/data/taf?format=raw&ids=KJFK", raw.URL(models.KindTAF, "KJFK"))
}

func TestAviationWeather_Fetch(t *testing.T) {
	const body = `[{"icaoId":"EHGR","rawOb":"EHGR 171425Z 24012KT 9999 FEW025 14/08 Q1012"}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/metar", r.URL.Path)
		assert.Equal(t, "EHGR", r.URL.Query().Get("ids"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, httputil.UserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(body))
	}))
	defer srv.Close()

	a := NewAviationWeather(srv.URL, "json", httputil.NewClient(5*time.Second), time.Second)
	payload, fr, err := a.Fetch(context.Background(), models.KindMETAR, "EHGR")
	require.NoError(t, err)
	assert.Equal(t, body, string(payload))
	assert.Equal(t, http.StatusOK, fr.HTTPStatus)
	assert.Equal(t, len(body), fr.ResponseSize)
	assert.Equal(t, 1, fr.Attempts)
}

func TestAviationWeather_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := NewAviationWeather(srv.URL, "json", srv.Client(), time.Second)
	payload, fr, err := a.Fetch(context.Background(), models.KindTAF, "ZZZZ")
	require.NoError(t, err)
	assert.Empty(t, payload)
	assert.Equal(t, http.StatusNoContent, fr.HTTPStatus)
}

func TestAviationWeather_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	a := NewAviationWeather(srv.URL, "json", srv.Client(), 5*time.Second)
	a.initial = time.Millisecond
	payload, fr, err := a.Fetch(context.Background(), models.KindMETAR, "EHGR")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(payload))
	assert.Equal(t, 2, fr.Attempts)
}

func TestAviationWeather_BadRequestIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "Invalid station", http.StatusBadRequest)
	}))
	defer srv.Close()

	a := NewAviationWeather(srv.URL, "json", srv.Client(), 5*time.Second)
	a.initial = time.Millisecond
	_, fr, err := a.Fetch(context.Background(), models.KindMETAR, "??")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400: Invalid station")
	assert.Equal(t, http.StatusBadRequest, fr.HTTPStatus)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAviationWeather_PayloadTooLarge(t *testing.T) {
	var calls atomic.Int32
	var size atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(strings.Repeat("x", int(size.Load()))))
	}))
	defer srv.Close()

	a := NewAviationWeather(srv.URL, "raw", srv.Client(), 5*time.Second)
	a.initial = time.Millisecond
	a.maxBytes = 64

	size.Store(64)
	body, _, err := a.Fetch(context.Background(), models.KindMETAR, "EHGR")
	require.NoError(t, err)
	assert.Len(t, body, 64, "a body at the limit is kept whole")

	calls.Store(0)
	size.Store(65)
	body, _, err = a.Fetch(context.Background(), models.KindMETAR, "EHGR")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payload too large")
	assert.Nil(t, body)
	assert.Equal(t, int32(1), calls.Load(), "oversized payloads are not retried")
}

func TestAviationWeather_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAviationWeather(srv.URL, "json", srv.Client(), time.Minute)
	_, _, err := a.Fetch(ctx, models.KindMETAR, "EHGR")
	assert.ErrorIs(t, err, context.Canceled)
}

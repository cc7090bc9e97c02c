package api_test

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/realmlist/metarboard/internal/api"
	"github.com/realmlist/metarboard/internal/logger"
	"github.com/realmlist/metarboard/internal/models"
	"github.com/realmlist/metarboard/internal/store"
)

var testNow = time.Date(2026, 10, 17, 14, 30, 0, 0, time.UTC)

type fakeController struct {
	calls atomic.Int32
}

func (f *fakeController) Reconfigure() { f.calls.Add(1) }

func setupTestServer(t *testing.T) (*api.Server, *store.Store, *fakeController, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testNow)
	s, err := store.Open(":memory:", clock, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.SeedSettings(models.Settings{
		StationID:  "EHGR",
		ReportKind: models.KindMETAR,
		Interval:   5 * time.Minute,
	}); err != nil {
		t.Fatal(err)
	}

	ctl := &fakeController{}
	srv := api.NewServer(s, ctl, logger.NewNop(), api.Options{Location: time.UTC, Clock: clock})
	return srv, s, ctl, clock
}

func insertMessage(t *testing.T, s *store.Store, at time.Time, text string) {
	t.Helper()
	if err := s.InsertBoardMessage(&models.BoardMessage{
		TickID:     "tick-" + at.Format("1504"),
		RenderedAt: at,
		StationID:  "EHGR",
		Kind:       models.KindMETAR,
		Category:   models.CategoryMVFR,
		Text:       text,
		Sent:       true,
	}); err != nil {
		t.Fatal(err)
	}
}

func serve(srv *api.Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	srv, s, _, _ := setupTestServer(t)
	insertMessage(t, s, testNow.Add(-2*time.Minute), "MET VFR{67}{67}{67} MIL JT1428\nEHGR")

	w := serve(srv, httptest.NewRequest("GET", "/health", nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var health api.HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
	if health.Station != "EHGR" {
		t.Errorf("station = %q, want EHGR", health.Station)
	}
	if health.AgeMinutes != 2 {
		t.Errorf("age_minutes = %d, want 2", health.AgeMinutes)
	}
}

func TestHealthEndpoint_ArchiveAndSchema(t *testing.T) {
	t.Parallel()
	srv, s, _, _ := setupTestServer(t)

	run, err := s.StartIngestRun("tick-1", "aviationweather", "metar", "EHGR")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.StoreRawPayload(&run.ID, "aviationweather", "metar", "EHGR", []byte("EHGR 171425Z 24012KT 9999 FEW025")); err != nil {
		t.Fatal(err)
	}
	run.Success = true
	run.Outcome.String, run.Outcome.Valid = "rendered", true
	if err := s.CompleteIngestRun(run); err != nil {
		t.Fatal(err)
	}

	w := serve(srv, httptest.NewRequest("GET", "/health", nil))
	var health api.HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Schema < 1 {
		t.Errorf("schema_version = %d, want at least 1", health.Schema)
	}
	if health.Archive == nil || health.Archive.TotalCount != 1 || health.Archive.CountByEndpoint["metar"] != 1 {
		t.Errorf("archive = %+v, want one metar payload", health.Archive)
	}
	if health.LastRun == nil || health.LastRun.TickID != "tick-1" || health.LastRun.Outcome != "rendered" {
		t.Errorf("last_run = %+v, want tick-1 rendered", health.LastRun)
	}
}

func TestHealthEndpoint_Stale(t *testing.T) {
	t.Parallel()
	srv, s, _, _ := setupTestServer(t)
	insertMessage(t, s, testNow.Add(-time.Hour), "old")

	w := serve(srv, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"degraded"`) {
		t.Errorf("expected degraded status, got %s", w.Body.String())
	}
}

func TestHealthEndpoint_NoUpdatesYet(t *testing.T) {
	t.Parallel()
	srv, _, _, _ := setupTestServer(t)

	w := serve(srv, httptest.NewRequest("GET", "/health", nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"age_minutes":-1`) {
		t.Errorf("expected age_minutes -1, got %s", w.Body.String())
	}
}

func TestIndexPage(t *testing.T) {
	t.Parallel()
	srv, s, _, _ := setupTestServer(t)
	insertMessage(t, s, testNow.Add(-time.Minute), "MET VFR{67}{67}{67} MIL JT1429\nEHGR 171425Z 5000 BKN025")

	w := serve(srv, httptest.NewRequest("GET", "/", nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{
		`value="EHGR"`,
		`<option value="METAR" selected>`,
		`value="5"`,
		"EHGR 171425Z 5000 BKN025",
		"Recent updates",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in page", want)
		}
	}
}

func TestUpdateSettings(t *testing.T) {
	t.Parallel()
	srv, s, ctl, _ := setupTestServer(t)

	form := url.Values{"station": {"eham"}, "weather_type": {"taf"}, "interval": {"10"}}
	req := httptest.NewRequest("POST", "/update", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := serve(srv, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/?saved=1" {
		t.Errorf("redirect = %q", loc)
	}
	if ctl.calls.Load() != 1 {
		t.Errorf("Reconfigure called %d times, want 1", ctl.calls.Load())
	}

	got, err := s.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	want := models.Settings{StationID: "EHAM", ReportKind: models.KindTAF, Interval: 10 * time.Minute}
	if got != want {
		t.Errorf("settings = %+v, want %+v", got, want)
	}
}

func TestUpdateSettings_PartialFormKeepsValues(t *testing.T) {
	t.Parallel()
	srv, s, _, _ := setupTestServer(t)

	req := httptest.NewRequest("POST", "/update", strings.NewReader("interval=15"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if w := serve(srv, req); w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}

	got, err := s.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if got.StationID != "EHGR" || got.ReportKind != models.KindMETAR || got.Interval != 15*time.Minute {
		t.Errorf("settings = %+v", got)
	}
}

func TestUpdateSettings_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		form string
		want string
	}{
		{"bad station", "station=EH-GR", "not an ICAO identifier"},
		{"bad kind", "weather_type=PIREP", "unknown report kind"},
		{"zero interval", "interval=0", "interval must be"},
		{"text interval", "interval=soon", "interval must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, s, ctl, _ := setupTestServer(t)

			req := httptest.NewRequest("POST", "/update", strings.NewReader(tt.form))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := serve(srv, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("expected %q in body", tt.want)
			}
			if ctl.calls.Load() != 0 {
				t.Error("Reconfigure must not be called for invalid input")
			}
			got, _ := s.GetSettings()
			if got.StationID != "EHGR" || got.Interval != 5*time.Minute {
				t.Errorf("settings changed: %+v", got)
			}
		})
	}
}

func TestAPISettings(t *testing.T) {
	t.Parallel()
	srv, _, _, _ := setupTestServer(t)

	w := serve(srv, httptest.NewRequest("GET", "/api/settings", nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got api.SettingsView
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := api.SettingsView{Station: "EHGR", WeatherType: "METAR", IntervalMinutes: 5}
	if got != want {
		t.Errorf("settings = %+v, want %+v", got, want)
	}
}

func TestAPIHistory(t *testing.T) {
	t.Parallel()
	srv, s, _, _ := setupTestServer(t)

	w := serve(srv, httptest.NewRequest("GET", "/api/history", nil))
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("empty history = %s, want []", w.Body.String())
	}

	for i := 3; i >= 1; i-- {
		insertMessage(t, s, testNow.Add(-time.Duration(i)*time.Minute), "text")
	}

	w = serve(srv, httptest.NewRequest("GET", "/api/history?limit=2", nil))
	var msgs []models.BoardMessage
	if err := json.Unmarshal(w.Body.Bytes(), &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if !msgs[0].RenderedAt.After(msgs[1].RenderedAt) {
		t.Error("expected newest first")
	}

	w = serve(srv, httptest.NewRequest("GET", "/api/history?limit=x", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestAPICurrent(t *testing.T) {
	t.Parallel()
	srv, s, _, _ := setupTestServer(t)
	insertMessage(t, s, testNow, "MET VFR{66}{66}{66} MIL JT1430\nEHGR")

	w := serve(srv, httptest.NewRequest("GET", "/api/current", nil))
	var got struct {
		Settings api.SettingsView    `json:"settings"`
		Board    models.BoardMessage `json:"board"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Board.Text != "MET VFR{66}{66}{66} MIL JT1430\nEHGR" {
		t.Errorf("board text = %q", got.Board.Text)
	}
	if got.Settings.Station != "EHGR" {
		t.Errorf("station = %q", got.Settings.Station)
	}
}

func TestBoardImage(t *testing.T) {
	t.Parallel()
	srv, s, _, _ := setupTestServer(t)
	insertMessage(t, s, testNow, "MET VFR{66}{66}{66} MIL JT1430")

	w := serve(srv, httptest.NewRequest("GET", "/board.png", nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if _, err := png.Decode(bytes.NewReader(w.Body.Bytes())); err != nil {
		t.Errorf("decode png: %v", err)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	srv, _, _, _ := setupTestServer(t)

	w := serve(srv, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected Go runtime metrics")
	}
}

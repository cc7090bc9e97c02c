package api

import (
	"time"

	"github.com/realmlist/metarboard/internal/models"
	"github.com/realmlist/metarboard/internal/store"
)

// SettingsView is the runtime settings as shown in the form and the JSON API.
// Field names follow the form keys of the settings page.
type SettingsView struct {
	Station         string `json:"station"`
	WeatherType     string `json:"weather_type"`
	IntervalMinutes int    `json:"interval"`
}

func newSettingsView(st models.Settings) SettingsView {
	return SettingsView{
		Station:         st.StationID,
		WeatherType:     st.ReportKind.Upper(),
		IntervalMinutes: int(st.Interval / time.Minute),
	}
}

// CurrentData is the board state served by / and /api/current.
type CurrentData struct {
	Settings SettingsView         `json:"settings"`
	Board    *models.BoardMessage `json:"board,omitempty"`
	Lines    []string             `json:"-"`
	Age      string               `json:"-"`
}

// IndexData wraps CurrentData with page-only fields.
type IndexData struct {
	*CurrentData
	History []models.BoardMessage
	Kinds   []string
	Error   string
	Saved   bool
}

// HealthStatus is the /health response.
type HealthStatus struct {
	Status       string                      `json:"status"`
	Station      string                      `json:"station"`
	Kind         models.ReportKind           `json:"kind"`
	LastUpdate   *time.Time                  `json:"last_update,omitempty"`
	AgeMinutes   int                         `json:"age_minutes"`
	Stale        bool                        `json:"stale"`
	Schema       int                         `json:"schema_version"`
	Archive      *store.RawPayloadStats      `json:"archive,omitempty"`
	LastRun      *IngestRunView              `json:"last_run,omitempty"`
	Ingest       []store.IngestHealthSummary `json:"ingest,omitempty"`
	RecentErrors []IngestRunView             `json:"recent_errors,omitempty"`
	Errors       []string                    `json:"errors,omitempty"`
}

type IngestRunView struct {
	TickID    string    `json:"tick_id"`
	StartedAt time.Time `json:"started_at"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message,omitempty"`
}

func newIngestRunView(run store.IngestRun) IngestRunView {
	return IngestRunView{
		TickID:    run.TickID,
		StartedAt: run.StartedAt,
		Outcome:   run.Outcome.String,
		Message:   run.ErrorMessage.String,
	}
}

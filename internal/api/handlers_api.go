package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/realmlist/metarboard/internal/logger"
	"github.com/realmlist/metarboard/internal/models"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
	healthWindow        = 24 * time.Hour
	healthErrors        = 5
)

// staleFactor is how many intervals may pass without a board update before
// /health reports degraded.
const staleFactor = 3

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("write response", logger.Error(err))
	}
}

func (s *Server) handleAPICurrent(w http.ResponseWriter, r *http.Request) {
	data, err := s.getCurrentData()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleAPISettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetSettings()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, newSettingsView(st))
}

func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	msgs, err := s.store.RecentBoardMessages(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []models.BoardMessage{}
	}
	s.writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{Status: "ok", AgeMinutes: -1}

	if err := s.store.Ping(); err != nil {
		health.Status = "error"
		health.Errors = append(health.Errors, "database: "+err.Error())
		s.writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}

	if version, err := s.store.MigrationVersion(); err != nil {
		health.Errors = append(health.Errors, "schema: "+err.Error())
	} else {
		health.Schema = version
	}

	now := s.clock.Now()
	st, err := s.store.GetSettings()
	if err != nil {
		health.Errors = append(health.Errors, "settings: "+err.Error())
	} else {
		health.Station = st.StationID
		health.Kind = st.ReportKind
	}

	last, err := s.store.LastBoardMessage()
	if err != nil {
		health.Errors = append(health.Errors, "board messages: "+err.Error())
	} else if last != nil {
		at := last.RenderedAt
		age := now.Sub(at)
		health.LastUpdate = &at
		health.AgeMinutes = int(age.Minutes())
		health.Stale = st.Interval > 0 && age > staleFactor*st.Interval
	}

	if stats, err := s.store.GetRawPayloadStats(); err != nil {
		health.Errors = append(health.Errors, "archive: "+err.Error())
	} else {
		health.Archive = stats
	}

	if runs, err := s.store.GetRecentIngestRuns(1); err != nil {
		health.Errors = append(health.Errors, "ingest runs: "+err.Error())
	} else if len(runs) > 0 {
		v := newIngestRunView(runs[0])
		health.LastRun = &v
	}

	if summaries, err := s.store.GetIngestHealth(now.Add(-healthWindow)); err != nil {
		health.Errors = append(health.Errors, "ingest health: "+err.Error())
	} else {
		health.Ingest = summaries
	}

	if runs, err := s.store.GetRecentIngestErrors(healthErrors); err != nil {
		health.Errors = append(health.Errors, "ingest errors: "+err.Error())
	} else {
		for _, run := range runs {
			health.RecentErrors = append(health.RecentErrors, newIngestRunView(run))
		}
	}

	if health.Stale {
		health.Status = "degraded"
	}
	if len(health.Errors) > 0 {
		health.Status = "error"
	}

	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

// handleBoardImage renders the last board text as a PNG preview.
func (s *Server) handleBoardImage(w http.ResponseWriter, r *http.Request) {
	var text string
	last, err := s.store.LastBoardMessage()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if last != nil {
		text = last.Text
	}

	data, err := s.previews.Get(text)
	if err != nil {
		s.log.Error("render board preview", logger.Error(err))
		http.Error(w, "failed to render preview", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

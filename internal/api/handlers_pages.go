package api

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/realmlist/metarboard/internal/logger"
	"github.com/realmlist/metarboard/internal/models"
)

const (
	historyOnPage      = 10
	maxIntervalMinutes = 24 * 60
)

var stationPattern = regexp.MustCompile(`^[A-Z0-9]{3,4}$`)

func (s *Server) getCurrentData() (*CurrentData, error) {
	st, err := s.store.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	data := &CurrentData{Settings: newSettingsView(st)}

	last, err := s.store.LastBoardMessage()
	if err != nil {
		return nil, fmt.Errorf("last board message: %w", err)
	}
	if last != nil {
		data.Board = last
		data.Lines = strings.Split(last.Text, "\n")
		data.Age = s.clock.Since(last.RenderedAt).Truncate(time.Second).String()
	}
	return data, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, http.StatusOK, "", r.URL.Query().Get("saved") == "1")
}

func (s *Server) renderIndex(w http.ResponseWriter, status int, formErr string, saved bool) {
	data, err := s.getCurrentData()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	history, err := s.store.RecentBoardMessages(historyOnPage)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, "index.html", IndexData{
		CurrentData: data,
		History:     history,
		Kinds:       []string{models.KindMETAR.Upper(), models.KindTAF.Upper()},
		Error:       formErr,
		Saved:       saved,
	}); err != nil {
		s.log.Error("template error", logger.Error(err))
	}
}

// handleUpdate stores the submitted settings and restarts the update loop.
// Fields missing from the form keep their stored value.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	current, err := s.store.GetSettings()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	next, err := applyForm(current, r.PostForm)
	if err != nil {
		s.renderIndex(w, http.StatusBadRequest, err.Error(), false)
		return
	}
	if err := s.store.SaveSettings(next); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.log.Info("settings updated",
		logger.String("station", next.StationID),
		logger.String("kind", string(next.ReportKind)),
		logger.Duration("interval", next.Interval))
	s.ctl.Reconfigure()

	http.Redirect(w, r, "/?saved=1", http.StatusSeeOther)
}

func applyForm(st models.Settings, form url.Values) (models.Settings, error) {
	if form.Has("station") {
		station := strings.ToUpper(strings.TrimSpace(form.Get("station")))
		if !stationPattern.MatchString(station) {
			return st, fmt.Errorf("station %q is not an ICAO identifier", form.Get("station"))
		}
		st.StationID = station
	}

	if form.Has("weather_type") {
		kind, err := models.ParseReportKind(form.Get("weather_type"))
		if err != nil {
			return st, err
		}
		st.ReportKind = kind
	}

	if form.Has("interval") {
		minutes, err := strconv.Atoi(strings.TrimSpace(form.Get("interval")))
		if err != nil || minutes < 1 || minutes > maxIntervalMinutes {
			return st, fmt.Errorf("interval must be a whole number of minutes between 1 and %d", maxIntervalMinutes)
		}
		st.Interval = time.Duration(minutes) * time.Minute
	}

	return st, nil
}

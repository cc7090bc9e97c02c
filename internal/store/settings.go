package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/realmlist/metarboard/internal/models"
)

// Setting keys. The names and the upper-case weather type match config.db
// files written by the earlier Flask UI, so an old database can be reused.
const (
	settingStation     = "station"
	settingWeatherType = "weather_type"
	settingInterval    = "interval"
)

// SeedSettings inserts defaults for any setting that is not stored yet.
func (s *Store) SeedSettings(def models.Settings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range settingValues(def) {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("seed setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// SaveSettings replaces the stored settings.
func (s *Store) SaveSettings(st models.Settings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range settingValues(st) {
		if _, err := tx.Exec(`
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value); err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// GetSettings reads the stored settings. Missing keys are an error; call
// SeedSettings first.
func (s *Store) GetSettings() (models.Settings, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return models.Settings{}, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return models.Settings{}, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, err
	}

	var st models.Settings
	station, ok := values[settingStation]
	if !ok || station == "" {
		return st, fmt.Errorf("setting %q not found", settingStation)
	}
	st.StationID = station

	kind, err := models.ParseReportKind(values[settingWeatherType])
	if err != nil {
		return st, fmt.Errorf("setting %s: %w", settingWeatherType, err)
	}
	st.ReportKind = kind

	interval, err := parseInterval(values[settingInterval])
	if err != nil {
		return st, fmt.Errorf("setting %s: %w", settingInterval, err)
	}
	st.Interval = interval

	return st, nil
}

func settingValues(st models.Settings) map[string]string {
	return map[string]string{
		settingStation:     strings.ToUpper(st.StationID),
		settingWeatherType: st.ReportKind.Upper(),
		settingInterval:    formatInterval(st.Interval),
	}
}

// formatInterval writes whole minutes as a bare number, as the old UI did,
// and anything else as a Go duration.
func formatInterval(d time.Duration) string {
	if d > 0 && d%time.Minute == 0 {
		return strconv.FormatInt(int64(d/time.Minute), 10)
	}
	return d.String()
}

func parseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("interval must be at least 1 minute, got %d", n)
		}
		return time.Duration(n) * time.Minute, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < time.Minute {
		return 0, fmt.Errorf("interval must be at least 1m, got %s", d)
	}
	return d, nil
}

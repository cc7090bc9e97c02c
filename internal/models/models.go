package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// UnboundedVisibilitySM stands in for a report without a visibility group.
	UnboundedVisibilitySM = 10.0
	// UnlimitedCeilingFeet stands in for a report without a ceiling layer.
	UnlimitedCeilingFeet = 99999
)

type ReportKind string

const (
	KindMETAR ReportKind = "metar"
	KindTAF   ReportKind = "taf"
)

// ParseReportKind accepts "metar"/"taf" in any case.
func ParseReportKind(s string) (ReportKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindMETAR):
		return KindMETAR, nil
	case string(KindTAF):
		return KindTAF, nil
	default:
		return "", fmt.Errorf("unknown report kind %q", s)
	}
}

// Label is the short name shown on the board.
func (k ReportKind) Label() string {
	switch k {
	case KindMETAR:
		return "MET"
	case KindTAF:
		return "TAF"
	default:
		return "Unknown"
	}
}

// Upper is the kind as used in user-facing messages ("METAR", "TAF").
func (k ReportKind) Upper() string {
	return strings.ToUpper(string(k))
}

type CoverCode string

const (
	CoverFEW CoverCode = "FEW"
	CoverSCT CoverCode = "SCT"
	CoverBKN CoverCode = "BKN"
	CoverOVC CoverCode = "OVC"
	CoverOVX CoverCode = "OVX"
	CoverVV  CoverCode = "VV"
)

func ParseCoverCode(s string) (CoverCode, bool) {
	switch c := CoverCode(strings.ToUpper(s)); c {
	case CoverFEW, CoverSCT, CoverBKN, CoverOVC, CoverOVX, CoverVV:
		return c, true
	default:
		return "", false
	}
}

// IsCeiling reports whether a layer of this cover counts as a ceiling.
func (c CoverCode) IsCeiling() bool {
	switch c {
	case CoverBKN, CoverOVC, CoverOVX, CoverVV:
		return true
	default:
		return false
	}
}

type CloudLayer struct {
	Cover    CoverCode `json:"cover"`
	BaseFeet int       `json:"base_feet"`
}

type WeatherReport struct {
	StationID   string       `json:"station_id"`
	RawText     string       `json:"raw_text"`
	Kind        ReportKind   `json:"kind"`
	Visibility  *float64     `json:"visibility_sm,omitempty"` // statute miles, nil when not reported
	CloudLayers []CloudLayer `json:"cloud_layers"`
}

// NewWeatherReport builds a report with its layers in ascending base order.
// The layers slice is copied; the report never reorders it afterwards.
func NewWeatherReport(kind ReportKind, stationID, raw string, visibility *float64, layers []CloudLayer) *WeatherReport {
	sorted := make([]CloudLayer, len(layers))
	copy(sorted, layers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BaseFeet < sorted[j].BaseFeet
	})
	return &WeatherReport{
		StationID:   stationID,
		RawText:     raw,
		Kind:        kind,
		Visibility:  visibility,
		CloudLayers: sorted,
	}
}

// VisibilitySM returns the reported visibility, or UnboundedVisibilitySM
// when the report carried none.
func (r *WeatherReport) VisibilitySM() float64 {
	if r.Visibility == nil {
		return UnboundedVisibilitySM
	}
	return *r.Visibility
}

// CeilingFeet returns the base of the lowest BKN/OVC/OVX/VV layer.
func (r *WeatherReport) CeilingFeet() int {
	for _, l := range r.CloudLayers {
		if l.Cover.IsCeiling() {
			return l.BaseFeet
		}
	}
	return UnlimitedCeilingFeet
}

// LowestCover returns the cover of the lowest layer of any type.
func (r *WeatherReport) LowestCover() (CoverCode, bool) {
	if len(r.CloudLayers) == 0 {
		return "", false
	}
	return r.CloudLayers[0].Cover, true
}

type FlightCategory string

const (
	CategoryVFR  FlightCategory = "VFR"
	CategoryMVFR FlightCategory = "MVFR"
	CategoryIFR  FlightCategory = "IFR"
	CategoryLIFR FlightCategory = "LIFR"
)

// AllCategories lists the categories from best to worst conditions.
var AllCategories = []FlightCategory{CategoryVFR, CategoryMVFR, CategoryIFR, CategoryLIFR}

type Settings struct {
	StationID  string        `json:"station_id"`
	ReportKind ReportKind    `json:"report_kind"`
	Interval   time.Duration `json:"interval"`
}

type BoardMessage struct {
	ID         int64          `json:"id"`
	TickID     string         `json:"tick_id"`
	RenderedAt time.Time      `json:"rendered_at"`
	StationID  string         `json:"station_id"`
	Kind       ReportKind     `json:"kind"`
	Category   FlightCategory `json:"category,omitempty"`
	NoData     bool           `json:"no_data"`
	Text       string         `json:"text"`
	Sent       bool           `json:"sent"`
}

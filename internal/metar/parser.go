// Package metar decodes aviationweather.gov METAR and TAF payloads into
// models.WeatherReport values.
package metar

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/realmlist/metarboard/internal/models"
)

// ErrNoReports is returned when the provider answered with an empty list.
// It is a valid terminal state for a tick, not a parse failure.
var ErrNoReports = errors.New("no reports in payload")

// ParseError describes a payload that could not be decoded into a report.
type ParseError struct {
	Kind   models.ReportKind
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Kind, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// metarRecord is one element of the /api/data/metar?format=json response.
type metarRecord struct {
	ICAOID string      `json:"icaoId"`
	RawOb  string      `json:"rawOb"`
	Clouds []jsonCloud `json:"clouds"`
}

// jsonCloud is one decoded sky layer; base is in feet and absent for CLR/SKC.
type jsonCloud struct {
	Cover string `json:"cover"`
	Base  *int   `json:"base"`
}

// tafRecord is one element of the /api/data/taf?format=json response.
type tafRecord struct {
	ICAOID string `json:"icaoId"`
	RawTAF string `json:"rawTAF"`
}

// Parse decodes the first record of a provider payload. The payload is
// either the JSON array returned with format=json or the plain text returned
// with format=raw.
func Parse(kind models.ReportKind, payload []byte) (*models.WeatherReport, error) {
	if kind != models.KindMETAR && kind != models.KindTAF {
		return nil, &ParseError{Kind: kind, Reason: "unsupported report kind"}
	}

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, ErrNoReports
	}

	var stationID, raw string
	var decoded []models.CloudLayer
	var err error
	if trimmed[0] == '[' || trimmed[0] == '{' {
		stationID, raw, decoded, err = firstJSONRecord(kind, trimmed)
	} else {
		stationID, raw, err = firstRawRecord(kind, trimmed)
	}
	if err != nil {
		return nil, err
	}

	raw = normalizeSpace(strings.ToValidUTF8(raw, "?"))
	stationID = strings.ToValidUTF8(stationID, "?")
	if stationID == "" {
		stationID = stationFromRaw(raw)
	}

	tokens := bodyTokens(raw)
	visibility := extractVisibility(tokens)
	layers := decoded
	if layers == nil {
		layers = extractClouds(tokens)
	}

	return models.NewWeatherReport(kind, stationID, raw, visibility, layers), nil
}

// firstJSONRecord returns the station, raw text and, for METARs carrying a
// non-empty clouds array, the provider's decoded layers. Layers stay nil
// when the record has no clouds array so the raw text is used instead.
func firstJSONRecord(kind models.ReportKind, payload []byte) (string, string, []models.CloudLayer, error) {
	switch kind {
	case models.KindMETAR:
		var records []metarRecord
		if err := json.Unmarshal(payload, &records); err != nil {
			return "", "", nil, &ParseError{Kind: kind, Reason: "decode json", Err: err}
		}
		if len(records) == 0 {
			return "", "", nil, ErrNoReports
		}
		rec := records[0]
		if strings.TrimSpace(rec.RawOb) == "" {
			return "", "", nil, &ParseError{Kind: kind, Reason: "missing rawOb"}
		}
		return rec.ICAOID, rec.RawOb, decodedLayers(rec.Clouds), nil

	default:
		var records []tafRecord
		if err := json.Unmarshal(payload, &records); err != nil {
			return "", "", nil, &ParseError{Kind: kind, Reason: "decode json", Err: err}
		}
		if len(records) == 0 {
			return "", "", nil, ErrNoReports
		}
		rec := records[0]
		if strings.TrimSpace(rec.RawTAF) == "" && strings.TrimSpace(rec.ICAOID) == "" {
			return "", "", nil, &ParseError{Kind: kind, Reason: "missing rawTAF and icaoId"}
		}
		return rec.ICAOID, rec.RawTAF, nil, nil
	}
}

// decodedLayers converts a clouds array. Entries without a known cover or a
// base (CLR, SKC, CAVOK) are dropped; a non-empty array always yields a
// non-nil slice.
func decodedLayers(clouds []jsonCloud) []models.CloudLayer {
	if len(clouds) == 0 {
		return nil
	}
	layers := make([]models.CloudLayer, 0, len(clouds))
	for _, c := range clouds {
		cover, ok := models.ParseCoverCode(strings.TrimSpace(c.Cover))
		if !ok || c.Base == nil {
			continue
		}
		layers = append(layers, models.CloudLayer{Cover: cover, BaseFeet: *c.Base})
	}
	return layers
}

// firstRawRecord returns the first report of a format=raw payload. Lines
// starting with whitespace continue the previous report (multi-line TAFs).
func firstRawRecord(kind models.ReportKind, payload []byte) (string, string, error) {
	var record []string
	scanner := bufio.NewScanner(bytes.NewReader(payload))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if len(record) > 0 {
				break
			}
			continue
		}
		continuation := line[0] == ' ' || line[0] == '\t'
		if len(record) > 0 && !continuation {
			break
		}
		record = append(record, strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		return "", "", &ParseError{Kind: kind, Reason: "read raw payload", Err: err}
	}
	if len(record) == 0 {
		return "", "", ErrNoReports
	}
	return "", strings.Join(record, " "), nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stationFromRaw takes the first token that is not a report-type prefix.
func stationFromRaw(raw string) string {
	for _, tok := range strings.Fields(raw) {
		switch tok {
		case "METAR", "SPECI", "TAF", "AMD", "COR":
			continue
		}
		return tok
	}
	return ""
}

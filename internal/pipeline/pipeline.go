// Package pipeline runs one payload through decode, classify, encode and
// format. It holds no state between calls.
package pipeline

import (
	"errors"
	"time"

	"github.com/realmlist/metarboard/internal/board"
	"github.com/realmlist/metarboard/internal/flightcat"
	"github.com/realmlist/metarboard/internal/metar"
	"github.com/realmlist/metarboard/internal/models"
)

type Input struct {
	Kind    models.ReportKind
	Station string // used when the payload does not name one
	Payload []byte
	Now     time.Time
}

type Output struct {
	Text      string
	StationID string
	Kind      models.ReportKind
	Report    *models.WeatherReport
	Category  models.FlightCategory
	Segments  board.Segments
	Status    metar.Status
	NoData    bool
	// Fallback is set when no category band matched and VFR was assumed.
	Fallback bool
}

// Render produces the board text for one payload. An empty provider response
// is a NoData output, not an error. Parse failures are returned unchanged so
// callers can match *metar.ParseError.
func Render(in Input) (Output, error) {
	report, err := metar.Parse(in.Kind, in.Payload)
	if errors.Is(err, metar.ErrNoReports) {
		return Output{
			Text:      board.NoData(in.Kind),
			StationID: in.Station,
			Kind:      in.Kind,
			NoData:    true,
		}, nil
	}
	if err != nil {
		return Output{}, err
	}

	station := report.StationID
	if station == "" {
		station = in.Station
	}

	category, inBand := flightcat.ClassifyReport(report)
	segments := board.EncodeReport(category, report)
	status := metar.ScanStatus(report.RawText)

	text := board.Format(board.Line{
		Kind:      in.Kind,
		Now:       in.Now,
		Segments:  segments,
		Status:    board.EncodeStatus(status),
		RawText:   report.RawText,
		StationID: station,
	})

	return Output{
		Text:      text,
		StationID: station,
		Kind:      in.Kind,
		Report:    report,
		Category:  category,
		Segments:  segments,
		Status:    status,
		Fallback:  !inBand,
	}, nil
}

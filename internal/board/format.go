package board

import (
	"fmt"
	"time"

	"github.com/realmlist/metarboard/internal/models"
)

// clockLayout is the 24-hour HHMM stamp printed on both layouts.
const clockLayout = "1504"

// Line holds everything the formatter needs. Now is read as given; callers
// convert it to the display timezone first.
type Line struct {
	Kind      models.ReportKind
	Now       time.Time
	Segments  Segments
	Status    string
	RawText   string
	StationID string
}

// Format assembles the board text.
//
// METAR: "MET VFR<segments> MIL<status>JT<HHMM>\n<raw>"
// TAF:   "<HHMM> <raw>", or "<HHMM> TAF <station>" when raw is empty.
func Format(l Line) string {
	hhmm := l.Now.Format(clockLayout)

	if l.Kind == models.KindTAF {
		if l.RawText == "" {
			return fmt.Sprintf("%s %s %s", hhmm, l.Kind.Label(), l.StationID)
		}
		return fmt.Sprintf("%s %s", hhmm, l.RawText)
	}

	return fmt.Sprintf("%s VFR%s MIL%sJT%s\n%s", l.Kind.Label(), l.Segments, l.Status, hhmm, l.RawText)
}

// NoData is shown when the provider had no report for the station.
func NoData(kind models.ReportKind) string {
	return fmt.Sprintf("No %s data available.", kind.Upper())
}

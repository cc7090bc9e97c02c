package board

import (
	"strings"

	"github.com/realmlist/metarboard/internal/metar"
	"github.com/realmlist/metarboard/internal/models"
)

// Segments is the run of colour tiles following "VFR" on the first line.
type Segments string

// blankStatus fills the status cell when no colour state was reported.
const blankStatus = " "

var coverRepeat = map[models.CoverCode]int{
	models.CoverFEW: 1,
	models.CoverSCT: 2,
	models.CoverBKN: 3,
	models.CoverOVC: 4,
	models.CoverOVX: 4,
	models.CoverVV:  4,
}

// Encode repeats the category tile once per okta band of the lowest cloud
// layer. Without a layer (ok false) or with an unknown cover the tile appears
// once.
func Encode(cat models.FlightCategory, cover models.CoverCode, ok bool) Segments {
	tile := string(CategoryColor(cat))
	n, known := coverRepeat[cover]
	if !ok || !known {
		return Segments(tile)
	}
	return Segments(strings.Repeat(tile, n))
}

// EncodeReport encodes a report's lowest layer with the given category.
func EncodeReport(cat models.FlightCategory, r *models.WeatherReport) Segments {
	cover, ok := r.LowestCover()
	return Encode(cat, cover, ok)
}

// EncodeStatus returns the single cell shown after "MIL".
func EncodeStatus(s metar.Status) string {
	if c, ok := StatusColor(s); ok {
		return string(c)
	}
	return blankStatus
}

// Count returns the number of tiles in the run.
func (s Segments) Count() int {
	return strings.Count(string(s), "{")
}

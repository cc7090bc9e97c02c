// Package board turns a classified report into the character-code text
// shown on the display board.
package board

import (
	"github.com/realmlist/metarboard/internal/metar"
	"github.com/realmlist/metarboard/internal/models"
)

// ColorCode is a board character code that renders as a solid colour tile.
type ColorCode string

const (
	ColorRed    ColorCode = "{63}"
	ColorOrange ColorCode = "{64}"
	ColorYellow ColorCode = "{65}"
	ColorGreen  ColorCode = "{66}"
	ColorBlue   ColorCode = "{67}"
	ColorViolet ColorCode = "{68}"
	ColorWhite  ColorCode = "{69}"
	ColorFilled ColorCode = "{71}"
)

// CategoryColor returns the tile colour of a flight category. Anything that is
// not a known category renders white.
func CategoryColor(cat models.FlightCategory) ColorCode {
	switch cat {
	case models.CategoryVFR:
		return ColorGreen
	case models.CategoryMVFR:
		return ColorBlue
	case models.CategoryIFR:
		return ColorRed
	case models.CategoryLIFR:
		return ColorViolet
	default:
		return ColorWhite
	}
}

// statusColors has one entry per colour state. Lookups that miss encode as a
// blank cell.
var statusColors = map[metar.Status]ColorCode{
	metar.StatusRed:    ColorRed,
	metar.StatusAmber:  ColorOrange,
	metar.StatusYellow: ColorYellow,
	metar.StatusGreen:  ColorGreen,
	metar.StatusWhite:  ColorFilled,
	metar.StatusBlue:   ColorBlue,
}

// StatusColor returns the tile for a colour state.
func StatusColor(s metar.Status) (ColorCode, bool) {
	c, ok := statusColors[s]
	return c, ok
}

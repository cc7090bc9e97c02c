// Package flightcat derives the standard flight category from visibility
// and ceiling.
package flightcat

import "github.com/realmlist/metarboard/internal/models"

type band struct {
	category models.FlightCategory
	match    func(visSM, ceilingFt float64) bool
}

// bands are checked in order; the first match wins. They do not cover the
// whole input domain (e.g. 4 sm under a 4000 ft ceiling), see ClassifyBand.
var bands = [...]band{
	{models.CategoryVFR, func(v, c float64) bool { return v >= 6 && c > 3000 }},
	{models.CategoryMVFR, func(v, c float64) bool { return v >= 3 && v <= 6 && c >= 1000 && c <= 3000 }},
	{models.CategoryIFR, func(v, c float64) bool { return v >= 1 && v < 3 && c >= 500 && c < 1000 }},
	{models.CategoryLIFR, func(v, c float64) bool { return v < 1 || c < 500 }},
}

// Classify maps visibility in statute miles and ceiling in feet to a flight
// category. Combinations outside every band default to VFR.
func Classify(visSM, ceilingFt float64) models.FlightCategory {
	cat, _ := ClassifyBand(visSM, ceilingFt)
	return cat
}

// ClassifyBand is Classify that also reports whether a band matched. A false
// result means the VFR default was applied.
func ClassifyBand(visSM, ceilingFt float64) (models.FlightCategory, bool) {
	for _, b := range bands {
		if b.match(visSM, ceilingFt) {
			return b.category, true
		}
	}
	return models.CategoryVFR, false
}

// ClassifyReport classifies a decoded report using its resolved visibility
// and ceiling.
func ClassifyReport(r *models.WeatherReport) (models.FlightCategory, bool) {
	return ClassifyBand(r.VisibilitySM(), float64(r.CeilingFeet()))
}

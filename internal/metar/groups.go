package metar

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/realmlist/metarboard/internal/models"
)

const (
	kmToStatuteMiles     = 0.621371
	metresPerStatuteMile = 1609.34
)

var (
	smPattern     = regexp.MustCompile(`^([PM])?(?:(\d+)/(\d+)|(\d+))SM$`)
	kmPattern     = regexp.MustCompile(`^(\d+)KM$`)
	metrePattern  = regexp.MustCompile(`^(\d{4})(NDV)?$`)
	windPattern   = regexp.MustCompile(`^(\d{3}|VRB)\d{2,3}(G\d{2,3})?(KT|MPS|KMH)$`)
	varyPattern   = regexp.MustCompile(`^\d{3}V\d{3}$`)
	wholePattern  = regexp.MustCompile(`^\d$`)
	cloudPattern  = regexp.MustCompile(`^(FEW|SCT|BKN|OVC|OVX|VV)(\d{3})`)
	changePattern = regexp.MustCompile(`^(RMK|TEMPO|BECMG|NOSIG|INTER|FM\d{6}|PROB\d{2})$`)
)

// bodyTokens returns the tokens of the main report body, stopping at the
// first remark or change group.
func bodyTokens(raw string) []string {
	fields := strings.Fields(raw)
	for i, f := range fields {
		if i > 0 && changePattern.MatchString(f) {
			return fields[:i]
		}
	}
	return fields
}

// extractVisibility returns the prevailing visibility in statute miles, or
// nil when the report has no visibility group (unrestricted).
func extractVisibility(tokens []string) *float64 {
	for i, tok := range tokens {
		if tok == "CAVOK" {
			return nil
		}

		if m := smPattern.FindStringSubmatch(tok); m != nil {
			var v float64
			if m[4] != "" {
				v, _ = strconv.ParseFloat(m[4], 64)
			} else {
				num, _ := strconv.ParseFloat(m[2], 64)
				den, _ := strconv.ParseFloat(m[3], 64)
				if den == 0 {
					continue
				}
				v = num / den
				if i > 0 && wholePattern.MatchString(tokens[i-1]) {
					whole, _ := strconv.ParseFloat(tokens[i-1], 64)
					v += whole
				}
			}
			return &v
		}

		if m := kmPattern.FindStringSubmatch(tok); m != nil {
			km, _ := strconv.ParseFloat(m[1], 64)
			v := math.Round(km * kmToStatuteMiles)
			return &v
		}

		if m := metrePattern.FindStringSubmatch(tok); m != nil && i > 0 && followsWind(tokens, i) {
			if m[1] == "9999" {
				return nil
			}
			metres, _ := strconv.ParseFloat(m[1], 64)
			v := metres / metresPerStatuteMile
			return &v
		}
	}
	return nil
}

// followsWind reports whether tokens[i] sits directly after the wind group
// (or its variable-direction companion), where ICAO metre visibility lives.
func followsWind(tokens []string, i int) bool {
	prev := tokens[i-1]
	if windPattern.MatchString(prev) {
		return true
	}
	return varyPattern.MatchString(prev) && i > 1 && windPattern.MatchString(tokens[i-2])
}

func extractClouds(tokens []string) []models.CloudLayer {
	var layers []models.CloudLayer
	for _, tok := range tokens {
		if tok == "CAVOK" {
			return nil
		}
		m := cloudPattern.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		cover, ok := models.ParseCoverCode(m[1])
		if !ok {
			continue
		}
		hundreds, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		layers = append(layers, models.CloudLayer{Cover: cover, BaseFeet: hundreds * 100})
	}
	return layers
}

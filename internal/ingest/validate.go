package ingest

import (
	"encoding/json"
	"strings"

	"github.com/realmlist/metarboard/internal/models"
)

const (
	FlagStationMismatch    = "station_mismatch"
	FlagRawTextEmpty       = "raw_text_empty"
	FlagVisibilityUnlikely = "visibility_unlikely"
	FlagCloudBaseUnlikely  = "cloud_base_unlikely"
)

// maxCloudBaseFeet is above any reportable layer (three digits of hundreds).
const maxCloudBaseFeet = 99900

// ValidateReport returns quality flags for a decoded report. Flags never
// stop the board update; they are logged and kept on the ingest run.
func ValidateReport(requestedStation string, r *models.WeatherReport) []string {
	var flags []string

	if r.StationID != "" && !strings.EqualFold(r.StationID, requestedStation) {
		flags = append(flags, FlagStationMismatch)
	}

	if r.RawText == "" {
		flags = append(flags, FlagRawTextEmpty)
	}

	if r.Visibility != nil {
		if *r.Visibility < 0 || *r.Visibility > 100 {
			flags = append(flags, FlagVisibilityUnlikely)
		}
	}

	for _, l := range r.CloudLayers {
		if l.BaseFeet < 0 || l.BaseFeet > maxCloudBaseFeet {
			flags = append(flags, FlagCloudBaseUnlikely)
			break
		}
	}

	return flags
}

func QualityFlagsToJSON(flags []string) string {
	if len(flags) == 0 {
		return ""
	}
	b, _ := json.Marshal(flags)
	return string(b)
}

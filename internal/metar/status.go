package metar

import "strings"

// Status is the military airfield colour state found in a report's text.
type Status string

const (
	StatusNone   Status = ""
	StatusRed    Status = "RED"
	StatusAmber  Status = "AMB"
	StatusYellow Status = "YLO"
	StatusGreen  Status = "GRN"
	StatusWhite  Status = "WHT"
	StatusBlue   Status = "BLU"
)

// statusPriority is evaluated top to bottom; the first keyword present wins.
var statusPriority = [...]Status{
	StatusRed,
	StatusAmber,
	StatusYellow,
	StatusGreen,
	StatusWhite,
	StatusBlue,
}

// ScanStatus looks for a colour state keyword anywhere in the raw text.
func ScanStatus(raw string) Status {
	for _, s := range statusPriority {
		if strings.Contains(raw, string(s)) {
			return s
		}
	}
	return StatusNone
}

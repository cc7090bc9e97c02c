package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Flat files predate the sectioned layout and carry only two top-level keys:
//
//	interval = 30      # minutes
//	station = "EHGR"
//
// They load as Default() with those two values applied.

func isFlatFile(top map[string]any) bool {
	if _, ok := top["station"].(string); ok {
		return true
	}
	_, ok := top["interval"]
	return ok
}

func fromFlatFile(top map[string]any) (*Config, error) {
	cfg := Default()

	var unknown []string
	for k, v := range top {
		switch k {
		case "station":
			id, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("station: expected a string, got %T", v)
			}
			cfg.Station.ID = id
		case "interval":
			minutes, ok := v.(int64)
			if !ok {
				return nil, fmt.Errorf("interval: expected whole minutes, got %T", v)
			}
			cfg.Station.Interval = time.Duration(minutes) * time.Minute
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(unknown, ", "))
	}
	return cfg, nil
}

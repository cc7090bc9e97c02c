package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/realmlist/metarboard/internal/models"
)

var (
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metarboard_provider_calls_total",
			Help: "Total aviationweather.gov API calls",
		},
		[]string{"station", "kind", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metarboard_provider_latency_seconds",
			Help:    "aviationweather.gov API call latency in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metarboard_ticks_total",
			Help: "Scheduler ticks by outcome",
		},
		[]string{"outcome"},
	)

	ClassificationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metarboard_classification_fallbacks_total",
			Help: "Reports that matched no category band and were shown as VFR",
		},
		[]string{"station"},
	)

	FlightCategory = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "metarboard_flight_category",
			Help: "1 for the category currently shown, 0 for the others",
		},
		[]string{"station", "category"},
	)

	SinkWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metarboard_sink_writes_total",
			Help: "Display sink writes by sink and status",
		},
		[]string{"sink", "status"},
	)

	LastRenderTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "metarboard_last_render_timestamp_seconds",
			Help: "Unix time of the last successfully rendered board message",
		},
	)
)

// SetFlightCategory marks cat as the current category for station.
func SetFlightCategory(station string, cat models.FlightCategory) {
	for _, c := range models.AllCategories {
		v := 0.0
		if c == cat {
			v = 1
		}
		FlightCategory.WithLabelValues(station, string(c)).Set(v)
	}
}

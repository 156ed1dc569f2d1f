package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
	)

	VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "votes_total", Help: "Vote submissions by post type and outcome"},
		[]string{"post_type", "result"},
	)
	SweepChanged = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "status_sweep_changed_total", Help: "Posts whose stored status was rewritten by the sweep"},
	)
	SweepLastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "status_sweep_last_run_timestamp_seconds", Help: "Unix time of the last successful sweep"},
	)
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "events_published_total", Help: "Events handed to the broker"},
		[]string{"key", "result"},
	)
	LiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "live_results_subscribers", Help: "Open live results websockets"},
	)
)

func MustRegister() {
	prometheus.MustRegister(RequestsTotal, ReqDuration, InFlight, VotesTotal, SweepChanged, SweepLastRun, EventsPublished, LiveSubscribers)
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OffersTotal       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "offers_total", Help: "Total ride offers sent to drivers"})
	AssignmentsTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "assignments_total", Help: "Total bookings assigned to a driver"})
	ExhaustedTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "exhausted_total", Help: "Total bookings that ran out of candidates"})
	CancelledTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "cancelled_total", Help: "Total bookings cancelled by the caller"})
	DuplicatesTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "duplicate_requests_total", Help: "Total duplicate booking submissions dropped by the idempotency gate"})
	OfflineSkipsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "offline_skips_total", Help: "Total candidates skipped because presence reported them offline"})

	DriverOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "driver_outcomes_total", Help: "Per-offer outcomes by reason"},
		[]string{"reason"},
	)

	ActiveDispatches = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "ride_dispatch", Name: "active_dispatches", Help: "Bookings currently being dispatched"})
	WSConnections    = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "ride_dispatch", Name: "ws_connections", Help: "Open websocket sessions"})

	OfferResponseSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ride_dispatch",
		Name:      "offer_response_seconds",
		Help:      "Time between sending an offer and the winning signal",
		Buckets:   []float64{1, 2, 5, 10, 15, 20, 30, 45, 60},
	})

	ConsumerMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "consumer_messages_total", Help: "Inbound event-bus messages by topic and result"},
		[]string{"topic", "result"},
	)
	DeadLetteredTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "dead_lettered_total", Help: "Messages routed to the dead-letter topic"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

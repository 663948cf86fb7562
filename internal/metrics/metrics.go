package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "agroconnect",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agroconnect",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agroconnect",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	paymentReconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agroconnect",
			Subsystem: "payments",
			Name:      "reconciliations_total",
			Help:      "Payment reconciliation attempts by entry point and outcome.",
		},
		[]string{"source", "outcome"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agroconnect",
			Subsystem: "payments",
			Name:      "webhook_events_total",
			Help:      "Paystack webhook deliveries by event type and outcome.",
		},
		[]string{"event", "outcome"},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agroconnect",
			Subsystem: "payments",
			Name:      "gateway_request_duration_seconds",
			Help:      "Duration of outbound Paystack calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 9),
		},
		[]string{"operation", "outcome"},
	)

	ordersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agroconnect",
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders successfully placed.",
		},
	)

	ordersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agroconnect",
			Subsystem: "orders",
			Name:      "rejected_total",
			Help:      "Order placements rejected, by reason.",
		},
		[]string{"reason"},
	)

	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "agroconnect",
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "Open WebSocket connections.",
		},
	)

	wsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agroconnect",
			Subsystem: "realtime",
			Name:      "dropped_clients_total",
			Help:      "Connections closed because their send buffer was full.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		paymentReconciliations,
		webhookEvents,
		gatewayDuration,
		ordersCreated,
		ordersRejected,
		wsConnections,
		wsDropped,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry on a Fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// Middleware records request count and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		httpInFlight.Inc()
		start := time.Now()
		err := c.Next()
		httpInFlight.Dec()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

func RecordReconciliation(source, outcome string) {
	paymentReconciliations.WithLabelValues(source, outcome).Inc()
}

func RecordWebhook(event, outcome string) {
	webhookEvents.WithLabelValues(event, outcome).Inc()
}

func ObserveGateway(operation, outcome string, d time.Duration) {
	gatewayDuration.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

func RecordOrderCreated() {
	ordersCreated.Inc()
}

func RecordOrderRejected(reason string) {
	ordersRejected.WithLabelValues(reason).Inc()
}

func ConnectionOpened() { wsConnections.Inc() }

func ConnectionClosed() { wsConnections.Dec() }

func ClientDropped() { wsDropped.Inc() }

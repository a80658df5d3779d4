package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type RouterMetrics struct {
	routesExecuted  *prometheus.CounterVec
	routesFailed    *prometheus.CounterVec
	swapSteps       *prometheus.CounterVec
	ordersOpened    prometheus.Counter
	ordersFilled    prometheus.Counter
	ordersCancelled prometheus.Counter
	feeCollected    *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
}

var (
	routerOnce     sync.Once
	routerRegistry *RouterMetrics
)

func Router() *RouterMetrics {
	routerOnce.Do(func() {
		routerRegistry = &RouterMetrics{
			routesExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "router_routes_executed_total",
				Help: "Count of successfully executed routes by mode.",
			}, []string{"mode"}),
			routesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "router_routes_failed_total",
				Help: "Count of failed route executions by reason.",
			}, []string{"reason"}),
			swapSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "router_swap_steps_total",
				Help: "Count of individual swap steps executed by adapter.",
			}, []string{"adapter"}),
			ordersOpened: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "router_orders_opened_total",
				Help: "Count of limit orders opened.",
			}),
			ordersFilled: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "router_orders_filled_total",
				Help: "Count of limit orders filled.",
			}),
			ordersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "router_orders_cancelled_total",
				Help: "Count of limit orders cancelled or expired.",
			}),
			feeCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "router_fee_collected_total",
				Help: "Platform fee units collected by mint.",
			}, []string{"mint"}),
			requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "router_request_duration_seconds",
				Help:    "Latency of RPC request handling by method.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(
			routerRegistry.routesExecuted,
			routerRegistry.routesFailed,
			routerRegistry.swapSteps,
			routerRegistry.ordersOpened,
			routerRegistry.ordersFilled,
			routerRegistry.ordersCancelled,
			routerRegistry.feeCollected,
			routerRegistry.requestLatency,
		)
	})
	return routerRegistry
}

func (m *RouterMetrics) ObserveRouteExecuted(mode string) {
	if m == nil {
		return
	}
	if mode == "" {
		mode = "unknown"
	}
	m.routesExecuted.WithLabelValues(mode).Inc()
}

func (m *RouterMetrics) ObserveRouteFailed(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.routesFailed.WithLabelValues(reason).Inc()
}

func (m *RouterMetrics) ObserveSwapStep(adapter string) {
	if m == nil {
		return
	}
	if adapter == "" {
		adapter = "unknown"
	}
	m.swapSteps.WithLabelValues(adapter).Inc()
}

func (m *RouterMetrics) ObserveOrderOpened() {
	if m == nil {
		return
	}
	m.ordersOpened.Inc()
}

func (m *RouterMetrics) ObserveOrderFilled() {
	if m == nil {
		return
	}
	m.ordersFilled.Inc()
}

func (m *RouterMetrics) ObserveOrderCancelled() {
	if m == nil {
		return
	}
	m.ordersCancelled.Inc()
}

func (m *RouterMetrics) ObserveFeeCollected(mint string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	if mint == "" {
		mint = "unknown"
	}
	m.feeCollected.WithLabelValues(mint).Add(amount)
}

func (m *RouterMetrics) ObserveRequestDuration(method string, seconds float64) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.requestLatency.WithLabelValues(method).Observe(seconds)
}

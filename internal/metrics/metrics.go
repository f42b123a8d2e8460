// Package metrics expone las métricas Prometheus del gateway.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	gatewayDecisionsTotal *prometheus.CounterVec
	callbacksTotal        *prometheus.CounterVec
	reconcileFailures     prometheus.Counter
	exchangeDuration      prometheus.Histogram
)

// Register inicializa y registra las métricas. Devuelve el handler para
// /metrics. registry nil usa el default.
func Register(registry prometheus.Registerer) http.Handler {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	once.Do(func() {
		gatewayDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_decisions_total",
			Help: "Decisiones del gateway por categoría de ruta y veredicto",
		}, []string{"category", "decision"})

		callbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_callbacks_total",
			Help: "Callbacks de autenticación por flujo y resultado",
		}, []string{"flow", "outcome"}) // outcome: ok|<error_code>

		reconcileFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "customer_reconcile_failures_total",
			Help: "Upserts de customer que fallaron (no fatales para el login)",
		})

		exchangeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "idp_exchange_duration_seconds",
			Help:    "Latencia del canje de código contra el identity provider",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		})

		registry.MustRegister(
			gatewayDecisionsTotal,
			callbacksTotal,
			reconcileFailures,
			exchangeDuration,
		)
	})

	if g, ok := registry.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// ObserveDecision cuenta una decisión del gateway.
func ObserveDecision(category, decision string) {
	if gatewayDecisionsTotal != nil {
		gatewayDecisionsTotal.WithLabelValues(category, decision).Inc()
	}
}

// ObserveCallback cuenta un callback terminado.
func ObserveCallback(flow, outcome string) {
	if callbacksTotal != nil {
		callbacksTotal.WithLabelValues(flow, outcome).Inc()
	}
}

// ObserveReconcileFailure cuenta un upsert de customer fallido.
func ObserveReconcileFailure() {
	if reconcileFailures != nil {
		reconcileFailures.Inc()
	}
}

// ObserveExchange registra la latencia de un canje de código.
func ObserveExchange(seconds float64) {
	if exchangeDuration != nil {
		exchangeDuration.Observe(seconds)
	}
}

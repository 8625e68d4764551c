package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// RecordOperationsTotal операции с архивом записей по результату
	RecordOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spine",
		Subsystem: "records",
		Name:      "operations_total",
		Help:      "Total number of record store operations, labeled by operation and result.",
	}, []string{"operation", "result"})

	// StoredRecords число записей после последней операции
	StoredRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "spine",
		Subsystem: "records",
		Name:      "stored",
		Help:      "Number of analysis records in the store after the last operation.",
	})

	// InferenceRequestDurationSeconds время запросов к сервису инференса
	InferenceRequestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "spine",
		Subsystem: "inference",
		Name:      "request_duration_seconds",
		Help:      "Duration of requests to the inference API, labeled by endpoint and result.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"endpoint", "result"})

	// HTTPRequestsTotal запросы к HTTP API
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spine",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests, labeled by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDurationSeconds время обработки HTTP запросов
	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "spine",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving HTTP requests, labeled by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Result метка результата операции
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Register регистрирует метрики в реестре Prometheus по умолчанию.
// Повторный вызов безопасен.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			RecordOperationsTotal,
			StoredRecords,
			InferenceRequestDurationSeconds,
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
		)
	})
}

// RegisterDisplayAllocations публикует число живых временных URL
func RegisterDisplayAllocations(live func() int) error {
	return prometheus.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "spine",
		Subsystem: "display",
		Name:      "live_allocations",
		Help:      "Number of transient display URLs that have not been released.",
	}, func() float64 { return float64(live()) }))
}

package editor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// sessionMetrics регистрирует метрики сессий в дефолтном регистре.
// Регистр общий для процесса, поэтому метрики создаются один раз и
// разделяются всеми сессиями.
//
// Метрики:
// * gdmc_blocks_buffered_total — counter
// * gdmc_blocks_flushed_total — counter
// * gdmc_flush_batches_total{status} — counter
// * gdmc_buffer_size — gauge
// * gdmc_cache_hits_total / gdmc_cache_misses_total — counter
// * gdmc_backend_reads_total — counter
// * gdmc_flush_duration_seconds — histogram
type sessionMetrics struct {
	blocksBuffered prometheus.Counter
	blocksFlushed  prometheus.Counter
	flushBatches   *prometheus.CounterVec
	bufferSize     prometheus.Gauge
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	backendReads   prometheus.Counter
	flushDuration  prometheus.Histogram
}

var (
	metricsOnce sync.Once
	metrics     *sessionMetrics
)

func getMetrics() *sessionMetrics {
	metricsOnce.Do(func() {
		metrics = &sessionMetrics{
			blocksBuffered: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "gdmc",
				Name:      "blocks_buffered_total",
				Help:      "Общее число блоков, отложенных в буфер записи.",
			}),
			blocksFlushed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "gdmc",
				Name:      "blocks_flushed_total",
				Help:      "Общее число блоков, подтверждённых сервером.",
			}),
			flushBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gdmc",
				Name:      "flush_batches_total",
				Help:      "Число отправленных под-батчей по статусу.",
			}, []string{"status"}),
			bufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "gdmc",
				Name:      "buffer_size",
				Help:      "Текущее число записей в буфере.",
			}),
			cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "gdmc",
				Name:      "cache_hits_total",
				Help:      "Чтения, обслуженные буфером, кешем или снимком.",
			}),
			cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "gdmc",
				Name:      "cache_misses_total",
				Help:      "Чтения, ушедшие к серверу.",
			}),
			backendReads: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "gdmc",
				Name:      "backend_reads_total",
				Help:      "Число обращений к внешнему примитиву чтения.",
			}),
			flushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "gdmc",
				Name:      "flush_duration_seconds",
				Help:      "Длительность полного сброса буфера.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			}),
		}
		prometheus.MustRegister(
			metrics.blocksBuffered, metrics.blocksFlushed, metrics.flushBatches,
			metrics.bufferSize, metrics.cacheHits, metrics.cacheMisses,
			metrics.backendReads, metrics.flushDuration,
		)
	})
	return metrics
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry 持有引擎与 HTTP 层的全部 prometheus 指标
// 使用私有 registry，避免污染全局默认 registry
type Registry struct {
	registry *prometheus.Registry

	// 引擎指标
	OpsTotal        *prometheus.CounterVec   // 按操作与结果计数
	OpDuration      *prometheus.HistogramVec // 操作耗时
	KeysTotal       prometheus.Gauge         // 索引中的键数量
	LogSizeBytes    prometheus.Gauge         // 日志文件大小
	RecoverySeconds prometheus.Gauge         // 最近一次恢复扫描耗时

	// Watch 指标
	WatchersActive prometheus.Gauge // 当前注册的 watcher 数量
}

// NewRegistry 创建并注册全部指标
//
// 返回：
//   - *Registry: Registry 实例
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{registry: reg}

	r.OpsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebbkv_ops_total",
			Help: "Total number of engine operations",
		},
		[]string{"operation", "status"},
	)

	r.OpDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ebbkv_op_duration_seconds",
			Help:    "Engine operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"operation"},
	)

	r.KeysTotal = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "ebbkv_keys_total",
			Help: "Number of keys currently in the in-memory index",
		},
	)

	r.LogSizeBytes = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "ebbkv_log_size_bytes",
			Help: "Current size of the append-only log in bytes",
		},
	)

	r.RecoverySeconds = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "ebbkv_recovery_duration_seconds",
			Help: "Duration of the last recovery scan in seconds",
		},
	)

	r.WatchersActive = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "ebbkv_watchers_active",
			Help: "Number of registered watchers",
		},
	)

	return r
}

// Handler 返回暴露指标的 HTTP handler
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveOp 记录一次引擎操作的结果与耗时
// 参数：
//   - operation: 操作名（put/get）
//   - status: 结果（ok/miss/error）
//   - seconds: 耗时
func (r *Registry) ObserveOp(operation, status string, seconds float64) {
	r.OpsTotal.WithLabelValues(operation, status).Inc()
	r.OpDuration.WithLabelValues(operation).Observe(seconds)
}

// Package metrics 流水线的 Prometheus 指标
// 指标注册在默认 registry 上，由 gin-prometheus 中间件在 /metrics 暴露。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generatorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_generator_calls_total",
			Help: "Generator calls partitioned by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	generatorLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reel_generator_call_duration_seconds",
			Help:    "Generator call latency.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"operation"},
	)
	pollTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_film_poll_ticks_total",
			Help: "Film status poll ticks partitioned by outcome (ok, transient_error, terminal).",
		},
		[]string{"outcome"},
	)
	activePollers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reel_film_active_pollers",
			Help: "Number of live film poll tasks on this instance.",
		},
	)
	spend = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_spend_usd_total",
			Help: "Reported generation spend in USD by phase.",
		},
		[]string{"phase"},
	)
	statusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reel_status_transitions_total",
			Help: "Draft status transitions by target status.",
		},
		[]string{"status"},
	)
)

// ObserveCall 记录一次生成调用
func ObserveCall(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	generatorCalls.WithLabelValues(operation, outcome).Inc()
	generatorLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// PollTick 记录一次轮询
func PollTick(outcome string) {
	pollTicks.WithLabelValues(outcome).Inc()
}

// PollerStarted 轮询任务启动
func PollerStarted() { activePollers.Inc() }

// PollerStopped 轮询任务结束
func PollerStopped() { activePollers.Dec() }

// Spend 记录花费，非正数忽略
func Spend(phase string, usd float64) {
	if usd > 0 {
		spend.WithLabelValues(phase).Add(usd)
	}
}

// StatusTransition 记录状态变化
func StatusTransition(status string) {
	statusTransitions.WithLabelValues(status).Inc()
}

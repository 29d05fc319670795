package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 通知投递结果，对应 notify_outcomes_total 的 outcome 标签。
const (
	OutcomePublished      = "published"
	OutcomePublishFailed  = "publish_failed"
	OutcomeSMSSent        = "sms_sent"
	OutcomeSMSFailed      = "sms_failed"
	OutcomeSkippedMissing = "skipped_missing"
)

// 任务结果，对应 tasks_total 的 result 标签。
const (
	ResultSuccess = "success"
	ResultRetry   = "retry"
	ResultDropped = "dropped"
)

var (
	// NotifyOutcomes 按通知类型（lead/quote）统计投递结果。
	NotifyOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reelstudio",
			Subsystem: "worker",
			Name:      "notify_outcomes_total",
			Help:      "后台通知各环节的结果计数。",
		},
		[]string{"kind", "outcome"},
	)

	// TasksTotal 按任务类型统计处理结果，dropped 表示不再重试。
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reelstudio",
			Subsystem: "worker",
			Name:      "tasks_total",
			Help:      "任务处理次数，按结果区分。",
		},
		[]string{"task_type", "result"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reelstudio",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "单次任务处理耗时（秒）。",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"task_type"},
	)
)

// RecordNotifyOutcome 记录一次通知结果。
func RecordNotifyOutcome(kind, outcome string) {
	NotifyOutcomes.WithLabelValues(kind, outcome).Inc()
}

// TaskResult 把处理器返回值归类为 success、retry 或 dropped。
func TaskResult(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, asynq.SkipRetry):
		return ResultDropped
	default:
		return ResultRetry
	}
}

// TaskMiddleware 为 asynq 任务记录结果与耗时。
func TaskMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			start := time.Now()
			err := next.ProcessTask(ctx, task)
			taskDuration.WithLabelValues(task.Type()).Observe(time.Since(start).Seconds())
			TasksTotal.WithLabelValues(task.Type(), TaskResult(err)).Inc()
			return err
		})
	}
}

// NewServer 构造只暴露 /metrics 的 HTTP 服务，供没有 Gin 路由的 worker 使用。
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

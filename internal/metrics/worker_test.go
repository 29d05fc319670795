package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTaskMiddlewareCountsResults(t *testing.T) {
	const taskType = "test:middleware"
	results := map[string]error{
		ResultSuccess: nil,
		ResultRetry:   errors.New("redis down"),
		ResultDropped: fmt.Errorf("bad payload: %w", asynq.SkipRetry),
	}

	for result, handlerErr := range results {
		before := testutil.ToFloat64(TasksTotal.WithLabelValues(taskType, result))

		h := TaskMiddleware()(asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
			return handlerErr
		}))
		if err := h.ProcessTask(context.Background(), asynq.NewTask(taskType, nil)); !errors.Is(err, handlerErr) {
			t.Fatalf("%s: middleware changed error to %v", result, err)
		}

		if got := testutil.ToFloat64(TasksTotal.WithLabelValues(taskType, result)) - before; got != 1 {
			t.Fatalf("%s: counter delta = %v", result, got)
		}
	}
}

func TestServerExposesWorkerMetrics(t *testing.T) {
	RecordNotifyOutcome("lead", OutcomeSkippedMissing)

	srv := NewServer(":0")
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `reelstudio_worker_notify_outcomes_total{kind="lead",outcome="skipped_missing"}`) {
		t.Fatalf("notify outcomes missing from exposition:\n%s", body)
	}

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("only /metrics should be served, got %d", w.Code)
	}
}

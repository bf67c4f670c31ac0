package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vango-dev/klinecore/pkg/features/resource"
	"github.com/vango-dev/klinecore/pkg/reactive"
	"github.com/vango-dev/klinecore/pkg/reconcile"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics(WithRegistry(prometheus.NewRegistry()))
}

func TestMetricsRecordFlushes(t *testing.T) {
	m := newTestMetrics(t)
	rt := reactive.NewRuntime(reactive.WithObserver(m))

	s := reactive.NewSignal(rt, 0)
	rt.Effect(func() reactive.Cleanup {
		_ = s.Get()
		return nil
	})
	s.Set(1)

	if got := testutil.ToFloat64(m.flushesTotal.WithLabelValues("ok")); got < 1 {
		t.Errorf("flushes_total{ok} = %v, want >= 1", got)
	}
	if got := testutil.ToFloat64(m.computationsTotal); got < 1 {
		t.Errorf("computations_total = %v, want >= 1", got)
	}
}

func TestMetricsCategorizeFlushErrors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&reactive.RunawayUpdateError{Limit: 1}, "runaway"},
		{&reactive.ComputationError{Cause: errors.New("boom")}, "computation_error"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		m := newTestMetrics(t)
		m.FlushCompleted(reactive.FlushStats{Start: time.Now(), Err: tt.err})
		if got := testutil.ToFloat64(m.flushesTotal.WithLabelValues(tt.want)); got != 1 {
			t.Errorf("%T: flushes_total{%s} = %v, want 1", tt.err, tt.want, got)
		}
	}
}

func TestMetricsRecordFetches(t *testing.T) {
	m := newTestMetrics(t)
	rt := reactive.NewRuntime(reactive.WithObserver(m))

	symbol := reactive.NewSignal(rt, "AAPL")
	resource.New(rt,
		func() (string, bool) { return symbol.Get(), true },
		func(_ context.Context, sym string) (int, error) {
			if sym == "BAD" {
				return 0, errors.New("no such symbol")
			}
			return len(sym), nil
		},
		resource.Name("quotes"),
		resource.Inline(),
	)
	symbol.Set("BAD")

	if got := testutil.ToFloat64(m.fetchesStarted.WithLabelValues("quotes")); got != 2 {
		t.Errorf("fetches_started_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.fetchesTotal.WithLabelValues("quotes", "ok")); got != 1 {
		t.Errorf("fetches_total{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.fetchesTotal.WithLabelValues("quotes", "error")); got != 1 {
		t.Errorf("fetches_total{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.fetchesInFlight); got != 0 {
		t.Errorf("fetches_in_flight = %v, want 0", got)
	}
}

func TestFetchStatus(t *testing.T) {
	tests := []struct {
		stats resource.FetchStats
		want  string
	}{
		{resource.FetchStats{}, "ok"},
		{resource.FetchStats{Superseded: true, Err: errors.New("x")}, "superseded"},
		{resource.FetchStats{Err: context.DeadlineExceeded}, "timeout"},
		{resource.FetchStats{Err: context.Canceled}, "canceled"},
		{resource.FetchStats{Err: errors.New("x")}, "error"},
	}
	for _, tt := range tests {
		if got := fetchStatus(tt.stats); got != tt.want {
			t.Errorf("fetchStatus(%+v) = %q, want %q", tt.stats, got, tt.want)
		}
	}
}

func TestCountOps(t *testing.T) {
	m := newTestMetrics(t)
	rt := reactive.NewRuntime()
	list := reactive.NewSignal(rt, []string{"a", "b", "c", "d"})

	forwarded := 0
	next := reconcile.SinkFunc[string, string](func(reconcile.Op[string], string) { forwarded++ })
	reconcile.Map(rt, list.Get,
		func(s string) string { return s },
		func(item func() string, _ func() int) string { return item() },
		reconcile.WithSink(CountOps[string, string](m, "rows", next)),
	)
	list.Set([]string{"a", "c", "b", "d"})

	if got := testutil.ToFloat64(m.reconcileOps.WithLabelValues("rows", "Create")); got != 4 {
		t.Errorf("ops{Create} = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.reconcileOps.WithLabelValues("rows", "Move")); got != 1 {
		t.Errorf("ops{Move} = %v, want 1", got)
	}
	if forwarded != 5 {
		t.Errorf("forwarded = %d, want 5", forwarded)
	}
}

func TestMetricsBridgeCounters(t *testing.T) {
	m := newTestMetrics(t)
	m.ClientConnected()
	m.ClientConnected()
	m.ClientDisconnected()
	m.FramesSent(3)
	m.BridgeError("slow")

	if got := testutil.ToFloat64(m.bridgeClients); got != 1 {
		t.Errorf("bridge_clients = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.bridgeFrames); got != 3 {
		t.Errorf("bridge_frames_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.bridgeErrors.WithLabelValues("slow")); got != 1 {
		t.Errorf("bridge_errors_total{slow} = %v, want 1", got)
	}
}

func TestMetricsRegisterOnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("test"))
	m.FramesSent(1)

	n, err := testutil.GatherAndCount(reg, "test_bridge_frames_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("gathered %d series, want 1", n)
	}
}

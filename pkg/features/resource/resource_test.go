package resource

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	kerrors "github.com/vango-dev/klinecore/internal/errors"
	"github.com/vango-dev/klinecore/pkg/reactive"
)

type recorder struct {
	started   int
	completed []FetchStats
}

func (r *recorder) FlushCompleted(reactive.FlushStats) {}
func (r *recorder) FetchStarted(string)                { r.started++ }
func (r *recorder) FetchCompleted(s FetchStats)        { r.completed = append(r.completed, s) }

func waitDispatch(t *testing.T, rt *reactive.Runtime) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rt.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func TestInlineResolves(t *testing.T) {
	rt := reactive.NewRuntime()
	r := NewStatic(rt, func(context.Context) (string, error) {
		return "BTCUSDT", nil
	}, Inline())

	v, err := r.Get()
	if err != nil || v != "BTCUSDT" {
		t.Fatalf("Get() = %q, %v", v, err)
	}
	if r.State() != Ready || r.Loading() {
		t.Errorf("state = %s loading = %v", r.State(), r.Loading())
	}
}

func TestAsyncStatesSeenByEffect(t *testing.T) {
	rt := reactive.NewRuntime()
	r := NewStatic(rt, func(context.Context) (int, error) {
		return 42, nil
	})

	var states []State
	rt.Effect(func() reactive.Cleanup {
		states = append(states, r.State())
		return nil
	})

	waitDispatch(t, rt)

	if want := []State{Pending, Ready}; !reflect.DeepEqual(states, want) {
		t.Errorf("states = %v, want %v", states, want)
	}
	if got := r.Latest(); got != 42 {
		t.Errorf("Latest() = %d, want 42", got)
	}
}

func TestLatestRequestWins(t *testing.T) {
	obs := &recorder{}
	rt := reactive.NewRuntime(reactive.WithObserver(obs))
	symbol := reactive.NewSignal(rt, "A")
	release := map[string]chan struct{}{
		"A": make(chan struct{}),
		"B": make(chan struct{}),
	}
	started := make(chan string, 2)

	r := New(rt,
		func() (string, bool) { return symbol.Get(), true },
		func(ctx context.Context, k string) (string, error) {
			started <- k
			<-release[k]
			return "quotes:" + k, nil
		},
		Name("quotes"),
	)
	<-started

	symbol.Set("B")
	close(release["B"])
	waitDispatch(t, rt)

	if got := r.Latest(); got != "quotes:B" {
		t.Fatalf("Latest() = %q, want quotes:B", got)
	}

	close(release["A"])
	waitDispatch(t, rt)

	if got := r.Latest(); got != "quotes:B" {
		t.Errorf("superseded result committed: Latest() = %q", got)
	}
	if r.State() != Ready {
		t.Errorf("state = %s, want ready", r.State())
	}
	if len(obs.completed) != 2 || !obs.completed[1].Superseded || obs.completed[0].Superseded {
		t.Errorf("completions = %+v", obs.completed)
	}
	if obs.started != 2 {
		t.Errorf("started = %d, want 2", obs.started)
	}
}

func TestFetchErrorState(t *testing.T) {
	rt := reactive.NewRuntime()
	fail := false
	var seen []error

	r := NewStatic(rt, func(context.Context) (string, error) {
		if fail {
			return "", errors.New("feed offline")
		}
		return "ok", nil
	}, Inline(), Name("feed"), WithOnError(func(err error) { seen = append(seen, err) }))

	fail = true
	r.Refetch()

	v, err := r.Get()
	if err != nil {
		t.Errorf("Get() error = %v, want nil once a value exists", err)
	}
	err = r.Error()
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.Name != "feed" || fe.Cause.Error() != "feed offline" {
		t.Errorf("fetch error = %+v", fe)
	}
	if v != "ok" || r.Latest() != "ok" {
		t.Errorf("value lost on failure: %q", v)
	}
	if r.State() != Errored {
		t.Errorf("state = %s, want errored", r.State())
	}
	if len(seen) != 1 {
		t.Errorf("onError calls = %d, want 1", len(seen))
	}
	if code := fe.Coded().Code; code != "E201" {
		t.Errorf("code = %s, want E201", code)
	}

	fail = false
	r.Refetch()
	if _, err := r.Get(); err != nil || r.State() != Ready {
		t.Errorf("after recovery: err = %v state = %s", err, r.State())
	}
}

func TestGetSurfacesErrorWithoutPriorValue(t *testing.T) {
	rt := reactive.NewRuntime()
	r := NewStatic(rt, func(context.Context) (int, error) {
		return 0, errors.New("no history")
	}, Inline())

	v, err := r.Get()
	var fe *FetchError
	if !errors.As(err, &fe) || v != 0 {
		t.Fatalf("Get() = %d, %v, want *FetchError", v, err)
	}
	if r.State() != Errored || r.Error() != err {
		t.Errorf("state = %s error = %v", r.State(), r.Error())
	}

	r.Mutate(5)
	r.Refetch()
	if v, err := r.Get(); err != nil || v != 5 {
		t.Errorf("after a value: Get() = %d, %v, want 5, nil", v, err)
	}
	if r.State() != Errored || r.Error() == nil {
		t.Errorf("failed refresh not reported: state = %s error = %v", r.State(), r.Error())
	}
}

func TestDisposeStopsSourceTracking(t *testing.T) {
	rt := reactive.NewRuntime()
	key := reactive.NewSignal(rt, 1)
	calls := 0
	r := New(rt,
		func() (int, bool) { return key.Get(), true },
		func(_ context.Context, k int) (int, error) {
			calls++
			return k * 10, nil
		},
		Inline(),
	)

	r.Dispose()
	key.Set(2)

	if calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", calls)
	}
	if r.State() != Ready || r.Loading() || r.Latest() != 10 {
		t.Errorf("state = %s loading = %v latest = %d", r.State(), r.Loading(), r.Latest())
	}
	r.Refetch()
	if calls != 1 {
		t.Errorf("Refetch after Dispose fetched: calls = %d", calls)
	}
}

func TestRetryOnError(t *testing.T) {
	rt := reactive.NewRuntime()
	calls := 0
	var got []string

	r := NewStatic(rt, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "bars", nil
	}, Inline(), RetryOnError(2, 0), WithOnSuccess(func(v string) { got = append(got, v) }))

	if v, err := r.Get(); err != nil || v != "bars" {
		t.Fatalf("Get() = %q, %v", v, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(got) != 1 || got[0] != "bars" {
		t.Errorf("onSuccess = %v", got)
	}
}

func TestSourceWithoutKey(t *testing.T) {
	rt := reactive.NewRuntime()
	symbol := reactive.NewSignal(rt, "")
	calls := 0

	r := New(rt,
		func() (string, bool) { s := symbol.Get(); return s, s != "" },
		func(_ context.Context, k string) (string, error) {
			calls++
			return k, nil
		},
		Inline(),
	)

	if r.State() != Unresolved || calls != 0 {
		t.Fatalf("state = %s calls = %d", r.State(), calls)
	}
	r.Refetch()
	if calls != 0 {
		t.Errorf("Refetch without key fetched")
	}

	symbol.Set("ETHUSDT")
	if r.Latest() != "ETHUSDT" || r.State() != Ready {
		t.Errorf("Latest() = %q state = %s", r.Latest(), r.State())
	}

	symbol.Set("")
	if r.State() != Ready || r.Latest() != "ETHUSDT" {
		t.Errorf("idle resource: state = %s latest = %q", r.State(), r.Latest())
	}
	if _, ok := r.Key(); ok {
		t.Error("Key() reports a key while the source is idle")
	}
}

func TestSameKeyDoesNotRefetch(t *testing.T) {
	rt := reactive.NewRuntime()
	symbol := reactive.NewSignal(rt, "btcusdt")
	calls := 0

	New(rt,
		func() (string, bool) { return strings.ToUpper(symbol.Get()), true },
		func(_ context.Context, k string) (string, error) {
			calls++
			return k, nil
		},
		Inline(),
	)

	symbol.Set("BTCUSDT")
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRefreshingKeepsValue(t *testing.T) {
	rt := reactive.NewRuntime()
	n := 0
	r := NewStatic(rt, func(context.Context) (int, error) {
		n++
		return n, nil
	})
	waitDispatch(t, rt)

	r.Refetch()
	if r.State() != Refreshing || !r.Loading() {
		t.Errorf("state = %s, want refreshing", r.State())
	}
	if r.Latest() != 1 {
		t.Errorf("Latest() = %d, want 1", r.Latest())
	}

	waitDispatch(t, rt)
	if r.State() != Ready || r.Latest() != 2 {
		t.Errorf("state = %s latest = %d", r.State(), r.Latest())
	}
}

func TestInitialValue(t *testing.T) {
	rt := reactive.NewRuntime()
	r := NewStatic(rt, func(context.Context) (float64, error) {
		return 101.25, nil
	}, InitialValue(100.0))

	if r.State() != Refreshing || r.Latest() != 100 {
		t.Errorf("state = %s latest = %v", r.State(), r.Latest())
	}
	waitDispatch(t, rt)
	if r.Latest() != 101.25 {
		t.Errorf("Latest() = %v", r.Latest())
	}
}

func TestInitialValueTypeMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched InitialValue")
		}
	}()
	rt := reactive.NewRuntime()
	NewStatic(rt, func(context.Context) (string, error) { return "", nil }, InitialValue(1))
}

func TestMutate(t *testing.T) {
	rt := reactive.NewRuntime()
	r := NewStatic(rt, func(context.Context) (string, error) {
		return "", errors.New("down")
	}, Inline())

	r.Mutate("manual")
	v, err := r.Get()
	if err != nil || v != "manual" || r.State() != Ready {
		t.Errorf("Get() = %q, %v state = %s", v, err, r.State())
	}
}

func TestFetchRespectsStaleTime(t *testing.T) {
	rt := reactive.NewRuntime()
	calls := 0
	r := NewStatic(rt, func(context.Context) (int, error) {
		calls++
		return calls, nil
	}, Inline(), StaleTime(time.Hour))

	r.Fetch()
	if calls != 1 {
		t.Errorf("fresh value refetched: calls = %d", calls)
	}
	r.Refetch()
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDisposeDropsInFlightResult(t *testing.T) {
	obs := &recorder{}
	rt := reactive.NewRuntime(reactive.WithObserver(obs))
	owner := rt.NewOwner(nil)

	var r *Resource[struct{}, string]
	if err := owner.Run(func() {
		r = NewStatic(rt, func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "late", ctx.Err()
		})
	}); err != nil {
		t.Fatal(err)
	}

	owner.Dispose()
	waitDispatch(t, rt)

	if r.State() != Pending || r.Latest() != "" {
		t.Errorf("state = %s latest = %q", r.State(), r.Latest())
	}
	if len(obs.completed) != 1 || !obs.completed[0].Superseded {
		t.Errorf("completions = %+v", obs.completed)
	}
}

func TestFetcherPanic(t *testing.T) {
	rt := reactive.NewRuntime()
	r := NewStatic(rt, func(context.Context) (int, error) {
		panic("bad payload")
	}, Inline())

	_, err := r.Get()
	if err == nil || !strings.Contains(err.Error(), "bad payload") {
		t.Errorf("err = %v", err)
	}
}

func TestStormBudget(t *testing.T) {
	rt := reactive.NewRuntime(reactive.WithStormBudget(&reactive.StormBudgetConfig{
		MaxFetchStarts: 1,
		Window:         time.Minute,
	}))
	r := NewStatic(rt, func(context.Context) (int, error) { return 1, nil }, Inline())

	r.Refetch()
	if err := r.Error(); !errors.Is(err, reactive.ErrBudgetExceeded) {
		t.Errorf("err = %v, want ErrBudgetExceeded", err)
	}
}

func TestMatch(t *testing.T) {
	rt := reactive.NewRuntime()
	r := NewStatic(rt, func(context.Context) (int, error) { return 12, nil })

	render := func() string {
		return Match(r,
			OnLoading[int](func() string { return "loading" }),
			OnError[int](func(err error) string { return "error: " + err.Error() }),
			OnReady(func(v int) string { return "bars: " + string(rune('0'+v%10)) }),
		)
	}

	if got := render(); got != "loading" {
		t.Errorf("render() = %q, want loading", got)
	}
	waitDispatch(t, rt)
	if got := render(); got != "bars: 2" {
		t.Errorf("render() = %q, want bars: 2", got)
	}

	unresolved := New(rt,
		func() (int, bool) { return 0, false },
		func(context.Context, int) (int, error) { return 0, nil },
	)
	if got := Match(unresolved, OnUnresolved[int](func() string { return "idle" })); got != "idle" {
		t.Errorf("Match() = %q, want idle", got)
	}
	if got := Match(unresolved, OnReady(func(int) string { return "ready" })); got != "" {
		t.Errorf("Match() without handler = %q, want empty", got)
	}
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from     State
		ev       event
		resolved bool
		want     State
	}{
		{Unresolved, eventFetch, false, Pending},
		{Ready, eventFetch, true, Refreshing},
		{Errored, eventFetch, false, Pending},
		{Errored, eventFetch, true, Refreshing},
		{Pending, eventResolve, true, Ready},
		{Refreshing, eventReject, true, Errored},
		{Pending, eventIdle, false, Unresolved},
		{Refreshing, eventIdle, true, Ready},
	}
	for _, tt := range tests {
		if got := next(tt.from, tt.ev, tt.resolved); got != tt.want {
			t.Errorf("next(%s, %d, %v) = %s, want %s", tt.from, tt.ev, tt.resolved, got, tt.want)
		}
	}
}

func TestParseSchedule(t *testing.T) {
	if err := ParseSchedule("*/5 * * * * *"); err != nil {
		t.Errorf("valid schedule rejected: %v", err)
	}
	err := ParseSchedule("every now and then")
	var ce *kerrors.CoreError
	if !errors.As(err, &ce) || ce.Code != "E202" {
		t.Errorf("err = %v, want E202", err)
	}
}

func TestRefreshSchedule(t *testing.T) {
	rt := reactive.NewRuntime()
	calls := 0
	r := NewStatic(rt, func(context.Context) (int, error) {
		calls++
		return calls, nil
	}, Inline())
	defer r.Dispose()

	if err := r.RefreshSchedule("not a schedule"); err == nil {
		t.Error("invalid schedule accepted")
	}
	if err := r.RefreshSchedule("@every 1s"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rt.Wait(ctx); err != nil {
		t.Fatalf("no scheduled refetch: %v", err)
	}
	if calls < 2 {
		t.Errorf("calls = %d, want at least 2", calls)
	}
}

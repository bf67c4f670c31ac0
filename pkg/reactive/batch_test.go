package reactive

import (
	"errors"
	"testing"
)

func TestBatchCoalescesWrites(t *testing.T) {
	rt := NewRuntime()
	bid := NewSignal(rt, 100.0)
	ask := NewSignal(rt, 101.0)

	spreadRuns := 0
	spread := NewMemo(rt, func() float64 {
		spreadRuns++
		return ask.Get() - bid.Get()
	})

	var seen []float64
	rt.Effect(func() Cleanup {
		seen = append(seen, spread.Get())
		return nil
	})

	if err := rt.Batch(func() {
		bid.Set(99)
		ask.Set(102)
	}); err != nil {
		t.Fatal(err)
	}

	if spreadRuns != 2 {
		t.Errorf("spread runs = %d, want 2", spreadRuns)
	}
	if len(seen) != 2 || seen[1] != 3 {
		t.Errorf("effect saw %v, want [1 3]", seen)
	}
}

func TestNestedBatchFlushesOnce(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	runs := 0
	rt.Effect(func() Cleanup {
		_ = s.Get()
		runs++
		return nil
	})

	err := rt.Batch(func() {
		_ = rt.Batch(func() {
			s.Set(1)
		})
		if runs != 1 {
			t.Errorf("inner batch flushed: runs = %d", runs)
		}
		s.Set(2)
	})
	if err != nil {
		t.Fatal(err)
	}
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}

func TestBatchReturnsComputationError(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	runs := 0
	rt.Effect(func() Cleanup {
		runs++
		if s.Get() == 1 {
			panic("bad tick")
		}
		return nil
	}, EffectName("ticker"))

	err := rt.Batch(func() { s.Set(1) })

	var ce *ComputationError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ComputationError", err)
	}
	if ce.Name != "ticker" || ce.Kind != "effect" {
		t.Errorf("error = %q/%q, want ticker/effect", ce.Name, ce.Kind)
	}
	if ce.Cause == nil || ce.Cause.Error() != "bad tick" {
		t.Errorf("cause = %v, want bad tick", ce.Cause)
	}
	if code := ce.Coded().Code; code != "E101" {
		t.Errorf("code = %s, want E101", code)
	}

	// A failed computation runs again on its next trigger.
	s.Set(2)
	if runs != 3 {
		t.Errorf("runs = %d, want 3", runs)
	}
}

func TestSetPanicsWithComputationError(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	NewMemo(rt, func() int {
		if s.Get() < 0 {
			panic(errors.New("negative"))
		}
		return s.Get()
	})

	defer func() {
		r := recover()
		ce, ok := r.(*ComputationError)
		if !ok {
			t.Fatalf("recovered %v, want *ComputationError", r)
		}
		if ce.Kind != "memo" {
			t.Errorf("kind = %s, want memo", ce.Kind)
		}
	}()
	s.Set(-1)
}

func TestBatchPropagatesUserPanic(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	runs := 0
	rt.Effect(func() Cleanup {
		_ = s.Get()
		runs++
		return nil
	})

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("recovered %v, want boom", r)
			}
		}()
		_ = rt.Batch(func() {
			s.Set(1)
			panic("boom")
		})
	}()

	if runs != 1 {
		t.Errorf("aborted batch ran effects: runs = %d", runs)
	}

	s.Set(2)
	if runs != 2 {
		t.Errorf("effect dropped by the aborted batch did not recover: runs = %d", runs)
	}
}

func TestUntracked(t *testing.T) {
	rt := NewRuntime()
	tracked := NewSignal(rt, 0)
	ignored := NewSignal(rt, 0)
	runs := 0

	rt.Effect(func() Cleanup {
		_ = tracked.Get()
		rt.Untracked(func() { _ = ignored.Get() })
		_ = Untrack(rt, ignored.Get)
		runs++
		return nil
	})

	ignored.Set(1)
	if runs != 1 {
		t.Errorf("untracked read subscribed: runs = %d", runs)
	}
	tracked.Set(1)
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}

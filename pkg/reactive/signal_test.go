package reactive

import "testing"

func TestSignalGetSet(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 1)

	if got := s.Get(); got != 1 {
		t.Fatalf("Get() = %d, want 1", got)
	}
	s.Set(5)
	if got := s.Peek(); got != 5 {
		t.Fatalf("Peek() = %d, want 5", got)
	}
	s.Update(func(v int) int { return v * 2 })
	if got := s.Get(); got != 10 {
		t.Fatalf("after Update Get() = %d, want 10", got)
	}
}

func TestSignalEqualWriteIsNoop(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, "a")
	runs := 0
	rt.Effect(func() Cleanup {
		_ = s.Get()
		runs++
		return nil
	})

	s.Set("a")
	if runs != 1 {
		t.Errorf("equal write re-ran effect: runs = %d, want 1", runs)
	}

	s.Set("b")
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
}

func TestSignalNeverEqual(t *testing.T) {
	rt := NewRuntime()
	tick := NewSignal(rt, struct{}{}).WithEquals(NeverEqual[struct{}])
	runs := 0
	rt.Effect(func() Cleanup {
		tick.Get()
		runs++
		return nil
	})

	tick.Set(struct{}{})
	tick.Set(struct{}{})
	if runs != 3 {
		t.Errorf("runs = %d, want 3", runs)
	}
}

func TestSignalReadOutsideComputationDoesNotTrack(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	_ = s.Get()

	if n := len(rt.nodes[s.id].observers); n != 0 {
		t.Errorf("observers = %d, want 0", n)
	}
}

func TestSignalPeekDoesNotTrack(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	runs := 0
	rt.Effect(func() Cleanup {
		_ = s.Peek()
		runs++
		return nil
	})

	s.Set(1)
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
}

func TestSignalRelease(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 1)
	runs := 0
	rt.Effect(func() Cleanup {
		_ = s.Get()
		runs++
		return nil
	})

	s.Release()
	s.Set(2)
	if runs != 1 {
		t.Errorf("released signal notified: runs = %d, want 1", runs)
	}
	if got := s.Get(); got != 2 {
		t.Errorf("Get() = %d, want 2", got)
	}
}

func TestDefaultEquals(t *testing.T) {
	shared := []int{1, 2}
	m := map[string]int{"a": 1}

	type pair struct {
		A int
		B string
	}
	type withAny struct {
		V any
	}

	tests := []struct {
		name string
		eq   bool
		want bool
	}{
		{"int", defaultEquals(3, 3), true},
		{"float", defaultEquals(1.5, 2.5), false},
		{"string", defaultEquals("x", "x"), true},
		{"struct", defaultEquals(pair{1, "a"}, pair{1, "a"}), true},
		{"struct differs", defaultEquals(pair{1, "a"}, pair{2, "a"}), false},
		{"same slice", defaultEquals(shared, shared), true},
		{"copied slice", defaultEquals(shared, []int{1, 2}), false},
		{"resliced", defaultEquals(shared, shared[:1]), false},
		{"nil slices", defaultEquals([]int(nil), []int(nil)), true},
		{"same map", defaultEquals(m, m), true},
		{"other map", defaultEquals(m, map[string]int{"a": 1}), false},
		{"func", defaultEquals(func() {}, func() {}), false},
		{"interface holding slice", defaultEquals(withAny{[]int{1}}, withAny{[]int{1}}), true},
		{"nil pointers", defaultEquals[*pair](nil, nil), true},
		{"any int vs string", defaultEquals[any](1, "x"), false},
		{"any string vs int", defaultEquals[any]("1", 1), false},
		{"any same int", defaultEquals[any](7, 7), true},
		{"any nil vs int", defaultEquals[any](nil, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.eq != tt.want {
				t.Errorf("defaultEquals = %v, want %v", tt.eq, tt.want)
			}
		})
	}
}

func TestSignalAnyChangesDynamicType(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal[any](rt, 1)
	var seen []any
	rt.Effect(func() Cleanup {
		seen = append(seen, s.Get())
		return nil
	})

	s.Set("x")
	s.Set("x")
	s.Set(2.5)

	if len(seen) != 3 || seen[1] != "x" || seen[2] != 2.5 {
		t.Errorf("effect saw %v, want [1 x 2.5]", seen)
	}
}

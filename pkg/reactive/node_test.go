package reactive

import "testing"

// checkEdges verifies that every edge is mirrored with correct slot indices.
func checkEdges(t *testing.T, rt *Runtime) {
	t.Helper()
	for i := 1; i < len(rt.nodes); i++ {
		id := nodeID(i)
		n := rt.nodes[id]
		if n.disposed {
			if len(n.sources) != 0 || len(n.observers) != 0 {
				t.Errorf("disposed node %d still has edges", id)
			}
			continue
		}
		if len(n.sources) != len(n.sourceSlots) || len(n.observers) != len(n.observerSlots) {
			t.Fatalf("node %d: slot slices out of sync", id)
		}
		for j, src := range n.sources {
			s := rt.nodes[src]
			slot := n.sourceSlots[j]
			if slot >= len(s.observers) || s.observers[slot] != id || s.observerSlots[slot] != j {
				t.Errorf("node %d source %d: broken mirror at slot %d", id, src, slot)
			}
		}
		for j, obs := range n.observers {
			o := rt.nodes[obs]
			slot := n.observerSlots[j]
			if slot >= len(o.sources) || o.sources[slot] != id || o.sourceSlots[slot] != j {
				t.Errorf("node %d observer %d: broken mirror at slot %d", id, obs, slot)
			}
		}
	}
}

func TestEdgesStayMirrored(t *testing.T) {
	rt := NewRuntime()
	mode := NewSignal(rt, 0)
	a := NewSignal(rt, 1)
	b := NewSignal(rt, 2)
	c := NewSignal(rt, 3)

	sum := NewMemo(rt, func() int {
		switch mode.Get() {
		case 0:
			return a.Get() + b.Get() + c.Get() + a.Get()
		case 1:
			return c.Get()
		default:
			return b.Get() + a.Get()
		}
	})
	rt.Effect(func() Cleanup {
		_ = sum.Get() + a.Get()
		return nil
	})
	rt.Effect(func() Cleanup {
		_ = b.Get() + sum.Get()
		return nil
	})
	checkEdges(t, rt)

	for _, m := range []int{1, 2, 0, 1} {
		mode.Set(m)
		checkEdges(t, rt)
	}

	if got := sum.Peek(); got != 3 {
		t.Errorf("sum = %d, want 3", got)
	}
}

func TestConsecutiveReadsCollapse(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 1)
	rt.Effect(func() Cleanup {
		_ = s.Get() + s.Get() + s.Get()
		return nil
	})
	if n := len(rt.nodes[s.id].observers); n != 1 {
		t.Errorf("observers = %d, want 1", n)
	}
}

func TestDisposedSlotsAreRecycled(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	before := rt.Size()

	first := rt.Effect(func() Cleanup {
		_ = s.Get()
		return nil
	})
	first.Dispose()

	if rt.Size() != before {
		t.Errorf("Size() = %d, want %d", rt.Size(), before)
	}

	runs := 0
	second := rt.Effect(func() Cleanup {
		_ = s.Get()
		runs++
		return nil
	})
	if second.id != first.id {
		t.Fatalf("slot not reused: first=%d second=%d", first.id, second.id)
	}
	if second.gen == first.gen {
		t.Fatal("reused slot kept its generation")
	}

	first.Dispose()
	if second.Disposed() {
		t.Fatal("stale handle disposed the node that reused its slot")
	}
	s.Set(1)
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
	checkEdges(t, rt)
}

func TestDisposeInsideFlushDefersRecycling(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	victim := rt.Effect(func() Cleanup {
		_ = s.Get()
		return nil
	})
	rt.Effect(func() Cleanup {
		if s.Get() > 0 {
			victim.Dispose()
			if len(rt.free) != 0 {
				t.Error("slot recycled while the flush was running")
			}
		}
		return nil
	})

	s.Set(1)
	if len(rt.graveyard) != 0 {
		t.Errorf("graveyard not collected after flush: %v", rt.graveyard)
	}
	checkEdges(t, rt)
}

package props

import (
	"reflect"
	"testing"

	"github.com/vango-dev/klinecore/pkg/reactive"
)

var (
	period    = NewKey("period", "1d")
	precision = NewKey("precision", 2)
)

func TestMergePrecedence(t *testing.T) {
	p := Merge(
		Values{"period": "1d", "theme": "light", "precision": 4},
		nil,
		Values{"theme": "dark", "precision": nil},
		Set(period, "1h"),
	)

	tests := []struct {
		name string
		want any
		ok   bool
	}{
		{"period", "1h", true},
		{"theme", "dark", true},
		{"precision", 4, true},
		{"missing", nil, false},
	}
	for _, tt := range tests {
		got, ok := p.Lookup(tt.name)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Lookup(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
	if p.Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Len())
	}
}

func TestMergeFlattensProps(t *testing.T) {
	base := Merge(Values{"a": 1}, Values{"b": 2})
	p := Merge(base, &base, Values{"a": 3})
	if p.Len() != 5 {
		t.Errorf("Len() = %d, want 5", p.Len())
	}
	if v, _ := p.Lookup("a"); v != 3 {
		t.Errorf("a = %v, want 3", v)
	}
}

func TestNamesInFirstAppearanceOrder(t *testing.T) {
	p := Merge(Values{"b": 1, "a": 1}, Values{"c": 1, "a": 2})
	if got, want := p.Names(), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestTypedLookup(t *testing.T) {
	p := Merge(Values{"period": "4h", "precision": "two"})

	if got := Get(p, period); got != "4h" {
		t.Errorf("Get(period) = %q, want 4h", got)
	}
	if got, ok := Lookup(p, precision); ok || got != 2 {
		t.Errorf("Lookup(precision) = %v, %v; want default 2, false", got, ok)
	}
	if got := Get(Merge(), period); got != "1d" {
		t.Errorf("Get on empty props = %q, want default", got)
	}
}

func TestSplit(t *testing.T) {
	p := Merge(Values{"period": "1d", "theme": "dark", "locale": "en"})
	picked, rest := Split(p, "period", "locale")

	if got, want := Resolve(picked), (Values{"period": "1d", "locale": "en"}); !reflect.DeepEqual(got, want) {
		t.Errorf("picked = %v, want %v", got, want)
	}
	if got, want := Resolve(rest), (Values{"theme": "dark"}); !reflect.DeepEqual(got, want) {
		t.Errorf("rest = %v, want %v", got, want)
	}
	if _, ok := rest.Lookup("period"); ok {
		t.Error("rest exposes a picked prop")
	}
}

func TestFuncLayerIsReactive(t *testing.T) {
	rt := reactive.NewRuntime()
	user := reactive.NewSignal(rt, Values{"theme": "dark"})
	p := Merge(Values{"theme": "light", "period": "1d"}, Func(user.Get))

	var themes []string
	rt.Effect(func() reactive.Cleanup {
		v, _ := p.Lookup("theme")
		themes = append(themes, v.(string))
		return nil
	})

	user.Set(Values{})
	user.Set(Values{"theme": "blue"})
	if want := []string{"dark", "light", "blue"}; !reflect.DeepEqual(themes, want) {
		t.Errorf("themes = %v, want %v", themes, want)
	}
}

func TestWatchSkipsEqualResolutions(t *testing.T) {
	rt := reactive.NewRuntime()
	user := reactive.NewSignal(rt, Values{"period": "1h"})
	resolved := Watch(rt, Merge(Values{"theme": "light"}, Func(user.Get)))

	runs := 0
	rt.Effect(func() reactive.Cleanup {
		resolved.Get()
		runs++
		return nil
	})

	user.Set(Values{"period": "1h"})
	if runs != 1 {
		t.Errorf("runs = %d after equal write, want 1", runs)
	}
	user.Set(Values{"period": "1w"})
	if runs != 2 {
		t.Errorf("runs = %d after change, want 2", runs)
	}
	if got := Get(resolved.Peek(), period); got != "1w" {
		t.Errorf("period = %q, want 1w", got)
	}
}

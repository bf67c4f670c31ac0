package main

import (
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/vango-dev/klinecore/pkg/datafeed"
	"github.com/vango-dev/klinecore/pkg/features/resource"
	"github.com/vango-dev/klinecore/pkg/props"
	"github.com/vango-dev/klinecore/pkg/reactive"
	"github.com/vango-dev/klinecore/pkg/reconcile"
)

// Theme keys.
var (
	upColor    = props.NewKey("upColor", "#26a69a")
	downColor  = props.NewKey("downColor", "#ef5350")
	emptyText  = props.NewKey("emptyText", "no data")
	timeLayout = props.NewKey("timeLayout", time.DateOnly)
)

// barView is what a renderer draws for one candle.
type barView struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
	Index  int     `json:"index"`
	Color  string  `json:"color"`
	Text   string  `json:"text,omitempty"`
}

// bar is the mapped form of one candle. Its view follows the candle and its
// position.
type bar struct {
	view *reactive.Memo[barView]
}

// View returns the current view.
func (b bar) View() barView {
	return b.view.Peek()
}

// MarshalJSON encodes the current view.
func (b bar) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.view.Peek())
}

// stats summarises the visible window.
type stats struct {
	Symbol    string  `json:"symbol"`
	State     string  `json:"state"`
	Bars      int     `json:"bars"`
	Last      float64 `json:"last"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"changePct"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
}

type chartOptions struct {
	// window keeps only the most recent bars. Zero keeps all of them.
	window   int
	theme    props.Layer
	sink     reconcile.Sink[int64, bar]
	resource []resource.Option
	logger   *slog.Logger
}

// chart is the reactive pipeline: symbol -> candles -> bars.
type chart struct {
	symbol  *reactive.Signal[string]
	candles *resource.Resource[string, []datafeed.Candle]
	visible *reactive.Memo[[]datafeed.Candle]
	bars    *reconcile.List[int64, bar]
	stats   *reactive.Memo[stats]
}

func newChart(rt *reactive.Runtime, feed datafeed.Feed, symbol string, o chartOptions) *chart {
	if o.theme == nil {
		o.theme = props.Values{}
	}
	if o.logger == nil {
		o.logger = rt.Logger()
	}
	c := &chart{}

	c.symbol = reactive.NewSignal(rt, symbol).Named("symbol")
	c.candles = resource.New(rt,
		func() (string, bool) {
			s := c.symbol.Get()
			return s, s != ""
		},
		feed.History,
		append([]resource.Option{resource.Name("candles")}, o.resource...)...,
	)

	c.visible = reactive.NewNamedMemo(rt, "visible", func() []datafeed.Candle {
		return tail(c.candles.Latest(), o.window)
	})

	c.bars = reconcile.Map(rt, c.visible.Get,
		func(cd datafeed.Candle) int64 { return cd.Timestamp },
		func(item func() datafeed.Candle, index func() int) bar {
			return bar{view: reactive.NewMemo(rt, func() barView {
				return render(item(), index(), o.theme)
			})}
		},
		reconcile.Name("bars"),
		reconcile.WithSink(o.sink),
		reconcile.WithFallback(func() bar {
			return bar{view: reactive.NewMemo(rt, func() barView {
				return barView{Index: -1, Text: props.Get(o.theme, emptyText)}
			})}
		}),
	)

	c.stats = reactive.NewNamedMemo(rt, "stats", func() stats {
		return summarize(c.symbol.Get(), c.candles.State(), c.visible.Get())
	})

	reactive.OnChange(rt, c.candles.State, func(prev, next resource.State) {
		o.logger.Debug("candles state", "symbol", c.symbol.Peek(), "from", prev, "to", next)
		if next == resource.Errored {
			o.logger.Warn("candles unavailable", "symbol", c.symbol.Peek(), "error", c.candles.Error())
		}
	})
	return c
}

// tail returns the last n candles, or all of them when n is zero.
func tail(candles []datafeed.Candle, n int) []datafeed.Candle {
	if n <= 0 || len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}

func render(cd datafeed.Candle, index int, theme props.Layer) barView {
	color := props.Get(theme, upColor)
	if cd.Close < cd.Open {
		color = props.Get(theme, downColor)
	}
	return barView{
		Time:   cd.Time().UTC().Format(props.Get(theme, timeLayout)),
		Open:   cd.Open,
		High:   cd.High,
		Low:    cd.Low,
		Close:  cd.Close,
		Volume: cd.Volume,
		Index:  index,
		Color:  color,
	}
}

func summarize(symbol string, state resource.State, candles []datafeed.Candle) stats {
	s := stats{Symbol: symbol, State: state.String(), Bars: len(candles)}
	if len(candles) == 0 {
		return s
	}
	first, last := candles[0], candles[len(candles)-1]
	s.Last = last.Close
	s.Change, _ = datafeed.RoundPrice(last.Close - first.Open)
	if first.Open != 0 {
		s.ChangePct, _ = datafeed.RoundPrice(100 * (last.Close - first.Open) / first.Open)
	}
	s.High, s.Low = math.Inf(-1), math.Inf(1)
	for _, cd := range candles {
		s.High = math.Max(s.High, cd.High)
		s.Low = math.Min(s.Low, cd.Low)
	}
	return s
}

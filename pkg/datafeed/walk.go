package datafeed

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"
)

// ErrUnknownSymbol is returned by feeds that only serve a fixed set of
// symbols.
var ErrUnknownSymbol = errors.New("datafeed: unknown symbol")

// WalkOptions configures a Walk.
type WalkOptions struct {
	Seed       uint64
	Start      time.Time
	Interval   time.Duration
	Bars       int
	Volatility float64
}

// DefaultWalkOptions returns a year of daily bars from 2024-01-01.
func DefaultWalkOptions() WalkOptions {
	return WalkOptions{
		Seed:       1,
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:   24 * time.Hour,
		Bars:       365,
		Volatility: 0.02,
	}
}

// Walk is a Feed generating a random walk per symbol. The same seed and
// symbol always produce the same series. Walk is safe for concurrent use.
type Walk struct {
	opts WalkOptions

	mu     sync.Mutex
	series map[string]*walkSeries
}

type walkSeries struct {
	rng     *rand.Rand
	candles []Candle
}

// NewWalk creates a Walk. Zero fields of opts take their default.
func NewWalk(opts WalkOptions) *Walk {
	def := DefaultWalkOptions()
	if opts.Start.IsZero() {
		opts.Start = def.Start
	}
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.Bars <= 0 {
		opts.Bars = def.Bars
	}
	if opts.Volatility <= 0 {
		opts.Volatility = def.Volatility
	}
	return &Walk{opts: opts, series: make(map[string]*walkSeries)}
}

// History returns a copy of the symbol's series.
func (w *Walk) History(ctx context.Context, symbol string) ([]Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.lookup(symbol)
	return append([]Candle(nil), s.candles...), nil
}

// Step appends the next bar to the symbol's series and returns it.
func (w *Walk) Step(symbol string) Candle {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.lookup(symbol)
	c := w.next(s)
	s.candles = append(s.candles, c)
	return c
}

// Symbols returns the symbols generated so far, sorted.
func (w *Walk) Symbols() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.series))
	for sym := range w.series {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (w *Walk) lookup(symbol string) *walkSeries {
	if s, ok := w.series[symbol]; ok {
		return s
	}
	h := fnv.New64a()
	h.Write([]byte(symbol))
	sum := h.Sum64()

	s := &walkSeries{rng: rand.New(rand.NewPCG(w.opts.Seed, sum))}
	for i := 0; i < w.opts.Bars; i++ {
		s.candles = append(s.candles, w.next(s))
	}
	w.series[symbol] = s
	return s
}

// next derives the bar following s's last one. The first bar opens at a
// symbol-specific price between 20 and 500.
func (w *Walk) next(s *walkSeries) Candle {
	var ts int64
	var open float64
	if n := len(s.candles); n > 0 {
		last := s.candles[n-1]
		ts = last.Timestamp + w.opts.Interval.Milliseconds()
		open = last.Close
	} else {
		ts = w.opts.Start.UnixMilli()
		open = 20 + s.rng.Float64()*480
	}

	vol := w.opts.Volatility
	closePrice := open * (1 + s.rng.NormFloat64()*vol)
	high := math.Max(open, closePrice) * (1 + math.Abs(s.rng.NormFloat64())*vol/2)
	low := math.Min(open, closePrice) * (1 - math.Abs(s.rng.NormFloat64())*vol/2)

	c := Candle{
		Timestamp: ts,
		Open:      round(open),
		High:      round(high),
		Low:       round(low),
		Close:     round(closePrice),
		Volume:    100_000 + s.rng.Int64N(900_000),
	}
	if c.Low < 0.01 {
		c.Low = 0.01
	}
	if c.Close < c.Low {
		c.Close = c.Low
	}
	return c
}

func round(v float64) float64 {
	r, _ := RoundPrice(v)
	return r
}

// Static is a Feed over fixed series keyed by symbol.
type Static map[string][]Candle

// History returns a copy of the symbol's series.
func (s Static) History(ctx context.Context, symbol string) ([]Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := s[symbol]
	if !ok {
		return nil, ErrUnknownSymbol
	}
	return append([]Candle(nil), c...), nil
}

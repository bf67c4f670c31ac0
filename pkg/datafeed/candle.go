package datafeed

import (
	"context"
	"math"
	"sort"
	"time"
)

// Candle is one OHLCV bar. Timestamp is in Unix milliseconds.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// Time returns the candle's start time in UTC.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

// Feed returns the candle history of a symbol.
type Feed interface {
	History(ctx context.Context, symbol string) ([]Candle, error)
}

// RoundPrice rounds v to two decimals. It reports false for NaN and
// infinities.
func RoundPrice(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return math.Round(v*100) / 100, true
}

// SortByTime sorts candles by ascending timestamp. Candles sharing a
// timestamp keep their order.
func SortByTime(candles []Candle) {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})
}

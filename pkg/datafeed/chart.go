package datafeed

import (
	"encoding/json"
	"io"
	"math"

	kerrors "github.com/vango-dev/klinecore/internal/errors"
)

type chartPayload struct {
	Chart struct {
		Result []chartResult `json:"result"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol string `json:"symbol"`
	} `json:"meta"`
	Timestamp  []*float64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// ParseChart decodes a chart payload into candles sorted by time. Prices are
// rounded to two decimals and volumes to whole units. Rows with a missing
// timestamp or price are skipped; a missing volume counts as zero.
func ParseChart(r io.Reader) (symbol string, candles []Candle, err error) {
	var payload chartPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return "", nil, kerrors.New("E701").Wrap(err)
	}
	if len(payload.Chart.Result) == 0 {
		return "", nil, kerrors.New("E701").WithDetail("chart.result is empty")
	}
	res := payload.Chart.Result[0]
	symbol = res.Meta.Symbol

	var quote struct{ open, high, low, close, volume []*float64 }
	if len(res.Indicators.Quote) > 0 {
		q := res.Indicators.Quote[0]
		quote.open, quote.high, quote.low, quote.close, quote.volume = q.Open, q.High, q.Low, q.Close, q.Volume
	}

	for i, ts := range res.Timestamp {
		if ts == nil {
			continue
		}
		c := Candle{Timestamp: int64(*ts) * 1000}
		ok := true
		for _, f := range []struct {
			dst *float64
			src []*float64
		}{
			{&c.Open, quote.open},
			{&c.High, quote.high},
			{&c.Low, quote.low},
			{&c.Close, quote.close},
		} {
			v, valid := price(f.src, i)
			if !valid {
				ok = false
				break
			}
			*f.dst = v
		}
		if !ok {
			continue
		}
		if v := at(quote.volume, i); v != nil {
			c.Volume = int64(math.Round(*v))
		}
		candles = append(candles, c)
	}

	if len(candles) == 0 {
		return symbol, nil, kerrors.New("E702").WithDetailf("%d rows, none usable", len(res.Timestamp))
	}
	SortByTime(candles)
	return symbol, candles, nil
}

func at(s []*float64, i int) *float64 {
	if i >= len(s) {
		return nil
	}
	return s[i]
}

func price(s []*float64, i int) (float64, bool) {
	v := at(s, i)
	if v == nil {
		return 0, false
	}
	return RoundPrice(*v)
}

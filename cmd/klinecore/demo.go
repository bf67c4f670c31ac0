package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/klinecore/internal/config"
	kerrors "github.com/vango-dev/klinecore/internal/errors"
	"github.com/vango-dev/klinecore/internal/logging"
	"github.com/vango-dev/klinecore/pkg/datafeed"
	"github.com/vango-dev/klinecore/pkg/features/resource"
	"github.com/vango-dev/klinecore/pkg/props"
	"github.com/vango-dev/klinecore/pkg/reactive"
	"github.com/vango-dev/klinecore/pkg/reconcile"
)

func demoCmd() *cobra.Command {
	var opts demoOptions

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the chart pipeline offline and print its ops",
		Long: `Run the chart pipeline on the configured feed and print the ops each
change produces.

The demo loads a window of bars, appends --steps new bars one by one, then
optionally switches to another symbol. Every phase prints the create, move,
remove and update ops the reconciler emitted, followed by a summary.

Examples:
  klinecore demo
  klinecore demo --symbol=MSFT --steps=3 --window=5
  klinecore demo --switch=TSLA --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if opts.symbol == "" {
				opts.symbol = cfg.Demo.Symbols[0]
			}
			if opts.steps < 0 || opts.window < 0 {
				return kerrors.New("E601").WithDetail("--steps and --window must not be negative")
			}
			return runDemo(cmd.OutOrStdout(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.symbol, "symbol", "s", "", "Symbol to chart (default: first demo symbol)")
	cmd.Flags().IntVarP(&opts.steps, "steps", "n", 3, "Number of bars to append")
	cmd.Flags().IntVarP(&opts.window, "window", "w", 8, "Number of most recent bars to keep (0 for all)")
	cmd.Flags().StringVar(&opts.switchTo, "switch", "", "Symbol to switch to after the steps")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print ops as JSON lines")

	return cmd
}

type demoOptions struct {
	symbol   string
	steps    int
	window   int
	switchTo string
	json     bool
}

type demoOp struct {
	Phase string               `json:"phase"`
	Op    reconcile.Op[int64] `json:"op"`
	Bar   barView              `json:"bar"`
}

func runDemo(w io.Writer, cfg *config.Config, opts demoOptions) error {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	rt := reactive.NewRuntime(append(cfg.Runtime.Options(), reactive.WithLogger(logger))...)

	var collected []demoOp
	phase := "load"
	sink := reconcile.SinkFunc[int64, bar](func(op reconcile.Op[int64], out bar) {
		collected = append(collected, demoOp{Phase: phase, Op: op, Bar: out.View()})
	})

	feed := cfg.NewFeed()
	c := newChart(rt, feed, strings.ToUpper(opts.symbol), chartOptions{
		window:   opts.window,
		theme:    props.Values{},
		sink:     sink,
		resource: append(cfg.Resource.Options(), resource.Inline()),
		logger:   logger,
	})

	report := func() error {
		if err := printOps(w, collected, opts.json); err != nil {
			return err
		}
		collected = collected[:0]
		return printStats(w, c.stats.Peek(), opts.json)
	}
	if err := c.candles.Error(); err != nil {
		return err
	}
	if err := report(); err != nil {
		return err
	}

	walk, isWalk := feed.(*datafeed.Walk)
	for i := 1; i <= opts.steps; i++ {
		phase = fmt.Sprintf("step %d", i)
		if isWalk {
			walk.Step(c.symbol.Peek())
		}
		c.candles.Refetch()
		if err := report(); err != nil {
			return err
		}
	}

	if opts.switchTo != "" {
		phase = "switch " + strings.ToUpper(opts.switchTo)
		c.symbol.Set(strings.ToUpper(opts.switchTo))
		if err := c.candles.Error(); err != nil {
			return err
		}
		if err := report(); err != nil {
			return err
		}
	}
	return nil
}

func printOps(w io.Writer, ops []demoOp, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, op := range ops {
			if err := enc.Encode(op); err != nil {
				return err
			}
		}
		return nil
	}
	if len(ops) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\n== %s ==\n", ops[0].Phase)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, op := range ops {
		b := op.Bar
		if op.Op.Kind == reconcile.OpRemove || op.Op.Fallback {
			fmt.Fprintf(tw, "%s\t\n", op.Op)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\tO %.2f\tH %.2f\tL %.2f\tC %.2f\t%s\n",
			op.Op, b.Time, b.Open, b.High, b.Low, b.Close, b.Color)
	}
	return tw.Flush()
}

func printStats(w io.Writer, s stats, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(map[string]stats{"stats": s})
	}
	_, err := fmt.Fprintf(w, "%s [%s] %d bars  last %.2f  change %+.2f (%+.2f%%)  range %.2f-%.2f\n",
		s.Symbol, s.State, s.Bars, s.Last, s.Change, s.ChangePct, s.Low, s.High)
	return err
}

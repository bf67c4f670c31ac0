package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/klinecore/internal/config"
	kerrors "github.com/vango-dev/klinecore/internal/errors"
	"github.com/vango-dev/klinecore/internal/logging"
	"github.com/vango-dev/klinecore/pkg/bridge"
	"github.com/vango-dev/klinecore/pkg/datafeed"
	"github.com/vango-dev/klinecore/pkg/props"
	"github.com/vango-dev/klinecore/pkg/reactive"
	"github.com/vango-dev/klinecore/pkg/telemetry"
)

func serveCmd() *cobra.Command {
	var (
		addr   string
		symbol string
		window int
		tick   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream chart ops to renderers over WebSocket",
		Long: `Start the bridge server.

Candles for the selected symbol are fetched from the configured feed and
streamed to every renderer connected to /ws. With the random-walk feed,
--tick appends a new bar at a fixed interval.

Endpoints:
  GET  /ws                 renderer stream
  GET  /snapshot           current chart state
  GET  /stats              summary of the visible window
  POST /symbol/{symbol}    switch the charted symbol
  GET  /healthz            liveness
  GET  /metrics            Prometheus metrics

Examples:
  klinecore serve
  klinecore serve --addr=:9000 --symbol=MSFT --tick=2s
  klinecore serve --config=klinecore.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Bridge.Addr = addr
			}
			if symbol == "" {
				symbol = cfg.Demo.Symbols[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, serveOptions{symbol: strings.ToUpper(symbol), window: window, tick: tick})
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "Symbol to chart (default: first demo symbol)")
	cmd.Flags().IntVarP(&window, "window", "w", 120, "Number of most recent bars to publish (0 for all)")
	cmd.Flags().DurationVar(&tick, "tick", 0, "Append a random-walk bar at this interval (0 disables)")

	return cmd
}

type serveOptions struct {
	symbol string
	window int
	tick   time.Duration
}

func runServe(ctx context.Context, cfg *config.Config, opts serveOptions) error {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	logging.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var (
		metrics   *telemetry.Metrics
		observers telemetry.Multi
	)
	if cfg.Telemetry.Metrics {
		metrics = telemetry.NewMetrics(
			telemetry.WithNamespace(cfg.Telemetry.Namespace),
			telemetry.WithRegistry(reg),
		)
		observers = append(observers, metrics)
	}
	if cfg.Telemetry.Tracing {
		observers = append(observers, telemetry.NewTracer(
			telemetry.WithTracerName(cfg.Telemetry.TracerName),
			telemetry.WithSkipIdleFlushes(true),
		))
	}

	hub := bridge.NewHub(cfg.Bridge.HubConfig(),
		bridge.WithLogger(logger),
		bridge.WithMetrics(metrics),
	)
	observers = append(observers, hub)

	rtOpts := append(cfg.Runtime.Options(),
		reactive.WithLogger(logger),
		reactive.WithObserver(observers),
	)
	rt := reactive.NewRuntime(rtOpts...)

	sink := bridge.Sink[int64, bar](hub, "bars")
	if metrics != nil {
		sink = telemetry.CountOps(metrics, "bars", sink)
	}

	feed := cfg.NewFeed()
	c := newChart(rt, feed, opts.symbol, chartOptions{
		window:   opts.window,
		theme:    props.Values{},
		sink:     sink,
		resource: cfg.Resource.Options(),
		logger:   logger,
	})
	if spec := cfg.Resource.RefreshSchedule; spec != "" {
		if err := c.candles.RefreshSchedule(spec); err != nil {
			return err
		}
	}

	if walk, ok := feed.(*datafeed.Walk); ok && opts.tick > 0 {
		go func() {
			ticker := time.NewTicker(opts.tick)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					rt.Dispatch(func() {
						walk.Step(c.symbol.Peek())
						c.candles.Refetch()
					})
				}
			}
		}()
	}

	router := chi.NewRouter()
	router.Post("/symbol/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		sym := strings.ToUpper(chi.URLParam(r, "symbol"))
		rt.Dispatch(func() { c.symbol.Set(sym) })
		w.WriteHeader(http.StatusAccepted)
	})
	router.Get("/stats", statsHandler(rt, c))
	router.Mount("/", bridge.NewRouter(hub, bridge.RouterOptions{Gatherer: reg}))

	srv := &http.Server{
		Addr:              cfg.Bridge.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- kerrors.New("E503").Wrap(err).WithDetail("listen on " + cfg.Bridge.Addr)
		}
		close(errCh)
	}()

	printBanner()
	success("Serving %s on %s", opts.symbol, cfg.Bridge.Addr)
	info("feed: %s", cfg.Feed.Source)
	info("renderers: ws://%s/ws", displayAddr(cfg.Bridge.Addr))

	runErr := make(chan error, 1)
	go func() { runErr <- rt.Run(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-runErr
	return nil
}

// statsHandler answers with the chart summary. The memo is read on the
// runtime goroutine.
func statsHandler(rt *reactive.Runtime, c *chart) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := make(chan stats, 1)
		rt.Dispatch(func() { result <- c.stats.Peek() })
		select {
		case s := <-result:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(s)
		case <-r.Context().Done():
		}
	}
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"timekeeper/clock"
	"timekeeper/host/mcu"
	"timekeeper/host/metrics"
)

var (
	setMicros uint64
	setMillis float64
	setNow    bool
	monListen string
	monEvery  time.Duration
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the MCU clock",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *mcu.Client) error {
			us, err := c.GetTime(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatTime(us))
			return nil
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the MCU clock",
	Long: `Set the MCU clock. Exactly one of --us, --ms or --now is required.

Examples:
  clockctl set --us 0
  clockctl set --ms 1500.25
  clockctl set --now          # Unix time of the host`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		target, err := resolveTarget(flags.Changed("us"), setMicros,
			flags.Changed("ms"), setMillis, setNow, time.Now())
		if err != nil {
			return err
		}
		return withClient(cmd.Context(), func(ctx context.Context, c *mcu.Client) error {
			us, err := c.SetTime(ctx, target)
			if err != nil {
				return err
			}
			logger.Info("clock set", zap.Uint64("target_us", target), zap.Uint64("reported_us", us))
			fmt.Fprintln(cmd.OutOrStdout(), formatTime(us))
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the MCU boot report and counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *mcu.Client) error {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatStatus(st))
			return nil
		})
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll the MCU and serve Prometheus metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("listen") {
			cfg.Monitor.Listen = monListen
		}
		if cmd.Flags().Changed("interval") {
			cfg.Monitor.Interval = monEvery
		}
		if cfg.Monitor.Interval <= 0 {
			return errors.New("interval must be positive")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return withClient(ctx, runMonitor)
	},
}

func init() {
	setCmd.Flags().Uint64Var(&setMicros, "us", 0, "time in microseconds")
	setCmd.Flags().Float64Var(&setMillis, "ms", 0, "time in milliseconds")
	setCmd.Flags().BoolVar(&setNow, "now", false, "use the host's Unix time")

	monitorCmd.Flags().StringVar(&monListen, "listen", "", "metrics listen address (default from config)")
	monitorCmd.Flags().DurationVar(&monEvery, "interval", 0, "poll interval (default from config)")
}

var errSetTarget = errors.New("set: exactly one of --us, --ms or --now is required")

// resolveTarget picks the microsecond value to send from the set flags.
func resolveTarget(haveUS bool, us uint64, haveMS bool, ms float64, now bool, wall time.Time) (uint64, error) {
	n := 0
	for _, b := range []bool{haveUS, haveMS, now} {
		if b {
			n++
		}
	}
	if n != 1 {
		return 0, errSetTarget
	}
	switch {
	case haveUS:
		return us, nil
	case haveMS:
		if ms < 0 {
			return 0, fmt.Errorf("set: negative time %v ms", ms)
		}
		return clock.FromMilliseconds(ms), nil
	default:
		return uint64(wall.UnixMicro()), nil
	}
}

func formatTime(us uint64) string {
	return fmt.Sprintf("%d us (%.3f ms)", us, clock.ToMilliseconds(us))
}

func formatStatus(st mcu.Status) string {
	return fmt.Sprintf(`state:            %s
boot path:        %s
reset cause:      %s
lost reason:      %s
calibration:      %d ns/tick (ratio %d)
resyncs:          %d
persists:         %d
persist failures: %d
`, st.State, st.Path, st.Cause, st.LostReason(),
		st.Ratio.Nanoseconds(), uint32(st.Ratio),
		st.Resyncs, st.Persists, st.PersistFailures)
}

func runMonitor(ctx context.Context, c *mcu.Client) error {
	collector := metrics.NewCollector(c)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collector, collectors.NewGoCollector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              cfg.Monitor.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", zap.String("listen", cfg.Monitor.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	poll := func() {
		s := collector.Poll(ctx)
		if !s.OK {
			logger.Warn("poll failed", zap.Error(s.Err))
			return
		}
		logger.Debug("poll",
			zap.Uint64("time_us", s.Time),
			zap.Duration("offset", s.Offset()),
			zap.Stringer("path", s.Status.Path),
			zap.Uint32("persist_failures", s.Status.PersistFailures))
	}

	ticker := time.NewTicker(cfg.Monitor.Interval)
	defer ticker.Stop()
	poll()

	for {
		select {
		case <-ticker.C:
			poll()
		case err := <-errCh:
			return fmt.Errorf("metrics server: %w", err)
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		}
	}
}

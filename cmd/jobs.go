package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-fees/config"
)

var (
	workerMode bool
)

var webhooksCmd = &cobra.Command{
	Use:   "webhooks",
	Short: "Run provider webhook related commands",
}

var webhooksReprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Process stored webhook events left unprocessed past the ack deadline",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"webhooks_reprocess",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.WebhookReprocessInterval },
			func(s *services, ctx context.Context) error {
				return s.webhooks.RunReprocessBatch(ctx)
			},
		)
	},
}

var feesCmd = &cobra.Command{
	Use:   "fees",
	Short: "Run fee config related commands",
}

var feesWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Load every country fee config to verify the store is readable",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"fees_warm",
			func(cfg *config.Config) time.Duration { return cfg.Fees.CacheTTL },
			func(s *services, ctx context.Context) error {
				s.feeCache.Invalidate()
				return s.feeCache.Warm(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(webhooksCmd)
	rootCmd.AddCommand(feesCmd)
	webhooksCmd.AddCommand(webhooksReprocessCmd)
	feesCmd.AddCommand(feesWarmCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *services, ctx context.Context) error,
) {
	cfg, svc, cleanup := mustCreateServices()
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobLogger := logrus.WithField("job", name)
	if workerMode {
		runWorker(ctx, jobLogger, intervalResolver(cfg), func(ctx context.Context) error { return fn(svc, ctx) })
	} else {
		runJob(ctx, jobLogger, func(ctx context.Context) error { return fn(svc, ctx) })
	}

	// Events accepted by a batch may still be applying after the deadline.
	svc.webhooks.Wait()
}

// runWorker runs fn immediately and then on every tick until ctx is done.
func runWorker(ctx context.Context, jobLogger logrus.FieldLogger, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		jobLogger.WithField("interval", interval.String()).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runJob(ctx, jobLogger, fn)
	for {
		select {
		case <-ctx.Done():
			jobLogger.Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(ctx, jobLogger, fn)
		}
	}
}

func runJob(ctx context.Context, jobLogger logrus.FieldLogger, fn func(ctx context.Context) error) {
	start := time.Now()
	err := fn(ctx)
	entry := jobLogger.WithField("latency", time.Since(start).String())
	if err != nil {
		entry.WithError(err).Error("job_failed")
		return
	}
	entry.Info("job_completed")
}

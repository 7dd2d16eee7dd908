package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/patoarvizu/knotifier/internal/cloudapi"
	awscloud "github.com/patoarvizu/knotifier/internal/cloudapi/aws"
	"github.com/patoarvizu/knotifier/internal/config"
	"github.com/patoarvizu/knotifier/internal/fleet"
	"github.com/patoarvizu/knotifier/internal/pricing"
	"github.com/patoarvizu/knotifier/internal/replacer"
	"github.com/patoarvizu/knotifier/internal/savings"
	"github.com/patoarvizu/knotifier/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the knotifier control loops",
	Long: `Run starts the two knotifier control loops.

The price loop periodically recomputes a weighted spot price for every
configured instance type and availability zone. The replacement loop
drains termination notifications from the queue and ensures each
affected on-demand group has a spot shadow group covering the lost
capacity.

Use --dry-run to log planned replacements without mutating anything.`,
	RunE: runLoops,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runLoops(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting knotifier",
		"dry_run", IsDryRun(),
		"version", "0.1.0",
	)

	if cfgFile == "" {
		cfgFile = "config/default.yaml"
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	compute, err := awscloud.NewComputeClient(ctx, cfg.AWS.Region, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize compute client: %w", err)
	}
	queue, err := awscloud.NewQueueClient(ctx, cfg.AWS.Region, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}
	history, err := awscloud.NewPriceHistoryClient(ctx, cfg.AWS.Region, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to initialize price history client: %w", err)
	}

	var onDemand cloudapi.OnDemandPriceAPI
	var ledger *savings.Ledger
	if cfg.Replacer.EstimateSavings {
		onDemand, err = awscloud.NewOnDemandPriceClient(ctx, cfg.AWS.Region, slog.Default())
		if err != nil {
			slog.Warn("failed to initialize on-demand price client, savings estimates disabled", "error", err)
			onDemand = nil
		} else {
			ledger = savings.NewLedger(slog.Default())
		}
	}

	cache := fleet.NewCache(compute, slog.Default())

	engine, err := pricing.NewEngine(pricing.EngineConfig{
		History:               history,
		InstanceTypes:         cfg.Pricing.InstanceTypes,
		AvailabilityZones:     cfg.Pricing.AvailabilityZones,
		Workers:               cfg.Pricing.Workers,
		EligibilityExpression: cfg.Pricing.EligibilityExpression,
		Logger:                slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to create price engine: %w", err)
	}

	ctrl, err := replacer.New(replacer.Config{
		Queue:     queue,
		Compute:   compute,
		Cache:     cache,
		Prices:    engine,
		OnDemand:  onDemand,
		Ledger:    ledger,
		QueueName: cfg.Queue.Name,
		DryRun:    IsDryRun(),
		Logger:    slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to create replacement controller: %w", err)
	}

	slog.Info("knotifier ready, starting loops",
		"queue", cfg.Queue.Name,
		"price_interval", cfg.Pricing.RefreshInterval(),
		"reconcile_interval", cfg.Replacer.ReconcileInterval(),
	)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		slog.Info("starting metrics server", "address", cfg.Telemetry.ListenAddress)
		if err := http.ListenAndServe(cfg.Telemetry.ListenAddress, mux); err != nil {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		scheduler.Every(ctx, "price-refresh", cfg.Pricing.RefreshInterval(), func(ctx context.Context) error {
			engine.Refresh(ctx)
			return nil
		}, slog.Default())
	}()

	go func() {
		defer wg.Done()
		scheduler.Every(ctx, "replacement-cycle", cfg.Replacer.ReconcileInterval(), func(ctx context.Context) error {
			if err := cache.RefreshGroups(ctx); err != nil {
				slog.Warn("group refresh failed", "error", err)
			}
			if err := cache.RefreshLaunchTemplates(ctx); err != nil {
				slog.Warn("launch template refresh failed", "error", err)
			}
			return ctrl.Cycle(ctx)
		}, slog.Default())
	}()

	wg.Wait()
	slog.Info("knotifier stopped")
	return nil
}

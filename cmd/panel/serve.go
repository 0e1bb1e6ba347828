package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/helpmebro911/panel/pkg/events"
	"github.com/helpmebro911/panel/pkg/health"
	"github.com/helpmebro911/panel/pkg/log"
	"github.com/helpmebro911/panel/pkg/manager"
	"github.com/helpmebro911/panel/pkg/metrics"
	"github.com/helpmebro911/panel/pkg/monitor"
	"github.com/helpmebro911/panel/pkg/reconciler"
	"github.com/helpmebro911/panel/pkg/reset"
	"github.com/helpmebro911/panel/pkg/scheduler"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the panel server",
	Long: `Run the panel server: the usage reset pipeline, node health
probing, status reconciliation, metrics collection, and audit log
retention, plus a Prometheus metrics endpoint.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "127.0.0.1:9090", "Address for the metrics endpoint")
	serveCmd.Flags().Duration("reset-interval", time.Minute, "Usage reset evaluation interval")
	serveCmd.Flags().Duration("probe-interval", 30*time.Second, "Node health probe interval")
	serveCmd.Flags().Duration("probe-timeout", 5*time.Second, "Per-probe timeout")
	serveCmd.Flags().Int("probe-retries", 3, "Consecutive probe failures before a node is marked errored")
	serveCmd.Flags().Duration("reconcile-interval", 30*time.Second, "Status reconciliation interval")
	serveCmd.Flags().Duration("stale-after", reconciler.DefaultStaleAfter, "Mark connected nodes errored after this long without a status report")
	serveCmd.Flags().Duration("log-retention", 90*24*time.Hour, "How long usage reset audit logs are kept")
	serveCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().Bool("log-json", false, "Emit JSON logs instead of console output")
}

func runServe(cmd *cobra.Command, args []string) error {
	listenAddr, _ := cmd.Flags().GetString("listen")
	resetInterval, _ := cmd.Flags().GetDuration("reset-interval")
	probeInterval, _ := cmd.Flags().GetDuration("probe-interval")
	probeTimeout, _ := cmd.Flags().GetDuration("probe-timeout")
	probeRetries, _ := cmd.Flags().GetInt("probe-retries")
	reconcileInterval, _ := cmd.Flags().GetDuration("reconcile-interval")
	staleAfter, _ := cmd.Flags().GetDuration("stale-after")
	logRetention, _ := cmd.Flags().GetDuration("log-retention")
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})

	metrics.SetVersion(Version)

	mgr, err := openManager(cmd)
	if err != nil {
		metrics.RegisterComponent("store", false, err.Error())
		return fmt.Errorf("failed to create manager: %v", err)
	}
	metrics.RegisterComponent("store", true, "")

	pipeline := reset.NewPipeline(mgr.Store())
	recon := reconciler.NewReconciler(mgr.Store(), mgr.EventBroker(), staleAfter)
	mon := monitor.NewMonitor(mgr.Store(), mgr.EventBroker(), health.Config{
		Interval: probeInterval,
		Timeout:  probeTimeout,
		Retries:  probeRetries,
	})
	collector := manager.NewMetricsCollector(mgr)

	sched := scheduler.NewScheduler()
	jobs := []scheduler.Job{
		{
			Name:     "usage-reset",
			Interval: resetInterval,
			Fn: func(ctx context.Context, now time.Time) error {
				nodes, err := pipeline.Run(ctx, now)
				for _, n := range nodes {
					mgr.PublishEvent(&events.Event{
						Type:    events.EventUsageReset,
						NodeID:  n.ID,
						Message: fmt.Sprintf("usage counters reset (%s cycle)", n.ResetStrategy),
					})
				}
				return err
			},
		},
		{
			Name:     "probe-sweep",
			Interval: probeInterval,
			Fn:       mon.Sweep,
		},
		{
			Name:     "reconcile",
			Interval: reconcileInterval,
			Fn:       recon.Reconcile,
		},
		{
			Name:       "metrics-collect",
			Interval:   15 * time.Second,
			RunOnStart: true,
			Fn:         collector.Collect,
		},
		{
			Name:     "log-retention",
			Interval: time.Hour,
			Fn: func(ctx context.Context, now time.Time) error {
				purged, err := mgr.Store().PurgeResetLogs(now.Add(-logRetention))
				if err != nil {
					return err
				}
				metrics.ResetLogsPurgedTotal.Add(float64(purged))
				return nil
			},
		},
		{
			Name:     "token-cleanup",
			Interval: 10 * time.Minute,
			Fn: func(ctx context.Context, now time.Time) error {
				mgr.TokenManager().CleanupExpiredTokens()
				return nil
			},
		},
	}
	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			return fmt.Errorf("failed to register job %s: %v", job.Name, err)
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %v", err)
	}
	metrics.RegisterComponent("scheduler", true, "")
	metrics.RegisterComponent("monitor", true, "")
	fmt.Println("✓ Scheduler started")

	// Serve Prometheus metrics and health endpoints in background
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())
	httpServer := &http.Server{Addr: listenAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server error: %v", err)
		}
	}()
	fmt.Printf("✓ Metrics listening on %s\n", listenAddr)

	fmt.Println()
	fmt.Println("Panel is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal or metrics server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}

	// Shutdown
	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	if err := mgr.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown: %v", err)
	}

	fmt.Println("✓ Shutdown complete")
	return nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dnstools/hosttech-dns-sync/reconcile"
	"github.com/dnstools/hosttech-dns-sync/source"
)

func newWatchCommand() *cobra.Command {
	var specPath string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Periodically reapply a desired-state file",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			if specPath == "" {
				specPath = app.cfg.SpecPath
			}
			if specPath == "" {
				return fmt.Errorf("no desired-state file; pass --file or set specPath")
			}
			return app.watch(specPath)
		},
	}
	cmd.Flags().StringVar(&specPath, "file", "", "path to the desired-state file")
	return cmd
}

func (a *app) watch(specPath string) error {
	jrnl, err := a.openJournal()
	if err != nil {
		return err
	}
	defer jrnl.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	server := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux}
	go func() {
		slog.Info("starting metrics server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := reconcile.NewEngine(a.client, jrnl, a.metrics, a.cfg.DryRun)

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go a.runSyncLoop(ctx, wg, engine, specPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutdown signal received")
	cancel()

	shutdownCtx, cancelServer := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelServer()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown error", "error", err)
	}

	wg.Wait()
	slog.Info("watch shutdown complete")
	return nil
}

func (a *app) runSyncLoop(ctx context.Context, wg *sync.WaitGroup, engine *reconcile.Engine, specPath string) {
	defer wg.Done()
	ticker := time.NewTicker(a.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		if err := a.performSync(ctx, engine, specPath); err != nil {
			slog.Error("sync run failed", "error", err)
		}

		select {
		case <-ticker.C:
			continue
		case <-ctx.Done():
			slog.Info("stopping sync loop")
			return
		}
	}
}

// performSync reads the zone fresh from the service and converges every
// record group of the desired-state file. The file is reloaded each run so
// edits take effect without a restart; the zone snapshot is discarded after
// the run.
func (a *app) performSync(ctx context.Context, engine *reconcile.Engine, specPath string) error {
	start := time.Now()
	defer func() {
		a.metrics.SetSyncDuration(time.Since(start))
	}()

	file, err := source.Load(specPath)
	if err != nil {
		a.metrics.IncSyncRun(false)
		return err
	}
	zone, err := a.client.GetZone(ctx, file.Zone)
	if err != nil {
		a.metrics.IncSyncRun(false)
		return err
	}
	if zone == nil {
		a.metrics.IncSyncRun(false)
		return fmt.Errorf("zone %s not found", file.Zone)
	}

	failed := 0
	for _, spec := range file.Records {
		desired, state, err := spec.Desired(file.Zone)
		if err == nil {
			var results reconcile.Results
			results, err = engine.Reconcile(ctx, zone, desired, state)
			if err == nil && len(results.Failures) > 0 {
				err = fmt.Errorf("%d operations failed", len(results.Failures))
			}
		}
		if err != nil {
			slog.Error("record group failed", "record", spec.Record, "type", spec.Type, "error", err)
			failed++
		}
	}
	a.metrics.IncSyncRun(failed == 0)
	if failed > 0 {
		return fmt.Errorf("%d of %d record groups failed", failed, len(file.Records))
	}
	return nil
}

func newHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent reconciliation runs from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			jrnl, err := app.openJournal()
			if err != nil {
				return err
			}
			defer jrnl.Close()

			entries, err := jrnl.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s %s %s/%s created=%d updated=%d deleted=%d failed=%d\n",
					time.Unix(e.At, 0).Format(time.RFC3339),
					e.Action, e.Record, e.Type,
					e.Created, e.Updated, e.Deleted, e.Failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show")
	return cmd
}

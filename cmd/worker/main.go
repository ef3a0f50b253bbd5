package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/stwalsh4118/catalogsync/internal/app"
	"github.com/stwalsh4118/catalogsync/internal/config"
	"github.com/stwalsh4118/catalogsync/internal/logger"
	"github.com/stwalsh4118/catalogsync/internal/services"
)

// Jobs the worker can run once per invocation, meant for cron.
const (
	jobSync          = "sync"
	jobBackfill      = "backfill"
	jobTranslate     = "translate"
	jobDiscrepancies = "discrepancies"
)

func main() {
	job := flag.String("job", "", "job to run: sync, backfill, translate or discrepancies")
	maxBatches := flag.Int("max-batches", 10, "translation batches to run before stopping (0 = until done)")
	limit := flag.Int("limit", 0, "listings the backfill job re-fetches (0 = service default)")
	force := flag.Bool("force", false, "retranslate languages that already have text")
	out := flag.String("out", "", "write the discrepancy report to this .xlsx file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Server.Env).WithComponent("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", err, nil)
	}
	defer a.Close()

	opts := jobOptions{maxBatches: *maxBatches, limit: *limit, force: *force, out: *out}
	if err := run(ctx, a, *job, opts, log); err != nil {
		log.Error("Job failed", err, map[string]interface{}{"job": *job})
		a.Close()
		os.Exit(1)
	}
}

// jobOptions carries the per-job command line flags.
type jobOptions struct {
	out        string
	maxBatches int
	limit      int
	force      bool
}

func run(ctx context.Context, a *app.App, job string, opts jobOptions, log *logger.Logger) error {
	switch job {
	case jobSync:
		result, err := a.Sync.SyncAll(ctx)
		if result != nil {
			log.Info("Sync finished", map[string]interface{}{
				"fetched":     result.Fetched,
				"upserted":    result.Upserted,
				"unchanged":   result.Unchanged,
				"deactivated": result.Deactivated,
				"errors":      len(result.Errors),
			})
		}
		return err

	case jobBackfill:
		result, err := a.Sync.BackfillSourceText(ctx, opts.limit)
		if result != nil {
			log.Info("Backfill finished", map[string]interface{}{
				"checked": result.Checked,
				"filled":  result.Filled,
				"empty":   result.Empty,
				"gone":    result.Gone,
				"failed":  result.Failed,
			})
		}
		return err

	case jobTranslate:
		result, err := a.Translation.RunUntilDone(ctx, services.TranslationRequest{Force: opts.force}, opts.maxBatches)
		if result != nil {
			log.Info("Translation finished", map[string]interface{}{
				"batches":       result.Batches,
				"processed":     result.Processed,
				"translated":    result.Translated,
				"errors":        result.Errors,
				"skipped":       result.Skipped,
				"tokens_used":   result.TokensUsed,
				"cost_estimate": result.CostEstimate,
			})
		}
		return err

	case jobDiscrepancies:
		report, err := a.Discrepancy.Detect(ctx)
		if err != nil {
			return err
		}
		log.Info("Discrepancy report", map[string]interface{}{
			"discrepancies":             report.Count(),
			"references":                report.References(),
			"unpublished_mandates":      len(report.UnpublishedMandates),
			"published_without_mandate": len(report.PublishedWithoutMandate),
			"suppressed":                report.Suppressed,
		})
		if opts.out == "" {
			return nil
		}
		return exportReport(ctx, a.Discrepancy, opts.out)

	default:
		return fmt.Errorf("unknown job %q", job)
	}
}

func exportReport(ctx context.Context, svc services.DiscrepancyService, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := svc.ExportXLSX(ctx, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

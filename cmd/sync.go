package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/windsync/internal/formatter"
	"github.com/desertthunder/windsync/internal/models"
	"github.com/desertthunder/windsync/internal/repositories"
	"github.com/desertthunder/windsync/internal/services"
	"github.com/desertthunder/windsync/internal/shared"
	"github.com/desertthunder/windsync/internal/tasks"
)

// SyncRun executes a Drive → Photos transfer.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	scope, scopeLabel, err := resolveScope(cmd)
	if err != nil {
		return err
	}

	opts, err := r.engineOpts(cmd)
	if err != nil {
		return err
	}

	tokens, err := r.authTokens()
	if err != nil {
		return err
	}
	newSource := r.sourceFactory(tokens)
	newDest := r.destFactory(tokens)

	saveEvery := r.config.Sync.SaveEvery
	if n := cmd.Int("save-every"); n > 0 {
		saveEvery = int(n)
	}
	ledger, err := tasks.NewDedupLedger(r.config.Sync.LedgerIDsPath, r.config.Sync.LedgerHashesPath, saveEvery, r.logger)
	if err != nil {
		return err
	}

	scanDest := newDest()
	cache := tasks.NewNameCache(r.config.Cache.Path, scanDest.ListAllNames, r.logger)

	engine := tasks.NewTransferEngine(newSource, newDest, ledger, cache, opts, r.logger)

	if cmd.Bool("dry-run") {
		return r.syncPlan(ctx, engine, scope, scopeLabel)
	}

	// First Ctrl+C drains gracefully, a second one kills the process.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)
	go func() {
		for range sigc {
			engine.Cancel()
			signal.Stop(sigc)
		}
	}()

	progress := make(chan tasks.ProgressUpdate, 64)
	var consumer sync.WaitGroup
	consumer.Add(1)
	go func() {
		defer consumer.Done()
		for update := range progress {
			switch update.Phase {
			case tasks.FailItem:
				r.logger.Error(update.Message)
			case tasks.SkipItem:
				r.logger.Debug(update.Message)
			default:
				r.logger.Info(update.Message)
			}
		}
	}()

	recorder := r.recordRunStart(scopeLabel, opts)

	result, err := engine.Run(ctx, scope, progress)
	close(progress)
	consumer.Wait()

	if err != nil {
		recorder.fail(err)
		return fmt.Errorf("sync failed: %w", err)
	}

	recorder.complete(result)

	if path := cmd.String("failures"); path != "" && len(result.Failures) > 0 {
		written, err := formatter.WriteFailureReport(result, path)
		if err != nil {
			r.logger.Warn("failed to write failure report", "error", err)
		} else {
			r.logger.Info("failure report written", "path", written)
		}
	}

	if cmd.Bool("json") {
		data, err := formatter.ReportToJSON(result)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", data)
	}
	return r.writePlain("\n%s", formatter.ReportToText(result))
}

// syncPlan prints what a run would do without touching the destination.
func (r *Runner) syncPlan(ctx context.Context, engine *tasks.TransferEngine, scope services.ListScope, scopeLabel string) error {
	r.logger.Info("dry run", "scope", scopeLabel)

	plan, err := engine.Plan(ctx, scope)
	if err != nil {
		return fmt.Errorf("dry run failed: %w", err)
	}

	r.writePlain("Would transfer %d file(s), skip %d:\n\n", len(plan.Pending), len(plan.SkipNames))
	for _, f := range plan.Pending {
		r.writePlain("  %s (%s)\n", f.Name, shared.FormatSize(f.Size))
	}
	return nil
}

// engineOpts merges config defaults with command-line overrides.
func (r *Runner) engineOpts(cmd *cli.Command) (tasks.EngineOpts, error) {
	cfg := r.config.Sync

	workers := cfg.Workers
	if n := cmd.Int("workers"); n > 0 {
		workers = int(n)
	}

	modeName := cfg.DedupMode
	if s := cmd.String("dedup-mode"); s != "" {
		modeName = s
	}
	mode, err := tasks.ParseDedupMode(modeName)
	if err != nil {
		return tasks.EngineOpts{}, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	return tasks.EngineOpts{
		Workers:        workers,
		BatchSize:      cfg.BatchSize,
		FlushInterval:  time.Duration(cfg.FlushInterval * float64(time.Second)),
		RetryAttempts:  cfg.RetryAttempts,
		RetryBaseDelay: time.Duration(cfg.RetryBaseDelay * float64(time.Second)),
		RateLimit:      cfg.RateLimit,
		DedupMode:      mode,
		Limit:          int(cmd.Int("limit")),
		RefreshCache:   cmd.Bool("refresh-cache"),
	}, nil
}

// authTokens returns the OAuth token source, or nil when the service
// test seams are in place and no real credentials are needed.
func (r *Runner) authTokens() (*services.TokenSource, error) {
	if r.source != nil && r.dest != nil {
		return nil, nil
	}
	return r.tokenSource()
}

// runRecorder ties a history row to its database handle for the
// duration of one sync.
type runRecorder struct {
	runner *Runner
	run    *models.SyncRun
	repo   *repositories.SyncRunRepository
	db     *sql.DB
}

// recordRunStart persists a queued history row. History is best
// effort: a broken database logs a warning and the sync proceeds.
func (r *Runner) recordRunStart(scopeLabel string, opts tasks.EngineOpts) *runRecorder {
	db, err := r.openDatabase()
	if err != nil {
		r.logger.Warn("history disabled", "error", err)
		return &runRecorder{runner: r}
	}

	run := models.NewSyncRun(scopeLabel, opts.DedupMode.String(), opts.Workers)
	repo := repositories.NewSyncRunRepository(db)
	if err := repo.Create(run); err != nil {
		r.logger.Warn("failed to record run", "error", err)
		db.Close()
		return &runRecorder{runner: r}
	}
	return &runRecorder{runner: r, run: run, repo: repo, db: db}
}

func (rec *runRecorder) complete(result *tasks.SyncRunResult) {
	if rec.run == nil {
		return
	}
	defer rec.db.Close()
	rec.run.Start(result.Total)
	rec.run.Complete(result.Succeeded, result.Failed, result.Skipped, result.Bytes, result.Cancelled)
	if err := rec.repo.Update(rec.run); err != nil {
		rec.runner.logger.Warn("failed to update run record", "error", err)
	}
}

func (rec *runRecorder) fail(cause error) {
	if rec.run == nil {
		return
	}
	defer rec.db.Close()
	rec.run.Fail(cause.Error())
	if err := rec.repo.Update(rec.run); err != nil {
		rec.runner.logger.Warn("failed to update run record", "error", err)
	}
}

// resolveScope turns the --folder/--all/--since flags into a listing scope.
func resolveScope(cmd *cli.Command) (services.ListScope, string, error) {
	folder := cmd.String("folder")
	all := cmd.Bool("all")

	if folder == "" && !all {
		return services.ListScope{}, "", fmt.Errorf("%w: either --folder or --all is required", shared.ErrMissingArgument)
	}
	if folder != "" && all {
		return services.ListScope{}, "", fmt.Errorf("%w: --folder and --all are mutually exclusive", shared.ErrInvalidArgument)
	}

	scope := services.ListScope{FolderID: folder, Recursive: true}
	label := "all"
	if folder != "" {
		label = "folder:" + folder
	}

	if sinceRaw := cmd.String("since"); sinceRaw != "" {
		since, err := parseSince(sinceRaw)
		if err != nil {
			return services.ListScope{}, "", err
		}
		scope.Since = since
	}

	return scope, label, nil
}

func parseSince(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse --since value %q", shared.ErrInvalidArgument, raw)
}

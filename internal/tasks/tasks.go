// Package tasks implements the transfer pipeline: enumerating source
// media, filtering against the dedup ledger and filename cache, a
// worker pool that downloads and stages files, and the commit batcher
// that finalizes them at the destination in groups.
package tasks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/windsync/internal/models"
	"github.com/desertthunder/windsync/internal/services"
)

// DedupMode selects which checks decide whether a file was already
// transferred, beyond the ledger's source-ID set which always applies.
type DedupMode int

const (
	// DedupNone relies on the ledger's ID set only.
	DedupNone DedupMode = iota
	// DedupByName also skips files whose name exists at the destination.
	DedupByName
	// DedupByHash also skips files whose content hash is in the ledger.
	// The file must be downloaded before the hash can be checked.
	DedupByHash
	// DedupByNameOrHash applies both checks, name first.
	DedupByNameOrHash
)

func (m DedupMode) String() string {
	switch m {
	case DedupNone:
		return "none"
	case DedupByName:
		return "name"
	case DedupByHash:
		return "hash"
	case DedupByNameOrHash:
		return "name+hash"
	default:
		return "unknown"
	}
}

func (m DedupMode) usesName() bool {
	return m == DedupByName || m == DedupByNameOrHash
}

func (m DedupMode) usesHash() bool {
	return m == DedupByHash || m == DedupByNameOrHash
}

// ParseDedupMode converts the CLI flag value into a DedupMode.
func ParseDedupMode(s string) (DedupMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return DedupNone, nil
	case "name", "filename":
		return DedupByName, nil
	case "hash":
		return DedupByHash, nil
	case "name+hash", "filename+hash", "both":
		return DedupByNameOrHash, nil
	default:
		return DedupNone, fmt.Errorf("unknown dedup mode %q (want none, name, hash or name+hash)", s)
	}
}

// EngineOpts tunes a transfer run. Zero values take the documented
// defaults.
type EngineOpts struct {
	Workers        int
	BatchSize      int
	FlushInterval  time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RateLimit      float64
	DedupMode      DedupMode
	Limit          int
	RefreshCache   bool
}

// SyncRunResult summarizes a completed (or cancelled) run. The counts
// reflect confirmed outcomes only: Succeeded moves when the destination
// acknowledges a commit, never when an upload finishes.
type SyncRunResult struct {
	Total     int
	Submitted int
	Claimed   int
	Succeeded int
	Failed    int
	Skipped   int
	Bytes     int64
	Failures  []ItemFailure
	Cancelled bool
	Elapsed   time.Duration
	LedgerIDs int
	LedgerErr error
}

// SyncPlan is what a dry run produces: the work the engine would do.
type SyncPlan struct {
	Pending   []models.MediaFile
	SkipNames []string
}

// SyncEngine runs transfers from a source to a destination.
type SyncEngine interface {
	Run(ctx context.Context, scope services.ListScope, progress chan<- ProgressUpdate) (*SyncRunResult, error)
	Plan(ctx context.Context, scope services.ListScope) (*SyncPlan, error)
	Cancel()
}

// TransferEngine is the concrete SyncEngine. Sources and destinations
// are created through factories so every worker gets its own instance
// with its own HTTP client.
type TransferEngine struct {
	newSource func() services.Source
	newDest   func() services.Destination
	ledger    *DedupLedger
	cache     *NameCache
	state     *RunState
	opts      EngineOpts
	logger    *log.Logger
}

// NewTransferEngine wires the engine. cache may be nil; without one
// the name checks of name-based dedup modes are skipped.
func NewTransferEngine(newSource func() services.Source, newDest func() services.Destination, ledger *DedupLedger, cache *NameCache, opts EngineOpts, logger *log.Logger) *TransferEngine {
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	return &TransferEngine{
		newSource: newSource,
		newDest:   newDest,
		ledger:    ledger,
		cache:     cache,
		state:     NewRunState(),
		opts:      opts,
		logger:    logger,
	}
}

// Cancel requests a graceful stop: workers finish their current item,
// stop claiming new ones, and everything already staged is committed
// and checkpointed. Safe to call from a signal handler goroutine.
func (e *TransferEngine) Cancel() {
	e.state.Cancel(func() {
		e.logger.Warn("Cancellation requested, finishing in-flight work...")
	})
}

// Plan enumerates and filters without transferring anything.
func (e *TransferEngine) Plan(ctx context.Context, scope services.ListScope) (*SyncPlan, error) {
	files, err := e.enumerate(ctx, scope)
	if err != nil {
		return nil, err
	}

	if e.opts.DedupMode.usesName() && e.cache != nil {
		if err := e.cache.EnsureLoaded(ctx, e.opts.RefreshCache); err != nil {
			return nil, err
		}
	}

	plan := &SyncPlan{}
	for _, f := range files {
		if e.ledger.ContainsID(f.ID) {
			plan.SkipNames = append(plan.SkipNames, f.Name)
			continue
		}
		if e.opts.DedupMode.usesName() && e.cache != nil && e.cache.Contains(f.Name) {
			plan.SkipNames = append(plan.SkipNames, f.Name)
			continue
		}
		plan.Pending = append(plan.Pending, f)
		if e.opts.Limit > 0 && len(plan.Pending) >= e.opts.Limit {
			break
		}
	}
	return plan, nil
}

// Run executes a full transfer. progress may be nil; when set, updates
// are sent non-blocking so a slow consumer never stalls the pipeline.
func (e *TransferEngine) Run(ctx context.Context, scope services.ListScope, progress chan<- ProgressUpdate) (*SyncRunResult, error) {
	start := time.Now()

	sendProgress(progress, scanSourceUpdate(e.newSource().Name()))
	files, err := e.enumerate(ctx, scope)
	if err != nil {
		return nil, err
	}

	pending := make([]models.MediaFile, 0, len(files))
	for _, f := range files {
		if e.ledger.ContainsID(f.ID) {
			e.state.RecordSkip()
			continue
		}
		pending = append(pending, f)
		if e.opts.Limit > 0 && len(pending) >= e.opts.Limit {
			break
		}
	}
	sendProgress(progress, filterPendingUpdate(len(pending), len(files)))

	if e.opts.DedupMode.usesName() && e.cache != nil {
		if err := e.cache.EnsureLoaded(ctx, e.opts.RefreshCache); err != nil {
			return nil, err
		}
		sendProgress(progress, loadCacheUpdate(e.cache.Len()))
	}

	dest := e.newDest()
	batcher := NewCommitBatcher(ctx, dest.CommitBatch,
		func(item models.PendingCommit) {
			e.ledger.Record(item.SourceID, item.ContentHash)
			if e.cache != nil {
				e.cache.Add(item.Name)
			}
			e.state.RecordSuccess(item.Size)
			sendProgress(progress, commitItemUpdate(item.Name, item.Size))
		},
		func(item models.PendingCommit, cause string) {
			e.state.RecordFailure(item.Name, cause)
			sendProgress(progress, failItemUpdate(item.Name, cause))
		},
		BatcherOpts{
			BatchSize:      e.opts.BatchSize,
			FlushInterval:  e.opts.FlushInterval,
			RetryAttempts:  e.opts.RetryAttempts,
			RetryBaseDelay: e.opts.RetryBaseDelay,
		}, e.logger)

	limiter := rate.NewLimiter(rate.Limit(e.opts.RateLimit), 1)
	jobs := make(chan models.MediaFile)
	var wg sync.WaitGroup
	var claimed int
	var claimedMu sync.Mutex

	for i := 0; i < e.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			source := e.newSource()
			workerDest := e.newDest()
			for file := range jobs {
				if e.state.Cancelled() {
					continue
				}
				claimedMu.Lock()
				claimed++
				n := claimed
				claimedMu.Unlock()
				sendProgress(progress, transferItemUpdate(n, len(pending), file))
				e.processItem(ctx, file, source, workerDest, limiter, batcher, progress, n, len(pending))
			}
		}()
	}

	for _, f := range pending {
		jobs <- f
	}
	close(jobs)
	wg.Wait()

	sendProgress(progress, drainUpdate(batcher.Pending()))
	batcher.Drain()

	ledgerErr := e.ledger.Checkpoint()
	if e.cache != nil {
		if err := e.cache.Save(); err != nil {
			e.logger.Warn("Failed to save filename cache", "error", err)
		}
	}

	totals := e.state.Snapshot()
	ids, _ := e.ledger.Count()
	claimedMu.Lock()
	finalClaimed := claimed
	claimedMu.Unlock()

	return &SyncRunResult{
		Total:     len(files),
		Submitted: len(pending),
		Claimed:   finalClaimed,
		Succeeded: totals.Succeeded,
		Failed:    totals.Failed,
		Skipped:   totals.Skipped,
		Bytes:     totals.Bytes,
		Failures:  totals.Failures,
		Cancelled: e.state.Cancelled(),
		Elapsed:   time.Since(start),
		LedgerIDs: ids,
		LedgerErr: ledgerErr,
	}, nil
}

func (e *TransferEngine) enumerate(ctx context.Context, scope services.ListScope) ([]models.MediaFile, error) {
	source := e.newSource()
	var files []models.MediaFile
	err := services.Do(ctx, e.opts.RetryAttempts, e.opts.RetryBaseDelay, func() error {
		var listErr error
		files, listErr = source.ListMedia(ctx, scope)
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s media: %w", source.Name(), err)
	}

	// The listing may surface the same file twice (shared folders,
	// shortcuts). Keep the first occurrence, preserving order.
	seen := make(map[string]struct{}, len(files))
	unique := files[:0]
	for _, f := range files {
		if _, dup := seen[f.ID]; dup {
			continue
		}
		seen[f.ID] = struct{}{}
		unique = append(unique, f)
	}
	return unique, nil
}

// processItem moves one file through the pipeline: name check,
// download, hash check, upload, enqueue for commit. Every path ends in
// exactly one of skip, failure, or a batcher enqueue.
func (e *TransferEngine) processItem(ctx context.Context, file models.MediaFile, source services.Source, dest services.Destination, limiter *rate.Limiter, batcher *CommitBatcher, progress chan<- ProgressUpdate, step, total int) {
	mode := e.opts.DedupMode

	if mode.usesName() && e.cache != nil && e.cache.Contains(file.Name) {
		e.state.RecordSkip()
		sendProgress(progress, skipItemUpdate(step, total, file.Name, "name exists"))
		return
	}

	if err := limiter.Wait(ctx); err != nil {
		e.state.RecordFailure(file.Name, err.Error())
		return
	}

	var data []byte
	err := services.Do(ctx, e.opts.RetryAttempts, e.opts.RetryBaseDelay, func() error {
		var downloadErr error
		data, downloadErr = source.Download(ctx, file)
		return downloadErr
	})
	if err != nil {
		e.state.RecordFailure(file.Name, fmt.Sprintf("download: %v", err))
		sendProgress(progress, failItemUpdate(file.Name, err.Error()))
		return
	}

	var contentHash string
	if mode.usesHash() {
		sum := sha256.Sum256(data)
		contentHash = hex.EncodeToString(sum[:])
		if e.ledger.ContainsHash(contentHash) {
			e.state.RecordSkip()
			sendProgress(progress, skipItemUpdate(step, total, file.Name, "hash exists"))
			return
		}
	}

	var token string
	err = services.Do(ctx, e.opts.RetryAttempts, e.opts.RetryBaseDelay, func() error {
		var uploadErr error
		token, uploadErr = dest.UploadBytes(ctx, data, file.Name)
		return uploadErr
	})
	if err != nil {
		e.state.RecordFailure(file.Name, fmt.Sprintf("upload: %v", err))
		sendProgress(progress, failItemUpdate(file.Name, err.Error()))
		return
	}

	batcher.Enqueue(models.PendingCommit{
		UploadToken: token,
		Name:        file.Name,
		Description: describeFile(file),
		SourceID:    file.ID,
		ContentHash: contentHash,
		Size:        int64(len(data)),
	})
}

// describeFile builds the description attached to each committed item
// so provenance survives at the destination.
func describeFile(f models.MediaFile) string {
	return fmt.Sprintf("Source ID: %s | Created: %s | Modified: %s",
		f.ID, f.CreatedTime.Format(time.RFC3339), f.ModifiedTime.Format(time.RFC3339))
}

// sendProgress delivers an update without blocking. The pipeline never
// waits on a slow or absent consumer.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

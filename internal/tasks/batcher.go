package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/windsync/internal/models"
	"github.com/desertthunder/windsync/internal/services"
)

// CommitFunc finalizes a batch of staged items at the destination and
// returns one outcome per item, positionally.
type CommitFunc func(ctx context.Context, items []models.PendingCommit) ([]models.CommitOutcome, error)

// BatcherOpts tunes the commit batcher. Zero values fall back to the
// service defaults.
type BatcherOpts struct {
	BatchSize      int
	FlushInterval  time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// CommitBatcher accumulates staged uploads and commits them in groups.
//
// A flush happens on either trigger: the buffer reaching BatchSize, or
// FlushInterval elapsing with items still waiting. All commits run on
// a single background goroutine, so the destination never sees two
// concurrent commit calls from one run, and Enqueue stays cheap for
// the workers.
type CommitBatcher struct {
	mu     sync.Mutex
	buffer []models.PendingCommit

	batchSize     int
	flushInterval time.Duration

	commit    CommitFunc
	onSuccess func(models.PendingCommit)
	onFailure func(models.PendingCommit, string)

	retryAttempts  int
	retryBaseDelay time.Duration

	flushc chan struct{}
	quit   chan struct{}
	done   chan struct{}
	logger *log.Logger
}

// NewCommitBatcher starts the flush goroutine immediately. onSuccess
// and onFailure receive each item's terminal outcome exactly once.
// ctx bounds the commit calls; the caller must Drain before discarding
// the batcher or buffered items are lost.
func NewCommitBatcher(ctx context.Context, commit CommitFunc, onSuccess func(models.PendingCommit), onFailure func(models.PendingCommit, string), opts BatcherOpts, logger *log.Logger) *CommitBatcher {
	if opts.BatchSize <= 0 || opts.BatchSize > services.MaxCommitBatch {
		opts.BatchSize = services.MaxCommitBatch
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 3 * time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = services.DefaultRetryAttempts
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = services.DefaultRetryBaseDelay
	}

	b := &CommitBatcher{
		batchSize:      opts.BatchSize,
		flushInterval:  opts.FlushInterval,
		commit:         commit,
		onSuccess:      onSuccess,
		onFailure:      onFailure,
		retryAttempts:  opts.RetryAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		flushc:         make(chan struct{}, 1),
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
		logger:         logger,
	}
	go b.loop(ctx)
	return b
}

// Enqueue adds a staged item to the buffer. When the buffer reaches a
// full batch the flush goroutine is woken immediately.
func (b *CommitBatcher) Enqueue(item models.PendingCommit) {
	b.mu.Lock()
	b.buffer = append(b.buffer, item)
	full := len(b.buffer) >= b.batchSize
	b.mu.Unlock()

	if full {
		select {
		case b.flushc <- struct{}{}:
		default:
		}
	}
}

// Pending returns the number of items waiting to be committed.
func (b *CommitBatcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}

// Drain flushes everything still buffered and stops the flush
// goroutine. It blocks until every enqueued item has a terminal
// outcome. Drain runs even after cancellation; staged uploads are
// always committed rather than abandoned.
func (b *CommitBatcher) Drain() {
	close(b.quit)
	<-b.done
}

func (b *CommitBatcher) loop(ctx context.Context) {
	defer close(b.done)
	timer := time.NewTimer(b.flushInterval)
	defer timer.Stop()

	for {
		select {
		case <-b.quit:
			b.flush(ctx, true)
			return
		case <-b.flushc:
			b.flush(ctx, false)
		case <-timer.C:
			b.flush(ctx, true)
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(b.flushInterval)
	}
}

// flush commits batches from the buffer. Full batches always go; a
// trailing partial batch goes only when partial is set (inactivity
// timer or drain), never on a buffer-full wakeup.
func (b *CommitBatcher) flush(ctx context.Context, partial bool) {
	for {
		batch := b.pop(partial)
		if len(batch) == 0 {
			return
		}
		b.commitBatch(ctx, batch)
		if len(batch) < b.batchSize {
			return
		}
	}
}

func (b *CommitBatcher) pop(partial bool) []models.PendingCommit {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.buffer)
	if n == 0 || (n < b.batchSize && !partial) {
		return nil
	}
	take := b.batchSize
	if n < take {
		take = n
	}
	batch := make([]models.PendingCommit, take)
	copy(batch, b.buffer[:take])
	b.buffer = append(b.buffer[:0], b.buffer[take:]...)
	return batch
}

func (b *CommitBatcher) commitBatch(ctx context.Context, batch []models.PendingCommit) {
	var outcomes []models.CommitOutcome
	err := services.Do(ctx, b.retryAttempts, b.retryBaseDelay, func() error {
		var commitErr error
		outcomes, commitErr = b.commit(ctx, batch)
		return commitErr
	})
	if err != nil {
		// Retries exhausted or fatal: the whole batch fails together.
		b.logger.Error("Batch commit failed", "items", len(batch), "error", err)
		for _, item := range batch {
			b.onFailure(item, err.Error())
		}
		return
	}

	for i, item := range batch {
		if i >= len(outcomes) {
			b.onFailure(item, "no commit outcome returned")
			continue
		}
		if outcomes[i].OK {
			b.onSuccess(item)
		} else {
			b.onFailure(item, outcomes[i].Message)
		}
	}
}

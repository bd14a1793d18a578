package tasks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/windsync/internal/shared"
)

// DedupLedger is the durable record of completed transfers.
//
// It tracks two sets, source file IDs and content hashes, behind one
// mutex so the pair can never be observed half-updated. Every saveEvery
// confirmed records the ledger checkpoints itself to disk; each
// checkpoint is an atomic temp-file-then-rename write, so a crash
// leaves either the old snapshot or the new one, never a torn file.
type DedupLedger struct {
	mu         sync.Mutex
	ids        map[string]struct{}
	hashes     map[string]struct{}
	idsPath    string
	hashesPath string
	saveEvery  int
	unsaved    int
	logger     *log.Logger
}

// NewDedupLedger loads both set files if they exist. Missing files mean
// a first run and start the ledger empty.
func NewDedupLedger(idsPath, hashesPath string, saveEvery int, logger *log.Logger) (*DedupLedger, error) {
	if saveEvery <= 0 {
		saveEvery = 25
	}
	l := &DedupLedger{
		ids:        make(map[string]struct{}),
		hashes:     make(map[string]struct{}),
		idsPath:    idsPath,
		hashesPath: hashesPath,
		saveEvery:  saveEvery,
		logger:     logger,
	}

	var ids, hashes []string
	if _, err := shared.ReadJSON(idsPath, &ids); err != nil {
		return nil, fmt.Errorf("loading ledger ids: %w", err)
	}
	if _, err := shared.ReadJSON(hashesPath, &hashes); err != nil {
		return nil, fmt.Errorf("loading ledger hashes: %w", err)
	}
	for _, id := range ids {
		l.ids[id] = struct{}{}
	}
	for _, h := range hashes {
		l.hashes[h] = struct{}{}
	}

	if len(l.ids) > 0 || len(l.hashes) > 0 {
		logger.Info("Loaded dedup ledger", "ids", len(l.ids), "hashes", len(l.hashes))
	}
	return l, nil
}

func (l *DedupLedger) ContainsID(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok
}

func (l *DedupLedger) ContainsHash(hash string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.hashes[hash]
	return ok
}

// Record marks a transfer as confirmed. An empty hash is allowed and
// only the ID set is updated. Re-recording a known ID is a no-op and
// does not advance the checkpoint counter.
func (l *DedupLedger) Record(id, hash string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, seen := l.ids[id]; seen {
		return
	}
	l.ids[id] = struct{}{}
	if hash != "" {
		l.hashes[hash] = struct{}{}
	}

	l.unsaved++
	if l.unsaved >= l.saveEvery {
		if err := l.checkpointLocked(); err != nil {
			// Records stay in memory and the counter stays high, so the
			// very next Record retries the write.
			l.logger.Warn("Ledger checkpoint failed, will retry", "error", err)
		}
	}
}

// Count returns the number of recorded IDs and hashes.
func (l *DedupLedger) Count() (ids, hashes int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids), len(l.hashes)
}

// Checkpoint forces both sets to disk regardless of the interval
// counter. Call it after draining so the final records survive.
func (l *DedupLedger) Checkpoint() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkpointLocked()
}

func (l *DedupLedger) checkpointLocked() error {
	ids := make([]string, 0, len(l.ids))
	for id := range l.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	hashes := make([]string, 0, len(l.hashes))
	for h := range l.hashes {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	if err := shared.WriteJSONAtomic(l.idsPath, ids); err != nil {
		return fmt.Errorf("writing ledger ids: %w", err)
	}
	if err := shared.WriteJSONAtomic(l.hashesPath, hashes); err != nil {
		return fmt.Errorf("writing ledger hashes: %w", err)
	}
	l.unsaved = 0
	return nil
}

package tasks

import (
	"fmt"

	"github.com/desertthunder/windsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced consumers
}

// Operation phase enumeration
type Phase int

const (
	ScanSource Phase = iota
	FilterPending
	LoadCache
	TransferItem
	SkipItem
	CommitItem
	FailItem
	FlushBatch
	Drain
)

func (p Phase) String() string {
	switch p {
	case ScanSource:
		return "scan_source"
	case FilterPending:
		return "filter_pending"
	case LoadCache:
		return "load_cache"
	case TransferItem:
		return "transfer_item"
	case SkipItem:
		return "skip_item"
	case CommitItem:
		return "commit_item"
	case FailItem:
		return "fail_item"
	case FlushBatch:
		return "flush_batch"
	case Drain:
		return "drain"
	default:
		return "unknown"
	}
}

func scanSourceUpdate(source string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Scanning %s for media files...", source),
	}
}

func filterPendingUpdate(pending, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FilterPending,
		Step:    pending,
		Total:   total,
		Message: fmt.Sprintf("%d of %d files pending (rest already transferred)", pending, total),
	}
}

func loadCacheUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadCache,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Destination filename cache ready (%d names)", count),
	}
}

func transferItemUpdate(step, total int, file models.MediaFile) ProgressUpdate {
	return ProgressUpdate{
		Phase:   TransferItem,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Transferring %s", file.Name),
		Data:    file,
	}
}

func skipItemUpdate(step, total int, name, reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SkipItem,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("SKIP (%s) %s", reason, name),
	}
}

func commitItemUpdate(name string, size int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CommitItem,
		Message: fmt.Sprintf("OK %s", name),
		Data:    size,
	}
}

func failItemUpdate(name, cause string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FailItem,
		Message: fmt.Sprintf("FAIL %s: %s", name, cause),
	}
}

func drainUpdate(remaining int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Drain,
		Message: fmt.Sprintf("Flushing %d pending commit(s)...", remaining),
	}
}

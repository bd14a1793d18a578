// package services defines interfaces Source & Destination for cloud media providers
//
// Google Drive (source), Google Photos (destination)
package services

import (
	"context"
	"time"

	"github.com/desertthunder/windsync/internal/models"
)

// ListScope restricts a source enumeration.
type ListScope struct {
	FolderID  string    // Restrict to this folder; empty means the entire source
	Since     time.Time // Only files modified after this instant; zero means no filter
	Recursive bool      // Descend into subfolders when FolderID is set
}

// Source defines the interface for services media files are transferred from.
type Source interface {
	// ListMedia enumerates all supported media files within scope.
	// The returned slice is finite and produced in one pass.
	ListMedia(ctx context.Context, scope ListScope) ([]models.MediaFile, error)

	// Download fetches a file's content into memory.
	Download(ctx context.Context, file models.MediaFile) ([]byte, error)

	// Name returns the service name (e.g., "Google Drive")
	Name() string
}

// Destination defines the interface for services media files are transferred to.
type Destination interface {
	// UploadBytes uploads raw content and returns an upload token to be
	// committed later via CommitBatch.
	UploadBytes(ctx context.Context, data []byte, name string) (string, error)

	// CommitBatch commits up to [MaxCommitBatch] previously uploaded items in
	// one call. Outcomes are returned in request order.
	CommitBatch(ctx context.Context, items []models.PendingCommit) ([]models.CommitOutcome, error)

	// ListAllNames scans the entire destination library and returns every
	// filename present. Expensive; callers cache the result.
	ListAllNames(ctx context.Context) ([]string, error)

	// Name returns the service name (e.g., "Google Photos")
	Name() string
}

// MaxCommitBatch is the most items the destination accepts per commit call.
const MaxCommitBatch = 50

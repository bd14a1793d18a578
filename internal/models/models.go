// package models defines the data model for the media sync service
package models

import (
	"time"
)

// Model defines the base interface for all persistent models in the media sync service.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// MediaFile represents one transferable media file enumerated at the source.
//
// Immutable once produced; consumed by exactly one transfer worker.
type MediaFile struct {
	ID           string    // Opaque source file ID, stable across runs
	Name         string    // Filename at the source
	MimeType     string    // Media MIME type
	Size         int64     // Size in bytes
	CreatedTime  time.Time // Source creation timestamp, zero if unknown
	ModifiedTime time.Time // Source modification timestamp, zero if unknown
}

// PendingCommit is an uploaded-but-not-yet-committed file awaiting group commit.
//
// Created by a transfer worker after a successful byte upload and handed to the
// commit batcher, which resolves it into a [CommitOutcome].
type PendingCommit struct {
	UploadToken string // Destination upload handle from the byte upload
	Name        string // Display filename at the destination
	Description string // Original source metadata carried into the destination
	SourceID    string // Source file ID, recorded in the ledger on success
	ContentHash string // SHA-256 of the content, empty unless hash dedup ran
	Size        int64  // Size in bytes
}

// CommitOutcome is the per-item result of a group commit call, in request order.
type CommitOutcome struct {
	Name    string // Filename submitted with the commit
	OK      bool   // Whether the destination accepted the item
	Message string // Short destination status message on failure
}

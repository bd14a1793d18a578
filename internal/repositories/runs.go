package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/windsync/internal/models"
	"github.com/desertthunder/windsync/internal/shared"
)

// SyncRunRepository implements models.Repository[*models.SyncRun] for run history.
//
// Handles run CRUD operations with soft delete support and status-based lookups.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a new run into the database with generated ID and sequence
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_runs (id, sequence, source_scope, dedup_mode, workers, status, items_total, items_succeeded, items_failed, items_skipped, bytes_transferred, error_message, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.SourceScope(),
		run.DedupMode(),
		run.Workers(),
		run.Status(),
		run.ItemsTotal(),
		run.ItemsSucceeded(),
		run.ItemsFailed(),
		run.ItemsSkipped(),
		run.BytesTransferred(),
		run.ErrorMessage(),
		nullableTime(run.StartedAt()),
		nullableTime(run.CompletedAt()),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	query := `
		SELECT id, sequence, source_scope, dedup_mode, workers, status, items_total, items_succeeded, items_failed, items_skipped, bytes_transferred, error_message, started_at, completed_at, created_at, updated_at, deleted_at
		FROM sync_runs
		WHERE id = ? AND deleted_at IS NULL
	`

	row := r.db.QueryRow(query, id)
	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sync run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}
	return run, nil
}

// Update modifies an existing run in the database
func (r *SyncRunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE sync_runs
		SET status = ?, items_total = ?, items_succeeded = ?, items_failed = ?, items_skipped = ?, bytes_transferred = ?, error_message = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		run.Status(),
		run.ItemsTotal(),
		run.ItemsSucceeded(),
		run.ItemsFailed(),
		run.ItemsSkipped(),
		run.BytesTransferred(),
		run.ErrorMessage(),
		nullableTime(run.StartedAt()),
		nullableTime(run.CompletedAt()),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sync run not found or already deleted: %s", run.ID())
	}

	return nil
}

// Delete soft-deletes a run by ID
func (r *SyncRunRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE sync_runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sync run not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves runs matching the given criteria, excluding soft-deleted runs.
// Supported criteria: "status" (string), "limit" (int). Newest runs come first.
func (r *SyncRunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `
		SELECT id, sequence, source_scope, dedup_mode, workers, status, items_total, items_succeeded, items_failed, items_skipped, bytes_transferred, error_message, started_at, completed_at, created_at, updated_at, deleted_at
		FROM sync_runs
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// scanRun hydrates a [models.SyncRun] from a row's Scan function.
func scanRun(scan func(dest ...any) error) (*models.SyncRun, error) {
	var (
		id               string
		sequence         int
		sourceScope      string
		dedupMode        string
		workers          int
		status           string
		itemsTotal       int
		itemsSucceeded   int
		itemsFailed      int
		itemsSkipped     int
		bytesTransferred int64
		errorMessage     string
		startedAt        sql.NullTime
		completedAt      sql.NullTime
		createdAt        time.Time
		updatedAt        time.Time
		deletedAt        sql.NullTime
	)

	err := scan(&id, &sequence, &sourceScope, &dedupMode, &workers, &status,
		&itemsTotal, &itemsSucceeded, &itemsFailed, &itemsSkipped, &bytesTransferred,
		&errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	run := &models.SyncRun{}
	run.Hydrate(id, sequence, sourceScope, dedupMode, workers, status,
		itemsTotal, itemsSucceeded, itemsFailed, itemsSkipped, bytesTransferred,
		errorMessage, startedAt.Time, completedAt.Time, createdAt, updatedAt, deleted)
	return run, nil
}

// nullableTime maps the zero time to NULL so unstarted runs round-trip cleanly.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

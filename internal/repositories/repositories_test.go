package repositories

import (
	"database/sql"
	"testing"

	"github.com/desertthunder/windsync/internal/models"
	"github.com/desertthunder/windsync/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	first, err := NextSequence(db, "sync_runs")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}
	second, err := NextSequence(db, "sync_runs")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}

	if second != first+1 {
		t.Errorf("sequence did not increment: got %d then %d", first, second)
	}
}

func TestSyncRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run := models.NewSyncRun("folder:abc123", "name", 10)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}
		if run.Sequence() == 0 {
			t.Error("run sequence should be set after creation")
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run := models.NewSyncRun("all", "hash", 4)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.SourceScope() != "all" || got.DedupMode() != "hash" || got.Workers() != 4 {
			t.Errorf("retrieved run does not match: %s/%s/%d", got.SourceScope(), got.DedupMode(), got.Workers())
		}
		if got.Status() != models.RunStatusQueued {
			t.Errorf("status = %s, want %s", got.Status(), models.RunStatusQueued)
		}
		if !got.StartedAt().IsZero() {
			t.Error("unstarted run should have a zero StartedAt")
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		if _, err := repo.Get("nonexistent"); err == nil {
			t.Error("expected error for missing run")
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run := models.NewSyncRun("folder:xyz", "none", 8)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.Start(120)
		run.Complete(100, 5, 15, 1024*1024, false)
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status() != models.RunStatusCompleted {
			t.Errorf("status = %s, want %s", got.Status(), models.RunStatusCompleted)
		}
		if got.ItemsTotal() != 120 || got.ItemsSucceeded() != 100 || got.ItemsFailed() != 5 || got.ItemsSkipped() != 15 {
			t.Errorf("counters = %d/%d/%d/%d", got.ItemsTotal(), got.ItemsSucceeded(), got.ItemsFailed(), got.ItemsSkipped())
		}
		if got.BytesTransferred() != 1024*1024 {
			t.Errorf("bytes = %d, want %d", got.BytesTransferred(), 1024*1024)
		}
		if got.StartedAt().IsZero() || got.CompletedAt().IsZero() {
			t.Error("started and completed timestamps should round-trip")
		}
	})

	t.Run("UpdateCancelled", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run := models.NewSyncRun("all", "name", 10)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.Start(50)
		run.Complete(10, 0, 2, 500, true)
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status() != models.RunStatusCancelled {
			t.Errorf("status = %s, want %s", got.Status(), models.RunStatusCancelled)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run := models.NewSyncRun("all", "none", 2)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if _, err := repo.Get(run.ID()); err == nil {
			t.Error("soft-deleted run should not be retrievable")
		}
		if err := repo.Delete(run.ID()); err == nil {
			t.Error("second delete should fail")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		for i := 0; i < 3; i++ {
			run := models.NewSyncRun("all", "name", 10)
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
			if i == 2 {
				run.Start(10)
				run.Complete(10, 0, 0, 100, false)
				if err := repo.Update(run); err != nil {
					t.Fatalf("failed to update run: %v", err)
				}
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("listed %d runs, want 3", len(all))
		}
		if all[0].Sequence() < all[1].Sequence() {
			t.Error("runs should be listed newest first")
		}

		completed, err := repo.List(map[string]any{"status": models.RunStatusCompleted})
		if err != nil {
			t.Fatalf("failed to list completed runs: %v", err)
		}
		if len(completed) != 1 {
			t.Errorf("listed %d completed runs, want 1", len(completed))
		}

		limited, err := repo.List(map[string]any{"limit": 2})
		if err != nil {
			t.Fatalf("failed to list limited runs: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("listed %d runs with limit 2, want 2", len(limited))
		}
	})
}

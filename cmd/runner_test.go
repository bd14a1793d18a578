package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/windsync/internal/models"
	"github.com/desertthunder/windsync/internal/services"
	"github.com/desertthunder/windsync/internal/shared"
	tu "github.com/desertthunder/windsync/internal/testing"
)

func TestNewRunner(t *testing.T) {
	t.Run("with all dependencies provided", func(t *testing.T) {
		config := shared.DefaultConfig()
		logger := shared.NewLogger(nil)
		output := &bytes.Buffer{}
		source := &tu.MockSource{}
		dest := &tu.MockDestination{}

		runner := NewRunner(RunnerOpts{
			Config:      config,
			Logger:      logger,
			Output:      output,
			Source:      source,
			Destination: dest,
		})

		if runner.config != config {
			t.Error("expected config to be set")
		}
		if runner.logger != logger {
			t.Error("expected logger to be set")
		}
		if runner.output != output {
			t.Error("expected output to be set")
		}
		if runner.source != source {
			t.Error("expected source to be set")
		}
		if runner.dest != dest {
			t.Error("expected dest to be set")
		}
	})

	t.Run("with nil config uses defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.config == nil {
			t.Error("expected default config to be set")
		}
	})

	t.Run("with nil output uses stdout", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.output != os.Stdout {
			t.Error("expected output to default to os.Stdout")
		}
	})
}

// newTestRunner builds a Runner wired to mocks with every data file
// pointed into a temp directory.
func newTestRunner(t *testing.T, source *tu.MockSource, dest *tu.MockDestination) (*Runner, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.Sync.LedgerIDsPath = filepath.Join(dir, "ids.json")
	config.Sync.LedgerHashesPath = filepath.Join(dir, "hashes.json")
	config.Sync.RetryBaseDelay = 0.001
	config.Sync.FlushInterval = 0.02
	config.Cache.Path = filepath.Join(dir, "cache.json")
	config.Database.Path = filepath.Join(dir, "windsync.db")

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:      config,
		Logger:      shared.NewLogger(io.Discard),
		Output:      output,
		Source:      source,
		Destination: dest,
	})
	return runner, output
}

func runCommand(t *testing.T, runner *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:     "windsync",
		Commands: runner.register(),
	}
	return app.Run(context.Background(), append([]string{"windsync"}, args...))
}

func sourceWithFiles(names ...string) *tu.MockSource {
	files := make([]models.MediaFile, len(names))
	for i, name := range names {
		files[i] = models.MediaFile{ID: "id-" + name, Name: name, Size: 5}
	}
	return &tu.MockSource{
		ListMediaFunc: func(ctx context.Context, scope services.ListScope) ([]models.MediaFile, error) {
			return files, nil
		},
	}
}

func TestSyncRunCommand(t *testing.T) {
	t.Run("requires a scope flag", func(t *testing.T) {
		runner, _ := newTestRunner(t, sourceWithFiles(), &tu.MockDestination{})
		if err := runCommand(t, runner, "sync", "run"); err == nil {
			t.Error("expected an error without --folder or --all")
		}
	})

	t.Run("rejects conflicting scope flags", func(t *testing.T) {
		runner, _ := newTestRunner(t, sourceWithFiles(), &tu.MockDestination{})
		if err := runCommand(t, runner, "sync", "run", "--all", "--folder", "abc"); err == nil {
			t.Error("expected an error with both --folder and --all")
		}
	})

	t.Run("rejects unknown dedup mode", func(t *testing.T) {
		runner, _ := newTestRunner(t, sourceWithFiles(), &tu.MockDestination{})
		if err := runCommand(t, runner, "sync", "run", "--all", "--dedup-mode", "bogus"); err == nil {
			t.Error("expected an error for an unknown dedup mode")
		}
	})

	t.Run("transfers and reports", func(t *testing.T) {
		dest := &tu.MockDestination{}
		runner, output := newTestRunner(t, sourceWithFiles("a.jpg", "b.jpg", "c.jpg"), dest)

		if err := runCommand(t, runner, "sync", "run", "--all", "--dedup-mode", "none"); err != nil {
			t.Fatalf("sync run failed: %v", err)
		}

		if got := len(dest.CommittedItems()); got != 3 {
			t.Errorf("committed %d items, want 3", got)
		}
		if !strings.Contains(output.String(), "Succeeded:   3") {
			t.Errorf("report missing success count:\n%s", output.String())
		}
		tu.AssertFileExists(t, runner.config.Sync.LedgerIDsPath)
	})

	t.Run("second run skips everything", func(t *testing.T) {
		dest := &tu.MockDestination{}
		runner, output := newTestRunner(t, sourceWithFiles("a.jpg", "b.jpg"), dest)

		if err := runCommand(t, runner, "sync", "run", "--all", "--dedup-mode", "none"); err != nil {
			t.Fatalf("first sync failed: %v", err)
		}
		output.Reset()
		if err := runCommand(t, runner, "sync", "run", "--all", "--dedup-mode", "none"); err != nil {
			t.Fatalf("second sync failed: %v", err)
		}

		if got := len(dest.CommittedItems()); got != 2 {
			t.Errorf("committed %d items total, want 2 (second run is a no-op)", got)
		}
		if !strings.Contains(output.String(), "Skipped:     2") {
			t.Errorf("second run should skip both files:\n%s", output.String())
		}
	})

	t.Run("dry run touches nothing", func(t *testing.T) {
		dest := &tu.MockDestination{}
		runner, output := newTestRunner(t, sourceWithFiles("a.jpg"), dest)

		if err := runCommand(t, runner, "sync", "run", "--all", "--dry-run"); err != nil {
			t.Fatalf("dry run failed: %v", err)
		}

		if dest.CommitCount() != 0 || len(dest.Uploads) != 0 {
			t.Error("dry run must not upload or commit")
		}
		if !strings.Contains(output.String(), "a.jpg") {
			t.Errorf("dry run should list pending files:\n%s", output.String())
		}
	})

	t.Run("json report", func(t *testing.T) {
		runner, output := newTestRunner(t, sourceWithFiles("a.jpg"), &tu.MockDestination{})

		if err := runCommand(t, runner, "sync", "run", "--all", "--json"); err != nil {
			t.Fatalf("sync run failed: %v", err)
		}
		if !strings.Contains(output.String(), `"succeeded": 1`) {
			t.Errorf("expected JSON report:\n%s", output.String())
		}
	})

	t.Run("records history", func(t *testing.T) {
		runner, output := newTestRunner(t, sourceWithFiles("a.jpg"), &tu.MockDestination{})

		if err := runCommand(t, runner, "sync", "run", "--all"); err != nil {
			t.Fatalf("sync run failed: %v", err)
		}
		output.Reset()
		if err := runCommand(t, runner, "history", "list"); err != nil {
			t.Fatalf("history list failed: %v", err)
		}

		if !strings.Contains(output.String(), "completed") {
			t.Errorf("history should show the completed run:\n%s", output.String())
		}
		if !strings.Contains(output.String(), "all") {
			t.Errorf("history should show the run scope:\n%s", output.String())
		}
	})
}

func TestRunnerOutput(t *testing.T) {
	t.Run("writeJSON rejects non-serializable data", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

		err := runner.writeJSON(make(chan int), false)
		if err == nil {
			t.Fatal("expected error for non-serializable data")
		}
		if !strings.Contains(err.Error(), "failed to marshal JSON") {
			t.Errorf("expected marshal error, got %v", err)
		}
	})

	t.Run("writeJSON handles write failure", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

		err := runner.writeJSON(map[string]string{"key": "value"}, false)
		if err == nil {
			t.Fatal("expected error from failing writer")
		}
		if !strings.Contains(err.Error(), "failed to write output") {
			t.Errorf("expected write error, got %v", err)
		}
	})

	t.Run("writePlain handles write failure", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

		if err := runner.writePlain("hello %s\n", "world"); err == nil {
			t.Fatal("expected error from failing writer")
		}
	})
}

func TestHistoryListCommand(t *testing.T) {
	t.Run("empty history", func(t *testing.T) {
		runner, output := newTestRunner(t, sourceWithFiles(), &tu.MockDestination{})
		if err := runCommand(t, runner, "history", "list"); err != nil {
			t.Fatalf("history list failed: %v", err)
		}
		if !strings.Contains(output.String(), "No sync runs") {
			t.Errorf("expected empty-history message:\n%s", output.String())
		}
	})

	t.Run("csv output", func(t *testing.T) {
		runner, output := newTestRunner(t, sourceWithFiles("a.jpg"), &tu.MockDestination{})
		if err := runCommand(t, runner, "sync", "run", "--all"); err != nil {
			t.Fatalf("sync run failed: %v", err)
		}
		output.Reset()
		if err := runCommand(t, runner, "history", "list", "--csv"); err != nil {
			t.Fatalf("history list failed: %v", err)
		}
		if !strings.HasPrefix(output.String(), "Sequence,") {
			t.Errorf("expected CSV header:\n%s", output.String())
		}
	})
}

func TestCacheCommands(t *testing.T) {
	t.Run("refresh builds from destination", func(t *testing.T) {
		dest := &tu.MockDestination{Names: []string{"x.jpg", "y.jpg"}}
		runner, output := newTestRunner(t, sourceWithFiles(), dest)

		if err := runCommand(t, runner, "cache", "refresh"); err != nil {
			t.Fatalf("cache refresh failed: %v", err)
		}
		if !strings.Contains(output.String(), "2 names") {
			t.Errorf("expected rebuilt cache size:\n%s", output.String())
		}
		tu.AssertFileExists(t, runner.config.Cache.Path)
	})

	t.Run("show reads snapshot without scanning", func(t *testing.T) {
		dest := &tu.MockDestination{Names: []string{"x.jpg"}}
		runner, output := newTestRunner(t, sourceWithFiles(), dest)
		if err := runCommand(t, runner, "cache", "refresh"); err != nil {
			t.Fatalf("cache refresh failed: %v", err)
		}
		output.Reset()

		if err := runCommand(t, runner, "cache", "show", "--names"); err != nil {
			t.Fatalf("cache show failed: %v", err)
		}
		if !strings.Contains(output.String(), "x.jpg") {
			t.Errorf("expected cached name in output:\n%s", output.String())
		}
	})

	t.Run("show with empty cache", func(t *testing.T) {
		runner, output := newTestRunner(t, sourceWithFiles(), &tu.MockDestination{})
		if err := runCommand(t, runner, "cache", "show"); err != nil {
			t.Fatalf("cache show failed: %v", err)
		}
		if !strings.Contains(output.String(), "0 names") {
			t.Errorf("expected empty cache status:\n%s", output.String())
		}
	})
}

func TestSetupCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	dbPath := filepath.Join(dir, "windsync.db")
	tu.MustWriteFile(t, configPath, "[database]\npath = \""+dbPath+"\"\n")

	runner, output := newTestRunner(t, sourceWithFiles(), &tu.MockDestination{})

	if err := runCommand(t, runner, "setup", "--config", configPath); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, dbPath)
	if !strings.Contains(output.String(), "Setup complete") {
		t.Errorf("expected setup confirmation:\n%s", output.String())
	}
}

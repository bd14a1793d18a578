// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/windsync/internal/models"
	"github.com/desertthunder/windsync/internal/services"
)

// MockSource is a test double for [services.Source]. Behavior is
// overridden per-test through the function fields; unset fields return
// empty results.
type MockSource struct {
	ListMediaFunc func(ctx context.Context, scope services.ListScope) ([]models.MediaFile, error)
	DownloadFunc  func(ctx context.Context, file models.MediaFile) ([]byte, error)
}

func (m *MockSource) ListMedia(ctx context.Context, scope services.ListScope) ([]models.MediaFile, error) {
	if m.ListMediaFunc != nil {
		return m.ListMediaFunc(ctx, scope)
	}
	return []models.MediaFile{}, nil
}

func (m *MockSource) Download(ctx context.Context, file models.MediaFile) ([]byte, error) {
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, file)
	}
	return []byte(file.Name), nil
}

func (m *MockSource) Name() string { return "mock-source" }

// MockDestination is a test double for [services.Destination]. It
// records uploads and commits under a mutex so concurrent workers can
// share one instance.
type MockDestination struct {
	mu      sync.Mutex
	Uploads []string
	Commits [][]models.PendingCommit
	Names   []string
	uploadN int
	Upload  func(ctx context.Context, data []byte, name string) (string, error)
	Commit  func(ctx context.Context, items []models.PendingCommit) ([]models.CommitOutcome, error)
	ListAll func(ctx context.Context) ([]string, error)
}

func (m *MockDestination) UploadBytes(ctx context.Context, data []byte, name string) (string, error) {
	if m.Upload != nil {
		return m.Upload(ctx, data, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Uploads = append(m.Uploads, name)
	m.uploadN++
	return fmt.Sprintf("token-%d", m.uploadN), nil
}

func (m *MockDestination) CommitBatch(ctx context.Context, items []models.PendingCommit) ([]models.CommitOutcome, error) {
	if m.Commit != nil {
		return m.Commit(ctx, items)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := make([]models.PendingCommit, len(items))
	copy(batch, items)
	m.Commits = append(m.Commits, batch)
	outcomes := make([]models.CommitOutcome, len(items))
	for i, item := range items {
		outcomes[i] = models.CommitOutcome{Name: item.Name, OK: true}
	}
	return outcomes, nil
}

func (m *MockDestination) ListAllNames(ctx context.Context) ([]string, error) {
	if m.ListAll != nil {
		return m.ListAll(ctx)
	}
	return m.Names, nil
}

func (m *MockDestination) Name() string { return "mock-destination" }

// CommitCount returns how many commit calls the destination has seen.
func (m *MockDestination) CommitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Commits)
}

// CommittedItems flattens all commit calls into one slice.
func (m *MockDestination) CommittedItems() []models.PendingCommit {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.PendingCommit
	for _, batch := range m.Commits {
		all = append(all, batch...)
	}
	return all
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

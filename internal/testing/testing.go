// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/songlist/internal/models"
	"github.com/desertthunder/songlist/internal/shared"
)

// MockService is a scripted test double for [services.Service].
//
// Queries without a registered track are not found. Queued errors are returned before any result.
type MockService struct {
	mu         sync.Mutex
	tracks     map[string]models.Track
	searchErrs map[string][]error
	addErrs    []error

	Searches    []string    // queries searched, in call order
	SearchTimes []time.Time // start time of every search
	Added       []string    // URIs successfully added, in call order
	Positions   []int       // position of every successful add
	AddCalls    int         // every add call, including failed ones
}

func NewMockService() *MockService {
	return &MockService{
		tracks:     make(map[string]models.Track),
		searchErrs: make(map[string][]error),
	}
}

// WithTrack registers track as the search result for query.
func (m *MockService) WithTrack(query string, track models.Track) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks[query] = track
	return m
}

// FailSearch queues errs for the next searches of query.
func (m *MockService) FailSearch(query string, errs ...error) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchErrs[query] = append(m.searchErrs[query], errs...)
	return m
}

// FailAdd queues errs for the next add calls.
func (m *MockService) FailAdd(errs ...error) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addErrs = append(m.addErrs, errs...)
	return m
}

func (m *MockService) SearchTrack(ctx context.Context, query string) (*models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Searches = append(m.Searches, query)
	m.SearchTimes = append(m.SearchTimes, time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if queued := m.searchErrs[query]; len(queued) > 0 {
		m.searchErrs[query] = queued[1:]
		return nil, queued[0]
	}

	track, ok := m.tracks[query]
	if !ok {
		return nil, fmt.Errorf("%w: no results for %q", shared.ErrTrackNotFound, query)
	}
	return &track, nil
}

func (m *MockService) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string, position int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AddCalls++
	if len(m.addErrs) > 0 {
		err := m.addErrs[0]
		m.addErrs = m.addErrs[1:]
		return "", err
	}

	m.Added = append(m.Added, uris...)
	for range uris {
		m.Positions = append(m.Positions, position)
	}
	return fmt.Sprintf("snapshot-%d", m.AddCalls), nil
}

func (m *MockService) Name() string { return "mock" }

// SearchCount returns how many times query was searched.
func (m *MockService) SearchCount(query string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, q := range m.Searches {
		if q == query {
			n++
		}
	}
	return n
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

// MustChdir changes into dir and restores the previous directory when the test ends.
func MustChdir(t *testing.T, dir string) {
	t.Helper()
	prev := MustGetwd(t)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
	t.Cleanup(func() { os.Chdir(prev) })
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// MustWriteFile writes content to path with 0644 permissions.
func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

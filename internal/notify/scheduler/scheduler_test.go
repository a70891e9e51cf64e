// internal/notify/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"journal-notifier/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type mockDueFinder struct {
	mu    sync.Mutex
	ids   []string
	calls int
	block chan struct{} // when set, FindDue blocks until closed
	err   error
}

func (m *mockDueFinder) FindDue(ctx context.Context, now time.Time, staleClaim time.Duration, limit int) ([]string, error) {
	m.mu.Lock()
	m.calls++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.ids, nil
}

func (m *mockDueFinder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockSubmitter struct {
	mu        sync.Mutex
	submitted []string
}

func (m *mockSubmitter) Submit(eventID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, eventID)
}

type mockLock struct {
	mu       sync.Mutex
	busy     bool
	acquires int
	releases int
}

func (m *mockLock) TryAcquire(ctx context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquires++
	if m.busy {
		return "", false, nil
	}
	return "token-1", true, nil
}

func (m *mockLock) Release(ctx context.Context, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
}

func testConfig() Config {
	return Config{
		Interval:   time.Minute,
		BatchSize:  50,
		StaleClaim: 5 * time.Minute,
	}
}

// ==========================
// Tests
// ==========================

func TestScanOnce_SubmitsDueEvents(t *testing.T) {
	store := &mockDueFinder{ids: []string{"ev-1", "ev-2", "ev-3"}}
	dispatcher := &mockSubmitter{}
	lock := &mockLock{}

	s := New(store, dispatcher, lock, logger.NewTestLogger(t), testConfig())
	s.ScanOnce(context.Background())

	assert.Equal(t, []string{"ev-1", "ev-2", "ev-3"}, dispatcher.submitted)
	assert.Equal(t, 1, lock.acquires)
	assert.Equal(t, 1, lock.releases, "lock must be released after a scan")
}

func TestScanOnce_SkipsWhenLockBusy(t *testing.T) {
	store := &mockDueFinder{ids: []string{"ev-1"}}
	dispatcher := &mockSubmitter{}
	lock := &mockLock{busy: true}

	s := New(store, dispatcher, lock, logger.NewTestLogger(t), testConfig())
	s.ScanOnce(context.Background())

	assert.Empty(t, dispatcher.submitted)
	assert.Equal(t, 0, store.callCount(), "no scan may run without the lock")
	assert.Equal(t, 0, lock.releases)
}

func TestScanOnce_SkipsOverlappingRun(t *testing.T) {
	block := make(chan struct{})
	store := &mockDueFinder{ids: []string{"ev-1"}, block: block}
	dispatcher := &mockSubmitter{}
	lock := &mockLock{}

	s := New(store, dispatcher, lock, logger.NewTestLogger(t), testConfig())

	done := make(chan struct{})
	go func() {
		s.ScanOnce(context.Background())
		close(done)
	}()

	// Wait until the first scan is inside FindDue, then tick again.
	require.Eventually(t, func() bool { return store.callCount() == 1 },
		time.Second, 5*time.Millisecond)
	s.ScanOnce(context.Background())

	close(block)
	<-done

	// The overlapping tick never reached the lock or the store.
	assert.Equal(t, 1, store.callCount())
	assert.Equal(t, 1, lock.acquires)
}

func TestScanOnce_ReleasesLockOnScanError(t *testing.T) {
	store := &mockDueFinder{err: context.DeadlineExceeded}
	dispatcher := &mockSubmitter{}
	lock := &mockLock{}

	s := New(store, dispatcher, lock, logger.NewTestLogger(t), testConfig())
	s.ScanOnce(context.Background())

	assert.Empty(t, dispatcher.submitted)
	assert.Equal(t, 1, lock.releases, "lock released even when the scan fails")
}

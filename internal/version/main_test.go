package version_test

import (
	"context"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/analekt/epubcheck-mcp/internal/model"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fakeQuerier struct {
	out   string
	err   error
	delay time.Duration
	// block, if set, holds Version until closed or ctx is done
	block chan struct{}
	calls atomic.Int32
}

func (q *fakeQuerier) Version(ctx context.Context) (string, error) {
	q.calls.Add(1)
	if q.delay > 0 {
		time.Sleep(q.delay)
	}
	if q.block != nil {
		select {
		case <-q.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return q.out, q.err
}

type fakeFetcher struct {
	version string
	err     error
	// block, if set, holds Latest until closed or ctx is done
	block chan struct{}
	calls atomic.Int32
}

func (f *fakeFetcher) Latest(ctx context.Context) (string, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.version, f.err
}

type memStore struct {
	mx      sync.Mutex
	rec     *model.VersionCacheRecord
	loadErr error
	saves   []model.VersionCacheRecord
}

func (s *memStore) Load() (model.VersionCacheRecord, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.loadErr != nil {
		return model.VersionCacheRecord{}, s.loadErr
	}
	if s.rec == nil {
		return model.VersionCacheRecord{}, fs.ErrNotExist
	}
	return *s.rec, nil
}

func (s *memStore) Save(rec model.VersionCacheRecord) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.rec = &rec
	s.saves = append(s.saves, rec)
	return nil
}

func (s *memStore) saved() []model.VersionCacheRecord {
	s.mx.Lock()
	defer s.mx.Unlock()
	return append([]model.VersionCacheRecord(nil), s.saves...)
}

func ptr[T any](v T) *T {
	return &v
}

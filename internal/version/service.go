package version

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/analekt/epubcheck-mcp/internal/model"

	"golang.org/x/sync/singleflight"
)

const (
	// Unknown is returned by CurrentVersion if the engine printed nothing.
	Unknown = "unknown"

	ReleasesPage = "https://github.com/w3c/epubcheck/releases"
)

var versionRx = regexp.MustCompile(`(?i)epubcheck\s+v?(\d+(?:\.\d+)+)`)

// ParseVersion extracts the dotted version from the engine's --version output.
func ParseVersion(out string) (string, bool) {
	m := versionRx.FindStringSubmatch(out)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Querier runs the engine's version query. It is implemented by engine.Invoker.
type Querier interface {
	Version(ctx context.Context) (string, error)
}

// Fetcher returns the latest published version. It is implemented by release.Client.
type Fetcher interface {
	Latest(ctx context.Context) (string, error)
}

// Service memoizes the installed engine version and keeps the latest
// published version up to date in the background. A process is expected to
// create exactly one Service.
type Service struct {
	querier Querier
	fetcher Fetcher
	store   Store
	now     func() time.Time
	ttl     time.Duration
	timeout time.Duration
	enabled bool

	group singleflight.Group

	mx      sync.RWMutex
	current string
	latest  string

	checking atomic.Bool
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithUpdateCheck enables or disables the background check.
func WithUpdateCheck(enabled bool) Option {
	return func(s *Service) {
		s.enabled = enabled
	}
}

func New(querier Querier, fetcher Fetcher, store Store, opts ...Option) *Service {
	s := &Service{
		querier: querier,
		fetcher: fetcher,
		store:   store,
		now:     time.Now,
		ttl:     model.DefaultCheckTTL,
		timeout: model.DefaultCheckTimeout,
		enabled: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil || s.store == nil {
		s.enabled = false
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// CurrentVersion returns the installed engine version. The first successful
// parse is memoized and triggers the background update check. Output which
// does not contain a version is returned as is and not memoized.
func (s *Service) CurrentVersion(ctx context.Context) (string, error) {
	if cur := s.memoized(); cur != "" {
		return cur, nil
	}

	v, err, _ := s.group.Do("current", func() (any, error) {
		if cur := s.memoized(); cur != "" {
			return cur, nil
		}
		// shared by every waiting caller, bounded by the version timeout
		out, err := s.querier.Version(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		version, ok := ParseVersion(out)
		if !ok {
			slog.DebugContext(ctx, "unrecognized engine version output", "output", out)
			out = strings.TrimSpace(out)
			if out == "" {
				return Unknown, nil
			}
			return out, nil
		}

		s.mx.Lock()
		s.current = version
		s.mx.Unlock()

		s.Check(ctx, version)
		return version, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Service) memoized() string {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.current
}

// Check loads the cached record and, unless it is fresh, starts the
// background fetch of the latest published version. Only one fetch is in
// flight at a time. It never waits on the network. ctx only contributes its
// values (log attributes) to the detached fetch.
func (s *Service) Check(ctx context.Context, current string) {
	if !s.enabled {
		return
	}

	rec, err := s.store.Load()
	switch {
	case err == nil:
		if rec.LatestVersion != nil {
			s.setLatest(*rec.LatestVersion)
		}
		if rec.Fresh(s.now(), s.ttl) {
			slog.DebugContext(ctx, "version cache is fresh", "checked_at", rec.CheckedAt())
			return
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		slog.DebugContext(ctx, "ignoring unreadable version cache", "error", err)
	}

	if !s.checking.CompareAndSwap(false, true) {
		slog.DebugContext(ctx, "update check already in flight")
		return
	}

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(s.ctx, cancel)
	s.wg.Go(func() {
		defer s.checking.Store(false)
		defer cancel()
		defer stop()
		if err := s.refresh(bgCtx, current); err != nil {
			slog.DebugContext(bgCtx, "update check failed", "error", err)
		}
	})
}

// refresh fetches the latest version and stores a new record.
func (s *Service) refresh(ctx context.Context, current string) error {
	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	latest, err := s.fetcher.Latest(fctx)
	if err != nil {
		return fmt.Errorf("fetching latest version: %w", err)
	}
	s.setLatest(latest)

	rec := model.VersionCacheRecord{
		LastCheckedAt:  s.now().UnixMilli(),
		LatestVersion:  &latest,
		CurrentVersion: current,
	}
	if err := s.store.Save(rec); err != nil {
		slog.DebugContext(ctx, "storing version cache failed", "error", err)
	}
	return nil
}

func (s *Service) setLatest(v string) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.latest = v
}

// Latest returns the latest published version known so far, or "".
func (s *Service) Latest() string {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return s.latest
}

// UpdateNotification returns an advisory if a newer engine was published.
// It only reads the in-memory state.
func (s *Service) UpdateNotification(current string) (string, bool) {
	latest := s.Latest()
	if latest == "" || current == "" || current == Unknown {
		return "", false
	}
	if !IsUpdateAvailable(current, latest) {
		return "", false
	}
	return fmt.Sprintf("EPUBCheck %s is available (installed: %s), download it from %s", latest, current, ReleasesPage), true
}

// Wait blocks until the background check finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels a running background check and waits for it.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

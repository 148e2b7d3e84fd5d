// Package copier copies files while bounding how many copies start at once.
// A CopyScheduler keeps an active-copy counter and a FIFO wait queue: once
// a backlog exists, new copies queue behind it instead of racing for file
// descriptors. Transient failures retry through the queue, busy failures
// retry after a linear backoff.
package copier

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/metrics"
)

const (
	// DefaultMaxRetries bounds retries per copy.
	DefaultMaxRetries = 5
	// DefaultBackoff is multiplied by the retry number for busy failures.
	DefaultBackoff = 100 * time.Millisecond
)

// CopyFunc performs one copy attempt.
type CopyFunc func(src, dst string) error

// CopyScheduler serializes copy starts behind a FIFO backlog. The zero value
// is not usable; construct one with NewScheduler. One scheduler is normally
// shared by every copy of a build.
type CopyScheduler struct {
	mu     sync.Mutex
	active int
	queue  []chan struct{}

	maxRetries int
	backoff    time.Duration
	copyFn     CopyFunc
}

// Option configures a CopyScheduler.
type Option func(*CopyScheduler)

// WithMaxRetries overrides DefaultMaxRetries.
func WithMaxRetries(n int) Option {
	return func(s *CopyScheduler) { s.maxRetries = n }
}

// WithBackoff overrides DefaultBackoff.
func WithBackoff(d time.Duration) Option {
	return func(s *CopyScheduler) { s.backoff = d }
}

// WithCopyFunc replaces the function that performs a single attempt.
func WithCopyFunc(fn CopyFunc) Option {
	return func(s *CopyScheduler) { s.copyFn = fn }
}

// NewScheduler creates a scheduler with default retry settings.
func NewScheduler(opts ...Option) *CopyScheduler {
	s := &CopyScheduler{
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
		copyFn:     copyFile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Copy copies src to dst, creating dst's parent directory first. It blocks
// until the copy succeeds, fails permanently with a *CopyError, or ctx is
// done.
func (s *CopyScheduler) Copy(ctx context.Context, src, dst string) error {
	logger := ctxlog.FromContext(ctx).With("src", src, "dst", dst)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &CopyError{Src: src, Dst: dst, Err: err}
	}

	if err := s.admit(ctx, false); err != nil {
		return err
	}

	retries := 0
	for {
		err := s.copyFn(src, dst)
		s.release()
		if err == nil {
			logger.Debug("File copied.", "retries", retries)
			return nil
		}

		class := classify(err)
		if class == classFatal || retries >= s.maxRetries {
			return &CopyError{Src: src, Dst: dst, Retries: retries, Err: err}
		}
		retries++
		metrics.CopyRetries.WithLabelValues(class.String()).Inc()
		logger.Debug("Copy failed, retrying.", "class", class.String(), "retry", retries, "error", err)

		if class == classBusy {
			if err := sleep(ctx, s.backoff*time.Duration(retries)); err != nil {
				return err
			}
		}
		if err := s.admit(ctx, class == classTransient); err != nil {
			return err
		}
	}
}

// Active returns the number of copies in flight.
func (s *CopyScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Queued returns the number of copies waiting for a slot.
func (s *CopyScheduler) Queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// admit claims a slot. It starts right away unless a backlog exists or
// queue is set, in which case it waits for its turn.
func (s *CopyScheduler) admit(ctx context.Context, queue bool) error {
	s.mu.Lock()
	if !queue && len(s.queue) == 0 {
		s.active++
		s.mu.Unlock()
		return nil
	}

	ticket := make(chan struct{})
	s.queue = append(s.queue, ticket)
	if s.active < 1 {
		s.dispatchLocked()
	}
	s.mu.Unlock()

	select {
	case <-ticket:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, t := range s.queue {
			if t == ticket {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				return ctx.Err()
			}
		}
		// The slot was granted while we were giving up; hand it on.
		s.active--
		if s.active < 1 {
			s.dispatchLocked()
		}
		return ctx.Err()
	}
}

// release frees a slot and, once nothing is active, starts the head of the
// queue. The waiter resumes on its own goroutine.
func (s *CopyScheduler) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	if s.active < 1 {
		s.dispatchLocked()
	}
}

func (s *CopyScheduler) dispatchLocked() {
	if len(s.queue) == 0 {
		return
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.active++
	close(next)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// copyFile streams src into dst. The source is opened first so a missing
// source never leaves an empty destination behind, and a failed write
// removes the partial file.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

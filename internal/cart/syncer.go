package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Conversly/storefront/internal/notify"
	"github.com/Conversly/storefront/internal/remote"
	"github.com/Conversly/storefront/internal/types"
	"github.com/Conversly/storefront/internal/utils"
	"go.uber.org/zap"
)

// Pusher overwrites the backend copy of the cart.
type Pusher interface {
	UpdateCart(ctx context.Context, items types.CartItems) error
}

type SyncJob struct {
	Version    uint64
	Items      types.CartItems
	CreatedAt  time.Time
	RetryCount int
}

const (
	defaultDebounce   = 500 * time.Millisecond
	defaultMaxRetries = 3
	syncQueueCapacity = 16
	syncTimeout       = 15 * time.Second
)

// Syncer pushes local cart changes to the backend in the background. Bursts
// of mutations are debounced into one push of the newest version, a single
// worker sends jobs in order, and a job that has been superseded by a newer
// local version is dropped instead of sent or retried. Failures are
// reported through the notifier; local state is never rolled back.
type Syncer struct {
	client     Pusher
	notifier   notify.Notifier
	debounce   time.Duration
	maxRetries int

	jobs chan SyncJob
	wg   sync.WaitGroup

	mu      sync.Mutex
	quit    chan struct{}
	started bool
	active  bool
	latest  uint64
	acked   uint64
	pending *SyncJob
	timer   *time.Timer
}

func NewSyncer(client Pusher, notifier notify.Notifier, debounce time.Duration, maxRetries int) *Syncer {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Syncer{
		client:     client,
		notifier:   notifier,
		debounce:   debounce,
		maxRetries: maxRetries,
		jobs:       make(chan SyncJob, syncQueueCapacity),
		quit:       make(chan struct{}),
	}
}

// Start runs the worker. A stopped syncer can be started again.
func (s *Syncer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	select {
	case <-s.quit:
		s.quit = make(chan struct{})
	default:
	}
	quit := s.quit
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		utils.Zlog.Info("Cart sync worker started")
		for {
			select {
			case <-quit:
				utils.Zlog.Info("Cart sync worker stopping")
				return
			case job := <-s.jobs:
				s.process(job)
			}
		}
	}()
}

// Stop sends any debounced change that has not gone out yet, then waits
// for the worker to exit or ctx to expire.
func (s *Syncer) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.quit)
	pending := s.pending
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
	}
	active := s.active
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		utils.Zlog.Warn("Timeout waiting for cart sync worker to stop")
		return
	case <-done:
	}

	if pending != nil && active {
		if err := s.client.UpdateCart(ctx, pending.Items); err != nil {
			utils.Zlog.Warn("Final cart sync failed",
				zap.Uint64("version", pending.Version),
				zap.Error(err))
		} else {
			s.ack(pending.Version)
		}
	}
	utils.Zlog.Info("Cart sync worker stopped")
}

// SetActive turns syncing on while a session exists. Turning it off drops
// any change still waiting for its debounce.
func (s *Syncer) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
	if !active {
		s.pending = nil
		if s.timer != nil {
			s.timer.Stop()
		}
	}
}

func (s *Syncer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Acked returns the newest cart version the backend confirmed.
func (s *Syncer) Acked() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acked
}

// Observe is the Store listener. Server-originated changes are already on
// the backend, so they only move the version marks forward.
func (s *Syncer) Observe(change Change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if change.Version > s.latest {
		s.latest = change.Version
	}
	if change.Origin == OriginServer {
		if change.Version > s.acked {
			s.acked = change.Version
		}
		s.pending = nil
		if s.timer != nil {
			s.timer.Stop()
		}
		return
	}
	if !s.active {
		return
	}

	s.pending = &SyncJob{Version: change.Version, Items: change.Items, CreatedAt: time.Now().UTC()}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.flush)
		return
	}
	s.timer.Reset(s.debounce)
}

func (s *Syncer) flush() {
	s.mu.Lock()
	job := s.pending
	s.pending = nil
	s.mu.Unlock()

	if job == nil {
		return
	}
	if !s.Enqueue(*job) {
		utils.Zlog.Warn("Cart sync queue full, dropping job", zap.Uint64("version", job.Version))
	}
}

// Enqueue hands a job to the worker without blocking.
func (s *Syncer) Enqueue(job SyncJob) bool {
	if s.stopped() {
		return false
	}
	select {
	case s.jobs <- job:
		return true
	default:
		return false
	}
}

func (s *Syncer) stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

func (s *Syncer) superseded(job SyncJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return job.Version < s.latest || job.Version <= s.acked || !s.active
}

func (s *Syncer) ack(version uint64) {
	s.mu.Lock()
	if version > s.acked {
		s.acked = version
	}
	s.mu.Unlock()
}

func (s *Syncer) process(job SyncJob) {
	if s.superseded(job) {
		utils.Zlog.Debug("Skipping superseded cart sync", zap.Uint64("version", job.Version))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	start := time.Now()
	err := s.client.UpdateCart(ctx, job.Items)
	if err == nil {
		s.ack(job.Version)
		utils.Zlog.Debug("Cart synced",
			zap.Uint64("version", job.Version),
			zap.Int("entries", len(job.Items)),
			zap.Duration("duration", time.Since(start)))
		return
	}

	utils.Zlog.Warn("Cart sync failed",
		zap.Uint64("version", job.Version),
		zap.Int("retryCount", job.RetryCount),
		zap.Error(err))

	if errors.Is(err, remote.ErrUnauthorized) {
		// the session is gone; the next login seeds the cart again
		return
	}
	if s.superseded(job) {
		return
	}
	s.retry(job, err)
}

func (s *Syncer) retry(job SyncJob, cause error) {
	if job.RetryCount >= s.maxRetries {
		utils.Zlog.Error("Max retries exceeded for cart sync",
			zap.Uint64("version", job.Version),
			zap.Int("retryCount", job.RetryCount))
		s.notifier.Error(remote.Message(cause, "Failed to update cart"))
		return
	}

	next := job
	next.RetryCount++
	delay := s.debounce << uint(job.RetryCount)
	time.AfterFunc(delay, func() {
		if s.stopped() {
			return
		}
		if s.superseded(next) {
			return
		}
		if !s.Enqueue(next) {
			utils.Zlog.Error("Failed to requeue cart sync (queue full or stopped)",
				zap.Uint64("version", next.Version))
			s.notifier.Error(remote.Message(cause, "Failed to update cart"))
		}
	})
}

package advisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// notifyFunc is satisfied by (*Advisor).Notify.
type notifyFunc func(ctx context.Context, profile Profile) error

type notifyJob struct {
	id       string
	profile  Profile
	queuedAt time.Time
}

// Notifier delivers priming notifications on background workers so that the
// request that triggered them never waits for the language model.
type Notifier struct {
	notify  notifyFunc
	queue   chan notifyJob
	workers int
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	stopped bool
}

// NewNotifier creates a notifier with a queue of queueSize pending jobs served by
// workers goroutines. Each job gets its own timeout, detached from the caller.
func NewNotifier(a *Advisor, queueSize, workers int, timeout time.Duration, logger *slog.Logger) *Notifier {
	return newNotifier(a.Notify, queueSize, workers, timeout, logger)
}

func newNotifier(fn notifyFunc, queueSize, workers int, timeout time.Duration, logger *slog.Logger) *Notifier {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Notifier{
		notify:  fn,
		queue:   make(chan notifyJob, queueSize),
		workers: workers,
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch queues a notification without blocking. It returns false when the
// queue is full or the notifier has stopped; the notification is then dropped.
func (n *Notifier) Dispatch(profile Profile) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.stopped {
		n.logger.Warn("notifier stopped, dropping notification", "name", profile.Name, "lastname", profile.Lastname)
		return false
	}

	job := notifyJob{id: uuid.NewString(), profile: profile, queuedAt: time.Now()}
	select {
	case n.queue <- job:
		return true
	default:
		n.logger.Warn("notify queue full, dropping notification",
			"job", job.id, "name", profile.Name, "lastname", profile.Lastname)
		return false
	}
}

// Run processes notifications until ctx is cancelled, then delivers whatever is
// still queued and returns. Notification failures are logged, never returned.
func (n *Notifier) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for range n.workers {
		g.Go(func() error {
			n.work(gctx)
			return nil
		})
	}
	_ = g.Wait()

	n.mu.Lock()
	n.stopped = true
	n.mu.Unlock()

	// Dispatch holds the read lock while sending, so nothing is added after this point.
	drainCtx := context.WithoutCancel(ctx)
	for {
		select {
		case job := <-n.queue:
			n.deliver(drainCtx, job)
		default:
			return nil
		}
	}
}

func (n *Notifier) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-n.queue:
			n.deliver(ctx, job)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, job notifyJob) {
	ctx = context.WithoutCancel(ctx)
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := n.notify(ctx, job.profile); err != nil {
		n.logger.Error("notify failed",
			"job", job.id,
			"name", job.profile.Name,
			"lastname", job.profile.Lastname,
			"error", err,
		)
		return
	}
	n.logger.Debug("notify delivered",
		"job", job.id,
		"queued", start.Sub(job.queuedAt),
		"took", time.Since(start),
	)
}

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/backoff"
	"github.com/graaaaa/suiticket-companion/internal/model"
	"github.com/graaaaa/suiticket-companion/internal/reconcile"
)

// FilterConfig selects which settled outcomes are posted.
type FilterConfig struct {
	NotifyOnSuccess bool
	// NotifyOnFailure covers failed, timed out and errored actions.
	NotifyOnFailure bool
}

func (f FilterConfig) allows(o model.ActionOutcome) bool {
	switch o {
	case model.ActionSucceeded:
		return f.NotifyOnSuccess
	case model.ActionFailed, model.ActionTimedOut, model.ActionErrored:
		return f.NotifyOnFailure
	}
	return false
}

// NotifierStatus is a point-in-time view of the notifier.
type NotifierStatus struct {
	Disabled       bool
	DisabledReason string
	DisabledAt     time.Time
	Delivered      int
	Dropped        int
	Attempt        int
	BackoffUntil   time.Time
}

// DefaultMaxQueueSize bounds the pending reports; the oldest go first.
const DefaultMaxQueueSize = 100

const defaultBatchDelay = 3 * time.Second

// Notifier collects settled action reports for a batch delay and posts
// them to Discord. Reports for the same action coalesce to the latest.
// A retryable failure keeps the batch and backs off; a fatal one
// disables the notifier for the rest of the process.
type Notifier struct {
	sender       Sender
	afterFunc    AfterFunc
	now          func() time.Time
	batchDelay   time.Duration
	filter       FilterConfig
	logger       *slog.Logger
	maxQueueSize int
	backoff      *backoff.Exponential

	reportCh chan *reconcile.Report
	flushCh  chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	queue  []*reconcile.Report
	timer  TimerHandle
	status NotifierStatus
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithAfterFunc replaces time.AfterFunc.
func WithAfterFunc(af AfterFunc) NotifierOption {
	return func(n *Notifier) { n.afterFunc = af }
}

// WithNotifierClock replaces time.Now for backoff bookkeeping.
func WithNotifierClock(now func() time.Time) NotifierOption {
	return func(n *Notifier) { n.now = now }
}

// WithNotifierLogger sets the logger.
func WithNotifierLogger(logger *slog.Logger) NotifierOption {
	return func(n *Notifier) { n.logger = logger }
}

// WithMaxQueueSize sets the maximum queue size.
func WithMaxQueueSize(size int) NotifierOption {
	return func(n *Notifier) {
		if size > 0 {
			n.maxQueueSize = size
		}
	}
}

// WithBackoff sets the retry backoff used when Discord gives no wait.
func WithBackoff(b *backoff.Exponential) NotifierOption {
	return func(n *Notifier) { n.backoff = b }
}

// NewNotifier creates a Notifier. Start it with go n.Run(ctx).
func NewNotifier(sender Sender, batchDelaySec int, filter FilterConfig, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		sender:       sender,
		afterFunc:    DefaultAfterFunc,
		now:          time.Now,
		batchDelay:   defaultBatchDelay,
		filter:       filter,
		logger:       slog.Default(),
		maxQueueSize: DefaultMaxQueueSize,
		reportCh:     make(chan *reconcile.Report, 64),
		flushCh:      make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	if batchDelaySec > 0 {
		n.batchDelay = time.Duration(batchDelaySec) * time.Second
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.backoff == nil {
		n.backoff = backoff.NewExponential(backoff.DefaultExponentialConfig)
	}
	return n
}

// Run processes reports until Stop or ctx is done, then makes one last
// flush attempt.
func (n *Notifier) Run(ctx context.Context) {
	defer close(n.doneCh)

	for {
		select {
		case r := <-n.reportCh:
			n.add(r)
		case <-n.flushCh:
			n.flush(ctx)
		case <-n.stopCh:
			n.flush(ctx)
			return
		case <-ctx.Done():
			n.flush(context.Background())
			return
		}
	}
}

// Enqueue offers a settled report. Filtered outcomes and reports arriving
// while disabled are ignored. It never blocks; a full channel drops.
func (n *Notifier) Enqueue(report *reconcile.Report) {
	if report == nil || !n.filter.allows(report.Outcome) {
		return
	}

	n.mu.Lock()
	disabled := n.status.Disabled
	n.mu.Unlock()
	if disabled {
		return
	}

	select {
	case n.reportCh <- report:
	default:
		n.mu.Lock()
		n.status.Dropped++
		n.mu.Unlock()
		n.logger.Warn("notification channel full, report dropped", "action_id", report.ID, "kind", report.Kind)
	}
}

func (n *Notifier) add(r *reconcile.Report) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status.Disabled {
		return
	}
	if !n.replaceLocked(r) {
		n.queue = append(n.queue, r)
	}
	n.trimLocked()
	if n.timer == nil {
		n.timer = n.afterFunc(n.batchDelay, n.triggerFlush)
	}
}

// replaceLocked swaps r in for a queued report of the same action,
// keeping the queued position.
func (n *Notifier) replaceLocked(r *reconcile.Report) bool {
	if r.ID == "" {
		return false
	}
	for i, q := range n.queue {
		if q.ID == r.ID {
			n.queue[i] = r
			return true
		}
	}
	return false
}

func (n *Notifier) trimLocked() {
	if over := len(n.queue) - n.maxQueueSize; over > 0 {
		n.queue = n.queue[over:]
		n.status.Dropped += over
		n.logger.Warn("notification queue overflow, oldest reports dropped", "dropped", over)
	}
}

func (n *Notifier) triggerFlush() {
	select {
	case n.flushCh <- struct{}{}:
	default:
	}
}

func (n *Notifier) flush(ctx context.Context) {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	if len(n.queue) == 0 || n.status.Disabled {
		n.mu.Unlock()
		return
	}
	if wait := n.status.BackoffUntil.Sub(n.now()); wait > 0 {
		n.logger.Debug("notifications backing off", "queued", len(n.queue), "remaining", wait)
		n.timer = n.afterFunc(wait, n.triggerFlush)
		n.mu.Unlock()
		return
	}
	reports := n.queue
	n.queue = nil
	n.mu.Unlock()

	for i, payload := range BuildPayloads(reports) {
		result, wait := n.sender.Send(ctx, payload)
		sent := min((i+1)*MaxEmbedsPerRequest, len(reports))
		switch result {
		case SendOK:
			n.delivered(sent - i*MaxEmbedsPerRequest)
			continue
		case SendRetryable:
			n.retryLater(reports[i*MaxEmbedsPerRequest:], wait)
		case SendFatal:
			n.disable("webhook rejected the request; check the URL")
		}
		return
	}
}

func (n *Notifier) delivered(count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status.Delivered += count
	n.status.Attempt = 0
	n.status.BackoffUntil = time.Time{}
}

// retryLater puts unsent reports back in front of anything queued since
// and schedules a flush after the wait.
func (n *Notifier) retryLater(unsent []*reconcile.Report, wait time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.status.Attempt++
	if wait <= 0 {
		wait = n.backoff.Delay(n.status.Attempt - 1)
	}
	n.status.BackoffUntil = n.now().Add(wait)

	newer := n.queue
	n.queue = append(append([]*reconcile.Report(nil), unsent...), newer...)
	n.trimLocked()
	if n.timer == nil {
		n.timer = n.afterFunc(wait, n.triggerFlush)
	}
	n.logger.Warn("Discord delivery failed, backing off",
		"attempt", n.status.Attempt,
		"retry_in", wait,
		"queued", len(n.queue),
	)
}

func (n *Notifier) disable(reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status.Disabled = true
	n.status.DisabledReason = reason
	n.status.DisabledAt = n.now()
	n.status.Dropped += len(n.queue)
	n.queue = nil
	n.logger.Error("Discord notifications disabled", "reason", reason)
}

// Stop ends Run and waits for it, or for ctx. It may be called more
// than once.
func (n *Notifier) Stop(ctx context.Context) error {
	n.stopOnce.Do(func() { close(n.stopCh) })
	select {
	case <-n.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a copy of the current status.
func (n *Notifier) Status() NotifierStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

// State summarizes Status as "active", "backing_off" or "disabled".
func (n *Notifier) State() string {
	st := n.Status()
	switch {
	case st.Disabled:
		return "disabled"
	case st.BackoffUntil.After(n.now()):
		return "backing_off"
	}
	return "active"
}

// QueueLength returns the number of reports waiting to be sent.
func (n *Notifier) QueueLength() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queue)
}

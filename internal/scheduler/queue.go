package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/darrell-green/prewarm/internal/types"
)

// SortQueue orders items by descending priority score at the given
// instant. Scores are recomputed on every sort because the age-bonus term
// is time-dependent.
func SortQueue(items []*types.QueueItem, now time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PriorityScore(now) > items[j].PriorityScore(now)
	})
}

// Queue is the deferred-execution path: triggers enqueue work here instead
// of prefetching inline, and a single worker drains it highest-score
// first. Retryable failures are requeued with backoff up to the retry
// ceiling; validation failures are dropped immediately.
type Queue struct {
	sched      *Scheduler
	logger     *slog.Logger
	maxRetries int
	backoff    time.Duration

	mu    sync.Mutex
	items []*types.QueueItem

	wake chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewQueue creates a queue over the scheduler and starts its worker.
func NewQueue(sched *Scheduler, maxRetries int, backoff time.Duration, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if backoff <= 0 {
		backoff = time.Second
	}

	q := &Queue{
		sched:      sched,
		logger:     logger.With("component", "prefetch-queue"),
		maxRetries: maxRetries,
		backoff:    backoff,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

// Enqueue adds a pending prefetch request.
func (q *Queue) Enqueue(item *types.QueueItem) {
	if item == nil || item.URL == "" {
		return
	}
	if item.QueueTime.IsZero() {
		item.QueueTime = time.Now()
	}

	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Remove drops all pending items for a URL. In-flight work is untouched.
func (q *Queue) Remove(url string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	for _, item := range q.items {
		if item.URL != url {
			kept = append(kept, item)
		}
	}
	q.items = kept
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops the worker and drops pending items.
func (q *Queue) Close() error {
	q.once.Do(func() {
		close(q.stop)
	})
	q.wg.Wait()

	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
	return nil
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for {
		item := q.pop()
		if item == nil {
			select {
			case <-q.stop:
				return
			case <-q.wake:
				continue
			}
		}

		select {
		case <-q.stop:
			return
		default:
		}

		q.run(item)
	}
}

// pop removes and returns the highest-score pending item, nil when empty.
func (q *Queue) pop() *types.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	SortQueue(q.items, time.Now())
	item := q.items[0]
	q.items = q.items[1:]
	return item
}

func (q *Queue) run(item *types.QueueItem) {
	opts := &types.PrefetchOptions{
		HighPriority: item.Config.HighPriority,
		TTL:          item.Config.TTL,
		Priority:     item.Config.Priority,
		Trigger:      item.Trigger,
	}

	_, err := q.sched.do(context.Background(), item.URL, opts)
	if err == nil {
		return
	}

	if !types.IsRetryable(err) || item.RetryCount >= q.maxRetries {
		q.logger.Debug("Dropping queue item",
			"url", item.URL,
			"retries", item.RetryCount,
			"error", err,
		)
		return
	}

	item.RetryCount++
	q.logger.Debug("Requeueing after failure",
		"url", item.URL,
		"retry", item.RetryCount,
		"backoff", q.backoff,
	)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(q.backoff * time.Duration(item.RetryCount))
		defer timer.Stop()
		select {
		case <-q.stop:
		case <-timer.C:
			q.Enqueue(item)
		}
	}()
}

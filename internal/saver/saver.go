package saver

import (
	"context"
	"strconv"
	"sync"

	"github.com/MrSnakeDoc/antenna/internal/logger"
	"github.com/MrSnakeDoc/antenna/internal/metrics"
	"github.com/MrSnakeDoc/antenna/internal/service"
)

// PersistFunc writes one service's durable record. It runs on the save
// worker with the arbitration lock held; disk or network time here must
// stay off the arbitration fast path, which is why saves are queued in
// the first place.
type PersistFunc func(ctx context.Context, s *service.Service) error

type pendingState int

const (
	pendingNone pendingState = iota
	pendingSave
	pendingRestart
)

// Queue coalesces "this service changed" events and drains them on a
// single background worker. At most one entry per service is queued at
// a time; a restart request upgrades an already-queued plain save in
// place. The queue lock is disjoint from the arbitration lock so
// enqueueing never waits on persistence I/O.
type Queue struct {
	core    *service.Core
	persist PersistFunc
	log     logger.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*service.Service
	pending map[*service.Service]pendingState
	running bool
	done    chan struct{}
}

// New creates a stopped queue.
func New(core *service.Core, persist PersistFunc, log logger.Logger) *Queue {
	q := &Queue{
		core:    core,
		persist: persist,
		log:     log,
		pending: make(map[*service.Service]pendingState),
		done:    make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue schedules a save for the service, optionally with a live
// restart once persisted. A queued entry holds one service reference,
// released after the drain. Duplicate enqueues coalesce.
func (q *Queue) Enqueue(s *service.Service, restart bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch q.pending[s] {
	case pendingNone:
		if restart {
			q.pending[s] = pendingRestart
		} else {
			q.pending[s] = pendingSave
		}
		q.queue = append(q.queue, s)
		s.Ref()
		q.cond.Signal()
	case pendingSave:
		if restart {
			q.pending[s] = pendingRestart
		}
	}
}

// PendingCount returns the number of queued entries.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Start launches the worker. ctx is passed to every persist call.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	q.running = true
	q.mu.Unlock()
	go q.run(ctx)
}

// Stop wakes the worker, lets it finish the entry in flight and joins
// it. Entries still queued after Stop are dropped with their references
// released.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.running = false
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done

	q.mu.Lock()
	for _, s := range q.queue {
		delete(q.pending, s)
		s.Unref()
	}
	q.queue = nil
	q.mu.Unlock()
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)

	q.mu.Lock()
	for q.running {
		if len(q.queue) == 0 {
			q.cond.Wait()
			continue
		}

		s := q.queue[0]
		q.queue = q.queue[1:]
		restart := q.pending[s] == pendingRestart
		delete(q.pending, s)
		q.mu.Unlock()

		if err := q.core.ApplyPendingSave(ctx, s, restart, q.persist); err != nil {
			// Persistence failures stay inside the worker; the loop
			// moves on to the next entry.
			metrics.SaveErrors.Inc()
			q.log.Error("failed to persist service",
				logger.String("id", s.ID),
				logger.Error(err))
		}
		metrics.Saves.WithLabelValues(strconv.FormatBool(restart)).Inc()

		q.mu.Lock()
	}
	q.mu.Unlock()
}

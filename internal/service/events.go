package service

import (
	"context"
	"sync"
	"time"

	"controlling_resistances/internal/logger"
	"controlling_resistances/internal/models"
	"controlling_resistances/internal/repository"

	"github.com/google/uuid"
)

const eventQueueSize = 256

// eventQueue stores the events raised during a run from its own goroutine,
// so the control loop and the actuator workers never wait on the database.
// Events pushed while the buffer is full are dropped and logged.
type eventQueue struct {
	repo repository.EventRepo
	log  *logger.Logger

	mu     sync.Mutex
	closed bool
	events chan models.HeaterEvent
	done   chan struct{}
}

func newEventQueue(repo repository.EventRepo, log *logger.Logger) *eventQueue {
	q := &eventQueue{
		repo:   repo,
		log:    log,
		events: make(chan models.HeaterEvent, eventQueueSize),
		done:   make(chan struct{}),
	}
	go q.loop()
	return q
}

// push stamps e and queues it without blocking.
func (q *eventQueue) push(e models.HeaterEvent) {
	e.EventID = uuid.NewString()
	e.OccurredAt = time.Now().UTC()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.log.Warnw("event_dropped", "type", e.Type, "reason", "run finished")
		return
	}
	select {
	case q.events <- e:
	default:
		q.log.Warnw("event_dropped", "type", e.Type, "reason", "queue full")
	}
}

func (q *eventQueue) loop() {
	defer close(q.done)
	for e := range q.events {
		if err := q.repo.Append(context.Background(), e); err != nil {
			q.log.Errorw("event_append_failed", "type", e.Type, "err", err)
		}
	}
}

// close stops accepting events and waits until the queued ones are stored.
func (q *eventQueue) close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()
	<-q.done
}

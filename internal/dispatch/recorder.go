package dispatch

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// DefaultRecordQueue is the queue size used when NewQueuedRecorder gets a
// non-positive size.
const DefaultRecordQueue = 256

// ErrRecordQueueFull is returned by QueuedRecorder.Record when the writer has
// fallen behind.
var ErrRecordQueueFull = errors.New("record queue full")

// QueuedRecorder moves event persistence off the dispatch path. Record only
// enqueues; Run writes to the wrapped Recorder on its own goroutine.
type QueuedRecorder struct {
	next  Recorder
	queue chan Event
	log   *logrus.Entry
}

// NewQueuedRecorder wraps next with a queue of size events.
func NewQueuedRecorder(next Recorder, size int, logger *logrus.Logger) *QueuedRecorder {
	if size <= 0 {
		size = DefaultRecordQueue
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &QueuedRecorder{
		next:  next,
		queue: make(chan Event, size),
		log:   logger.WithField("component", "recorder"),
	}
}

// Record queues e. It never blocks; a full queue drops e.
func (r *QueuedRecorder) Record(e Event) error {
	select {
	case r.queue <- e:
		return nil
	default:
		return ErrRecordQueueFull
	}
}

// Run writes queued events until ctx is cancelled, then flushes whatever is
// still queued.
func (r *QueuedRecorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return
		case e := <-r.queue:
			r.write(e)
		}
	}
}

func (r *QueuedRecorder) flush() {
	for {
		select {
		case e := <-r.queue:
			r.write(e)
		default:
			return
		}
	}
}

func (r *QueuedRecorder) write(e Event) {
	if err := r.next.Record(e); err != nil {
		r.log.WithError(err).WithField("event", e.ID).Warn("record event failed")
	}
}

package plugin

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/gesturecast/internal/dispatch"
)

const runnerQueue = 64

// Runner is a dispatch.Broadcaster that hands action events to the plugins
// declaring them. Plugins run one at a time on the Run goroutine.
type Runner struct {
	manager  *Manager
	executor *Executor
	queue    chan dispatch.Event
	log      *logrus.Entry
}

// NewRunner creates a Runner over the plugins manager has discovered.
func NewRunner(manager *Manager, executor *Executor, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{
		manager:  manager,
		executor: executor,
		queue:    make(chan dispatch.Event, runnerQueue),
		log:      logger.WithField("component", "plugin-runner"),
	}
}

// Broadcast queues action events that at least one plugin handles. It never
// blocks; events are dropped when the queue is full.
func (r *Runner) Broadcast(e dispatch.Event) {
	if e.Kind != dispatch.KindAction || len(r.manager.ForAction(string(e.Action))) == 0 {
		return
	}
	select {
	case r.queue <- e:
	default:
		r.log.WithField("action", e.Action).Warn("plugin queue full, dropping action")
	}
}

// Run executes queued actions until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-r.queue:
			r.run(ctx, e)
		}
	}
}

func (r *Runner) run(ctx context.Context, e dispatch.Event) {
	for _, p := range r.manager.ForAction(string(e.Action)) {
		log := r.log.WithFields(logrus.Fields{
			"plugin":   p.Manifest.Name,
			"action":   e.Action,
			"identity": e.Source,
		})

		resp, err := r.executor.Execute(ctx, p, &Request{
			Action:  string(e.Action),
			Gesture: string(e.Gesture),
			Source:  e.Source,
			Time:    e.Time,
		})
		if err != nil {
			log.WithError(err).Warn("plugin failed")
			continue
		}
		if !resp.Success {
			log.WithField("error", resp.Error).Warn("plugin reported failure")
			continue
		}
		log.Debug("plugin ran")
	}
}

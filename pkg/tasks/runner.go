package tasks

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/go-go-golems/agentverse/pkg/events"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMinDelay = 2000 * time.Millisecond
	DefaultMaxDelay = 3500 * time.Millisecond
)

var ErrAlreadyRunning = errors.New("runner is already running")

// Runner executes tasks one after the other. Each task turns running as soon
// as it becomes current and completes when its timer fires.
type Runner struct {
	mu        sync.Mutex
	tasks     []Task
	current   int
	running   bool
	timer     *time.Timer
	minDelay  time.Duration
	maxDelay  time.Duration
	delay     func(lo, hi time.Duration) time.Duration
	publisher events.Publisher
	notifier  events.Notifier
	now       func() time.Time
}

type RunnerOption func(*Runner)

func WithDelays(lo, hi time.Duration) RunnerOption {
	return func(r *Runner) {
		r.minDelay = lo
		r.maxDelay = hi
	}
}

// WithDelayFunc overrides how the delay between min and max is picked.
func WithDelayFunc(f func(lo, hi time.Duration) time.Duration) RunnerOption {
	return func(r *Runner) {
		r.delay = f
	}
}

func WithPublisher(p events.Publisher) RunnerOption {
	return func(r *Runner) {
		r.publisher = p
	}
}

func WithNotifier(n events.Notifier) RunnerOption {
	return func(r *Runner) {
		r.notifier = n
	}
}

func randomDelay(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)+1))
}

func NewRunner(tasks []Task, options ...RunnerOption) *Runner {
	r := &Runner{
		tasks:     append([]Task(nil), tasks...),
		current:   -1,
		minDelay:  DefaultMinDelay,
		maxDelay:  DefaultMaxDelay,
		delay:     randomDelay,
		publisher: events.NopPublisher{},
		notifier:  events.LogNotifier{},
		now:       time.Now,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

func (r *Runner) Tasks() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Task(nil), r.tasks...)
}

// Current returns the index of the task being executed, or -1.
func (r *Runner) Current() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Pending reports whether a completion timer is armed.
func (r *Runner) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

// Run executes every pending task in order and blocks until the last one
// has completed or ctx is done. Cancelling ctx stops the armed timer and
// leaves the current task running.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.timer != nil {
			r.timer.Stop()
			r.timer = nil
		}
		r.running = false
		r.current = -1
		r.mu.Unlock()
	}()

	completed := 0
	for i := range r.Tasks() {
		r.mu.Lock()
		if r.tasks[i].Status != StatusPending {
			r.mu.Unlock()
			continue
		}
		r.current = i
		r.tasks[i].Status = StatusRunning
		task := r.tasks[i]
		timer := time.NewTimer(r.delay(r.minDelay, r.maxDelay))
		r.timer = timer
		r.mu.Unlock()

		r.publishStatus(task)
		log.Debug().Str("task", task.ID).Str("description", task.Description).Msg("task running")

		select {
		case <-ctx.Done():
			log.Debug().Str("task", task.ID).Msg("task run cancelled")
			return ctx.Err()
		case <-timer.C:
		}

		r.mu.Lock()
		r.timer = nil
		r.tasks[i].Status = StatusCompleted
		r.tasks[i].Result = CompletionResult(task.Description)
		task = r.tasks[i]
		r.mu.Unlock()

		r.publishStatus(task)
		completed++
	}

	events.PublishBlind(r.publisher, events.TopicTasks, events.RunComplete{
		Type:      events.EventTypeRunComplete,
		Completed: completed,
		Time:      r.now(),
	})
	r.notifier.Notify(events.NewToast("Execution Complete", "All tasks have been executed."))
	return nil
}

func (r *Runner) publishStatus(t Task) {
	events.PublishBlind(r.publisher, events.TopicTasks, events.TaskStatus{
		Type:        events.EventTypeTaskStatus,
		TaskID:      t.ID,
		Description: t.Description,
		Status:      string(t.Status),
		Result:      t.Result,
		Time:        r.now(),
	})
}

package tasks

import (
	"context"
	"strings"
	"sync"

	"github.com/go-go-golems/agentverse/pkg/events"
	"github.com/go-go-golems/agentverse/pkg/flows"
	"github.com/go-go-golems/agentverse/pkg/parse"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyObjective = errors.New("objective is empty")
	ErrEmptyFeedback  = errors.New("feedback is empty")
	ErrNoTasks        = errors.New("no tasks to execute")
	ErrBusy           = errors.New("dashboard is busy")
	ErrTaskNotFound   = errors.New("task not found")
	ErrNotCompleted   = errors.New("task has not completed")
)

type Planner interface {
	FormulatePlan(ctx context.Context, in *flows.FormulatePlanInput) (*flows.FormulatePlanOutput, error)
	TaskExecutionFeedback(ctx context.Context, in *flows.TaskExecutionFeedbackInput) (*flows.TaskExecutionFeedbackOutput, error)
}

// Dashboard owns the current objective, its plan and the tasks derived from it.
type Dashboard struct {
	mu         sync.Mutex
	planner    Planner
	notifier   events.Notifier
	runnerOpts []RunnerOption

	objective string
	plan      string
	tasks     []Task
	runner    *Runner
	busy      bool
}

type DashboardOption func(*Dashboard)

func WithDashboardNotifier(n events.Notifier) DashboardOption {
	return func(d *Dashboard) {
		d.notifier = n
	}
}

// WithRunnerOptions sets the options used for every execution run.
func WithRunnerOptions(opts ...RunnerOption) DashboardOption {
	return func(d *Dashboard) {
		d.runnerOpts = append(d.runnerOpts, opts...)
	}
}

func NewDashboard(planner Planner, options ...DashboardOption) *Dashboard {
	d := &Dashboard{
		planner:  planner,
		notifier: events.LogNotifier{},
	}
	for _, o := range options {
		o(d)
	}
	return d
}

func (d *Dashboard) Objective() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.objective
}

func (d *Dashboard) PlanText() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.plan
}

// Tasks returns the current tasks, including live states during a run.
func (d *Dashboard) Tasks() []Task {
	d.mu.Lock()
	runner := d.runner
	tasks := append([]Task(nil), d.tasks...)
	d.mu.Unlock()
	if runner != nil {
		return runner.Tasks()
	}
	return tasks
}

// SetTasks replaces the task list with fresh pending tasks.
func (d *Dashboard) SetTasks(descriptions ...string) ([]Task, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return nil, ErrBusy
	}
	d.tasks = NewTasks(descriptions...)
	return append([]Task(nil), d.tasks...), nil
}

func (d *Dashboard) acquire() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy {
		return ErrBusy
	}
	d.busy = true
	return nil
}

func (d *Dashboard) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = false
}

// PlanSteps splits a plan into step descriptions: the items of its markdown
// lists, or its non-empty lines when it has none.
func PlanSteps(plan string) []string {
	items, err := parse.ExtractListItems(plan)
	if err == nil && len(items) > 0 {
		return items
	}
	return parse.NonEmptyLines(plan)
}

// Plan asks the model for a plan to reach objective and replaces the task
// list with its steps.
func (d *Dashboard) Plan(ctx context.Context, objective string) ([]Task, error) {
	if strings.TrimSpace(objective) == "" {
		return nil, ErrEmptyObjective
	}
	if err := d.acquire(); err != nil {
		return nil, err
	}
	defer d.release()

	out, err := d.planner.FormulatePlan(ctx, &flows.FormulatePlanInput{Objective: objective})
	if err != nil {
		log.Error().Err(err).Msg("Error formulating plan")
		d.notifier.Notify(events.NewErrorToast("Error", "Failed to formulate a plan. Please try again."))
		return nil, err
	}

	tasks := NewTasks(PlanSteps(out.Plan)...)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.objective = objective
	d.plan = out.Plan
	d.tasks = tasks
	return append([]Task(nil), tasks...), nil
}

// Execute runs every pending task and blocks until the run ends.
func (d *Dashboard) Execute(ctx context.Context) ([]Task, error) {
	if err := d.acquire(); err != nil {
		return nil, err
	}
	defer d.release()

	d.mu.Lock()
	if len(d.tasks) == 0 {
		d.mu.Unlock()
		return nil, ErrNoTasks
	}
	runner := NewRunner(d.tasks, append([]RunnerOption{WithNotifier(d.notifier)}, d.runnerOpts...)...)
	d.runner = runner
	d.mu.Unlock()

	err := runner.Run(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = runner.Tasks()
	d.runner = nil
	return append([]Task(nil), d.tasks...), err
}

// SubmitFeedback sends feedback on a completed task to the model and stores
// both the feedback and the refined approach on the task.
func (d *Dashboard) SubmitFeedback(ctx context.Context, taskID string, feedback string) (*Task, error) {
	if strings.TrimSpace(feedback) == "" {
		return nil, ErrEmptyFeedback
	}
	if err := d.acquire(); err != nil {
		return nil, err
	}
	defer d.release()

	d.mu.Lock()
	idx := d.indexLocked(taskID)
	if idx < 0 {
		d.mu.Unlock()
		return nil, errors.Wrapf(ErrTaskNotFound, "task %s", taskID)
	}
	task := d.tasks[idx]
	d.mu.Unlock()

	if task.Status != StatusCompleted {
		return nil, errors.Wrapf(ErrNotCompleted, "task %s is %s", taskID, task.Status)
	}

	out, err := d.planner.TaskExecutionFeedback(ctx, &flows.TaskExecutionFeedbackInput{
		TaskID:           task.ID,
		TaskDescription:  task.Description,
		CompletionResult: task.Result,
		Feedback:         feedback,
	})
	if err != nil {
		log.Error().Err(err).Str("task", taskID).Msg("Error submitting feedback")
		d.notifier.Notify(events.NewErrorToast("Error", "Failed to process feedback. Please try again."))
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if idx = d.indexLocked(taskID); idx < 0 {
		return nil, errors.Wrapf(ErrTaskNotFound, "task %s", taskID)
	}
	d.tasks[idx].Feedback = feedback
	d.tasks[idx].RefinedApproach = out.RefinedApproach
	ret := d.tasks[idx]
	return &ret, nil
}

func (d *Dashboard) indexLocked(id string) int {
	for i := range d.tasks {
		if d.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Package tasks simulates an agent working through a plan. The Runner moves
// tasks from pending to completed with an artificial delay; the Dashboard
// turns objectives into tasks and collects feedback on finished ones.
package tasks

import (
	"fmt"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	// StatusError is part of the task model but no runner path produces it.
	StatusError Status = "error"
)

type Task struct {
	ID              string `json:"id" yaml:"id"`
	Description     string `json:"description" yaml:"description"`
	Status          Status `json:"status" yaml:"status"`
	Result          string `json:"result,omitempty" yaml:"result,omitempty"`
	Feedback        string `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	RefinedApproach string `json:"refinedApproach,omitempty" yaml:"refinedApproach,omitempty"`
}

func NewTask(description string) Task {
	return Task{
		ID:          uuid.NewString(),
		Description: description,
		Status:      StatusPending,
	}
}

func NewTasks(descriptions ...string) []Task {
	ret := make([]Task, 0, len(descriptions))
	for _, d := range descriptions {
		ret = append(ret, NewTask(d))
	}
	return ret
}

// CompletionResult is the canned result written when a task completes.
func CompletionResult(description string) string {
	return fmt.Sprintf("Task \"%s\" completed successfully.", description)
}

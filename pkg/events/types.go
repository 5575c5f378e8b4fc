package events

import "time"

// Topics used on the bus.
const (
	TopicHistory = "history"
	TopicTasks   = "tasks"
	TopicToasts  = "toasts"
)

type EventType string

const (
	EventTypeHistoryChanged EventType = "history.changed"
	EventTypeTaskStatus     EventType = "task.status"
	EventTypeRunComplete    EventType = "tasks.complete"
	EventTypeToast          EventType = "toast"
)

// HistoryChanged is published whenever the conversation list changes.
type HistoryChanged struct {
	Type           EventType `json:"type"`
	Reason         string    `json:"reason"`
	ConversationID string    `json:"conversationId,omitempty"`
	Count          int       `json:"count"`
	Time           time.Time `json:"time"`
}

// TaskStatus is published on every task state transition.
type TaskStatus struct {
	Type        EventType `json:"type"`
	TaskID      string    `json:"taskId"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Result      string    `json:"result,omitempty"`
	Time        time.Time `json:"time"`
}

// RunComplete is published once the last task of a run has completed.
type RunComplete struct {
	Type      EventType `json:"type"`
	Completed int       `json:"completed"`
	Time      time.Time `json:"time"`
}

type ToastVariant string

const (
	ToastVariantDefault     ToastVariant = "default"
	ToastVariantDestructive ToastVariant = "destructive"
)

// Toast is a user-facing notification.
type Toast struct {
	Type        EventType    `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Variant     ToastVariant `json:"variant"`
}

func NewToast(title, description string) Toast {
	return Toast{Type: EventTypeToast, Title: title, Description: description, Variant: ToastVariantDefault}
}

func NewErrorToast(title, description string) Toast {
	return Toast{Type: EventTypeToast, Title: title, Description: description, Variant: ToastVariantDestructive}
}

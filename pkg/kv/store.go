package kv

import (
	"context"
	"errors"
)

// Well-known keys used by the application state.
const (
	KeyChatHistory   = "chatHistory"
	KeyAgentSettings = "agentSettings"
	KeyUserProfile   = "userProfile"
)

var (
	ErrClosed      = errors.New("store is closed")
	ErrUnknownType = errors.New("unknown store type")
)

// Store is a string key-value persistence capability, modelled after browser
// local storage. Removing a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

package history

import (
	"github.com/huandu/go-clone"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const (
	DefaultTitle   = "New Chat"
	titleMaxLength = 35
	titleEllipsis  = "..."
)

// Message is a single chat message. Code and AudioSrc are enrichments attached
// after creation.
type Message struct {
	ID       string `json:"id" yaml:"id"`
	Role     Role   `json:"role" yaml:"role"`
	Content  string `json:"content" yaml:"content"`
	Code     string `json:"code,omitempty" yaml:"code,omitempty"`
	AudioSrc string `json:"audioSrc,omitempty" yaml:"audioSrc,omitempty"`
}

// Conversation is a titled, ordered list of messages.
type Conversation struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Messages []Message `json:"messages" yaml:"messages"`
}

func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	return clone.Clone(c).(*Conversation)
}

// Summary is the sidebar projection of a conversation.
type Summary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// FindMessage returns the index of the message with id, or -1.
func (c *Conversation) FindMessage(id string) int {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// DeriveTitle computes a conversation title from the first user message:
// the first 35 characters, with an ellipsis when the content is longer.
func DeriveTitle(messages []Message) (string, bool) {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		r := []rune(m.Content)
		if len(r) > titleMaxLength {
			return string(r[:titleMaxLength]) + titleEllipsis, true
		}
		return m.Content, true
	}
	return "", false
}

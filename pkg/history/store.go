package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-go-golems/agentverse/pkg/events"
	"github.com/go-go-golems/agentverse/pkg/kv"
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("conversation not found")

// Store owns the list of conversations and the currently active one, and
// mirrors the list to the chatHistory key after every change.
//
// The in-memory list is the source of truth for the lifetime of the store:
// persistence failures are logged and returned, never rolled back.
type Store struct {
	mu            sync.Mutex
	kv            kv.Store
	publisher     events.Publisher
	now           func() time.Time
	conversations []*Conversation
	activeID      string
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Store) {
		s.publisher = p
	}
}

// NewStore builds a store and loads any saved history from kvStore.
// Malformed or unreadable history is logged and replaced by an empty list.
func NewStore(ctx context.Context, kvStore kv.Store, options ...Option) *Store {
	s := &Store{
		kv:        kvStore,
		publisher: events.NopPublisher{},
		now:       time.Now,
	}
	for _, o := range options {
		o(s)
	}

	conversations, err := s.load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load chat history")
	}
	s.conversations = conversations
	return s
}

func (s *Store) load(ctx context.Context) ([]*Conversation, error) {
	raw, ok, err := s.kv.Get(ctx, kv.KeyChatHistory)
	if err != nil {
		return nil, errors.Wrap(err, "could not read chat history")
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var conversations []*Conversation
	if err := json.Unmarshal([]byte(raw), &conversations); err != nil {
		return nil, errors.Wrap(err, "could not decode chat history")
	}
	ret := conversations[:0]
	for _, c := range conversations {
		if c != nil {
			ret = append(ret, c)
		}
	}
	return ret, nil
}

// Conversations returns the sidebar summaries, newest first.
func (s *Store) Conversations() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]Summary, 0, len(s.conversations))
	for _, c := range s.conversations {
		ret = append(ret, Summary{ID: c.ID, Title: c.Title})
	}
	return ret
}

// All returns deep copies of every conversation.
func (s *Store) All() []*Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone.Clone(s.conversations).([]*Conversation)
}

// Get looks up a conversation without touching the active pointer.
func (s *Store) Get(id string) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, false
	}
	return s.conversations[idx].Clone(), true
}

// ActiveConversation returns a copy of the active conversation, or nil.
func (s *Store) ActiveConversation() *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked().Clone()
}

func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// StartNewChat creates an empty conversation, prepends it and makes it active.
// Ids are derived from the current millisecond; calls landing on the same
// millisecond get the next free one.
func (s *Store) StartNewChat(ctx context.Context) (string, error) {
	s.mu.Lock()
	ms := s.now().UnixMilli()
	id := fmt.Sprintf("chat-%d", ms)
	for s.indexLocked(id) >= 0 {
		ms++
		id = fmt.Sprintf("chat-%d", ms)
	}

	c := &Conversation{
		ID:       id,
		Title:    DefaultTitle,
		Messages: []Message{},
	}
	s.conversations = append([]*Conversation{c}, s.conversations...)
	s.activeID = id
	err := s.persistLocked(ctx)
	count := len(s.conversations)
	s.mu.Unlock()

	s.publish("new", id, count)
	return id, err
}

// LoadConversation makes id the active conversation. When id is unknown the
// active pointer is cleared and false is returned.
func (s *Store) LoadConversation(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) < 0 {
		s.activeID = ""
		return false
	}
	s.activeID = id
	return true
}

// UpdateActiveConversation replaces the messages of the active conversation.
// Without an active conversation this is a no-op.
func (s *Store) UpdateActiveConversation(ctx context.Context, messages []Message) error {
	s.mu.Lock()
	active := s.activeLocked()
	if active == nil {
		s.mu.Unlock()
		return nil
	}
	err := s.updateLocked(ctx, active, messages)
	id, count := active.ID, len(s.conversations)
	s.mu.Unlock()

	s.publish("update", id, count)
	return err
}

// UpdateConversation replaces the messages of conversation id in one step,
// regardless of which conversation is active. Unknown ids yield ErrNotFound.
func (s *Store) UpdateConversation(ctx context.Context, id string, messages []Message) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return errors.Wrapf(ErrNotFound, "conversation %s", id)
	}
	err := s.updateLocked(ctx, s.conversations[idx], messages)
	count := len(s.conversations)
	s.mu.Unlock()

	s.publish("update", id, count)
	return err
}

// updateLocked sets the messages of c. The title is derived from the first
// user message when c goes from zero to a non-zero number of messages.
func (s *Store) updateLocked(ctx context.Context, c *Conversation, messages []Message) error {
	if len(c.Messages) == 0 && len(messages) > 0 {
		if title, ok := DeriveTitle(messages); ok {
			c.Title = title
		}
	}
	c.Messages = clone.Clone(messages).([]Message)
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	return s.persistLocked(ctx)
}

// DeleteConversation removes id from the list and clears the active pointer
// if it pointed at the deleted conversation.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx >= 0 {
		s.conversations = append(s.conversations[:idx], s.conversations[idx+1:]...)
	}
	if s.activeID == id {
		s.activeID = ""
	}
	err := s.persistLocked(ctx)
	count := len(s.conversations)
	s.mu.Unlock()

	s.publish("delete", id, count)
	return err
}

// ClearHistory drops every conversation and the active pointer.
func (s *Store) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	s.conversations = nil
	s.activeID = ""
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.publish("clear", "", 0)
	return err
}

func (s *Store) activeLocked() *Conversation {
	if s.activeID == "" {
		return nil
	}
	idx := s.indexLocked(s.activeID)
	if idx < 0 {
		return nil
	}
	return s.conversations[idx]
}

func (s *Store) indexLocked(id string) int {
	for i, c := range s.conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// persistLocked mirrors the list to storage; an empty list removes the key.
func (s *Store) persistLocked(ctx context.Context) error {
	if len(s.conversations) == 0 {
		if err := s.kv.Remove(ctx, kv.KeyChatHistory); err != nil {
			log.Error().Err(err).Msg("Failed to remove chat history from storage")
			return errors.Wrap(err, "could not remove chat history")
		}
		return nil
	}

	b, err := json.Marshal(s.conversations)
	if err != nil {
		return errors.Wrap(err, "could not encode chat history")
	}
	if err := s.kv.Set(ctx, kv.KeyChatHistory, string(b)); err != nil {
		log.Error().Err(err).Msg("Failed to save chat history to storage")
		return errors.Wrap(err, "could not save chat history")
	}
	return nil
}

func (s *Store) publish(reason string, id string, count int) {
	events.PublishBlind(s.publisher, events.TopicHistory, events.HistoryChanged{
		Type:           events.EventTypeHistoryChanged,
		Reason:         reason,
		ConversationID: id,
		Count:          count,
		Time:           s.now(),
	})
}

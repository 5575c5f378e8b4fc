// Package chat drives one chat conversation: submitting user input to the
// model with optimistic updates and rollback, and lazily attaching speech to
// assistant messages.
package chat

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/agentverse/pkg/ai"
	"github.com/go-go-golems/agentverse/pkg/events"
	"github.com/go-go-golems/agentverse/pkg/flows"
	"github.com/go-go-golems/agentverse/pkg/history"
	"github.com/go-go-golems/agentverse/pkg/persona"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyInput     = errors.New("input is empty")
	ErrBusy           = errors.New("a request is already in flight")
	ErrNoConversation = errors.New("no conversation is open")
)

const (
	responseErrorDescription = "Failed to get a response. Please try again."
	audioErrorDescription    = "Failed to generate audio for this message."
)

// Flows is the subset of the model flows a chat session calls.
type Flows interface {
	Chat(ctx context.Context, in *flows.ChatInput) (*flows.ChatOutput, error)
	TextToSpeech(ctx context.Context, in *flows.TextToSpeechInput) (*flows.TextToSpeechOutput, error)
}

type Session struct {
	mu       sync.Mutex
	history  *history.Store
	flows    Flows
	persona  *persona.Store
	notifier events.Notifier
	now      func() time.Time

	conversationID string
	submitting     bool
	audioLoading   string
}

type Option func(*Session)

func WithNotifier(n events.Notifier) Option {
	return func(s *Session) {
		s.notifier = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession binds a session to the history store. personaStore may be nil,
// in which case default agent settings are sent with every message.
func NewSession(h *history.Store, f Flows, personaStore *persona.Store, options ...Option) *Session {
	s := &Session{
		history:  h,
		flows:    f,
		persona:  personaStore,
		notifier: events.LogNotifier{},
		now:      time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// ChatPath is the navigation path of a conversation.
func ChatPath(id string) string {
	return "/chat/" + id
}

// SandboxURL is the navigation target that opens code in the sandbox.
func SandboxURL(code string) string {
	return "/sandbox?code=" + url.QueryEscape(code)
}

// Open makes id the active conversation of the store and of this session.
func (s *Session) Open(ctx context.Context, id string) (*history.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.history.LoadConversation(id) {
		s.conversationID = ""
		return nil, errors.Wrapf(history.ErrNotFound, "conversation %s", id)
	}
	s.conversationID = id
	log.Debug().Str("conversation", id).Str("path", ChatPath(id)).Msg("opened conversation")
	return s.history.ActiveConversation(), nil
}

// Conversation returns a copy of the open conversation, or nil.
func (s *Session) Conversation() *history.Conversation {
	s.mu.Lock()
	id := s.conversationID
	s.mu.Unlock()
	if id == "" {
		return nil
	}
	c, _ := s.history.Get(id)
	return c
}

func (s *Session) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// lookup returns a copy of conversation id as currently stored.
func (s *Session) lookup(id string) (*history.Conversation, error) {
	if id == "" {
		return nil, ErrNoConversation
	}
	c, ok := s.history.Get(id)
	if !ok {
		return nil, errors.Wrapf(history.ErrNotFound, "conversation %s", id)
	}
	return c, nil
}

// save writes messages to conversation id. Storage failures are logged and
// the in-memory update stands; only a missing conversation is returned.
func (s *Session) save(ctx context.Context, id string, messages []history.Message, what string) error {
	err := s.history.UpdateConversation(ctx, id, messages)
	if err == nil {
		return nil
	}
	if errors.Is(err, history.ErrNotFound) {
		return err
	}
	log.Warn().Err(err).Str("conversation", id).Msgf("could not persist %s", what)
	return nil
}

func (s *Session) agentSettings(ctx context.Context) persona.AgentSettings {
	if s.persona == nil {
		return persona.DefaultAgentSettings()
	}
	return s.persona.LoadAgentSettings(ctx)
}

func historyForModel(messages []history.Message) []ai.Turn {
	turns := make([]ai.Turn, 0, len(messages))
	for _, m := range messages {
		role := ai.TurnRoleModel
		if m.Role == history.RoleUser {
			role = ai.TurnRoleUser
		}
		turns = append(turns, ai.Turn{Role: role, Content: m.Content})
	}
	return turns
}

// Submit appends the user's message, asks the model for a reply and appends
// it. On failure the conversation is restored to its state before the call
// and a toast is raised.
func (s *Session) Submit(ctx context.Context, input string) (*history.Message, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	conv, err := s.lookup(s.conversationID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	previous := conv.Messages
	userMessage := history.Message{
		ID:      fmt.Sprintf("user-%d", s.now().UnixMilli()),
		Role:    history.RoleUser,
		Content: input,
	}
	newMessages := append(append([]history.Message{}, previous...), userMessage)
	if err := s.save(ctx, conv.ID, newMessages, "user message"); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.submitting = true
	s.mu.Unlock()

	settings := s.agentSettings(ctx)
	out, chatErr := s.flows.Chat(ctx, &flows.ChatInput{
		History:  historyForModel(previous),
		Message:  input,
		Settings: &settings,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false

	if _, err := s.lookup(conv.ID); err != nil {
		if chatErr != nil {
			return nil, chatErr
		}
		return nil, err
	}

	if chatErr != nil {
		log.Error().Err(chatErr).Str("conversation", conv.ID).Msg("Error getting chat response")
		s.notifier.Notify(events.NewErrorToast("Error", responseErrorDescription))
		_ = s.save(ctx, conv.ID, previous, "rollback")
		return nil, chatErr
	}

	assistantMessage := history.Message{
		ID:      fmt.Sprintf("assistant-%d", s.now().UnixMilli()),
		Role:    history.RoleAssistant,
		Content: out.Message,
		Code:    out.Code,
	}
	if err := s.save(ctx, conv.ID, append(newMessages, assistantMessage), "assistant message"); err != nil {
		return nil, err
	}
	return &assistantMessage, nil
}

// PlayAudio returns the audio source of a message, synthesizing and caching
// it on the message the first time.
func (s *Session) PlayAudio(ctx context.Context, messageID string) (string, error) {
	s.mu.Lock()
	conv, err := s.lookup(s.conversationID)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	idx := conv.FindMessage(messageID)
	if idx < 0 {
		s.mu.Unlock()
		return "", errors.Wrapf(history.ErrNotFound, "message %s", messageID)
	}
	if src := conv.Messages[idx].AudioSrc; src != "" {
		s.mu.Unlock()
		return src, nil
	}
	text := conv.Messages[idx].Content
	s.audioLoading = messageID
	s.mu.Unlock()

	out, ttsErr := s.flows.TextToSpeech(ctx, &flows.TextToSpeechInput{Text: text})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.audioLoading = ""

	if ttsErr != nil {
		log.Error().Err(ttsErr).Str("message", messageID).Msg("Error generating audio")
		s.notifier.Notify(events.NewErrorToast("Audio Error", audioErrorDescription))
		return "", ttsErr
	}

	conv, err = s.lookup(conv.ID)
	if err != nil {
		return "", err
	}
	if idx = conv.FindMessage(messageID); idx < 0 {
		return "", errors.Wrapf(history.ErrNotFound, "message %s", messageID)
	}
	conv.Messages[idx].AudioSrc = out.AudioDataURI
	if err := s.save(ctx, conv.ID, conv.Messages, "audio source"); err != nil {
		return "", err
	}
	return out.AudioDataURI, nil
}

// AudioLoading returns the id of the message whose audio is being generated.
func (s *Session) AudioLoading() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioLoading
}

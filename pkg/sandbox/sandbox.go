// Package sandbox holds the state of the code sandbox page: the code under
// edit, generation from a prompt and copying to the clipboard.
package sandbox

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/go-go-golems/agentverse/pkg/events"
	"github.com/go-go-golems/agentverse/pkg/flows"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultCopyReset = 2 * time.Second

var (
	ErrEmptyPrompt   = errors.New("prompt is empty")
	ErrBusy          = errors.New("code generation already in flight")
	ErrNothingToCopy = errors.New("no code to copy")
)

type CodeGenerator interface {
	GenerateCode(ctx context.Context, in *flows.GenerateCodeInput) (*flows.GenerateCodeOutput, error)
}

type Sandbox struct {
	mu         sync.Mutex
	generator  CodeGenerator
	notifier   events.Notifier
	writeClip  func(string) error
	copyReset  time.Duration
	resetTimer *time.Timer

	code       string
	generating bool
	copied     bool
}

type Option func(*Sandbox)

func WithNotifier(n events.Notifier) Option {
	return func(s *Sandbox) {
		s.notifier = n
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(s *Sandbox) {
		s.writeClip = write
	}
}

func WithCopyReset(d time.Duration) Option {
	return func(s *Sandbox) {
		s.copyReset = d
	}
}

func New(generator CodeGenerator, options ...Option) *Sandbox {
	s := &Sandbox{
		generator: generator,
		notifier:  events.LogNotifier{},
		writeClip: clipboard.WriteAll,
		copyReset: DefaultCopyReset,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// NewFromQuery builds a sandbox whose initial code comes from the "code"
// parameter of rawQuery.
func NewFromQuery(rawQuery string, generator CodeGenerator, options ...Option) (*Sandbox, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing sandbox query")
	}
	s := New(generator, options...)
	s.code = values.Get("code")
	return s, nil
}

func (s *Sandbox) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// SetCode replaces the code, as when the user edits it by hand.
func (s *Sandbox) SetCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
}

func (s *Sandbox) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

func (s *Sandbox) Copied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copied
}

// Generate clears the current code and replaces it with code generated from
// prompt. On failure the code stays empty and a toast is raised.
func (s *Sandbox) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.generating = true
	s.code = ""
	s.copied = false
	s.mu.Unlock()

	out, err := s.generator.GenerateCode(ctx, &flows.GenerateCodeInput{Prompt: prompt})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false
	if err != nil {
		log.Error().Err(err).Msg("Error generating code")
		s.notifier.Notify(events.NewErrorToast("Error", "Failed to generate code. Please try again."))
		return "", err
	}
	s.code = out.Code
	return s.code, nil
}

// Copy writes the code to the clipboard and raises the copied flag until the
// reset delay has passed.
func (s *Sandbox) Copy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.code == "" {
		return ErrNothingToCopy
	}
	if err := s.writeClip(s.code); err != nil {
		return errors.Wrap(err, "writing to clipboard")
	}

	s.copied = true
	if s.resetTimer != nil {
		s.resetTimer.Stop()
	}
	s.resetTimer = time.AfterFunc(s.copyReset, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.copied = false
	})
	return nil
}

// Close stops a pending copied-flag reset.
func (s *Sandbox) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
}

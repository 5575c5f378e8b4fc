package flows

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/go-go-golems/agentverse/pkg/ai"
	"github.com/go-go-golems/agentverse/pkg/persona"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedEngine replies with a fixed text and records the last request.
type scriptedEngine struct {
	mu    sync.Mutex
	reply string
	err   error
	last  *ai.Request
	calls int
}

func (s *scriptedEngine) Generate(ctx context.Context, req *ai.Request) (*ai.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &ai.Response{Text: s.reply}, nil
}

type countingSpeaker struct {
	calls int
	err   error
}

func (c *countingSpeaker) Synthesize(ctx context.Context, text string) (*ai.Audio, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &ai.Audio{MimeType: "audio/mpeg", Data: []byte(text)}, nil
}

func newFlows(t *testing.T, e ai.Engine, s ai.Speaker) *Flows {
	f, err := New(e, s)
	require.NoError(t, err)
	return f
}

func TestChatStructuredReply(t *testing.T) {
	e := &scriptedEngine{reply: `{"message": "Here is a button", "code": "<button/>"}`}
	f := newFlows(t, e, nil)

	out, err := f.Chat(context.Background(), &ChatInput{
		History: []ai.Turn{{Role: ai.TurnRoleUser, Content: "hi"}, {Role: ai.TurnRoleModel, Content: "hello"}},
		Message: "make a button",
	})
	require.NoError(t, err)
	assert.Equal(t, "Here is a button", out.Message)
	assert.Equal(t, "<button/>", out.Code)

	require.NotNil(t, e.last)
	assert.Equal(t, "make a button", e.last.Prompt)
	assert.Len(t, e.last.History, 2)
	require.NotNil(t, e.last.JSONSchema)
	assert.True(t, json.Valid(e.last.JSONSchema.Schema))
	assert.Contains(t, e.last.System, "You are AgentVerse, a helpful assistant.")
}

func TestChatUsesPersonaSettings(t *testing.T) {
	e := &scriptedEngine{reply: `{"message": "ok"}`}
	f := newFlows(t, e, nil)

	_, err := f.Chat(context.Background(), &ChatInput{
		Message: "hi",
		Settings: &persona.AgentSettings{
			AgentName:         "Ada",
			AgentRole:         persona.RoleResearchAnalyst,
			AgentInstructions: "Cite sources.",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, e.last.System, "You are Ada, a research analyst.")
	assert.Contains(t, e.last.System, "Cite sources.")
}

func TestChatPlainTextReplyFallsBackToCodeBlock(t *testing.T) {
	e := &scriptedEngine{reply: "Sure:\n\n```html\n<p>hi</p>\n```\n"}
	f := newFlows(t, e, nil)

	out, err := f.Chat(context.Background(), &ChatInput{Message: "html please"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Message, "Sure:"))
	assert.Equal(t, "<p>hi</p>", out.Code)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	e := &scriptedEngine{reply: `{"message": "x"}`}
	f := newFlows(t, e, nil)

	_, err := f.Chat(context.Background(), &ChatInput{Message: ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "input", ve.Stage)
	assert.Equal(t, 0, e.calls)
}

func TestChatRejectsUnknownHistoryRole(t *testing.T) {
	f := newFlows(t, &scriptedEngine{reply: "x"}, nil)
	_, err := f.Chat(context.Background(), &ChatInput{
		History: []ai.Turn{{Role: "assistant", Content: "hi"}},
		Message: "hi",
	})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestChatEmptyReplyIsOutputValidationError(t *testing.T) {
	f := newFlows(t, &scriptedEngine{reply: "   "}, nil)
	_, err := f.Chat(context.Background(), &ChatInput{Message: "hi"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "output", ve.Stage)
}

func TestChatModelFailure(t *testing.T) {
	f := newFlows(t, &scriptedEngine{err: errors.New("boom")}, nil)
	_, err := f.Chat(context.Background(), &ChatInput{Message: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModel))
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestGenerateCodeStripsFences(t *testing.T) {
	e := &scriptedEngine{reply: "```tsx\nexport const A = () => null;\n```"}
	f := newFlows(t, e, nil)

	out, err := f.GenerateCode(context.Background(), &GenerateCodeInput{Prompt: "a component"})
	require.NoError(t, err)
	assert.Equal(t, "export const A = () => null;", out.Code)
	assert.Contains(t, e.last.Prompt, "User Prompt: a component")

	e.reply = `{"code": "print(1)"}`
	out, err = f.GenerateCode(context.Background(), &GenerateCodeInput{Prompt: "python"})
	require.NoError(t, err)
	assert.Equal(t, "print(1)", out.Code)
}

func TestGenerateCodeRejectsBlankPrompt(t *testing.T) {
	f := newFlows(t, &scriptedEngine{reply: "x"}, nil)
	_, err := f.GenerateCode(context.Background(), &GenerateCodeInput{})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestTextToSpeechIsMemoised(t *testing.T) {
	s := &countingSpeaker{}
	f := newFlows(t, &scriptedEngine{}, s)

	out1, err := f.TextToSpeech(context.Background(), &TextToSpeechInput{Text: "hello"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out1.AudioDataURI, "data:audio/mpeg;base64,"))

	out2, err := f.TextToSpeech(context.Background(), &TextToSpeechInput{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, out1.AudioDataURI, out2.AudioDataURI)
	assert.Equal(t, 1, s.calls)
}

func TestTextToSpeechFailures(t *testing.T) {
	f := newFlows(t, &scriptedEngine{}, nil)
	_, err := f.TextToSpeech(context.Background(), &TextToSpeechInput{Text: "hello"})
	assert.True(t, errors.Is(err, ErrModel))

	f = newFlows(t, &scriptedEngine{}, &countingSpeaker{err: errors.New("quota")})
	_, err = f.TextToSpeech(context.Background(), &TextToSpeechInput{Text: "hello"})
	assert.True(t, errors.Is(err, ErrModel))
}

func TestFormulatePlan(t *testing.T) {
	e := &scriptedEngine{reply: `{"plan": "1. a\n2. b"}`}
	f := newFlows(t, e, nil)

	out, err := f.FormulatePlan(context.Background(), &FormulatePlanInput{Objective: "launch"})
	require.NoError(t, err)
	assert.Equal(t, "1. a\n2. b", out.Plan)
	assert.Contains(t, e.last.Prompt, "Objective: launch")

	e.reply = "1. just text"
	out, err = f.FormulatePlan(context.Background(), &FormulatePlanInput{Objective: "launch"})
	require.NoError(t, err)
	assert.Equal(t, "1. just text", out.Plan)
}

func TestTaskExecutionFeedback(t *testing.T) {
	e := &scriptedEngine{reply: `{"refinedApproach": "Be faster."}`}
	f := newFlows(t, e, nil)

	out, err := f.TaskExecutionFeedback(context.Background(), &TaskExecutionFeedbackInput{
		TaskID:           "t1",
		TaskDescription:  "Write report",
		CompletionResult: "done",
		Feedback:         "too slow",
	})
	require.NoError(t, err)
	assert.Equal(t, "Be faster.", out.RefinedApproach)
	assert.Contains(t, e.last.Prompt, "Task ID: t1")
	assert.Contains(t, e.last.Prompt, "Feedback: too slow")

	_, err = f.TaskExecutionFeedback(context.Background(), &TaskExecutionFeedbackInput{TaskID: "t1"})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestNewRequiresEngine(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}

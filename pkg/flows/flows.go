// Package flows holds the typed model calls behind the chat, sandbox and
// task pages. Every flow checks its input, renders a prompt, calls the
// engine once and checks the shape of what came back.
package flows

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-go-golems/agentverse/pkg/ai"
	"github.com/go-go-golems/agentverse/pkg/parse"
	"github.com/go-go-golems/agentverse/pkg/persona"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultSpeechCacheSize = 128

var (
	chatContract         = newContract[ChatInput, ChatOutput]("chat")
	generateCodeContract = newContract[GenerateCodeInput, GenerateCodeOutput]("generate-code")
	ttsContract          = newContract[TextToSpeechInput, TextToSpeechOutput]("text-to-speech")
	planContract         = newContract[FormulatePlanInput, FormulatePlanOutput]("formulate-plan")
	feedbackContract     = newContract[TaskExecutionFeedbackInput, TaskExecutionFeedbackOutput]("task-execution-feedback")
)

type Flows struct {
	engine  ai.Engine
	speaker ai.Speaker
	speech  *lru.Cache
}

type Option func(*options)

type options struct {
	speechCacheSize int
}

// WithSpeechCacheSize bounds the number of synthesized texts kept in memory.
func WithSpeechCacheSize(n int) Option {
	return func(o *options) {
		o.speechCacheSize = n
	}
}

// New builds the flows over engine. speaker may be nil, in which case
// TextToSpeech fails.
func New(engine ai.Engine, speaker ai.Speaker, opts ...Option) (*Flows, error) {
	if engine == nil {
		return nil, errors.New("flows need an engine")
	}
	o := &options{speechCacheSize: DefaultSpeechCacheSize}
	for _, opt := range opts {
		opt(o)
	}
	cache, err := lru.New(o.speechCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "creating speech cache")
	}
	return &Flows{engine: engine, speaker: speaker, speech: cache}, nil
}

func (f *Flows) generate(ctx context.Context, flow string, req *ai.Request) (string, error) {
	resp, err := f.engine.Generate(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("flow", flow).Msg("model call failed")
		return "", &ModelError{Flow: flow, Err: err}
	}
	return resp.Text, nil
}

// decodeStructured unmarshals a JSON reply into out. It reports false when
// the reply carries no decodable JSON object.
func decodeStructured(text string, out interface{}) bool {
	s, ok := parse.ExtractJSONObject(text)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(s), out) == nil
}

func (f *Flows) Chat(ctx context.Context, in *ChatInput) (*ChatOutput, error) {
	if in != nil && in.History == nil {
		cp := *in
		cp.History = []ai.Turn{}
		in = &cp
	}
	if err := chatContract.validateInput(in); err != nil {
		return nil, err
	}

	settings := persona.DefaultAgentSettings()
	if in.Settings != nil {
		settings = *in.Settings
	}
	system, err := render(chatSystemTmpl, struct {
		persona.AgentSettings
		RoleLabel string
	}{settings, persona.RoleLabel(settings.AgentRole)})
	if err != nil {
		return nil, err
	}

	text, err := f.generate(ctx, chatContract.name, &ai.Request{
		System:  system,
		History: in.History,
		Prompt:  in.Message,
		JSONSchema: &ai.StructuredOutput{
			Name:   "chat_reply",
			Schema: chatContract.OutputSchema(),
		},
	})
	if err != nil {
		return nil, err
	}

	out := &ChatOutput{}
	if !decodeStructured(text, out) || out.Message == "" {
		out = &ChatOutput{Message: strings.TrimSpace(text)}
		if cb, ok := parse.FirstCodeBlock(text); ok {
			out.Code = cb.Code
		}
	}
	if out.Code != "" {
		out.Code = parse.StripFences(out.Code)
	}
	if err := chatContract.validateOutput(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Flows) GenerateCode(ctx context.Context, in *GenerateCodeInput) (*GenerateCodeOutput, error) {
	if err := generateCodeContract.validateInput(in); err != nil {
		return nil, err
	}
	prompt, err := render(generateCodeTmpl, in)
	if err != nil {
		return nil, err
	}
	text, err := f.generate(ctx, generateCodeContract.name, &ai.Request{
		Prompt: prompt,
		JSONSchema: &ai.StructuredOutput{
			Name:   "generated_code",
			Schema: generateCodeContract.OutputSchema(),
		},
	})
	if err != nil {
		return nil, err
	}

	out := &GenerateCodeOutput{}
	if !decodeStructured(text, out) || out.Code == "" {
		out.Code = text
	}
	out.Code = parse.StripFences(out.Code)
	if err := generateCodeContract.validateOutput(out); err != nil {
		return nil, err
	}
	return out, nil
}

// TextToSpeech synthesizes text and returns it as a data URI. Results are
// memoised by text.
func (f *Flows) TextToSpeech(ctx context.Context, in *TextToSpeechInput) (*TextToSpeechOutput, error) {
	if err := ttsContract.validateInput(in); err != nil {
		return nil, err
	}
	if v, ok := f.speech.Get(in.Text); ok {
		return &TextToSpeechOutput{AudioDataURI: v.(string)}, nil
	}
	if f.speaker == nil {
		return nil, &ModelError{Flow: ttsContract.name, Err: errors.New("no speaker configured")}
	}

	audio, err := f.speaker.Synthesize(ctx, in.Text)
	if err != nil {
		log.Warn().Err(err).Str("flow", ttsContract.name).Msg("speech synthesis failed")
		return nil, &ModelError{Flow: ttsContract.name, Err: err}
	}
	out := &TextToSpeechOutput{AudioDataURI: audio.DataURI()}
	if err := ttsContract.validateOutput(out); err != nil {
		return nil, err
	}
	f.speech.Add(in.Text, out.AudioDataURI)
	return out, nil
}

func (f *Flows) FormulatePlan(ctx context.Context, in *FormulatePlanInput) (*FormulatePlanOutput, error) {
	if err := planContract.validateInput(in); err != nil {
		return nil, err
	}
	prompt, err := render(formulatePlanTmpl, in)
	if err != nil {
		return nil, err
	}
	text, err := f.generate(ctx, planContract.name, &ai.Request{
		Prompt: prompt,
		JSONSchema: &ai.StructuredOutput{
			Name:   "plan",
			Schema: planContract.OutputSchema(),
		},
	})
	if err != nil {
		return nil, err
	}

	out := &FormulatePlanOutput{}
	if !decodeStructured(text, out) || out.Plan == "" {
		out.Plan = strings.TrimSpace(text)
	}
	if err := planContract.validateOutput(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Flows) TaskExecutionFeedback(ctx context.Context, in *TaskExecutionFeedbackInput) (*TaskExecutionFeedbackOutput, error) {
	if err := feedbackContract.validateInput(in); err != nil {
		return nil, err
	}
	prompt, err := render(taskFeedbackTmpl, in)
	if err != nil {
		return nil, err
	}
	text, err := f.generate(ctx, feedbackContract.name, &ai.Request{
		Prompt: prompt,
		JSONSchema: &ai.StructuredOutput{
			Name:   "refined_approach",
			Schema: feedbackContract.OutputSchema(),
		},
	})
	if err != nil {
		return nil, err
	}

	out := &TaskExecutionFeedbackOutput{}
	if !decodeStructured(text, out) || out.RefinedApproach == "" {
		out.RefinedApproach = strings.TrimSpace(text)
	}
	if err := feedbackContract.validateOutput(out); err != nil {
		return nil, err
	}
	return out, nil
}

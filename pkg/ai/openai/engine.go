package openai

import (
	"context"
	"io"
	"strings"

	"github.com/go-go-golems/agentverse/pkg/ai"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel    = "gpt-4o-mini"
	DefaultTTSModel = string(go_openai.TTSModel1)
	DefaultVoice    = string(go_openai.VoiceAlloy)
)

type Settings struct {
	APIKey   string `mapstructure:"openai-api-key"`
	BaseURL  string `mapstructure:"openai-base-url"`
	Model    string `mapstructure:"openai-model"`
	TTSModel string `mapstructure:"openai-tts-model"`
	Voice    string `mapstructure:"openai-voice"`
}

// MakeClient builds a go-openai client, pointing it at BaseURL when set.
func MakeClient(s *Settings) (*go_openai.Client, error) {
	if s == nil || s.APIKey == "" {
		return nil, errors.New("no API key for openai")
	}
	config := go_openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		config.BaseURL = s.BaseURL
	}
	return go_openai.NewClientWithConfig(config), nil
}

// Engine runs prompt completions and speech synthesis against the OpenAI API
// (or any server speaking the same protocol).
type Engine struct {
	client   *go_openai.Client
	model    string
	ttsModel string
	voice    string
}

var (
	_ ai.Engine  = (*Engine)(nil)
	_ ai.Speaker = (*Engine)(nil)
)

func NewEngine(s *Settings) (*Engine, error) {
	client, err := MakeClient(s)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		client:   client,
		model:    s.Model,
		ttsModel: s.TTSModel,
		voice:    s.Voice,
	}
	if e.model == "" {
		e.model = DefaultModel
	}
	if e.ttsModel == "" {
		e.ttsModel = DefaultTTSModel
	}
	if e.voice == "" {
		e.voice = DefaultVoice
	}
	return e, nil
}

func (e *Engine) makeRequest(req *ai.Request) go_openai.ChatCompletionRequest {
	msgs := make([]go_openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, t := range req.History {
		role := go_openai.ChatMessageRoleUser
		if t.Role == ai.TurnRoleModel {
			role = go_openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, go_openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	msgs = append(msgs, go_openai.ChatCompletionMessage{
		Role:    go_openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	ret := go_openai.ChatCompletionRequest{
		Model:    e.model,
		Messages: msgs,
	}
	if req.JSONSchema != nil {
		ret.ResponseFormat = &go_openai.ChatCompletionResponseFormat{
			Type: go_openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &go_openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.JSONSchema.Name,
				Schema: req.JSONSchema.Schema,
				Strict: false,
			},
		}
	}
	return ret
}

func (e *Engine) Generate(ctx context.Context, req *ai.Request) (*ai.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	log.Debug().
		Str("model", e.model).
		Int("history", len(req.History)).
		Bool("structured", req.JSONSchema != nil).
		Msg("openai chat completion")

	resp, err := e.client.CreateChatCompletion(ctx, e.makeRequest(req))
	if err != nil {
		return nil, errors.Wrap(err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}
	return &ai.Response{
		Text:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Model: resp.Model,
	}, nil
}

func (e *Engine) Synthesize(ctx context.Context, text string) (*ai.Audio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("no text to synthesize")
	}
	raw, err := e.client.CreateSpeech(ctx, go_openai.CreateSpeechRequest{
		Model:          go_openai.SpeechModel(e.ttsModel),
		Input:          text,
		Voice:          go_openai.SpeechVoice(e.voice),
		ResponseFormat: go_openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "openai speech")
	}
	defer func() {
		if err := raw.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close speech response")
		}
	}()

	data, err := io.ReadAll(raw)
	if err != nil {
		return nil, errors.Wrap(err, "reading speech response")
	}
	return &ai.Audio{MimeType: "audio/mpeg", Data: data}, nil
}

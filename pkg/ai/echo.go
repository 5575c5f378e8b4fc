package ai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// EchoEngine answers every prompt with the prompt itself. It is used for
// offline runs and tests.
type EchoEngine struct {
	Prefix string
}

func NewEchoEngine() *EchoEngine {
	return &EchoEngine{Prefix: "echo: "}
}

func (e *EchoEngine) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("no input")
	}

	text := e.Prefix + req.Prompt
	if req.JSONSchema != nil {
		b, err := json.Marshal(map[string]string{"message": text})
		if err != nil {
			return nil, err
		}
		text = string(b)
	}
	return &Response{Text: text, Model: "echo"}, nil
}

// FakeSpeaker returns a fixed, empty WAV payload.
type FakeSpeaker struct{}

func (FakeSpeaker) Synthesize(ctx context.Context, text string) (*Audio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("no text to synthesize")
	}
	return &Audio{MimeType: "audio/wav", Data: []byte("RIFF")}, nil
}

var (
	_ Engine  = (*EchoEngine)(nil)
	_ Speaker = FakeSpeaker{}
)

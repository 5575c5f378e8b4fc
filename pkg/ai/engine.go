// Package ai defines the boundary to hosted generative models: prompt
// completion through an Engine and text-to-speech through a Speaker.
//
// Calls are single attempts. There is no retry, backoff or timeout beyond
// whatever the caller's context carries.
package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

type TurnRole string

const (
	TurnRoleUser  TurnRole = "user"
	TurnRoleModel TurnRole = "model"
)

// Turn is one prior exchange in the history sent to the model.
type Turn struct {
	Role    TurnRole `json:"role" jsonschema:"enum=user,enum=model"`
	Content string   `json:"content"`
}

// Request is a prompt-completion request.
type Request struct {
	System  string
	History []Turn
	Prompt  string
	// JSONSchema, when set, asks the provider for a JSON reply matching it.
	JSONSchema *StructuredOutput
}

type StructuredOutput struct {
	Name   string
	Schema json.RawMessage
}

type Response struct {
	Text  string
	Model string
}

type Engine interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Audio is synthesized speech.
type Audio struct {
	MimeType string
	Data     []byte
}

// DataURI renders the audio as a data: URI suitable for direct playback.
func (a *Audio) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", a.MimeType, base64.StdEncoding.EncodeToString(a.Data))
}

type Speaker interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, req *Request) (*Response, error)

func (f EngineFunc) Generate(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// SpeakerFunc adapts a function to Speaker.
type SpeakerFunc func(ctx context.Context, text string) (*Audio, error)

func (f SpeakerFunc) Synthesize(ctx context.Context, text string) (*Audio, error) {
	return f(ctx, text)
}

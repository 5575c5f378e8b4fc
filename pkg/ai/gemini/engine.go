// Package gemini implements ai.Engine on top of Google's Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-go-golems/agentverse/pkg/ai"
	genai "github.com/google/generative-ai-go/genai"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-1.5-flash"

type Settings struct {
	APIKey  string `mapstructure:"gemini-api-key"`
	BaseURL string `mapstructure:"gemini-base-url"`
	Model   string `mapstructure:"gemini-model"`
}

type Engine struct {
	settings Settings
}

var _ ai.Engine = (*Engine)(nil)

func NewEngine(s *Settings) (*Engine, error) {
	if s == nil || s.APIKey == "" {
		return nil, errors.New("missing API key gemini-api-key")
	}
	e := &Engine{settings: *s}
	if e.settings.Model == "" {
		e.settings.Model = DefaultModel
	}
	return e, nil
}

func (e *Engine) newClient(ctx context.Context) (*genai.Client, error) {
	opts := []option.ClientOption{option.WithAPIKey(e.settings.APIKey)}
	if e.settings.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(e.settings.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gemini client")
	}
	return client, nil
}

func (e *Engine) Generate(ctx context.Context, req *ai.Request) (*ai.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}

	client, err := e.newClient(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close gemini client")
		}
	}()

	model := client.GenerativeModel(e.settings.Model)
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if req.JSONSchema != nil {
		model.ResponseMIMEType = "application/json"
		if s, err := schemaFromJSON(req.JSONSchema.Schema); err != nil {
			log.Warn().Err(err).Str("schema", req.JSONSchema.Name).Msg("ignoring unparseable response schema")
		} else {
			model.ResponseSchema = s
		}
	}

	cs := model.StartChat()
	cs.History = makeHistory(req.History)

	log.Debug().Str("model", e.settings.Model).Int("history", len(cs.History)).Msg("gemini send message")
	resp, err := cs.SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, errors.Wrap(err, "gemini send message")
	}

	text := responseText(resp)
	if text == "" {
		return nil, errors.New("gemini returned an empty response")
	}
	return &ai.Response{Text: text, Model: e.settings.Model}, nil
}

func roleToGeminiRole(r ai.TurnRole) string {
	if r == ai.TurnRoleModel {
		return "model"
	}
	return "user"
}

func makeHistory(turns []ai.Turn) []*genai.Content {
	res := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		res = append(res, &genai.Content{
			Role:  roleToGeminiRole(t.Role),
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}
	return res
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		// first candidate with content wins
		if sb.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(sb.String())
}

func schemaFromJSON(raw json.RawMessage) (*genai.Schema, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty schema")
	}
	s := &jsonschema.Schema{}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, errors.Wrap(err, "decoding response schema")
	}
	return convertJSONSchemaToGenAI(s), nil
}

// convertJSONSchemaToGenAI handles the subset of JSON schema the flow
// contracts produce: objects of scalars and arrays.
func convertJSONSchemaToGenAI(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	gs := &genai.Schema{Description: s.Description}
	switch s.Type {
	case "string":
		gs.Type = genai.TypeString
	case "number":
		gs.Type = genai.TypeNumber
	case "integer":
		gs.Type = genai.TypeInteger
	case "boolean":
		gs.Type = genai.TypeBoolean
	case "array":
		gs.Type = genai.TypeArray
		gs.Items = convertJSONSchemaToGenAI(s.Items)
	default:
		gs.Type = genai.TypeObject
		if s.Properties != nil && s.Properties.Len() > 0 {
			gs.Properties = map[string]*genai.Schema{}
			for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
				gs.Properties[pair.Key] = convertJSONSchemaToGenAI(pair.Value)
			}
		}
		gs.Required = append([]string(nil), s.Required...)
	}
	return gs
}

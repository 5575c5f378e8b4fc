package config

import (
	"github.com/go-go-golems/agentverse/pkg/ai"
	"github.com/go-go-golems/agentverse/pkg/ai/gemini"
	"github.com/go-go-golems/agentverse/pkg/ai/openai"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// NewModel builds the engine and speaker for the configured provider.
// Gemini has no speech endpoint in its SDK, so speech falls back to OpenAI
// when an OpenAI key is configured and is disabled otherwise.
func (s *Settings) NewModel() (ai.Engine, ai.Speaker, error) {
	switch s.Provider {
	case ProviderEcho:
		return ai.NewEchoEngine(), ai.FakeSpeaker{}, nil

	case ProviderOpenAI:
		e, err := openai.NewEngine(&s.OpenAI)
		if err != nil {
			return nil, nil, errors.Wrap(err, "could not create openai engine")
		}
		return e, e, nil

	case ProviderGemini:
		e, err := gemini.NewEngine(&s.Gemini)
		if err != nil {
			return nil, nil, errors.Wrap(err, "could not create gemini engine")
		}
		if s.OpenAI.APIKey == "" {
			log.Warn().Msg("no openai-api-key configured, text-to-speech is disabled")
			return e, nil, nil
		}
		speaker, err := openai.NewEngine(&s.OpenAI)
		if err != nil {
			return nil, nil, errors.Wrap(err, "could not create openai speaker")
		}
		return e, speaker, nil

	default:
		return nil, nil, errors.Errorf("unknown ai provider %q", s.Provider)
	}
}

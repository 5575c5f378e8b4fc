// Package config decodes the command line, environment and config file
// into the settings every agentverse command is built from.
package config

import (
	"time"

	"github.com/go-go-golems/agentverse/pkg/ai/gemini"
	"github.com/go-go-golems/agentverse/pkg/ai/openai"
	"github.com/go-go-golems/agentverse/pkg/kv"
	"github.com/go-go-golems/agentverse/pkg/tasks"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const EnvPrefix = "AGENTVERSE"

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderEcho   Provider = "echo"
)

type Settings struct {
	Store  kv.Config       `mapstructure:",squash"`
	OpenAI openai.Settings `mapstructure:",squash"`
	Gemini gemini.Settings `mapstructure:",squash"`

	Provider            Provider      `mapstructure:"ai-provider"`
	AllowLocalEndpoints bool          `mapstructure:"allow-local-endpoints"`
	Listen              string        `mapstructure:"listen"`
	SpeechCacheSize     int           `mapstructure:"speech-cache-size"`
	TaskMinDelay        time.Duration `mapstructure:"task-min-delay"`
	TaskMaxDelay        time.Duration `mapstructure:"task-max-delay"`
	Verbose             bool          `mapstructure:"verbose"`
}

// AddFlags registers the persistent flags Settings is decoded from.
func AddFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()

	f.String("store-type", string(kv.TypeFile), "Storage backend (memory, file, sqlite, redis)")
	f.String("store-path", "", "Storage file for the file and sqlite backends (default ~/.agentverse/store.json or store.db)")
	f.String("redis-addr", "localhost:6379", "Redis address")
	f.String("redis-password", "", "Redis password")
	f.Int("redis-db", 0, "Redis database")
	f.String("redis-prefix", "agentverse:", "Redis key prefix")

	f.String("ai-provider", string(ProviderOpenAI), "Model provider (openai, gemini, echo)")
	f.String("openai-api-key", "", "OpenAI API key")
	f.String("openai-base-url", "", "OpenAI compatible base URL")
	f.String("openai-model", openai.DefaultModel, "OpenAI chat model")
	f.String("openai-tts-model", openai.DefaultTTSModel, "OpenAI speech model")
	f.String("openai-voice", openai.DefaultVoice, "OpenAI speech voice")
	f.String("gemini-api-key", "", "Gemini API key")
	f.String("gemini-base-url", "", "Gemini endpoint override")
	f.String("gemini-model", gemini.DefaultModel, "Gemini model")
	f.Bool("allow-local-endpoints", false, "Accept http and local-network base URLs (e.g. a local Ollama)")

	f.String("listen", ":8080", "Address the HTTP server listens on")
	f.Int("speech-cache-size", 128, "Number of synthesized messages kept in memory")
	f.Duration("task-min-delay", tasks.DefaultMinDelay, "Minimum simulated task duration")
	f.Duration("task-max-delay", tasks.DefaultMaxDelay, "Maximum simulated task duration")
}

// Load decodes v into Settings and fills path defaults.
func Load(v *viper.Viper, home string) (*Settings, error) {
	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "could not decode settings")
	}
	if s.Store.Path == "" && home != "" {
		switch s.Store.Type {
		case kv.TypeFile:
			s.Store.Path = home + "/store.json"
		case kv.TypeSQLite:
			s.Store.Path = home + "/store.db"
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	switch s.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderEcho:
	default:
		return errors.Errorf("unknown ai provider %q", s.Provider)
	}
	for _, endpoint := range []string{s.OpenAI.BaseURL, s.Gemini.BaseURL} {
		if endpoint == "" {
			continue
		}
		if err := ValidateEndpoint(endpoint, s.AllowLocalEndpoints); err != nil {
			return err
		}
	}
	if s.TaskMinDelay < 0 || s.TaskMaxDelay < s.TaskMinDelay {
		return errors.Errorf("invalid task delays %s..%s", s.TaskMinDelay, s.TaskMaxDelay)
	}
	if s.SpeechCacheSize <= 0 {
		return errors.Errorf("speech cache size must be positive, got %d", s.SpeechCacheSize)
	}
	if (s.Store.Type == kv.TypeFile || s.Store.Type == kv.TypeSQLite) && s.Store.Path == "" {
		return errors.Errorf("store type %s needs a path", s.Store.Type)
	}
	return nil
}

// RunnerOptions returns the task runner options implied by the settings.
func (s *Settings) RunnerOptions() []tasks.RunnerOption {
	return []tasks.RunnerOption{tasks.WithDelays(s.TaskMinDelay, s.TaskMaxDelay)}
}

package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-go-golems/agentverse/pkg/kv"
	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Role string

const (
	RoleHelpfulAssistant Role = "helpful-assistant"
	RoleResearchAnalyst  Role = "research-analyst"
	RoleCreativeWriter   Role = "creative-writer"
	RoleCodeGenerator    Role = "code-generator"
	RoleProjectManager   Role = "project-manager"
)

var Roles = []Role{
	RoleHelpfulAssistant,
	RoleResearchAnalyst,
	RoleCreativeWriter,
	RoleCodeGenerator,
	RoleProjectManager,
}

var ErrInvalidSettings = errors.New("invalid settings")

// AgentSettings is the user-configurable persona that shapes the system prompt.
type AgentSettings struct {
	AgentName         string `json:"agentName" yaml:"agentName"`
	AgentRole         Role   `json:"agentRole" yaml:"agentRole"`
	AgentInstructions string `json:"agentInstructions" yaml:"agentInstructions"`
}

func DefaultAgentSettings() AgentSettings {
	return AgentSettings{
		AgentName:         "AgentVerse",
		AgentRole:         RoleHelpfulAssistant,
		AgentInstructions: "You are a helpful AI assistant. Be concise and clear in your responses.",
	}
}

func (a AgentSettings) Validate() error {
	if strings.TrimSpace(a.AgentName) == "" {
		return errors.Wrap(ErrInvalidSettings, "agent name must not be empty")
	}
	if !IsValidRole(a.AgentRole) {
		return errors.Wrapf(ErrInvalidSettings, "unknown agent role %q", a.AgentRole)
	}
	return nil
}

func IsValidRole(r Role) bool {
	for _, known := range Roles {
		if known == r {
			return true
		}
	}
	return false
}

// RoleLabel turns a role slug into prose, e.g. "research-analyst" -> "research analyst".
func RoleLabel(r Role) string {
	return strcase.ToDelimited(string(r), ' ')
}

type UserProfile struct {
	Name string `json:"name" yaml:"name"`
}

func DefaultUserProfile() UserProfile {
	return UserProfile{Name: "User"}
}

// Store reads and writes persona settings and the user profile.
type Store struct {
	kv kv.Store
}

func NewStore(kvStore kv.Store) *Store {
	return &Store{kv: kvStore}
}

// LoadAgentSettings merges the stored settings over the defaults. Missing or
// malformed data yields the defaults.
func (s *Store) LoadAgentSettings(ctx context.Context) AgentSettings {
	return load(ctx, s.kv, kv.KeyAgentSettings, DefaultAgentSettings())
}

func (s *Store) SaveAgentSettings(ctx context.Context, settings AgentSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return s.save(ctx, kv.KeyAgentSettings, settings)
}

func (s *Store) LoadUserProfile(ctx context.Context) UserProfile {
	return load(ctx, s.kv, kv.KeyUserProfile, DefaultUserProfile())
}

func (s *Store) SaveUserProfile(ctx context.Context, profile UserProfile) error {
	return s.save(ctx, kv.KeyUserProfile, profile)
}

// load decodes the stored JSON over defaults, so fields absent from storage
// keep their default value. Unreadable or malformed data yields defaults.
func load[T any](ctx context.Context, store kv.Store, key string, defaults T) T {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to read settings from storage")
		return defaults
	}
	if !ok || raw == "" {
		return defaults
	}

	ret := defaults
	if err := json.Unmarshal([]byte(raw), &ret); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to parse settings from storage")
		return defaults
	}
	return ret
}

func (s *Store) save(ctx context.Context, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "could not encode %s", key)
	}
	if err := s.kv.Set(ctx, key, string(b)); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to save settings to storage")
		return errors.Wrapf(err, "could not save %s", key)
	}
	return nil
}

func (a AgentSettings) String() string {
	return fmt.Sprintf("%s (%s)", a.AgentName, RoleLabel(a.AgentRole))
}

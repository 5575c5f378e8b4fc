package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/agentverse/pkg/config"
	"github.com/go-go-golems/agentverse/pkg/events"
	"github.com/go-go-golems/agentverse/pkg/flows"
	"github.com/go-go-golems/agentverse/pkg/history"
	"github.com/go-go-golems/agentverse/pkg/kv"
	"github.com/go-go-golems/agentverse/pkg/persona"
	"github.com/go-go-golems/agentverse/pkg/tasks"
)

// app holds the stores and flows a command works with.
type app struct {
	settings  *config.Settings
	store     kv.Store
	history   *history.Store
	persona   *persona.Store
	flows     *flows.Flows
	notifier  events.Notifier
	publisher events.Publisher
}

type appOption func(*app)

// withPublisher routes history, task and toast events to p.
func withPublisher(p events.Publisher) appOption {
	return func(a *app) {
		a.publisher = p
		a.notifier = events.PublisherNotifier{Publisher: p}
	}
}

func newApp(ctx context.Context, options ...appOption) (*app, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}

	a := &app{
		settings:  s,
		notifier:  events.LogNotifier{},
		publisher: events.NopPublisher{},
	}
	for _, o := range options {
		o(a)
	}

	if s.Store.Type == kv.TypeSQLite {
		if err := os.MkdirAll(filepath.Dir(s.Store.Path), 0o755); err != nil {
			return nil, errors.Wrap(err, "could not create store directory")
		}
	}
	a.store, err = kv.Open(ctx, s.Store)
	if err != nil {
		return nil, errors.Wrap(err, "could not open store")
	}

	engine, speaker, err := s.NewModel()
	if err != nil {
		_ = a.store.Close()
		return nil, err
	}
	a.flows, err = flows.New(engine, speaker, flows.WithSpeechCacheSize(s.SpeechCacheSize))
	if err != nil {
		_ = a.store.Close()
		return nil, err
	}

	a.history = history.NewStore(ctx, a.store, history.WithPublisher(a.publisher))
	a.persona = persona.NewStore(a.store)

	log.Debug().
		Str("provider", string(s.Provider)).
		Str("store", string(s.Store.Type)).
		Msg("Application initialized")
	return a, nil
}

func (a *app) newDashboard() *tasks.Dashboard {
	runnerOpts := append(a.settings.RunnerOptions(), tasks.WithPublisher(a.publisher))
	return tasks.NewDashboard(a.flows,
		tasks.WithDashboardNotifier(a.notifier),
		tasks.WithRunnerOptions(runnerOpts...),
	)
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("could not close store")
	}
}

package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// busLogger routes watermill's logging into zerolog, tagged with the bus
// component. Watermill info lines are demoted to debug.
type busLogger struct {
	logger zerolog.Logger
}

func newBusLogger(logger zerolog.Logger) watermill.LoggerAdapter {
	return busLogger{logger: logger.With().Str("component", "event-bus").Logger()}
}

func (b busLogger) log(e *zerolog.Event, msg string, fields watermill.LogFields) {
	e.Fields(map[string]interface{}(fields)).Msg(msg)
}

func (b busLogger) Error(msg string, err error, fields watermill.LogFields) {
	b.log(b.logger.Error().Err(err), msg, fields)
}

func (b busLogger) Info(msg string, fields watermill.LogFields) {
	b.log(b.logger.Debug(), msg, fields)
}

func (b busLogger) Debug(msg string, fields watermill.LogFields) {
	b.log(b.logger.Debug(), msg, fields)
}

func (b busLogger) Trace(msg string, fields watermill.LogFields) {
	b.log(b.logger.Trace(), msg, fields)
}

func (b busLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return busLogger{logger: b.logger.With().Fields(map[string]interface{}(fields)).Logger()}
}

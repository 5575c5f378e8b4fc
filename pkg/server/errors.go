package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-go-golems/agentverse/pkg/chat"
	"github.com/go-go-golems/agentverse/pkg/flows"
	"github.com/go-go-golems/agentverse/pkg/history"
	"github.com/go-go-golems/agentverse/pkg/persona"
	"github.com/go-go-golems/agentverse/pkg/sandbox"
	"github.com/go-go-golems/agentverse/pkg/tasks"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, history.ErrNotFound),
		errors.Is(err, tasks.ErrTaskNotFound):
		return http.StatusNotFound

	case errors.Is(err, errBadRequest),
		errors.Is(err, flows.ErrValidation),
		errors.Is(err, persona.ErrInvalidSettings),
		errors.Is(err, chat.ErrEmptyInput),
		errors.Is(err, chat.ErrNoConversation),
		errors.Is(err, sandbox.ErrEmptyPrompt),
		errors.Is(err, tasks.ErrEmptyObjective),
		errors.Is(err, tasks.ErrEmptyFeedback),
		errors.Is(err, tasks.ErrNoTasks):
		return http.StatusBadRequest

	case errors.Is(err, chat.ErrBusy),
		errors.Is(err, sandbox.ErrBusy),
		errors.Is(err, tasks.ErrBusy),
		errors.Is(err, tasks.ErrAlreadyRunning),
		errors.Is(err, tasks.ErrNotCompleted):
		return http.StatusConflict

	case errors.Is(err, flows.ErrModel):
		return http.StatusBadGateway

	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) abort(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusBadGateway {
		s.metrics.modelErrors.WithLabelValues(c.FullPath()).Inc()
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("route", c.FullPath()).Int("status", status).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

// bind decodes the JSON body into v, reporting failures as bad requests.
func bind(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}

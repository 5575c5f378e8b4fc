package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-go-golems/agentverse/pkg/flows"
)

// flowHandler adapts a flow to a POST handler taking and returning JSON.
func flowHandler[I any, O any](s *Server, flow func(context.Context, *I) (*O, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		in := new(I)
		if err := bind(c, in); err != nil {
			s.abort(c, err)
			return
		}
		out, err := flow(c.Request.Context(), in)
		if err != nil {
			s.abort(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func (s *Server) flowChat(c *gin.Context) {
	flowHandler[flows.ChatInput, flows.ChatOutput](s, s.deps.Flows.Chat)(c)
}

func (s *Server) flowGenerateCode(c *gin.Context) {
	flowHandler[flows.GenerateCodeInput, flows.GenerateCodeOutput](s, s.deps.Flows.GenerateCode)(c)
}

func (s *Server) flowTextToSpeech(c *gin.Context) {
	flowHandler[flows.TextToSpeechInput, flows.TextToSpeechOutput](s, s.deps.Flows.TextToSpeech)(c)
}

func (s *Server) flowFormulatePlan(c *gin.Context) {
	flowHandler[flows.FormulatePlanInput, flows.FormulatePlanOutput](s, s.deps.Flows.FormulatePlan)(c)
}

func (s *Server) flowTaskFeedback(c *gin.Context) {
	flowHandler[flows.TaskExecutionFeedbackInput, flows.TaskExecutionFeedbackOutput](s, s.deps.Flows.TaskExecutionFeedback)(c)
}

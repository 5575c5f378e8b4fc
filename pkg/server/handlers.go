package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-go-golems/agentverse/pkg/chat"
	"github.com/go-go-golems/agentverse/pkg/history"
	"github.com/go-go-golems/agentverse/pkg/sandbox"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type conversationsResponse struct {
	Conversations []history.Summary `json:"conversations"`
	ActiveID      string            `json:"activeId,omitempty"`
}

type startConversationResponse struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type messageRequest struct {
	Input string `json:"input"`
}

type messageResponse struct {
	Message      *history.Message      `json:"message"`
	Conversation *history.Conversation `json:"conversation"`
	SandboxURL   string                `json:"sandboxUrl,omitempty"`
}

type audioResponse struct {
	AudioSrc string `json:"audioSrc"`
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type sandboxResponse struct {
	Code string `json:"code"`
}

func (s *Server) listConversations(c *gin.Context) {
	c.JSON(http.StatusOK, conversationsResponse{
		Conversations: s.deps.History.Conversations(),
		ActiveID:      s.deps.History.ActiveID(),
	})
}

// The history store keeps its in-memory state when storage fails, so the
// conversation routes below report success and log the storage error.

func (s *Server) startConversation(c *gin.Context) {
	id, err := s.deps.History.StartNewChat(c.Request.Context())
	if err != nil {
		logStorageError(err, id)
	}
	c.JSON(http.StatusCreated, startConversationResponse{ID: id, Path: chat.ChatPath(id)})
}

func (s *Server) clearConversations(c *gin.Context) {
	if err := s.deps.History.ClearHistory(c.Request.Context()); err != nil {
		logStorageError(err, "")
	}
	s.dropSessions()
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteConversation(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.deps.History.Get(id); !ok {
		s.abort(c, errors.Wrapf(history.ErrNotFound, "conversation %s", id))
		return
	}
	if err := s.deps.History.DeleteConversation(c.Request.Context(), id); err != nil {
		logStorageError(err, id)
	}
	s.dropSessions(id)
	c.Status(http.StatusNoContent)
}

func logStorageError(err error, conversationID string) {
	log.Warn().Err(err).Str("conversation", conversationID).Msg("could not persist chat history")
}

func (s *Server) getChat(c *gin.Context) {
	id := c.Param("id")
	sess, err := s.session(c.Request.Context(), id)
	if err != nil {
		s.abort(c, err)
		return
	}
	conv, err := sess.Open(c.Request.Context(), id)
	if err != nil {
		s.dropSessions(id)
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) postMessage(c *gin.Context) {
	var req messageRequest
	if err := bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	sess, err := s.session(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	msg, err := sess.Submit(c.Request.Context(), req.Input)
	if err != nil {
		s.abort(c, err)
		return
	}
	resp := messageResponse{Message: msg, Conversation: sess.Conversation()}
	if msg.Code != "" {
		resp.SandboxURL = chat.SandboxURL(msg.Code)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) postAudio(c *gin.Context) {
	sess, err := s.session(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abort(c, err)
		return
	}
	src, err := sess.PlayAudio(c.Request.Context(), c.Param("messageID"))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, audioResponse{AudioSrc: src})
}

func (s *Server) getSandbox(c *gin.Context) {
	sb, err := sandbox.NewFromQuery(c.Request.URL.RawQuery, s.deps.Flows)
	if err != nil {
		s.abort(c, errors.Wrap(errBadRequest, err.Error()))
		return
	}
	defer sb.Close()
	c.JSON(http.StatusOK, sandboxResponse{Code: sb.Code()})
}

func (s *Server) generateCode(c *gin.Context) {
	var req generateRequest
	if err := bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	code, err := s.sandbox.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, sandboxResponse{Code: code})
}

func (s *Server) getAgentSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Persona.LoadAgentSettings(c.Request.Context()))
}

// putAgentSettings applies the body over the current settings, so partial
// updates keep the fields they omit.
func (s *Server) putAgentSettings(c *gin.Context) {
	settings := s.deps.Persona.LoadAgentSettings(c.Request.Context())
	if err := bind(c, &settings); err != nil {
		s.abort(c, err)
		return
	}
	if err := s.deps.Persona.SaveAgentSettings(c.Request.Context(), settings); err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) getUserProfile(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Persona.LoadUserProfile(c.Request.Context()))
}

func (s *Server) putUserProfile(c *gin.Context) {
	profile := s.deps.Persona.LoadUserProfile(c.Request.Context())
	if err := bind(c, &profile); err != nil {
		s.abort(c, err)
		return
	}
	if err := s.deps.Persona.SaveUserProfile(c.Request.Context(), profile); err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}


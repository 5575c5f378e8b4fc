package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	s.engine.GET("/metrics", metricsHandler(s.registry))

	s.engine.GET("/chat/:id", s.getChat)
	s.engine.POST("/chat/:id/messages", s.postMessage)
	s.engine.POST("/chat/:id/messages/:messageID/audio", s.postAudio)
	s.engine.GET("/sandbox", s.getSandbox)

	api := s.engine.Group("/api")

	conversations := api.Group("/conversations")
	conversations.GET("", s.listConversations)
	conversations.POST("", s.startConversation)
	conversations.DELETE("", s.clearConversations)
	conversations.DELETE("/:id", s.deleteConversation)

	api.POST("/sandbox/generate", s.generateCode)

	settings := api.Group("/settings")
	settings.GET("/agent", s.getAgentSettings)
	settings.PUT("/agent", s.putAgentSettings)
	settings.GET("/profile", s.getUserProfile)
	settings.PUT("/profile", s.putUserProfile)

	api.POST("/plan", s.postPlan)
	api.GET("/tasks", s.getTasks)
	api.PUT("/tasks", s.putTasks)
	api.POST("/tasks/run", s.runTasks)
	api.POST("/tasks/:id/feedback", s.postFeedback)

	raw := api.Group("/flows")
	raw.POST("/chat", s.flowChat)
	raw.POST("/generate-code", s.flowGenerateCode)
	raw.POST("/tts", s.flowTextToSpeech)
	raw.POST("/plan", s.flowFormulatePlan)
	raw.POST("/feedback", s.flowTaskFeedback)
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-go-golems/agentverse/pkg/tasks"
)

type planRequest struct {
	Objective string `json:"objective"`
}

type planResponse struct {
	Objective string       `json:"objective"`
	Plan      string       `json:"plan"`
	Tasks     []tasks.Task `json:"tasks"`
}

type tasksRequest struct {
	Tasks []string `json:"tasks"`
}

type tasksResponse struct {
	Tasks []tasks.Task `json:"tasks"`
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

func (s *Server) postPlan(c *gin.Context) {
	var req planRequest
	if err := bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	d := s.deps.Dashboard
	ts, err := d.Plan(c.Request.Context(), req.Objective)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, planResponse{Objective: d.Objective(), Plan: d.PlanText(), Tasks: ts})
}

func (s *Server) getTasks(c *gin.Context) {
	c.JSON(http.StatusOK, tasksResponse{Tasks: s.deps.Dashboard.Tasks()})
}

func (s *Server) putTasks(c *gin.Context) {
	var req tasksRequest
	if err := bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	ts, err := s.deps.Dashboard.SetTasks(req.Tasks...)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, tasksResponse{Tasks: ts})
}

// runTasks blocks until every pending task has been executed or the client
// goes away.
func (s *Server) runTasks(c *gin.Context) {
	ts, err := s.deps.Dashboard.Execute(c.Request.Context())
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, tasksResponse{Tasks: ts})
}

func (s *Server) postFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := bind(c, &req); err != nil {
		s.abort(c, err)
		return
	}
	t, err := s.deps.Dashboard.SubmitFeedback(c.Request.Context(), c.Param("id"), req.Feedback)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

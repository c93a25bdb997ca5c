package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frauddesk/fraudqa/common/logger"
	"github.com/frauddesk/fraudqa/pipeline"
)

// maxQuestionLen bounds request bodies; longer questions are rejected
// before any model call.
const maxQuestionLen = 2000

// Asker runs one question through the QA pipeline.
type Asker interface {
	Run(ctx context.Context, question string) *pipeline.Response
}

// Server exposes the pipeline over HTTP.
type Server struct {
	engine *gin.Engine
	asker  Asker
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

// New builds the HTTP server around a pipeline controller.
func New(asker Asker) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{engine: gin.New(), asker: asker}
	s.engine.Use(gin.Recovery())

	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.POST("/v1/ask", s.handleAsk)
	return s
}

// Handler returns the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	logger.Infof("server: listening on %s", addr)
	return s.engine.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be JSON with a non-empty \"question\" field"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question must not be blank"})
		return
	}
	if len(question) > maxQuestionLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is too long"})
		return
	}

	resp := s.asker.Run(c.Request.Context(), question)
	c.JSON(http.StatusOK, resp)
}

package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/landing-verdict/backend/analyzer"
	"github.com/landing-verdict/backend/middleware"
	"github.com/landing-verdict/backend/stage"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) analyzeURL(c *gin.Context) {
	var request struct {
		URL string `json:"url" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL provided"})
		return
	}
	c.Set(middleware.TargetKey, request.URL)

	verdict, err := s.analyzer.AnalyzeURL(c.Request.Context(), request.URL)
	if err != nil {
		respondError(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (s *Server) analyzeHTML(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)

	var request struct {
		URL  string `json:"url"`
		HTML string `json:"html" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "html is required"})
		return
	}
	c.Set(middleware.TargetKey, request.URL)

	verdict, err := s.analyzer.AnalyzeHTML(c.Request.Context(), request.URL, request.HTML)
	if err != nil {
		respondError(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (s *Server) analyzeSignals(c *gin.Context) {
	var in analyzer.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, err, http.StatusBadRequest)
		return
	}
	c.Set(middleware.TargetKey, in.URL)
	c.JSON(http.StatusOK, s.analyzer.AnalyzeInput(in))
}

func (s *Server) analyzeBatch(c *gin.Context) {
	var request struct {
		URLs []string `json:"urls" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "urls is required"})
		return
	}

	start := time.Now()
	items, err := s.analyzer.AnalyzeBatch(c.Request.Context(), request.URLs, s.batchConcurrency)
	if err != nil {
		respondError(c, err, http.StatusInternalServerError)
		return
	}
	zap.L().Debug("batch request served", zap.Int("urls", len(items)), zap.Duration("elapsed", time.Since(start)))
	c.JSON(http.StatusOK, gin.H{"results": items})
}

func (s *Server) inferStage(c *gin.Context) {
	var in stage.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stage input"})
		return
	}
	c.JSON(http.StatusOK, stage.InferStage(in))
}

func (s *Server) friction(c *gin.Context) {
	assessment, err := stage.AssessSeverity(stage.Outcome(c.Query("outcome")), stage.Stage(c.Query("stage")))
	if err != nil {
		respondError(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) statistics(c *gin.Context) {
	out := gin.H{}
	if s.stats != nil {
		for k, v := range s.stats.Snapshot() {
			out[k] = v
		}
	}
	out["cache"] = s.analyzer.CacheStats()
	if st := s.analyzer.Stats(); st != nil && s.devMode {
		out["month"] = st.GetCurrentStats()
		out["months"] = st.GetAllMonths()
	}
	c.JSON(http.StatusOK, out)
}

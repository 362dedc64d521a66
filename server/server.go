// Package server exposes the verdict pipeline over HTTP with gin.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"

	"github.com/landing-verdict/backend/analyzer"
	"github.com/landing-verdict/backend/decision"
	"github.com/landing-verdict/backend/fetcher"
	"github.com/landing-verdict/backend/logging"
	"github.com/landing-verdict/backend/middleware"
	"github.com/landing-verdict/backend/pagemap"
	"github.com/landing-verdict/backend/signals"
	"github.com/landing-verdict/backend/stage"
)

// Options wires a Server.
type Options struct {
	Analyzer         *analyzer.Analyzer
	Statistics       *logging.Statistics
	Limiter          *middleware.RateLimiter
	MaxBodyBytes     int64
	BatchConcurrency int
	DevMode          bool
}

// Server holds the HTTP handlers.
type Server struct {
	analyzer         *analyzer.Analyzer
	stats            *logging.Statistics
	limiter          *middleware.RateLimiter
	maxBodyBytes     int64
	batchConcurrency int
	devMode          bool
}

// New creates a Server. Statistics and Limiter may be nil.
func New(opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = fetcher.DefaultConfig().MaxBodyBytes
	}
	return &Server{
		analyzer:         opts.Analyzer,
		stats:            opts.Statistics,
		limiter:          opts.Limiter,
		maxBodyBytes:     opts.MaxBodyBytes,
		batchConcurrency: opts.BatchConcurrency,
		devMode:          opts.DevMode,
	}
}

// Router builds the gin engine with middleware and routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()

	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORS())
	if s.limiter != nil {
		r.Use(s.limiter.RateLimit())
	}
	if s.stats != nil {
		r.Use(middleware.Stats(s.stats))
	}

	api := r.Group("/api")
	{
		api.GET("/health", s.health)

		api.POST("/analyze", s.analyzeURL)
		api.POST("/analyze/html", s.analyzeHTML)
		api.POST("/analyze/signals", s.analyzeSignals)
		api.POST("/analyze/batch", s.analyzeBatch)

		api.POST("/stage", s.inferStage)
		api.GET("/friction", s.friction)

		api.GET("/statistics", s.statistics)
	}
	return r
}

// respondError writes {"error": ...} with a status derived from err.
// fallback is used when err is not a known client error.
func respondError(c *gin.Context, err error, fallback int) {
	status := fallback
	switch {
	case isClientError(err):
		status = http.StatusBadRequest
	case eris.Is(err, fetcher.ErrStatus), eris.Is(err, fetcher.ErrTooLarge):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func isClientError(err error) bool {
	for _, target := range []error{
		signals.ErrInvalid,
		decision.ErrInvalid,
		stage.ErrInvalid,
		pagemap.ErrEmpty,
		fetcher.ErrInvalidURL,
		analyzer.ErrEmptyBatch,
		analyzer.ErrBatchTooLarge,
	} {
		if eris.Is(err, target) {
			return true
		}
	}
	return false
}

package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/landing-verdict/backend/logging"
)

// TargetKey is the gin context key analysis handlers set to the analyzed URL.
const TargetKey = "analysis_target"

// saveEvery persists statistics after this many analysis requests.
const saveEvery = 100

// Stats tracks visitors on every request and load time on analysis routes.
func Stats(stats *logging.Statistics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		stats.TrackVisitor(c.ClientIP())

		c.Next()

		if c.Request.Method != http.MethodPost || !strings.HasPrefix(c.FullPath(), "/api/analyze") {
			return
		}
		loadTime := float64(time.Since(start).Milliseconds())
		stats.TrackAnalysis(c.GetString(TargetKey), loadTime, c.Writer.Status() >= http.StatusBadRequest)

		if stats.Requests()%saveEvery == 0 {
			go func() {
				if err := stats.Save(); err != nil {
					zap.L().Warn("statistics save failed", zap.Error(err))
				}
			}()
		}
	}
}

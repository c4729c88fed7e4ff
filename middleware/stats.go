package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cgs-engine/backend/logging"
)

// SourceKey is the context key handlers set to the scored document's source
const SourceKey = "cgs.source"

// saveEvery is how many scoring requests pass between statistics saves
const saveEvery = 100

// scoringRoutes are the routes counted as scoring requests
var scoringRoutes = map[string]bool{
	"/api/score":   true,
	"/api/analyze": true,
}

// Stats tracks visitors on every request and latency, source and errors on
// scoring requests
func Stats(stats *logging.Statistics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		stats.TrackVisitor(c.ClientIP())

		c.Next()

		if c.Request.Method != http.MethodPost || !scoringRoutes[c.FullPath()] {
			return
		}

		latency := float64(time.Since(start).Milliseconds())
		stats.TrackScore(c.GetString(SourceKey), latency, c.Writer.Status() >= 400)

		if stats.Requests()%saveEvery == 0 {
			go func() {
				if err := stats.Save(); err != nil {
					log.Printf("Failed to save statistics: %v", err)
				}
			}()
		}
	}
}

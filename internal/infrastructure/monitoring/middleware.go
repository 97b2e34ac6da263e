package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware records request count and latency for every route.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Route template keeps device ids out of label values.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Timer measures a poll round.
type Timer struct {
	start   time.Time
	metrics *Metrics
	device  string
}

// NewTimer starts a poll round timer.
func NewTimer(metrics *Metrics, device string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		device:  device,
	}
}

// Stop records the round with the given status.
func (t *Timer) Stop(status string) time.Duration {
	d := time.Since(t.start)
	t.metrics.RecordPollRound(t.device, status, d)
	return d
}

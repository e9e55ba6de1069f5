package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nightout-app/server/audit"
)

const auditBodyLimit = 4 << 10

// AuditTrail records authenticated write requests to the audit log. The
// request body is captured up to a small cap; binary uploads log only
// their size.
func AuditTrail(svc *audit.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var reqBody interface{}
		if c.Request.Body != nil && c.ContentType() == "application/json" {
			raw, err := io.ReadAll(io.LimitReader(c.Request.Body, auditBodyLimit))
			if err == nil {
				c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), c.Request.Body))
				var parsed json.RawMessage
				if json.Unmarshal(raw, &parsed) == nil {
					reqBody = parsed
				}
			}
		}

		c.Next()

		entry := audit.Entry{
			TraceID:    GetTraceID(c),
			Action:     c.Request.Method + " " + c.FullPath(),
			Request:    reqBody,
			IP:         c.ClientIP(),
			DurationMs: int(time.Since(start).Milliseconds()),
		}
		if id := GetProfileID(c); id != 0 {
			entry.ProfileID = &id
		}
		if len(c.Errors) > 0 {
			entry.Error = c.Errors.String()
		} else if c.Writer.Status() >= 400 {
			entry.Error = "http " + strconv.Itoa(c.Writer.Status())
		}
		svc.Log(entry)
	}
}

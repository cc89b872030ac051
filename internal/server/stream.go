package server

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"github.com/gin-gonic/gin"
)

type realtimeEventPayload struct {
	Section   string `json:"section"`
	Operation string `json:"operation"`
	ID        string `json:"id,omitempty"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

type heartbeatPayload struct {
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// handleStream relays store mutations as server-sent events. The optional
// section query parameter restricts the stream to one collection; resets are
// always delivered.
func (h *httpHandler) handleStream(c *gin.Context) {
	section := strings.TrimSpace(c.Query("section"))
	if section != "" {
		if _, err := content.ParseCollection(section); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown_collection"})
			return
		}
	}

	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, section)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent(realtimeEventHeartbeat, newHeartbeatPayload())
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(RealtimeEventContentChanged, realtimeEventPayload{
				Section:   message.Section,
				Operation: string(message.Operation),
				ID:        message.ID,
				Timestamp: message.Timestamp.UTC().Format(time.RFC3339Nano),
				Source:    realtimeSourceBackend,
			})
			return true
		case <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, newHeartbeatPayload())
			return true
		}
	})
}

func newHeartbeatPayload() heartbeatPayload {
	return heartbeatPayload{
		Source:    realtimeSourceBackend,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

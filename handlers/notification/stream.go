package notification

import (
	"bufio"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prepnest/prepnest-api/services/realtime"
	"github.com/prepnest/prepnest-api/utils/middleware"
	"github.com/prepnest/prepnest-api/utils/response"
	"github.com/prepnest/prepnest-api/utils/sse"
)

// keepAliveInterval keeps idle SSE connections open through proxies
const keepAliveInterval = 30 * time.Second

// StreamHandler serves the real-time notification stream
type StreamHandler struct {
	hub *realtime.Hub
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(hub *realtime.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// Stream handles GET /api/v1/notifications/stream.
// Holds an SSE connection open and relays hub events for the caller.
func (h *StreamHandler) Stream(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	// Set SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")
	c.Set("X-Accel-Buffering", "no") // Disable nginx buffering

	events, unsubscribe := h.hub.Subscribe(userID)

	// The Fiber context is not valid inside the stream goroutine; the
	// subscription channel is the only shared state
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		if err := sse.Send(w, sse.Event{Event: "connected", Data: "ok", Retry: 3000}); err != nil {
			return
		}

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case ev, open := <-events:
				if !open {
					return // hub shut down or unsubscribed
				}
				if err := sse.Send(w, sse.Event{Event: ev.Name, Data: ev.Payload}); err != nil {
					return // client went away
				}
			case <-ticker.C:
				if err := sse.SendKeepAlive(w); err != nil {
					return
				}
			}
		}
	})

	return nil
}

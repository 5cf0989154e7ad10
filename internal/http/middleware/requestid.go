package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request id on the wire.
	RequestIDHeader = "X-Request-ID"
	// RequestIDLocalKey is where the id lives in Fiber's context locals, for
	// the logger and error responses downstream.
	RequestIDLocalKey = "request_id"
)

// RequestID ensures every request has an id: the incoming X-Request-ID when
// present, a fresh UUID otherwise. The id is stored in context locals and
// echoed on the response header.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(RequestIDLocalKey, id)
		c.Set(RequestIDHeader, id)

		return c.Next()
	}
}

package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"imgapi/internal/convert"
	"imgapi/internal/service"
)

// RegisterRoutes attaches the emulated API surface to the provided Fiber app.
// The route shapes mirror the upstream API, so existing clients can be pointed
// here unchanged. db may be nil when the memory metadata store is in use.
func RegisterRoutes(app *fiber.App, db *sql.DB, imgSvc service.ImageService, vidSvc service.VideoService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	// Image lifecycle.
	app.Post("/cloudflare/client/v4/accounts/:account_id/images/v2/direct_upload", RequestUploadSlot(imgSvc))
	app.Post("/cloudflare/client/v4/accounts/:account_id/images/v1", DirectUpload(imgSvc))
	app.Post("/cloudflare/:image_id", CompleteUpload(imgSvc))
	app.Get("/cloudflare/:account_id/:image_id/:variant", GetImage(imgSvc))

	// Experimental video stub.
	app.Get("/experimental/:video_id", GetVideo(vidSvc))
}

// envelope wraps success payloads the way the upstream API does.
func envelope(result any) fiber.Map {
	return fiber.Map{
		"errors":   []string{},
		"messages": []string{},
		"result":   result,
	}
}

// HealthCheck reports readiness; it pings the database when one is configured.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// RequestUploadSlot reserves a two-step upload and returns the image id plus
// the URL to POST the payload to.
func RequestUploadSlot(svc service.ImageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID := c.Params("account_id")

		slot, err := svc.RequestUploadSlot(c.UserContext(), accountID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return c.SendStatus(fiber.StatusNotFound)
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		return c.JSON(envelope(fiber.Map{
			"id":        slot.ImageID,
			"uploadURL": slot.UploadURL,
		}))
	}
}

// CompleteUpload accepts the payload for a previously reserved upload
// (multipart/form-data, field name: file).
func CompleteUpload(svc service.ImageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		imageID := c.Params("image_id")
		if _, err := uuid.Parse(imageID); err != nil {
			// The upstream route only matches UUIDs.
			return c.SendStatus(fiber.StatusNotFound)
		}

		filename, payload, err := formFile(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		if err := svc.CompleteUpload(c.UserContext(), imageID, filename, payload); err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				return c.SendStatus(fiber.StatusNotFound)
			case errors.Is(err, service.ErrFilenameRequired):
				return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}

		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// DirectUpload is the single-step upload flow.
func DirectUpload(svc service.ImageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID := c.Params("account_id")

		filename, payload, err := formFile(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		imageID, err := svc.DirectUpload(c.UserContext(), accountID, filename, payload)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				return c.SendStatus(fiber.StatusNotFound)
			case errors.Is(err, service.ErrFilenameRequired):
				return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}

		body := envelope(fiber.Map{"id": imageID})
		body["success"] = true
		return c.JSON(body)
	}
}

// GetImage serves the converted artifact for a published image, scoped to the
// account in the path. The variant segment is accepted but ignored.
func GetImage(svc service.ImageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID := c.Params("account_id")
		imageID := c.Params("image_id")
		if _, err := uuid.Parse(imageID); err != nil {
			return c.SendStatus(fiber.StatusNotFound)
		}

		data, err := svc.Get(c.UserContext(), accountID, imageID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return c.SendStatus(fiber.StatusNotFound)
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		c.Set(fiber.HeaderContentType, convert.ContentType)
		return c.Send(data)
	}
}

// GetVideo serves a stored video's bytes.
func GetVideo(svc service.VideoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := svc.Get(c.UserContext(), c.Params("video_id"))
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return c.SendStatus(fiber.StatusNotFound)
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		c.Set(fiber.HeaderContentType, "video/mp4")
		return c.Send(data)
	}
}

// formFile extracts the multipart "file" field as (filename, bytes).
func formFile(c *fiber.Ctx) (string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, payload, nil
}

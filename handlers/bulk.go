package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/pyq-archive/services"
	"github.com/sahilchouksey/pyq-archive/utils/response"
)

// RespondImportError maps a batch-level import failure onto an HTTP response.
// Per-record failures never reach here; they are part of the import result.
func RespondImportError(c *fiber.Ctx, err error) error {
	var batchErr *services.InvalidBatchError
	switch {
	case errors.Is(err, services.ErrInvalidJSON):
		return response.BadRequest(c, services.ErrInvalidJSON.Error())
	case errors.As(err, &batchErr):
		return response.BadRequest(c, batchErr.Reason)
	default:
		log.Printf("[IMPORT] Batch failed: %v", err)
		return response.InternalServerError(c, "Import failed")
	}
}

// RespondRecordError maps a single-record validation failure to 400 and anything else to 500
func RespondRecordError(c *fiber.Ctx, err error, fallback string) error {
	var recErr *services.RecordValidationError
	if errors.As(err, &recErr) {
		return response.BadRequest(c, recErr.Message)
	}
	log.Printf("[API] %s: %v", fallback, err)
	return response.InternalServerError(c, fallback)
}

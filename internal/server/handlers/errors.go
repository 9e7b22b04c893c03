package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goldenhour/backoffice/internal/domain/models"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrSameLocation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrModelNotFound), errors.Is(err, models.ErrLocationNotFound),
		errors.Is(err, models.ErrCartNotFound), errors.Is(err, models.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientStock), errors.Is(err, models.ErrCartInUse),
		errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrEmptyBatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrPersistence):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody names the offending model, location and quantities when known so
// the operator can fix one line without restarting the batch.
func errorBody(err error) gin.H {
	body := gin.H{"error": err.Error()}

	var insufficient *models.InsufficientStockError
	var validation *models.ValidationError
	var persistence *models.PersistenceError
	switch {
	case errors.As(err, &insufficient):
		body["model"] = insufficient.ModelCode
		body["location"] = insufficient.Location
		body["requested"] = insufficient.Requested
		body["available"] = insufficient.Available
	case errors.As(err, &validation):
		body["field"] = validation.Field
	case errors.As(err, &persistence):
		body["model"] = persistence.ModelCode
	}
	return body
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), errorBody(err))
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
}

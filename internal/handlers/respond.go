package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/repository"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// respondError maps repository errors to HTTP statuses. subject names the
// resource in the client message, e.g. "product".
func respondError(c *gin.Context, logger *slog.Logger, err error, subject string) {
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + subject + " id"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: subject + " not found"})
	case errors.Is(err, repository.ErrDuplicate):
		c.JSON(http.StatusConflict, ErrorResponse{Error: subject + " already exists"})
	case errors.Is(err, auth.ErrSecretTooLong):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		logger.Error("request failed",
			"subject", subject,
			"route", c.FullPath(),
			"error", err,
		)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anyulbade/commission-ledger/internal/dto"
	"github.com/anyulbade/commission-ledger/internal/service"
)

// respondError maps service errors to a status. Anything it does not know is
// handed to middleware.ErrorHandler, which understands database errors.
func respondError(c *gin.Context, err error) {
	var fielded interface{ Field() string }

	switch {
	case errors.As(err, &fielded) && service.IsValidation(err):
		c.JSON(http.StatusBadRequest, dto.ErrorListResponse{
			Error:  "validation failed",
			Errors: []dto.ValidationError{{Field: fielded.Field(), Message: err.Error()}},
		})
	case errors.Is(err, service.ErrSaleNotFound),
		errors.Is(err, service.ErrUnknownSeller),
		errors.Is(err, service.ErrCommissionNotFound),
		errors.Is(err, service.ErrRateNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorListResponse{Error: err.Error()})
	case errors.Is(err, service.ErrSellerNotFound),
		errors.Is(err, service.ErrSellerAmbiguous),
		errors.Is(err, service.ErrCurrencyMismatch):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorListResponse{Error: err.Error()})
	case errors.Is(err, service.ErrJobRunning):
		c.JSON(http.StatusConflict, dto.ErrorListResponse{Error: err.Error()})
	default:
		_ = c.Error(err)
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorListResponse{
		Error: "validation failed: " + err.Error(),
	})
}

func invalidField(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, dto.ErrorListResponse{
		Error:  "validation failed",
		Errors: []dto.ValidationError{{Field: field, Message: message}},
	})
}

// canonicalIDs lowercases and dedupes ids that binding already checked.
func canonicalIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.ToLower(raw)
		if u, err := uuid.Parse(raw); err == nil {
			id = u.String()
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func canonicalID(raw string) (string, bool) {
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

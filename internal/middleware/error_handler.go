package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type pgMapping struct {
	status  int
	message string
	detail  bool
}

// pgErrors maps Postgres SQLSTATE codes to client-facing responses. Only
// constraint failures expose the server's detail text.
var pgErrors = map[string]pgMapping{
	"23505": {http.StatusConflict, "resource already exists", true},              // unique_violation
	"23503": {http.StatusBadRequest, "referenced resource does not exist", true}, // foreign_key_violation
	"23514": {http.StatusBadRequest, "constraint violation", true},               // check_violation
	"23502": {http.StatusBadRequest, "missing required value", false},            // not_null_violation
	"22P02": {http.StatusBadRequest, "malformed value", false},                   // invalid_text_representation
	"22003": {http.StatusBadRequest, "numeric value out of range", false},        // numeric_value_out_of_range
	"40001": {http.StatusServiceUnavailable, "concurrent update, retry", false},  // serialization_failure
	"40P01": {http.StatusServiceUnavailable, "concurrent update, retry", false},  // deadlock_detected
	"57014": {http.StatusServiceUnavailable, "query cancelled", false},           // query_canceled
}

func MapDBError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return http.StatusNotFound, ErrorResponse{Error: "resource not found"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Error: "request timed out"}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if m, ok := pgErrors[pgErr.Code]; ok {
			resp := ErrorResponse{Error: m.message}
			if m.detail {
				resp.Details = pgErr.Detail
			}
			return m.status, resp
		}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
}

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, resp := MapDBError(err)

		event := log.Warn()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.Err(err).
			Str("request_id", GetRequestID(c)).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Msg("request failed")

		c.JSON(status, resp)
	}
}

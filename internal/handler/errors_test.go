package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/anyulbade/commission-ledger/internal/middleware"
	"github.com/anyulbade/commission-ledger/internal/service"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"sale not found", service.ErrSaleNotFound, http.StatusNotFound},
		{"unknown seller", fmt.Errorf("lookup: %w", service.ErrUnknownSeller), http.StatusNotFound},
		{"commission not found", service.ErrCommissionNotFound, http.StatusNotFound},
		{"rate not found", service.ErrRateNotFound, http.StatusNotFound},
		{"no seller at location", service.ErrSellerNotFound, http.StatusUnprocessableEntity},
		{"ambiguous seller", service.ErrSellerAmbiguous, http.StatusUnprocessableEntity},
		{"currency mismatch", fmt.Errorf("%w: sale is USD", service.ErrCurrencyMismatch), http.StatusUnprocessableEntity},
		{"job running", service.ErrJobRunning, http.StatusConflict},
		{"duplicate", &pgconn.PgError{Code: "23505"}, http.StatusConflict},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(middleware.ErrorHandler())
			router.GET("/", func(c *gin.Context) { respondError(c, tt.err) })

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/", nil)
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestCanonicalIDs(t *testing.T) {
	ids := canonicalIDs([]string{
		"6F9619FF-8B86-D011-B42D-00C04FC964FF",
		"6f9619ff-8b86-d011-b42d-00c04fc964ff",
		"{6f9619ff-8b86-d011-b42d-00c04fc964fe}",
	})
	assert.Equal(t, []string{
		"6f9619ff-8b86-d011-b42d-00c04fc964ff",
		"6f9619ff-8b86-d011-b42d-00c04fc964fe",
	}, ids)

	_, ok := canonicalID("not-a-uuid")
	assert.False(t, ok)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anyulbade/commission-ledger/internal/dto"
	"github.com/anyulbade/commission-ledger/internal/service"
)

type JobHandler struct {
	reconcile *service.ReconcileService
	backfill  *service.BackfillService
}

func NewJobHandler(reconcile *service.ReconcileService, backfill *service.BackfillService) *JobHandler {
	return &JobHandler{reconcile: reconcile, backfill: backfill}
}

// Reconcile runs synchronously and returns the full report.
func (h *JobHandler) Reconcile(c *gin.Context) {
	report, err := h.reconcile.Reconcile(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *JobHandler) Backfill(c *gin.Context) {
	var req dto.BackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	saleID, _ := canonicalID(req.SaleID)
	var sellerID *string
	if req.SellerID != nil && *req.SellerID != "" {
		id, _ := canonicalID(*req.SellerID)
		sellerID = &id
	}

	report, err := h.backfill.Backfill(c.Request.Context(), saleID, sellerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anyulbade/commission-ledger/internal/dto"
	"github.com/anyulbade/commission-ledger/internal/model"
	"github.com/anyulbade/commission-ledger/internal/repository"
	"github.com/anyulbade/commission-ledger/internal/service"
)

type CommissionHandler struct {
	commissions *service.CommissionService
	diagnostics *service.DiagnosticService
}

func NewCommissionHandler(commissions *service.CommissionService, diagnostics *service.DiagnosticService) *CommissionHandler {
	return &CommissionHandler{commissions: commissions, diagnostics: diagnostics}
}

func (h *CommissionHandler) Create(c *gin.Context) {
	var req dto.CreateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.SellerID, _ = canonicalID(req.SellerID)
	req.SaleID, _ = canonicalID(req.SaleID)
	if req.CategoryID != nil {
		id, _ := canonicalID(*req.CategoryID)
		req.CategoryID = &id
	}

	created, err := h.commissions.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *CommissionHandler) Delete(c *gin.Context) {
	var req dto.IDListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.commissions.Delete(c.Request.Context(), canonicalIDs(req.IDs))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DeleteResponse{
		Deleted:  len(res.Affected),
		NotFound: res.NotFound,
	})
}

func (h *CommissionHandler) MarkPaid(c *gin.Context) {
	var req dto.MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.commissions.SetPaid(c.Request.Context(), canonicalIDs(req.IDs), *req.Paid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MarkPaidResponse{
		Updated:  len(res.Affected),
		Paid:     *req.Paid,
		NotFound: res.NotFound,
	})
}

func (h *CommissionHandler) List(c *gin.Context) {
	var filter repository.CommissionFilter

	idFilters := []struct {
		field string
		dst   *string
	}{
		{"seller_id", &filter.SellerID},
		{"sale_id", &filter.SaleID},
	}
	for _, f := range idFilters {
		raw := c.Query(f.field)
		if raw == "" {
			continue
		}
		id, ok := canonicalID(raw)
		if !ok {
			invalidField(c, f.field, "must be a UUID")
			return
		}
		*f.dst = id
	}

	if cur := c.Query("currency"); cur != "" {
		if !model.Currency(cur).Valid() {
			invalidField(c, "currency", "must be one of USD, SRD")
			return
		}
		filter.Currency = cur
	}

	if raw := c.Query("paid"); raw != "" {
		paid, err := strconv.ParseBool(raw)
		if err != nil {
			invalidField(c, "paid", "must be true or false")
			return
		}
		filter.Paid = &paid
	}

	pg := dto.ParsePagination(c)
	list, total, err := h.commissions.List(c.Request.Context(), filter, pg.PageSize, pg.Offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CommissionListResponse{
		Data:       list,
		Pagination: dto.NewPagination(pg.Page, pg.PageSize, total),
	})
}

func (h *CommissionHandler) Diagnostics(c *gin.Context) {
	id, ok := canonicalID(c.Param("id"))
	if !ok {
		invalidField(c, "id", "must be a UUID")
		return
	}

	diag, err := h.diagnostics.Diagnose(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, diag)
}

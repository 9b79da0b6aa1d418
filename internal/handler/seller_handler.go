package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anyulbade/commission-ledger/internal/commission"
	"github.com/anyulbade/commission-ledger/internal/dto"
	"github.com/anyulbade/commission-ledger/internal/service"
)

type SellerHandler struct {
	svc *service.SellerService
}

func NewSellerHandler(svc *service.SellerService) *SellerHandler {
	return &SellerHandler{svc: svc}
}

func (h *SellerHandler) sellerID(c *gin.Context) (string, bool) {
	id, ok := canonicalID(c.Param("id"))
	if !ok {
		invalidField(c, "id", "must be a UUID")
	}
	return id, ok
}

func (h *SellerHandler) Summary(c *gin.Context) {
	sellerID, ok := h.sellerID(c)
	if !ok {
		return
	}

	summary, err := h.svc.Summary(c.Request.Context(), sellerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *SellerHandler) Rates(c *gin.Context) {
	sellerID, ok := h.sellerID(c)
	if !ok {
		return
	}

	rates, err := h.svc.Rates(c.Request.Context(), sellerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rates})
}

func (h *SellerHandler) SetRate(c *gin.Context) {
	sellerID, ok := h.sellerID(c)
	if !ok {
		return
	}

	var req dto.SetRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.CategoryID != nil {
		id, _ := canonicalID(*req.CategoryID)
		req.CategoryID = &id
	}

	rate, err := h.svc.SetRate(c.Request.Context(), sellerID, req.CategoryID, *req.Rate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rate)
}

// DeleteRate accepts a category UUID or the literal "uncategorized".
func (h *SellerHandler) DeleteRate(c *gin.Context) {
	sellerID, ok := h.sellerID(c)
	if !ok {
		return
	}

	var categoryID *string
	raw := c.Param("category")
	if !strings.EqualFold(raw, string(commission.Uncategorized)) {
		id, ok := canonicalID(raw)
		if !ok {
			invalidField(c, "category", "must be a UUID or \"uncategorized\"")
			return
		}
		categoryID = &id
	}

	if err := h.svc.DeleteRate(c.Request.Context(), sellerID, categoryID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

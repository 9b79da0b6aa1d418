package dto

import "github.com/shopspring/decimal"

type CreateCommissionRequest struct {
	SellerID   string           `json:"seller_id" binding:"required,uuid"`
	SaleID     string           `json:"sale_id" binding:"required,uuid"`
	CategoryID *string          `json:"category_id" binding:"omitempty,uuid"`
	Amount     *decimal.Decimal `json:"commission_amount" binding:"required"`
	Currency   string           `json:"currency" binding:"omitempty,oneof=USD SRD"`
	Paid       bool             `json:"paid"`
}

type IDListRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,max=500,dive,uuid"`
}

type MarkPaidRequest struct {
	IDs  []string `json:"ids" binding:"required,min=1,max=500,dive,uuid"`
	Paid *bool    `json:"paid" binding:"required"`
}

type BackfillRequest struct {
	SaleID   string  `json:"sale_id" binding:"required,uuid"`
	SellerID *string `json:"seller_id" binding:"omitempty,uuid"`
}

type SetRateRequest struct {
	CategoryID *string          `json:"category_id" binding:"omitempty,uuid"`
	Rate       *decimal.Decimal `json:"rate" binding:"required"`
}

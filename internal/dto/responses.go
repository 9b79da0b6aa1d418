package dto

import "github.com/anyulbade/commission-ledger/internal/model"

type CommissionListResponse struct {
	Data       []model.Commission `json:"data"`
	Pagination Pagination         `json:"pagination"`
}

type DeleteResponse struct {
	Deleted  int      `json:"deleted"`
	NotFound []string `json:"not_found"`
}

type MarkPaidResponse struct {
	Updated  int      `json:"updated"`
	Paid     bool     `json:"paid"`
	NotFound []string `json:"not_found"`
}

type ValidationError struct {
	Index   int    `json:"index,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorListResponse struct {
	Error  string            `json:"error"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

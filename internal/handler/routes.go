package handler

import (
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Commissions *CommissionHandler
	Jobs        *JobHandler
	Sellers     *SellerHandler
}

// RegisterRoutes mounts the admin API on an already gated group.
func RegisterRoutes(api *gin.RouterGroup, h Handlers) {
	jobs := api.Group("/jobs")
	jobs.POST("/reconcile", h.Jobs.Reconcile)
	jobs.POST("/backfill", h.Jobs.Backfill)

	commissions := api.Group("/commissions")
	commissions.POST("", h.Commissions.Create)
	commissions.DELETE("", h.Commissions.Delete)
	commissions.GET("", h.Commissions.List)
	commissions.PATCH("/paid", h.Commissions.MarkPaid)
	commissions.GET("/:id/diagnostics", h.Commissions.Diagnostics)

	sellers := api.Group("/sellers/:id")
	sellers.GET("/summary", h.Sellers.Summary)
	sellers.GET("/rates", h.Sellers.Rates)
	sellers.PUT("/rates", h.Sellers.SetRate)
	sellers.DELETE("/rates/:category", h.Sellers.DeleteRate)
}

package catalog

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	salons := rg.Group("/salons")
	{
		salons.GET("", h.ListSalons)
		salons.GET("/:id/services", h.ListServices)
	}
}

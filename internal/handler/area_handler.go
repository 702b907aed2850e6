package handler

import (
	"net/http"

	"community_hub/internal/service"

	"github.com/gin-gonic/gin"
)

type AreaHandler struct {
	svc *service.AreaService
}

func NewAreaHandler(svc *service.AreaService) *AreaHandler {
	return &AreaHandler{svc: svc}
}

// List 可按城市过滤，不分页
func (h *AreaHandler) List(c *gin.Context) {
	areas, err := h.svc.ListAreas(c.Request.Context(), c.Query("city"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, areas)
}

func (h *AreaHandler) Cities(c *gin.Context) {
	cities, err := h.svc.ListCities(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cities)
}

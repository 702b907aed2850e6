package handler

import (
	"net/http"

	"community_hub/internal/model"
	"community_hub/internal/service"

	"github.com/gin-gonic/gin"
)

type JoinRequestHandler struct {
	svc *service.JoinRequestService
}

type ResolveReq struct {
	Status string `json:"status" binding:"required"`
}

func NewJoinRequestHandler(svc *service.JoinRequestService) *JoinRequestHandler {
	return &JoinRequestHandler{svc: svc}
}

func joinRequestFilter(c *gin.Context) service.JoinRequestFilter {
	return service.JoinRequestFilter{
		CommunitySlug: c.Query("community"),
		Status:        model.JoinStatus(c.Query("status")),
		Search:        c.Query("search"),
		Ordering:      c.Query("ordering"),
	}
}

// ListManaged 我管理的社区收到的申请
func (h *JoinRequestHandler) ListManaged(c *gin.Context) {
	res, err := h.svc.ListManaged(c.Request.Context(), actorOf(c), joinRequestFilter(c), pageOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Resolve 审批：approved / declined
func (h *JoinRequestHandler) Resolve(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ResolveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	res, err := h.svc.Resolve(c.Request.Context(), actorOf(c), id, model.JoinStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *JoinRequestHandler) ListMine(c *gin.Context) {
	res, err := h.svc.ListMine(c.Request.Context(), actorOf(c), joinRequestFilter(c), pageOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

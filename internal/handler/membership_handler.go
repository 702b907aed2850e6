package handler

import (
	"net/http"

	"community_hub/internal/model"
	"community_hub/internal/service"

	"github.com/gin-gonic/gin"
)

type MembershipHandler struct {
	svc *service.MembershipService
}

type AddMemberReq struct {
	User string `json:"user" binding:"required"`
	Role string `json:"role"`
}

type ChangeRoleReq struct {
	Role string `json:"role" binding:"required"`
}

func NewMembershipHandler(svc *service.MembershipService) *MembershipHandler {
	return &MembershipHandler{svc: svc}
}

func (h *MembershipHandler) List(c *gin.Context) {
	res, err := h.svc.ListMembers(c.Request.Context(), actorOf(c), c.Param("slug"), pageOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Add 按用户名添加成员，role 缺省为 member
func (h *MembershipHandler) Add(c *gin.Context) {
	var req AddMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	m, err := h.svc.AddMember(c.Request.Context(), actorOf(c), c.Param("slug"), req.User, model.Role(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *MembershipHandler) ChangeRole(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ChangeRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	m, err := h.svc.ChangeRole(c.Request.Context(), actorOf(c), c.Param("slug"), id, model.Role(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MembershipHandler) Remove(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.RemoveMember(c.Request.Context(), actorOf(c), c.Param("slug"), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Leave 当前用户退出社区
func (h *MembershipHandler) Leave(c *gin.Context) {
	if err := h.svc.Leave(c.Request.Context(), actorOf(c), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Mine 当前用户的成员关系及角色
func (h *MembershipHandler) Mine(c *gin.Context) {
	list, err := h.svc.Mine(c.Request.Context(), actorOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

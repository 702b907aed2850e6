package handler

import (
	"net/http"

	"community_hub/internal/model"
	"community_hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type EventHandler struct {
	svc *service.EventService
}

type EventCreateReq struct {
	Name        string           `json:"name" binding:"required,max=255"`
	Description string           `json:"description"`
	IsFree      bool             `json:"is_free"`
	Fees        *decimal.Decimal `json:"fees"`
	Currency    string           `json:"currency" binding:"omitempty,len=3"`
}

type EventUpdateReq struct {
	Name        *string          `json:"name" binding:"omitempty,max=255"`
	Description *string          `json:"description"`
	IsFree      *bool            `json:"is_free"`
	Fees        *decimal.Decimal `json:"fees"`
	Currency    *string          `json:"currency" binding:"omitempty,len=3"`
}

type CollaborationReq struct {
	Community string `json:"community" binding:"required"`
}

type CollaborationStatusReq struct {
	Status string `json:"status" binding:"required"`
}

func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// List 社区组织或参与协办的活动
func (h *EventHandler) List(c *gin.Context) {
	res, err := h.svc.List(c.Request.Context(), actorOf(c), c.Param("slug"), pageOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *EventHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	e, err := h.svc.Get(c.Request.Context(), actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *EventHandler) Create(c *gin.Context) {
	var req EventCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	e, err := h.svc.Create(c.Request.Context(), actorOf(c), c.Param("slug"), service.EventInput{
		Name:        req.Name,
		Description: req.Description,
		IsFree:      req.IsFree,
		Fees:        req.Fees,
		Currency:    req.Currency,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *EventHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req EventUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	e, err := h.svc.Update(c.Request.Context(), actorOf(c), id, service.EventPatch{
		Name:        req.Name,
		Description: req.Description,
		IsFree:      req.IsFree,
		Fees:        req.Fees,
		Currency:    req.Currency,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *EventHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestCollaboration 组织方邀请另一个社区协办
func (h *EventHandler) RequestCollaboration(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req CollaborationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	res, err := h.svc.RequestCollaboration(c.Request.Context(), actorOf(c), id, req.Community)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// RespondCollaboration 被邀请社区接受或拒绝
func (h *EventHandler) RespondCollaboration(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	collabID, ok := idParam(c, "cid")
	if !ok {
		return
	}
	var req CollaborationStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	res, err := h.svc.RespondCollaboration(c.Request.Context(), actorOf(c), id, collabID, model.CollaborationStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *EventHandler) CancelCollaboration(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	collabID, ok := idParam(c, "cid")
	if !ok {
		return
	}
	res, err := h.svc.CancelCollaboration(c.Request.Context(), actorOf(c), id, collabID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *EventHandler) ListCollaborations(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListCollaborations(c.Request.Context(), actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Register 当前用户报名
func (h *EventHandler) Register(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	reg, err := h.svc.Register(c.Request.Context(), actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reg)
}

func (h *EventHandler) ListRegistrations(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.ListRegistrations(c.Request.Context(), actorOf(c), id, pageOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

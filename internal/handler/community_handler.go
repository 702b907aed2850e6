package handler

import (
	"net/http"
	"strconv"

	"community_hub/internal/errs"
	"community_hub/internal/model"
	"community_hub/internal/service"

	"github.com/gin-gonic/gin"
)

type CommunityHandler struct {
	svc      *service.CommunityService
	requests *service.JoinRequestService
}

type CommunityDetailReq struct {
	AdditionalInfo string `json:"additional_info"`
	Rules          string `json:"rules"`
}

type CommunityCreateReq struct {
	Slug        string              `json:"slug"`
	Name        string              `json:"name" binding:"required,max=255"`
	Description string              `json:"description"`
	IsPublished bool                `json:"is_published"`
	Area        *uint64             `json:"area"`
	Owner       string              `json:"owner"`
	Detail      *CommunityDetailReq `json:"detail"`
}

// CommunityUpdateReq slug 出现即报错，由 service 判断
type CommunityUpdateReq struct {
	Slug        *string `json:"slug"`
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	IsPublished *bool   `json:"is_published"`
	Area        *uint64 `json:"area"`
}

func NewCommunityHandler(svc *service.CommunityService, requests *service.JoinRequestService) *CommunityHandler {
	return &CommunityHandler{svc: svc, requests: requests}
}

func publicFilter(c *gin.Context) service.PublicFilter {
	return service.PublicFilter{
		AreaName: c.Query("area_name"),
		City:     c.Query("city"),
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	}
}

// PublicList 已发布且启用的社区
func (h *CommunityHandler) PublicList(c *gin.Context) {
	res, err := h.svc.PublicList(c.Request.Context(), actorOf(c), publicFilter(c), pageOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Mine 我加入的社区
func (h *CommunityHandler) Mine(c *gin.Context) {
	res, err := h.svc.Mine(c.Request.Context(), actorOf(c), publicFilter(c), pageOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CommunityHandler) PublicDetail(c *gin.Context) {
	res, err := h.svc.PublicDetail(c.Request.Context(), actorOf(c), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Join 提交加入申请
func (h *CommunityHandler) Join(c *gin.Context) {
	req, err := h.requests.Submit(c.Request.Context(), actorOf(c), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *CommunityHandler) ManageList(c *gin.Context) {
	f := service.ManageFilter{
		City:     c.Query("city"),
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	}
	if s := c.Query("area"); s != "" {
		areaID, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			respondError(c, errs.ValidationField("area", "A valid integer is required."))
			return
		}
		f.AreaID = &areaID
	}

	res, err := h.svc.ManageList(c.Request.Context(), actorOf(c), f, pageOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ManageSummary 下拉框用的 slug/name 列表
func (h *CommunityHandler) ManageSummary(c *gin.Context) {
	res, err := h.svc.ManageSummary(c.Request.Context(), actorOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CommunityHandler) Create(c *gin.Context) {
	var req CommunityCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	in := service.CreateCommunityInput{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		IsPublished: req.IsPublished,
		AreaID:      req.Area,
		Owner:       req.Owner,
	}
	if req.Detail != nil {
		in.Detail = &model.CommunityDetail{
			AdditionalInfo: req.Detail.AdditionalInfo,
			Rules:          req.Detail.Rules,
		}
	}

	community, err := h.svc.Create(c.Request.Context(), actorOf(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, community)
}

func (h *CommunityHandler) ManageDetail(c *gin.Context) {
	res, err := h.svc.ManageDetail(c.Request.Context(), actorOf(c), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CommunityHandler) Update(c *gin.Context) {
	var req CommunityUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	res, err := h.svc.Update(c.Request.Context(), actorOf(c), c.Param("slug"), service.UpdateCommunityInput{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		IsPublished: req.IsPublished,
		AreaID:      req.Area,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Deactivate 软删除
func (h *CommunityHandler) Deactivate(c *gin.Context) {
	if err := h.svc.Deactivate(c.Request.Context(), actorOf(c), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CommunityHandler) GetDetail(c *gin.Context) {
	res, err := h.svc.GetDetail(c.Request.Context(), actorOf(c), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CommunityHandler) UpdateDetail(c *gin.Context) {
	var req CommunityDetailReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	res, err := h.svc.UpdateDetail(c.Request.Context(), actorOf(c), c.Param("slug"), req.AdditionalInfo, req.Rules)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

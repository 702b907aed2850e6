package handler

import (
	"net/http"

	"community_hub/internal/errs"
	"community_hub/internal/middleware"
	"community_hub/internal/service"

	"github.com/gin-gonic/gin"
)

// 头像上传大小上限
const maxAvatarSize = 5 << 20

type UserHandler struct {
	svc *service.UserService
}

// RegisterReq 注册请求体
type RegisterReq struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	FullName        string `json:"full_name" binding:"required"`
	Area            uint64 `json:"area" binding:"required"`
}

type LoginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshReq struct {
	Refresh string `json:"refresh" binding:"required"`
}

type ChangePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateProfileReq 只更新请求中出现的字段
type UpdateProfileReq struct {
	FullName               *string `json:"full_name"`
	FathersName            *string `json:"fathers_name"`
	PersonalEmail          *string `json:"personal_email" binding:"omitempty,email"`
	DateOfBirth            *string `json:"date_of_birth"`
	NIC                    *string `json:"nic"`
	Gender                 *string `json:"gender"`
	MaritalStatus          *int    `json:"marital_status"`
	CellphoneNumber        *string `json:"cellphone_number"`
	WhatsappNumber         *string `json:"whatsapp_number"`
	EmergencyContactName   *string `json:"emergency_contact_name"`
	EmergencyContactNumber *string `json:"emergency_contact_number"`
	CurrentAddress         *string `json:"current_address"`
	PermanentAddress       *string `json:"permanent_address"`
	City                   *string `json:"city"`
	Area                   *uint64 `json:"area"`
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

func currentUserID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		respondError(c, errs.Unauthorized("Authentication credentials were not provided."))
		return 0, false
	}
	userID, ok := v.(uint64)
	if !ok {
		respondError(c, errs.Unauthorized("Authentication credentials were not provided."))
		return 0, false
	}
	return userID, true
}

// Register 注册接口
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	user, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FullName:        req.FullName,
		AreaID:          req.Area,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login 登录接口
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *UserHandler) Logout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.svc.Logout(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TokenRefresh 用 refresh token 换一对新 token
func (h *UserHandler) TokenRefresh(c *gin.Context) {
	var req RefreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req ChangePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "Password updated, please log in again."})
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	me, err := h.svc.Me(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, me)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	me, err := h.svc.UpdateMe(c.Request.Context(), userID, service.UpdateProfileInput{
		FullName:               req.FullName,
		FathersName:            req.FathersName,
		PersonalEmail:          req.PersonalEmail,
		DateOfBirth:            req.DateOfBirth,
		NIC:                    req.NIC,
		Gender:                 req.Gender,
		MaritalStatus:          req.MaritalStatus,
		CellphoneNumber:        req.CellphoneNumber,
		WhatsappNumber:         req.WhatsappNumber,
		EmergencyContactName:   req.EmergencyContactName,
		EmergencyContactNumber: req.EmergencyContactNumber,
		CurrentAddress:         req.CurrentAddress,
		PermanentAddress:       req.PermanentAddress,
		City:                   req.City,
		AreaID:                 req.Area,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, me)
}

// UploadAvatar multipart 字段名 avatar
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("avatar")
	if err != nil {
		respondError(c, errs.ValidationField("avatar", "No file was submitted."))
		return
	}
	if fh.Size > maxAvatarSize {
		respondError(c, errs.ValidationField("avatar", "File is too large."))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	profile, err := h.svc.UploadAvatar(c.Request.Context(), userID, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ListPeople 仅管理员可用
func (h *UserHandler) ListPeople(c *gin.Context) {
	res, err := h.svc.ListPeople(c.Request.Context(), actorOf(c), c.Query("search"), pageOf(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

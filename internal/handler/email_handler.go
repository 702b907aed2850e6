package handler

import (
	"net/http"

	"community_hub/internal/service"

	"github.com/gin-gonic/gin"
)

// EmailHandler 邮箱验证码相关接口，目前只有找回密码
type EmailHandler struct {
	users *service.UserService
}

type SendCodeReq struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetReq 忘记密码请求体
type ResetReq struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,numeric,min=4,max=12"`
	NewPassword string `json:"new_password" binding:"required"`
}

func NewEmailHandler(users *service.UserService) *EmailHandler {
	return &EmailHandler{users: users}
}

// SendResetCode 邮箱不存在时同样返回成功
func (h *EmailHandler) SendResetCode(c *gin.Context) {
	var req SendCodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	if err := h.users.SendResetCode(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "If the email is registered, a code has been sent."})
}

// ResetPassword 校验验证码后重置密码
func (h *EmailHandler) ResetPassword(c *gin.Context) {
	var req ResetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detail": "Password has been reset."})
}

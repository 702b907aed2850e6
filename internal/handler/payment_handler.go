package handler

import (
	"net/http"

	"community_hub/internal/errs"
	"community_hub/internal/model"
	"community_hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// 付款凭证大小上限
const maxProofSize = 10 << 20

type PaymentHandler struct {
	svc *service.PaymentService
}

type PaymentStatusReq struct {
	Status string `json:"status" binding:"required"`
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// Submit multipart 表单：payment_method、amount、note、proof_of_payment（可选文件）
func (h *PaymentHandler) Submit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	amount, err := decimal.NewFromString(c.PostForm("amount"))
	if err != nil {
		respondError(c, errs.ValidationField("amount", "A valid number is required."))
		return
	}
	in := service.PaymentInput{
		Method: c.PostForm("payment_method"),
		Amount: amount,
		Note:   c.PostForm("note"),
	}

	if fh, err := c.FormFile("proof_of_payment"); err == nil {
		if fh.Size > maxProofSize {
			respondError(c, errs.ValidationField("proof_of_payment", "File is too large."))
			return
		}
		f, err := fh.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer f.Close()
		in.Proof = f
	}

	p, err := h.svc.Submit(c.Request.Context(), actorOf(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateStatus 组织方确认、标记失败或退款
func (h *PaymentHandler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req PaymentStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	p, err := h.svc.UpdateStatus(c.Request.Context(), actorOf(c), id, model.PaymentStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

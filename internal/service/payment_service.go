package service

import (
	"context"
	stderrors "errors"
	"io"

	"community_hub/internal/errs"
	"community_hub/internal/logger"
	"community_hub/internal/model"
	"community_hub/internal/policy"
	"community_hub/internal/repository/mysql"
	"community_hub/internal/storage"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const msgPaymentExists = "A payment has already been submitted for this registration."

// PaymentService 只记录付款状态，不对接支付渠道
type PaymentService struct {
	repo  *mysql.EventRepository
	blobs storage.BlobStore
	auth  *policy.Authorizer
}

func NewPaymentService(db *gorm.DB, blobs storage.BlobStore, auth *policy.Authorizer) *PaymentService {
	return &PaymentService{
		repo:  &mysql.EventRepository{DB: db},
		blobs: blobs,
		auth:  auth,
	}
}

type PaymentInput struct {
	Method string
	Amount decimal.Decimal
	Note   string
	Proof  io.Reader // 可选的付款凭证图片
}

// Submit 只有报名者本人可以提交，且只针对收费活动
func (s *PaymentService) Submit(ctx context.Context, actor policy.Actor, registrationID uint64, in PaymentInput) (*model.Payment, error) {
	if err := authorize(ctx, s.auth, actor, policy.OpCreate, policy.ResPayment, 0); err != nil {
		return nil, err
	}
	reg, err := s.repo.FindRegistration(ctx, registrationID)
	if err != nil {
		return nil, lookup(err, "payment: find registration")
	}
	if reg.UserID != actor.UserID {
		return nil, errs.PermissionDenied("Only the registrant can submit a payment.")
	}
	event, err := s.repo.FindByID(ctx, reg.EventID)
	if err != nil {
		return nil, lookup(err, "payment: find event")
	}
	if event.IsFree {
		return nil, errs.ValidationField("registration", "Free events do not take payments.")
	}
	if !model.ValidPaymentMethod(in.Method) {
		return nil, errs.ValidationField("payment_method", "Invalid payment method.")
	}
	if !in.Amount.IsPositive() {
		return nil, errs.ValidationField("amount", "Amount must be greater than zero.")
	}

	// 先查重再上传凭证，重复提交不产生孤立对象
	if _, err = s.repo.FindPaymentByRegistration(ctx, reg.ID); err == nil {
		return nil, errs.Conflict(msgPaymentExists)
	} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrap(err, "payment: find existing")
	}

	p := &model.Payment{
		RegistrationID: reg.ID,
		PaymentMethod:  in.Method,
		Amount:         in.Amount,
		Note:           in.Note,
	}
	var proofKey string
	if in.Proof != nil {
		img, err := storage.NormalizeProof(in.Proof)
		if err != nil {
			if stderrors.Is(err, storage.ErrBadImage) {
				return nil, errs.ValidationField("proof_of_payment", "Upload a valid image.")
			}
			return nil, wrap(err, "payment: process proof")
		}
		proofKey = storage.NewKey("payment_proofs", img.Ext)
		if p.ProofOfPayment, err = s.blobs.Put(ctx, proofKey, img.Data); err != nil {
			return nil, wrap(err, "payment: store proof")
		}
	}
	if err = s.repo.CreatePayment(ctx, p); err != nil {
		// 并发提交时查重也可能漏过，写库失败就删掉刚上传的凭证
		if proofKey != "" {
			if derr := s.blobs.Delete(ctx, proofKey); derr != nil {
				logger.Warnf("payment: delete orphaned proof %s: %v", proofKey, derr)
			}
		}
		if stderrors.Is(err, mysql.ErrAlreadyExists) {
			return nil, errs.Conflict(msgPaymentExists)
		}
		return nil, wrap(err, "payment: create")
	}
	return p, nil
}

func (s *PaymentService) organizerOf(ctx context.Context, p *model.Payment) (*model.EventRegistration, *model.Event, error) {
	reg, err := s.repo.FindRegistration(ctx, p.RegistrationID)
	if err != nil {
		return nil, nil, lookup(err, "payment: find registration")
	}
	event, err := s.repo.FindByID(ctx, reg.EventID)
	if err != nil {
		return nil, nil, lookup(err, "payment: find event")
	}
	return reg, event, nil
}

// UpdateStatus 主办方管理者更新状态，退款只能从已付款发起，报名上的状态同步更新
func (s *PaymentService) UpdateStatus(ctx context.Context, actor policy.Actor, paymentID uint64, status model.PaymentStatus) (*model.Payment, error) {
	p, err := s.repo.FindPayment(ctx, paymentID)
	if err != nil {
		return nil, lookup(err, "payment: find")
	}
	_, event, err := s.organizerOf(ctx, p)
	if err != nil {
		return nil, err
	}
	if err = authorize(ctx, s.auth, actor, policy.OpUpdate, policy.ResPayment, event.OrganizedByID); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, errs.ValidationField("status", "Invalid payment status.")
	}
	if status == p.Status {
		return p, nil
	}
	if status == model.PaymentRefunded && p.Status != model.PaymentPaid {
		return nil, errs.ForbiddenTransition("Only paid payments can be refunded.")
	}
	from := p.Status
	if err = s.repo.UpdatePaymentStatus(ctx, p, from, status, event.OrganizedByID, actor.UserID); err != nil {
		if stderrors.Is(err, mysql.ErrStateChanged) {
			return nil, errs.Conflict("The payment status has changed, reload and try again.")
		}
		return nil, wrap(err, "payment: update status")
	}
	logger.Infof("payment %d %s -> %s by user=%d", p.ID, from, status, actor.UserID)
	return p, nil
}

// Get 报名者本人或主办方管理者可见
func (s *PaymentService) Get(ctx context.Context, actor policy.Actor, paymentID uint64) (*model.Payment, error) {
	p, err := s.repo.FindPayment(ctx, paymentID)
	if err != nil {
		return nil, lookup(err, "payment: find")
	}
	reg, event, err := s.organizerOf(ctx, p)
	if err != nil {
		return nil, err
	}
	if reg.UserID == actor.UserID {
		return p, nil
	}
	if err = authorize(ctx, s.auth, actor, policy.OpUpdate, policy.ResPayment, event.OrganizedByID); err != nil {
		if errs.Is(err, errs.KindPermissionDenied) {
			return nil, errs.NotFound(msgNotFound)
		}
		return nil, err
	}
	return p, nil
}

package service

import (
	"context"

	"community_hub/internal/logger"
	"community_hub/internal/pkg"
	"community_hub/internal/repository/redis"
)

// CodeStore 两阶段验证码存储
type CodeStore interface {
	SavePending(ctx context.Context, scope, email, code string) error
	Confirm(ctx context.Context, scope, email string) error
	DeletePending(ctx context.Context, scope, email string) error
	GetConfirmed(ctx context.Context, scope, email string) (string, error)
	DeleteConfirmed(ctx context.Context, scope, email string) error
}

type EmailService struct {
	codes   CodeStore
	mailer  pkg.Mailer
	codeLen int
}

// NewEmailService codeLen <= 0 时使用 pkg.DefaultCodeLength
func NewEmailService(codes CodeStore, mailer pkg.Mailer, codeLen int) *EmailService {
	if codeLen <= 0 {
		codeLen = pkg.DefaultCodeLength
	}
	return &EmailService{codes: codes, mailer: mailer, codeLen: codeLen}
}

// SendCode 先写 pending，邮件发出后再转为 confirmed
func (s *EmailService) SendCode(ctx context.Context, scope, email, action string) error {
	code, err := pkg.NewNumericCode(s.codeLen)
	if err != nil {
		return err
	}
	if err = s.codes.SavePending(ctx, scope, email, code); err != nil {
		return err
	}

	html := pkg.EmailCodeHTML(action, code, redis.DefaultEmailCodeTTL)
	if err = s.mailer.Send(email, action+" code", html); err != nil {
		_ = s.codes.DeletePending(ctx, scope, email)
		return err
	}

	if err = s.codes.Confirm(ctx, scope, email); err != nil {
		// 确认失败，清除 pending 键
		_ = s.codes.DeletePending(ctx, scope, email)
		return err
	}
	logger.Debugf("verification code sent scope=%s email=%s", scope, email)
	return nil
}

// VerifyCode 校验验证码，成功后一次性删除
func (s *EmailService) VerifyCode(ctx context.Context, scope, email, code string) (bool, error) {
	val, err := s.codes.GetConfirmed(ctx, scope, email)
	if err != nil {
		// 不存在或已过期
		return false, nil
	}
	if val != code {
		return false, nil
	}
	if err = s.codes.DeleteConfirmed(ctx, scope, email); err != nil {
		return false, err
	}
	return true, nil
}

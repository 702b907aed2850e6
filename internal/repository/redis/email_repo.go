package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultEmailCodeTTL = 5 * time.Minute
	EmailCodePrefix     = "email:code"

	// 两阶段键：邮件发出前为 pending，发出后转为 confirmed
	PendingSuffix   = "pending"
	ConfirmedSuffix = "confirmed"

	ScopeReset = "reset"
)

var (
	ErrEmailNotFound       = errors.New("email code not found")
	ErrEmailCodeDelFailed  = errors.New("email code delete failed")
	ErrCodePendingFailed   = errors.New("code pending failed")
	ErrCodeConfirmedFailed = errors.New("code confirmed failed")
)

// 原子执行：取值 + 写入目标 + 设置 TTL + 删除源
var promoteScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if not val then
  return 0
end
redis.call("SET", KEYS[2], val, "PX", ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`)

type EmailRepository struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewEmailRepository(rdb *redis.Client) *EmailRepository {
	return &EmailRepository{RDB: rdb, TTL: DefaultEmailCodeTTL}
}

func codeKey(scope, stage, email string) string {
	return fmt.Sprintf("%s:%s:%s:%s", EmailCodePrefix, scope, stage, email)
}

// SavePending 写入 pending 键
func (r *EmailRepository) SavePending(ctx context.Context, scope, email, code string) error {
	if err := r.RDB.Set(ctx, codeKey(scope, PendingSuffix, email), code, r.TTL).Err(); err != nil {
		return ErrCodePendingFailed
	}
	return nil
}

// Confirm 将 pending 转为 confirmed（重置 TTL）
func (r *EmailRepository) Confirm(ctx context.Context, scope, email string) error {
	src := codeKey(scope, PendingSuffix, email)
	dst := codeKey(scope, ConfirmedSuffix, email)
	px := int64(r.TTL / time.Millisecond)
	ok, err := promoteScript.Run(ctx, r.RDB, []string{src, dst}, px).Int()
	if err != nil || ok != 1 {
		return ErrCodeConfirmedFailed
	}
	return nil
}

// DeletePending 删除 pending 键（幂等）
func (r *EmailRepository) DeletePending(ctx context.Context, scope, email string) error {
	if err := r.RDB.Del(ctx, codeKey(scope, PendingSuffix, email)).Err(); err != nil {
		return ErrEmailCodeDelFailed
	}
	return nil
}

// GetConfirmed 读取已发出的验证码
func (r *EmailRepository) GetConfirmed(ctx context.Context, scope, email string) (string, error) {
	val, err := r.RDB.Get(ctx, codeKey(scope, ConfirmedSuffix, email)).Result()
	if err != nil {
		return "", ErrEmailNotFound
	}
	return val, nil
}

func (r *EmailRepository) DeleteConfirmed(ctx context.Context, scope, email string) error {
	if err := r.RDB.Del(ctx, codeKey(scope, ConfirmedSuffix, email)).Err(); err != nil {
		return ErrEmailCodeDelFailed
	}
	return nil
}

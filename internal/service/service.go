package service

import (
	"context"
	stderrors "errors"

	"community_hub/internal/errs"
	"community_hub/internal/metrics"
	"community_hub/internal/model"
	"community_hub/internal/policy"
	"community_hub/internal/repository/mysql"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const msgNotFound = "Not found."

// PageResult 分页返回结构
type PageResult[T any] struct {
	List  []T   `json:"list"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}

func newPage[T any](list []T, total int64, p mysql.Page) *PageResult[T] {
	p = p.Normalize()
	if list == nil {
		list = []T{}
	}
	return &PageResult[T]{List: list, Total: total, Page: p.Page, Size: p.Size}
}

// wrap 业务错误原样返回，基础设施错误附带调用位置
func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := errs.As(err); ok {
		return err
	}
	return errors.Wrap(err, op)
}

// lookup 记录不存在（或在可见范围之外）统一为 NotFound
func lookup(err error, op string) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(msgNotFound)
	}
	return wrap(err, op)
}

// RoleCache 成员角色缓存
type RoleCache interface {
	Get(ctx context.Context, userID, communityID uint64) (model.Role, bool, error)
	Set(ctx context.Context, userID, communityID uint64, role model.Role) error
	Invalidate(ctx context.Context, userID, communityID uint64) error
}

// authorize 拒绝时记录指标
func authorize(ctx context.Context, a *policy.Authorizer, actor policy.Actor, op policy.Operation, res policy.Resource, communityID uint64) error {
	err := a.Authorize(ctx, actor, op, res, communityID)
	if errs.Is(err, errs.KindPermissionDenied) {
		metrics.PermissionDenied.WithLabelValues(string(res)).Inc()
	}
	return err
}

package service

import (
	"context"
	stderrors "errors"

	"community_hub/internal/errs"
	"community_hub/internal/logger"
	"community_hub/internal/metrics"
	"community_hub/internal/model"
	"community_hub/internal/policy"
	"community_hub/internal/repository/mysql"

	"gorm.io/gorm"
)

const (
	msgAlreadyMember    = "You are already a member of this community."
	msgAlreadyRequested = "You have already requested to join this community."
)

// JoinRequestService 加入申请状态机：pending -> approved | declined，终态不可再变
type JoinRequestService struct {
	repo        *mysql.JoinRequestRepository
	communities *mysql.CommunityRepository
	members     *MembershipService
	auth        *policy.Authorizer
}

func NewJoinRequestService(db *gorm.DB, members *MembershipService) *JoinRequestService {
	return &JoinRequestService{
		repo:        &mysql.JoinRequestRepository{DB: db},
		communities: &mysql.CommunityRepository{DB: db},
		members:     members,
		auth:        members.Authorizer(),
	}
}

// Submit 只能申请启用且已发布的社区；已是成员或申请过（包括被拒绝）都返回 Conflict
func (s *JoinRequestService) Submit(ctx context.Context, actor policy.Actor, slug string) (*model.CommunityJoinRequest, error) {
	if err := authorize(ctx, s.auth, actor, policy.OpCreate, policy.ResJoinRequest, 0); err != nil {
		return nil, err
	}
	c, err := s.communities.FindPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, lookup(err, "join request: find community")
	}
	req, err := s.repo.Create(ctx, c.ID, actor.UserID)
	switch {
	case stderrors.Is(err, mysql.ErrAlreadyMember):
		return nil, errs.Conflict(msgAlreadyMember)
	case stderrors.Is(err, mysql.ErrAlreadyExists):
		return nil, errs.Conflict(msgAlreadyRequested).WithKey("detail")
	case err != nil:
		return nil, wrap(err, "join request: create")
	}
	metrics.JoinRequests.WithLabelValues(string(model.JoinPending)).Inc()
	return req, nil
}

// Resolve 通过条件更新保证只有一个并发请求生效，失败方得到 Conflict
func (s *JoinRequestService) Resolve(ctx context.Context, actor policy.Actor, id uint64, status model.JoinStatus) (*model.CommunityJoinRequest, error) {
	req, err := s.repo.FindScoped(ctx, id, policy.ScopeFor(actor, policy.ViewManaged))
	if err != nil {
		return nil, lookup(err, "join request: find")
	}
	if err = authorize(ctx, s.auth, actor, policy.OpUpdate, policy.ResJoinRequest, req.CommunityID); err != nil {
		return nil, err
	}
	if status != model.JoinApproved && status != model.JoinDeclined {
		return nil, errs.ValidationField("status", "Status must be approved or declined.")
	}
	if req.Status.Terminal() {
		return nil, alreadyResolved(req.Status)
	}

	updated, err := s.repo.Resolve(ctx, id, status, actor.UserID)
	if err != nil {
		if stderrors.Is(err, mysql.ErrStateChanged) {
			// 并发下另一个请求已处理，返回最新状态
			cur, ferr := s.repo.FindByID(ctx, id)
			if ferr != nil {
				return nil, lookup(ferr, "join request: reload")
			}
			return nil, alreadyResolved(cur.Status)
		}
		return nil, wrap(err, "join request: resolve")
	}
	if status == model.JoinApproved {
		s.members.invalidate(ctx, updated.UserID, updated.CommunityID)
	}
	metrics.JoinRequests.WithLabelValues(string(status)).Inc()
	logger.Infof("join request %d %s by user=%d", id, status, actor.UserID)
	return updated, nil
}

func alreadyResolved(status model.JoinStatus) error {
	return errs.Conflict("Request already " + string(status))
}

type JoinRequestFilter = mysql.JoinRequestFilter

// ListManaged 管理员看全部，其他人只看自己管理的社区的申请
func (s *JoinRequestService) ListManaged(ctx context.Context, actor policy.Actor, f JoinRequestFilter, page mysql.Page) (*PageResult[mysql.JoinRequestRow], error) {
	if err := authorize(ctx, s.auth, actor, policy.OpList, policy.ResJoinRequest, 0); err != nil {
		return nil, err
	}
	rows, total, err := s.repo.List(ctx, f, policy.ScopeFor(actor, policy.ViewManaged), page)
	if err != nil {
		return nil, wrap(err, "join request: list managed")
	}
	return newPage(rows, total, page), nil
}

// ListMine 只看自己提交的申请，管理员也一样
func (s *JoinRequestService) ListMine(ctx context.Context, actor policy.Actor, f JoinRequestFilter, page mysql.Page) (*PageResult[mysql.JoinRequestRow], error) {
	if err := authorize(ctx, s.auth, actor, policy.OpList, policy.ResJoinRequest, 0); err != nil {
		return nil, err
	}
	rows, total, err := s.repo.List(ctx, f, policy.ScopeFor(actor, policy.ViewOwn), page)
	if err != nil {
		return nil, wrap(err, "join request: list mine")
	}
	return newPage(rows, total, page), nil
}

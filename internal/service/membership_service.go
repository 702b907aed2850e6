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
	msgCannotRemoveOwner = "Cannot remove the owner"
	msgOwnerRoleFixed    = "Cannot change the role of the owner."
	msgOwnerNotAssigned  = "The owner role cannot be assigned."
	msgOwnerCannotLeave  = "The owner cannot leave the community."
)

// MembershipService 成员与角色。同时实现 policy.RoleLookup
type MembershipService struct {
	repo        *mysql.MembershipRepository
	users       *mysql.UserRepository
	communities *mysql.CommunityRepository
	cache       RoleCache
	auth        *policy.Authorizer
}

func NewMembershipService(db *gorm.DB, cache RoleCache) *MembershipService {
	s := &MembershipService{
		repo:        &mysql.MembershipRepository{DB: db},
		users:       &mysql.UserRepository{DB: db},
		communities: &mysql.CommunityRepository{DB: db},
		cache:       cache,
	}
	s.auth = policy.NewAuthorizer(s)
	return s
}

// Authorizer 共享给其他服务，角色查询走同一份缓存
func (s *MembershipService) Authorizer() *policy.Authorizer {
	return s.auth
}

// RoleOf 优先读缓存，缓存故障时回源数据库
func (s *MembershipService) RoleOf(ctx context.Context, userID, communityID uint64) (model.Role, error) {
	if s.cache != nil {
		role, hit, err := s.cache.Get(ctx, userID, communityID)
		switch {
		case err != nil:
			metrics.RoleCacheLookups.WithLabelValues("error").Inc()
			logger.Warnf("role cache get user=%d community=%d: %v", userID, communityID, err)
		case hit:
			metrics.RoleCacheLookups.WithLabelValues("hit").Inc()
			return role, nil
		default:
			metrics.RoleCacheLookups.WithLabelValues("miss").Inc()
		}
	}
	role, err := s.repo.RoleOf(ctx, userID, communityID)
	if err != nil {
		return model.RoleNone, wrap(err, "membership: role of")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, communityID, role); err != nil {
			logger.Warnf("role cache set user=%d community=%d: %v", userID, communityID, err)
		}
	}
	return role, nil
}

// FreshRoleOf 直接读库，不读也不回填缓存。写操作鉴权使用，
// 避免降级或移除后被并发回填的旧角色继续生效
func (s *MembershipService) FreshRoleOf(ctx context.Context, userID, communityID uint64) (model.Role, error) {
	role, err := s.repo.RoleOf(ctx, userID, communityID)
	if err != nil {
		return model.RoleNone, wrap(err, "membership: fresh role of")
	}
	return role, nil
}

func (s *MembershipService) invalidate(ctx context.Context, userID, communityID uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID, communityID); err != nil {
		logger.Warnf("role cache invalidate user=%d community=%d: %v", userID, communityID, err)
	}
}

// HasRole 管理员不依赖成员关系，视为拥有者
func (s *MembershipService) HasRole(ctx context.Context, actor policy.Actor, communityID uint64) (model.Role, error) {
	if actor.Privileged() {
		return model.RoleOwner, nil
	}
	if !actor.Authenticated() {
		return model.RoleNone, nil
	}
	return s.RoleOf(ctx, actor.UserID, communityID)
}

func (s *MembershipService) IsOwnerOrManager(ctx context.Context, actor policy.Actor, communityID uint64) (bool, error) {
	role, err := s.HasRole(ctx, actor, communityID)
	if err != nil {
		return false, err
	}
	return role.AtLeast(model.RoleManager), nil
}

// CreateOwnerMembership 幂等：已存在成员关系时静默返回
func (s *MembershipService) CreateOwnerMembership(ctx context.Context, communityID, ownerID, actorID uint64) error {
	if _, err := s.repo.Join(ctx, communityID, ownerID, model.RoleOwner, actorID); err != nil {
		return wrap(err, "membership: create owner")
	}
	s.invalidate(ctx, ownerID, communityID)
	return nil
}

// managed 管理范围外的社区视为不存在
func (s *MembershipService) managed(ctx context.Context, actor policy.Actor, slug string) (*model.Community, error) {
	c, err := s.communities.FindScopedBySlug(ctx, slug, policy.ScopeFor(actor, policy.ViewManaged))
	if err != nil {
		return nil, lookup(err, "membership: find community")
	}
	return c, nil
}

func (s *MembershipService) AddMember(ctx context.Context, actor policy.Actor, slug, username string, role model.Role) (*model.CommunityMembership, error) {
	c, err := s.managed(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	if err = authorize(ctx, s.auth, actor, policy.OpCreate, policy.ResMembership, c.ID); err != nil {
		return nil, err
	}
	if role == model.RoleNone {
		role = model.RoleMember
	}
	if !role.Valid() {
		return nil, errs.ValidationField("role", "Invalid role.")
	}
	if role == model.RoleOwner {
		return nil, errs.ForbiddenTransition(msgOwnerNotAssigned)
	}
	user, err := s.users.FindByExactUsername(ctx, username)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ValidationField("user", "Object with username="+username+" does not exist.")
		}
		return nil, wrap(err, "membership: find user")
	}
	m, err := s.repo.Add(ctx, c.ID, user.ID, role, actor.UserID)
	if err != nil {
		if stderrors.Is(err, mysql.ErrAlreadyMember) {
			return nil, errs.Conflict("The user is already a member of this community.")
		}
		return nil, wrap(err, "membership: add")
	}
	s.invalidate(ctx, user.ID, c.ID)
	return m, nil
}

// RemoveMember 拥有者的成员关系不可删除，与操作者无关
func (s *MembershipService) RemoveMember(ctx context.Context, actor policy.Actor, slug string, membershipID uint64) error {
	c, err := s.managed(ctx, actor, slug)
	if err != nil {
		return err
	}
	m, err := s.repo.FindInCommunity(ctx, c.ID, membershipID)
	if err != nil {
		return lookup(err, "membership: find")
	}
	if m.Role == model.RoleOwner {
		return errs.ForbiddenTransition(msgCannotRemoveOwner)
	}
	if err = authorize(ctx, s.auth, actor, policy.OpDelete, policy.ResMembership, c.ID); err != nil {
		return err
	}
	return s.remove(ctx, m, actor.UserID)
}

func (s *MembershipService) remove(ctx context.Context, m *model.CommunityMembership, actorID uint64) error {
	if err := s.repo.Remove(ctx, m, actorID); err != nil {
		if stderrors.Is(err, mysql.ErrOwnerProtected) {
			return errs.ForbiddenTransition(msgCannotRemoveOwner)
		}
		return lookup(err, "membership: remove")
	}
	s.invalidate(ctx, m.UserID, m.CommunityID)
	return nil
}

// ChangeRole 拥有者角色不可变，也不能把角色改为拥有者
func (s *MembershipService) ChangeRole(ctx context.Context, actor policy.Actor, slug string, membershipID uint64, role model.Role) (*model.CommunityMembership, error) {
	c, err := s.managed(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	m, err := s.repo.FindInCommunity(ctx, c.ID, membershipID)
	if err != nil {
		return nil, lookup(err, "membership: find")
	}
	if !role.Valid() {
		return nil, errs.ValidationField("role", "Invalid role.")
	}
	if m.Role == model.RoleOwner {
		return nil, errs.ForbiddenTransition(msgOwnerRoleFixed)
	}
	if role == model.RoleOwner {
		return nil, errs.ForbiddenTransition(msgOwnerNotAssigned)
	}
	if err = authorize(ctx, s.auth, actor, policy.OpUpdate, policy.ResMembership, c.ID); err != nil {
		return nil, err
	}
	if err = s.repo.UpdateRole(ctx, m, role, actor.UserID); err != nil {
		if stderrors.Is(err, mysql.ErrOwnerProtected) {
			return nil, errs.ForbiddenTransition(msgOwnerRoleFixed)
		}
		return nil, lookup(err, "membership: update role")
	}
	s.invalidate(ctx, m.UserID, m.CommunityID)
	return m, nil
}

// Leave 成员主动退出，拥有者不能退出
func (s *MembershipService) Leave(ctx context.Context, actor policy.Actor, slug string) error {
	c, err := s.communities.FindBySlug(ctx, slug)
	if err != nil {
		return lookup(err, "membership: find community")
	}
	m, err := s.repo.Get(ctx, c.ID, actor.UserID)
	if err != nil {
		return lookup(err, "membership: find")
	}
	if m.Role == model.RoleOwner {
		return errs.ForbiddenTransition(msgOwnerCannotLeave)
	}
	return s.remove(ctx, m, actor.UserID)
}

func (s *MembershipService) ListMembers(ctx context.Context, actor policy.Actor, slug string, page mysql.Page) (*PageResult[mysql.MemberRow], error) {
	c, err := s.managed(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	if err = authorize(ctx, s.auth, actor, policy.OpList, policy.ResMembership, c.ID); err != nil {
		return nil, err
	}
	rows, total, err := s.repo.ListByCommunity(ctx, c.ID, page)
	if err != nil {
		return nil, wrap(err, "membership: list")
	}
	return newPage(rows, total, page), nil
}

// Mine 当前用户的全部成员关系
func (s *MembershipService) Mine(ctx context.Context, actor policy.Actor) ([]model.CommunityMembership, error) {
	list, err := s.repo.ListByUser(ctx, actor.UserID)
	return list, wrap(err, "membership: list mine")
}

package mysql

import (
	"context"
	"errors"

	"community_hub/internal/model"

	"gorm.io/gorm"
)

type MembershipRepository struct {
	DB *gorm.DB
}

// MemberRow 成员列表行
type MemberRow struct {
	ID       uint64     `json:"id"`
	UserID   uint64     `json:"user_id"`
	Username string     `json:"user"`
	FullName string     `json:"full_name"`
	Role     model.Role `json:"role"`
}

// Join 幂等加入，已存在时静默返回 false
func (r *MembershipRepository) Join(ctx context.Context, communityID, userID uint64, role model.Role, actorID uint64) (bool, error) {
	var created bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = joinTx(tx, communityID, userID, role, actorID)
		return err
	})
	return created, err
}

// Add 显式添加成员，已存在返回 ErrAlreadyMember
func (r *MembershipRepository) Add(ctx context.Context, communityID, userID uint64, role model.Role, actorID uint64) (*model.CommunityMembership, error) {
	created, err := r.Join(ctx, communityID, userID, role, actorID)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrAlreadyMember
	}
	return r.Get(ctx, communityID, userID)
}

func (r *MembershipRepository) Get(ctx context.Context, communityID, userID uint64) (*model.CommunityMembership, error) {
	var m model.CommunityMembership
	err := r.DB.WithContext(ctx).Where("community_id = ? AND user_id = ?", communityID, userID).First(&m).Error
	return &m, err
}

// FindInCommunity 成员必须属于该社区
func (r *MembershipRepository) FindInCommunity(ctx context.Context, communityID, id uint64) (*model.CommunityMembership, error) {
	var m model.CommunityMembership
	err := r.DB.WithContext(ctx).Where("id = ? AND community_id = ?", id, communityID).First(&m).Error
	return &m, err
}

// RoleOf 没有成员关系时返回 RoleNone
func (r *MembershipRepository) RoleOf(ctx context.Context, userID, communityID uint64) (model.Role, error) {
	var m model.CommunityMembership
	err := r.DB.WithContext(ctx).Select("role").
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.RoleNone, nil
	}
	if err != nil {
		return model.RoleNone, err
	}
	return m.Role, nil
}

// Roles 批量查询用户在多个社区中的角色
func (r *MembershipRepository) Roles(ctx context.Context, userID uint64, communityIDs []uint64) (map[uint64]model.Role, error) {
	out := make(map[uint64]model.Role, len(communityIDs))
	if len(communityIDs) == 0 {
		return out, nil
	}
	var list []model.CommunityMembership
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND community_id IN ?", userID, communityIDs).
		Find(&list).Error; err != nil {
		return nil, err
	}
	for _, m := range list {
		out[m.CommunityID] = m.Role
	}
	return out, nil
}

// Remove 删除成员关系，拥有者受保护
func (r *MembershipRepository) Remove(ctx context.Context, m *model.CommunityMembership, actorID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND role <> ?", m.ID, model.RoleOwner).Delete(&model.CommunityMembership{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return protectedOrMissing(tx, m.ID)
		}
		return insertOutbox(tx, model.EventMembershipRemoved, m.CommunityID, actorID, map[string]any{
			"user_id": m.UserID,
			"role":    m.Role,
		})
	})
}

// UpdateRole 修改角色，拥有者的角色不可改
func (r *MembershipRepository) UpdateRole(ctx context.Context, m *model.CommunityMembership, role model.Role, actorID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.CommunityMembership{}).
			Where("id = ? AND role <> ?", m.ID, model.RoleOwner).
			Update("role", role)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return protectedOrMissing(tx, m.ID)
		}
		if err := insertOutbox(tx, model.EventMembershipRoleChanged, m.CommunityID, actorID, map[string]any{
			"user_id": m.UserID,
			"from":    m.Role,
			"to":      role,
		}); err != nil {
			return err
		}
		m.Role = role
		return nil
	})
}

func protectedOrMissing(tx *gorm.DB, id uint64) error {
	var cur model.CommunityMembership
	if err := tx.Select("role").First(&cur, id).Error; err != nil {
		return err
	}
	if cur.Role == model.RoleOwner {
		return ErrOwnerProtected
	}
	// 角色未变化时 MySQL 也会报告 0 行
	return nil
}

// ListByCommunity 社区成员分页列表
func (r *MembershipRepository) ListByCommunity(ctx context.Context, communityID uint64, page Page) ([]MemberRow, int64, error) {
	page = page.Normalize()
	q := r.DB.WithContext(ctx).
		Table("community_memberships AS m").
		Joins("JOIN users ON users.id = m.user_id").
		Joins("LEFT JOIN user_profile ON user_profile.user_id = m.user_id").
		Where("m.community_id = ?", communityID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []MemberRow
	err := q.Select("m.id, m.user_id, users.username, user_profile.full_name, m.role").
		Order("m.id ASC").Offset(page.Offset()).Limit(page.Size).Scan(&rows).Error
	return rows, total, err
}

// ListByUser 用户的全部成员关系
func (r *MembershipRepository) ListByUser(ctx context.Context, userID uint64) ([]model.CommunityMembership, error) {
	var list []model.CommunityMembership
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *MembershipRepository) CountByRole(ctx context.Context, communityID uint64, role model.Role) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.CommunityMembership{}).
		Where("community_id = ? AND role = ?", communityID, role).
		Count(&n).Error
	return n, err
}

package mysql

import (
	"context"
	"errors"
	"time"

	"community_hub/internal/model"
	"community_hub/internal/policy"

	"gorm.io/gorm"
)

type JoinRequestRepository struct {
	DB *gorm.DB
}

type JoinRequestFilter struct {
	CommunitySlug string
	Status        model.JoinStatus
	Search        string // 按申请人姓名
	Ordering      string
}

// JoinRequestRow 管理端与个人列表共用
type JoinRequestRow struct {
	ID            uint64           `json:"id"`
	CommunityID   uint64           `json:"community"`
	CommunitySlug string           `json:"community_slug"`
	CommunityName string           `json:"community_name"`
	UserID        uint64           `json:"user"`
	Username      string           `json:"username"`
	UserFullName  string           `json:"user_full_name"`
	Status        model.JoinStatus `json:"status"`
	UpdatedByID   *uint64          `json:"updated_by"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

const joinRequestColumns = "r.id, r.community_id, communities.slug AS community_slug, communities.name AS community_name, " +
	"r.user_id, users.username, user_profile.full_name AS user_full_name, r.status, r.updated_by_id, r.created_at, r.updated_at"

var joinRequestOrdering = map[string]string{
	"created_at":     "r.created_at",
	"community_name": "communities.name",
	"status":         "r.status",
}

// Create 提交加入申请：已是成员返回 ErrAlreadyMember，已申请过返回 ErrAlreadyExists
func (r *JoinRequestRepository) Create(ctx context.Context, communityID, userID uint64) (*model.CommunityJoinRequest, error) {
	req := &model.CommunityJoinRequest{
		CommunityID: communityID,
		UserID:      userID,
		Status:      model.JoinPending,
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.CommunityMembership{}).
			Where("community_id = ? AND user_id = ?", communityID, userID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyMember
		}
		if err := tx.Model(&model.CommunityJoinRequest{}).
			Where("community_id = ? AND user_id = ?", communityID, userID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyExists
		}
		if err := tx.Create(req).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyExists
			}
			return err
		}
		return insertOutbox(tx, model.EventJoinRequestSubmitted, communityID, userID, map[string]any{
			"request_id": req.ID,
			"user_id":    userID,
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *JoinRequestRepository) FindByID(ctx context.Context, id uint64) (*model.CommunityJoinRequest, error) {
	var req model.CommunityJoinRequest
	err := r.DB.WithContext(ctx).First(&req, id).Error
	return &req, err
}

// FindScoped 范围外的申请视为不存在
func (r *JoinRequestRepository) FindScoped(ctx context.Context, id uint64, s policy.Scope) (*model.CommunityJoinRequest, error) {
	db := r.DB.WithContext(ctx)
	q := ApplyScope(db, db.Model(&model.CommunityJoinRequest{}).Where("id = ?", id), s, "community_id", "user_id")
	var req model.CommunityJoinRequest
	err := q.First(&req).Error
	return &req, err
}

// Resolve 以 status = pending 为条件更新（CAS），批准时在同一事务内创建成员关系。
// 未命中返回 ErrStateChanged，调用方据此判断被并发处理。
// 事务的第一条语句必须是写：sqlite 下先读会持有旧快照，升级写锁时
// 直接失败而不会等待 busy_timeout。
func (r *JoinRequestRepository) Resolve(ctx context.Context, id uint64, status model.JoinStatus, actorID uint64) (*model.CommunityJoinRequest, error) {
	var req model.CommunityJoinRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.CommunityJoinRequest{}).
			Where("id = ? AND status = ?", id, model.JoinPending).
			Updates(map[string]any{"status": status, "updated_by_id": actorID, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateChanged
		}
		if err := tx.First(&req, id).Error; err != nil {
			return err
		}
		if status == model.JoinApproved {
			if _, err := joinTx(tx, req.CommunityID, req.UserID, model.RoleMember, actorID); err != nil {
				return err
			}
		}
		return insertOutbox(tx, model.EventJoinRequestResolved, req.CommunityID, actorID, map[string]any{
			"request_id": req.ID,
			"user_id":    req.UserID,
			"status":     status,
		})
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// List 按可见范围分页查询
func (r *JoinRequestRepository) List(ctx context.Context, f JoinRequestFilter, s policy.Scope, page Page) ([]JoinRequestRow, int64, error) {
	page = page.Normalize()
	db := r.DB.WithContext(ctx)
	q := db.Table("community_join_requests AS r").
		Joins("JOIN communities ON communities.id = r.community_id").
		Joins("JOIN users ON users.id = r.user_id").
		Joins("LEFT JOIN user_profile ON user_profile.user_id = r.user_id")
	q = ApplyScope(db, q, s, "r.community_id", "r.user_id")
	if f.CommunitySlug != "" {
		q = q.Where("communities.slug = ?", f.CommunitySlug)
	}
	if f.Status != "" {
		q = q.Where("r.status = ?", f.Status)
	}
	if f.Search != "" {
		q = q.Where("LOWER(user_profile.full_name) LIKE ?", likePattern(f.Search))
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []JoinRequestRow
	err := q.Select(joinRequestColumns).
		Order(orderClause(f.Ordering, joinRequestOrdering, "r.created_at ASC")).
		Order("r.id ASC").
		Offset(page.Offset()).Limit(page.Size).
		Scan(&rows).Error
	return rows, total, err
}

// Statuses 用户在多个社区的申请状态
func (r *JoinRequestRepository) Statuses(ctx context.Context, userID uint64, communityIDs []uint64) (map[uint64]model.JoinStatus, error) {
	out := make(map[uint64]model.JoinStatus, len(communityIDs))
	if len(communityIDs) == 0 {
		return out, nil
	}
	var list []model.CommunityJoinRequest
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND community_id IN ?", userID, communityIDs).
		Find(&list).Error; err != nil {
		return nil, err
	}
	for _, req := range list {
		out[req.CommunityID] = req.Status
	}
	return out, nil
}

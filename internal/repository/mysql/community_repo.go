package mysql

import (
	"context"
	"errors"
	"time"

	"community_hub/internal/model"
	"community_hub/internal/policy"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommunityRepository struct {
	DB *gorm.DB
}

// CommunityFilter 社区列表过滤条件
type CommunityFilter struct {
	Search    string
	AreaID    *uint64
	AreaName  string
	City      string
	Ordering  string
	Published bool // 只看已发布且启用的社区
	// SearchDescription 为 true 时同时匹配描述
	SearchDescription bool
}

var communityOrdering = map[string]string{
	"name":       "communities.name",
	"created_at": "communities.created_at",
}

// Create 在同一事务中创建社区、详情、拥有者成员关系和领域事件
func (r *CommunityRepository) Create(ctx context.Context, c *model.Community, detail *model.CommunityDetail, ownerID, actorID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Community{}).Where("slug = ?", c.Slug).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrSlugTaken
		}
		if err := tx.Create(c).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSlugTaken
			}
			return err
		}

		if detail == nil {
			detail = &model.CommunityDetail{}
		}
		detail.CommunityID = c.ID
		if err := tx.Create(detail).Error; err != nil {
			return err
		}

		if _, err := joinTx(tx, c.ID, ownerID, model.RoleOwner, actorID); err != nil {
			return err
		}
		return insertOutbox(tx, model.EventCommunityCreated, c.ID, actorID, map[string]any{
			"slug":     c.Slug,
			"owner_id": ownerID,
		})
	})
}

func (r *CommunityRepository) FindByID(ctx context.Context, id uint64) (*model.Community, error) {
	var c model.Community
	err := r.DB.WithContext(ctx).Preload("Area").First(&c, id).Error
	return &c, err
}

func (r *CommunityRepository) FindBySlug(ctx context.Context, slug string) (*model.Community, error) {
	var c model.Community
	err := r.DB.WithContext(ctx).Preload("Area").Where("slug = ?", slug).First(&c).Error
	return &c, err
}

// FindPublishedBySlug 只返回启用且已发布的社区
func (r *CommunityRepository) FindPublishedBySlug(ctx context.Context, slug string) (*model.Community, error) {
	var c model.Community
	err := r.DB.WithContext(ctx).Preload("Area").
		Where("slug = ? AND is_active = ? AND is_published = ?", slug, true, true).
		First(&c).Error
	return &c, err
}

// FindScopedBySlug 按可见范围查找，范围外视为不存在
func (r *CommunityRepository) FindScopedBySlug(ctx context.Context, slug string, s policy.Scope) (*model.Community, error) {
	db := r.DB.WithContext(ctx)
	q := db.Model(&model.Community{}).Preload("Area").Where("communities.slug = ?", slug)
	q = ApplyScope(db, q, s, "communities.id", "communities.created_by_id")
	var c model.Community
	err := q.First(&c).Error
	return &c, err
}

// Update 更新社区字段并记录更新人
func (r *CommunityRepository) Update(ctx context.Context, id uint64, fields map[string]any, actorID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields["updated_by_id"] = actorID
		if err := tx.Model(&model.Community{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return err
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		return insertOutbox(tx, model.EventCommunityUpdated, id, actorID, map[string]any{"fields": keys})
	})
}

// Deactivate 软删除
func (r *CommunityRepository) Deactivate(ctx context.Context, id, actorID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Community{}).Where("id = ?", id).
			Updates(map[string]any{"is_active": false, "updated_by_id": actorID}).Error; err != nil {
			return err
		}
		return insertOutbox(tx, model.EventCommunityDeactivated, id, actorID, nil)
	})
}

func (r *CommunityRepository) filtered(ctx context.Context, f CommunityFilter, s *policy.Scope) *gorm.DB {
	db := r.DB.WithContext(ctx)
	q := db.Model(&model.Community{})
	if f.Published {
		q = q.Where("communities.is_active = ? AND communities.is_published = ?", true, true)
	}
	if s != nil {
		q = ApplyScope(db, q, *s, "communities.id", "communities.created_by_id")
	}
	if f.AreaID != nil {
		q = q.Where("communities.area_id = ?", *f.AreaID)
	}
	if f.AreaName != "" || f.City != "" {
		q = q.Joins("LEFT JOIN area ON area.id = communities.area_id")
		if f.AreaName != "" {
			q = q.Where("area.name = ?", f.AreaName)
		}
		if f.City != "" {
			q = q.Where("area.city = ?", f.City)
		}
	}
	if f.Search != "" {
		p := likePattern(f.Search)
		if f.SearchDescription {
			q = q.Where("LOWER(communities.name) LIKE ? OR LOWER(communities.description) LIKE ?", p, p)
		} else {
			q = q.Where("LOWER(communities.name) LIKE ?", p)
		}
	}
	return q.Session(&gorm.Session{})
}

// List 分页查询，s 为 nil 表示不限制可见范围
func (r *CommunityRepository) List(ctx context.Context, f CommunityFilter, s *policy.Scope, page Page) ([]model.Community, int64, error) {
	page = page.Normalize()
	q := r.filtered(ctx, f, s)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Community
	err := q.Preload("Area").
		Order(orderClause(f.Ordering, communityOrdering, "communities.created_at ASC")).
		Order("communities.id ASC").
		Offset(page.Offset()).Limit(page.Size).
		Find(&list).Error
	return list, total, err
}

// CommunitySummary 管理端下拉用
type CommunitySummary struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func (r *CommunityRepository) Summary(ctx context.Context, s policy.Scope) ([]CommunitySummary, error) {
	var rows []CommunitySummary
	err := r.filtered(ctx, CommunityFilter{}, &s).
		Select("communities.slug, communities.name").
		Order("communities.name ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *CommunityRepository) FindDetail(ctx context.Context, communityID uint64) (*model.CommunityDetail, error) {
	var d model.CommunityDetail
	err := r.DB.WithContext(ctx).Where("community_id = ?", communityID).First(&d).Error
	return &d, err
}

// SaveDetail 详情缺失时补建
func (r *CommunityRepository) SaveDetail(ctx context.Context, communityID uint64, additionalInfo, rules string) (*model.CommunityDetail, error) {
	d := model.CommunityDetail{CommunityID: communityID, AdditionalInfo: additionalInfo, Rules: rules}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"additional_info", "rules"}),
	}).Create(&d).Error
	if err != nil {
		return nil, err
	}
	return r.FindDetail(ctx, communityID)
}

// CountMembers 社区成员总数
func (r *CommunityRepository) CountMembers(ctx context.Context, communityID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.CommunityMembership{}).Where("community_id = ?", communityID).Count(&n).Error
	return n, err
}

// CountMembersByCommunity 批量统计成员数
func (r *CommunityRepository) CountMembersByCommunity(ctx context.Context, ids []uint64) (map[uint64]int64, error) {
	out := make(map[uint64]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		CommunityID uint64
		Total       int64
	}
	if err := r.DB.WithContext(ctx).Model(&model.CommunityMembership{}).
		Select("community_id, COUNT(*) AS total").
		Where("community_id IN ?", ids).
		Group("community_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.CommunityID] = row.Total
	}
	return out, nil
}

// joinTx 幂等地创建成员关系（唯一索引 + ON CONFLICT DO NOTHING），返回是否新建
func joinTx(tx *gorm.DB, communityID, userID uint64, role model.Role, actorID uint64) (bool, error) {
	m := model.CommunityMembership{
		CommunityID: communityID,
		UserID:      userID,
		Role:        role,
		JoinedAt:    time.Now(),
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&m)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	err := insertOutbox(tx, model.EventMembershipCreated, communityID, actorID, map[string]any{
		"user_id": userID,
		"role":    role,
	})
	return err == nil, err
}

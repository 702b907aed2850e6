package mysql

import (
	"context"

	"community_hub/internal/model"

	"gorm.io/gorm"
)

type ProfileRepository struct {
	DB *gorm.DB
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID uint64) (*model.UserProfile, error) {
	var p model.UserProfile
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	return &p, err
}

// Update 只更新传入的列
func (r *ProfileRepository) Update(ctx context.Context, userID uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(&model.UserProfile{}).Where("user_id = ?", userID).Updates(fields).Error
}

func (r *ProfileRepository) SetAvatar(ctx context.Context, userID uint64, avatar, thumbnail string) error {
	return r.Update(ctx, userID, map[string]any{"avatar": avatar, "thumbnail": thumbnail})
}

// PersonRow 人员列表行
type PersonRow struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	FullName string `json:"full_name"`
	IsActive bool   `json:"is_active"`
}

// ListPeople 按姓名或用户名搜索
func (r *ProfileRepository) ListPeople(ctx context.Context, search string, page Page) ([]PersonRow, int64, error) {
	page = page.Normalize()
	q := r.DB.WithContext(ctx).
		Table("user_profile").
		Joins("JOIN users ON users.id = user_profile.user_id")
	if search != "" {
		p := likePattern(search)
		q = q.Where("LOWER(user_profile.full_name) LIKE ? OR LOWER(users.username) LIKE ?", p, p)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []PersonRow
	err := q.Select("user_profile.id, users.username, user_profile.avatar, user_profile.full_name, user_profile.is_active").
		Order("user_profile.id ASC").Offset(page.Offset()).Limit(page.Size).Scan(&rows).Error
	return rows, total, err
}

// FullNames 批量查询姓名，用于加入申请列表展示
func (r *ProfileRepository) FullNames(ctx context.Context, userIDs []uint64) (map[uint64]string, error) {
	out := make(map[uint64]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []model.UserProfile
	if err := r.DB.WithContext(ctx).Select("user_id", "full_name").Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.UserID] = p.FullName
	}
	return out, nil
}

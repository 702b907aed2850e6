package mysql

import (
	"context"

	"community_hub/internal/model"

	"gorm.io/gorm"
)

type AreaRepository struct {
	DB *gorm.DB
}

func (r *AreaRepository) FindByID(ctx context.Context, id uint64) (*model.Area, error) {
	var a model.Area
	err := r.DB.WithContext(ctx).First(&a, id).Error
	return &a, err
}

// List city 为空返回全部，否则按城市忽略大小写精确匹配
func (r *AreaRepository) List(ctx context.Context, city string) ([]model.Area, error) {
	q := r.DB.WithContext(ctx).Model(&model.Area{})
	if city != "" {
		q = q.Where("LOWER(city) = LOWER(?)", city)
	}
	var list []model.Area
	err := q.Order("id ASC").Find(&list).Error
	return list, err
}

func (r *AreaRepository) Cities(ctx context.Context) ([]string, error) {
	var cities []string
	err := r.DB.WithContext(ctx).Model(&model.Area{}).Distinct("city").Order("city ASC").Pluck("city", &cities).Error
	return cities, err
}

func (r *AreaRepository) Create(ctx context.Context, a *model.Area) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

package service

import (
	"context"
	"strings"
	"time"

	"community_hub/internal/model"
	"community_hub/internal/repository/mysql"

	"github.com/bluele/gcache"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const areaCacheTTL = 5 * time.Minute

// AreaService 区域数据几乎不变，进程内缓存 5 分钟
type AreaService struct {
	repo  *mysql.AreaRepository
	cache gcache.Cache
	group singleflight.Group
}

func NewAreaService(db *gorm.DB) *AreaService {
	return &AreaService{
		repo:  &mysql.AreaRepository{DB: db},
		cache: gcache.New(256).LRU().Build(),
	}
}

func (s *AreaService) load(key string, fn func() (any, error)) (any, error) {
	if v, err := s.cache.Get(key); err == nil {
		return v, nil
	} else if !errors.Is(err, gcache.KeyNotFoundError) {
		return nil, errors.Wrap(err, "area: cache get")
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		v, err := fn()
		if err != nil {
			return nil, err
		}
		_ = s.cache.SetWithExpire(key, v, areaCacheTTL)
		return v, nil
	})
	return v, err
}

// ListAreas city 忽略大小写精确匹配，为空返回全部，不分页
func (s *AreaService) ListAreas(ctx context.Context, city string) ([]model.Area, error) {
	city = strings.TrimSpace(city)
	v, err := s.load("areas:"+strings.ToLower(city), func() (any, error) {
		return s.repo.List(ctx, city)
	})
	if err != nil {
		return nil, wrap(err, "area: list")
	}
	areas := v.([]model.Area)
	if areas == nil {
		areas = []model.Area{}
	}
	return areas, nil
}

func (s *AreaService) ListCities(ctx context.Context) ([]string, error) {
	v, err := s.load("cities", func() (any, error) {
		return s.repo.Cities(ctx)
	})
	if err != nil {
		return nil, wrap(err, "area: cities")
	}
	cities := v.([]string)
	if cities == nil {
		cities = []string{}
	}
	return cities, nil
}

// Purge 新增区域后清空缓存
func (s *AreaService) Purge() {
	s.cache.Purge()
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"community_hub/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	RoleCachePrefix = "community:role"
	RoleCacheTTL    = 10 * time.Minute
	// 删除后短时间内保留墓碑，阻止并发读回填旧角色
	RoleTombstoneTTL = 30 * time.Second
	// 没有成员关系也缓存，避免反复穿透
	roleNoneValue = "none"
	roleTombstone = "-"
)

// RoleRepository 成员角色缓存，成员关系变更时删除
type RoleRepository struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewRoleRepository(rdb *redis.Client) *RoleRepository {
	return &RoleRepository{RDB: rdb, TTL: RoleCacheTTL}
}

func roleKey(userID, communityID uint64) string {
	return fmt.Sprintf("%s:%d:%d", RoleCachePrefix, communityID, userID)
}

// Get 第二个返回值表示是否命中
func (r *RoleRepository) Get(ctx context.Context, userID, communityID uint64) (model.Role, bool, error) {
	val, err := r.RDB.Get(ctx, roleKey(userID, communityID)).Result()
	if errors.Is(err, redis.Nil) {
		return model.RoleNone, false, nil
	}
	if err != nil {
		return model.RoleNone, false, err
	}
	switch val {
	case roleTombstone:
		return model.RoleNone, false, nil
	case roleNoneValue:
		return model.RoleNone, true, nil
	}
	return model.Role(val), true, nil
}

// Set 仅在键不存在时写入，墓碑未过期前的回填会被丢弃
func (r *RoleRepository) Set(ctx context.Context, userID, communityID uint64, role model.Role) error {
	val := string(role)
	if role == model.RoleNone {
		val = roleNoneValue
	}
	return r.RDB.SetNX(ctx, roleKey(userID, communityID), val, r.TTL).Err()
}

// Invalidate 用墓碑覆盖旧值
func (r *RoleRepository) Invalidate(ctx context.Context, userID, communityID uint64) error {
	return r.RDB.Set(ctx, roleKey(userID, communityID), roleTombstone, RoleTombstoneTTL).Err()
}

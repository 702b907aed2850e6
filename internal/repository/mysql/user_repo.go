package mysql

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"community_hub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

// personIDAttempts 档案编号冲突时整个事务重试的次数
const personIDAttempts = 3

// allocPersonID 测试中可替换
var allocPersonID = nextPersonID

// CreateWithProfile 注册：用户与档案同一事务写入，档案编号在事务内顺序分配。
// 空表时行锁锁不住任何记录，并发注册可能拿到相同编号，此时整体重试
func (r *UserRepository) CreateWithProfile(ctx context.Context, user *model.User, profile *model.UserProfile) error {
	var err error
	for i := 0; i < personIDAttempts; i++ {
		user.ID, profile.ID = 0, 0
		if err = r.createWithProfile(ctx, user, profile); !errors.Is(err, ErrPersonIDTaken) {
			return err
		}
	}
	return err
}

func (r *UserRepository) createWithProfile(ctx context.Context, user *model.User, profile *model.UserProfile) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.User{}).
			Where("username = ? OR email = ?", user.Username, user.Email).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyExists
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyExists
			}
			return err
		}

		personID, err := allocPersonID(tx)
		if err != nil {
			return err
		}
		profile.UserID = user.ID
		profile.PersonID = personID
		if err = tx.Create(profile).Error; errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrPersonIDTaken
		}
		return err
	})
}

// nextPersonID 取当前最大编号加一，8 位补零
func nextPersonID(tx *gorm.DB) (string, error) {
	var last model.UserProfile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("person_id").
		Order("person_id DESC").
		Limit(1).
		Find(&last).Error
	if err != nil {
		return "", err
	}
	next := 1
	if last.PersonID != "" {
		if n, err := strconv.Atoi(last.PersonID); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%08d", next), nil
}

// FindByUsername 用户名或邮箱登录
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("username = ? OR email = ?", username, username).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByExactUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var usr model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&usr).Error
	return &usr, err
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]model.User, error) {
	out := make(map[uint64]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []model.User
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, user *model.User, newPassword string) error {
	return r.DB.WithContext(ctx).Model(user).Update("password", newPassword).Error
}

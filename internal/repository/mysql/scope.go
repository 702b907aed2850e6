package mysql

import (
	"strings"

	"community_hub/internal/model"
	"community_hub/internal/policy"

	"gorm.io/gorm"
)

// ApplyScope 把列表可见范围翻译成 SQL 条件，与 policy.Scope.Match 等价
func ApplyScope(db, q *gorm.DB, s policy.Scope, communityCol, userCol string) *gorm.DB {
	if s.Unrestricted {
		return q
	}
	if s.ByRowOwner {
		return q.Where(userCol+" = ?", s.UserID)
	}
	sub := db.Model(&model.CommunityMembership{}).Select("community_id").Where("user_id = ?", s.UserID)
	if len(s.Roles) > 0 {
		roles := make([]string, 0, len(s.Roles))
		for _, r := range s.Roles {
			roles = append(roles, string(r))
		}
		sub = sub.Where("role IN ?", roles)
	}
	return q.Where(communityCol+" IN (?)", sub)
}

type Page struct {
	Page int
	Size int
}

// Normalize 页码从 1 开始，size 默认 20，上限 50
func (p Page) Normalize() Page {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Size <= 0 || p.Size > 50 {
		p.Size = 20
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Size
}

func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

// orderClause 只接受白名单内的排序字段，"-" 前缀表示倒序
func orderClause(ordering string, allowed map[string]string, fallback string) string {
	desc := strings.HasPrefix(ordering, "-")
	col, ok := allowed[strings.TrimPrefix(ordering, "-")]
	if !ok {
		return fallback
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}

package model

import "time"

type Role string

const (
	RoleNone    Role = ""
	RoleMember  Role = "member"
	RoleManager Role = "manager"
	RoleOwner   Role = "owner"
)

func (r Role) Valid() bool {
	return r == RoleMember || r == RoleManager || r == RoleOwner
}

// AtLeast 角色等级比较：owner > manager > member > none
func (r Role) AtLeast(other Role) bool {
	return r.rank() >= other.rank()
}

func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleManager:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

type JoinStatus string

const (
	JoinPending  JoinStatus = "pending"
	JoinApproved JoinStatus = "approved"
	JoinDeclined JoinStatus = "declined"
)

func (s JoinStatus) Terminal() bool {
	return s == JoinApproved || s == JoinDeclined
}

type Community struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"uniqueIndex;size:20;not null" json:"slug"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsPublished bool      `gorm:"not null;default:false" json:"is_published"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	AreaID      *uint64   `gorm:"index" json:"area"`
	Area        *Area     `gorm:"foreignKey:AreaID" json:"-"`
	CreatedByID *uint64   `json:"created_by"`
	UpdatedByID *uint64   `json:"updated_by"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CommunityDetail 与 Community 同生命周期
type CommunityDetail struct {
	ID             uint64 `gorm:"primaryKey" json:"-"`
	CommunityID    uint64 `gorm:"uniqueIndex;not null" json:"community"`
	AdditionalInfo string `gorm:"type:text" json:"additional_info"`
	Rules          string `gorm:"type:text" json:"rules"`
}

type CommunityMembership struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	CommunityID uint64    `gorm:"not null;index;uniqueIndex:uk_community_user" json:"community"`
	UserID      uint64    `gorm:"not null;index;uniqueIndex:uk_community_user" json:"user"`
	Role        Role      `gorm:"size:20;not null;default:member" json:"role"`
	JoinedAt    time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

type CommunityJoinRequest struct {
	ID          uint64     `gorm:"primaryKey" json:"id"`
	CommunityID uint64     `gorm:"not null;index;uniqueIndex:uk_join_community_user" json:"community"`
	UserID      uint64     `gorm:"not null;index;uniqueIndex:uk_join_community_user" json:"user"`
	Status      JoinStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	UpdatedByID *uint64    `json:"updated_by"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	OutboxPending int8 = iota
	OutboxSent
	OutboxFailed
)

// 领域事件类型
const (
	EventCommunityCreated      = "community.created"
	EventCommunityUpdated      = "community.updated"
	EventCommunityDeactivated  = "community.deactivated"
	EventMembershipCreated     = "membership.created"
	EventMembershipRemoved     = "membership.removed"
	EventMembershipRoleChanged = "membership.role_changed"
	EventJoinRequestSubmitted  = "join_request.submitted"
	EventJoinRequestResolved   = "join_request.resolved"
	EventCollaborationChanged  = "collaboration.status_changed"
	EventRegistrationCreated   = "registration.created"
	EventPaymentStatusChanged  = "payment.status_changed"
)

// DomainOutbox 领域事件表，与业务写入同一事务
type DomainOutbox struct {
	ID          uint64         `gorm:"primaryKey"`
	EventType   string         `gorm:"size:48;not null"`
	AggregateID uint64         `gorm:"not null;index"`
	ActorID     uint64         `gorm:"not null"`
	Payload     datatypes.JSON `gorm:"not null"`
	Status      int8           `gorm:"not null;default:0;index"`
	Retry       int            `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (DomainOutbox) TableName() string { return "domain_outbox" }

// AllModels 参与自动建表的全部模型
func AllModels() []any {
	return []any{
		&User{},
		&Region{},
		&Area{},
		&UserProfile{},
		&Community{},
		&CommunityDetail{},
		&CommunityMembership{},
		&CommunityJoinRequest{},
		&Event{},
		&EventCollaboration{},
		&EventRegistration{},
		&Payment{},
		&DomainOutbox{},
	}
}

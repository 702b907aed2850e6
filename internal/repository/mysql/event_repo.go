package mysql

import (
	"context"
	"errors"

	"community_hub/internal/model"

	"gorm.io/gorm"
)

type EventRepository struct {
	DB *gorm.DB
}

// ErrCollabSelf 社区不能与自己的活动合作
var ErrCollabSelf = errors.New("collaboration with organizer")

func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	return r.DB.WithContext(ctx).Create(e).Error
}

func (r *EventRepository) FindByID(ctx context.Context, id uint64) (*model.Event, error) {
	var e model.Event
	err := r.DB.WithContext(ctx).First(&e, id).Error
	return &e, err
}

func (r *EventRepository) Update(ctx context.Context, id uint64, fields map[string]any) error {
	return r.DB.WithContext(ctx).Model(&model.Event{}).Where("id = ?", id).Updates(fields).Error
}

// Delete 级联删除合作、报名和付款
func (r *EventRepository) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		regs := tx.Model(&model.EventRegistration{}).Select("id").Where("event_id = ?", id)
		if err := tx.Where("registration_id IN (?)", regs).Delete(&model.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Delete(&model.EventRegistration{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Delete(&model.EventCollaboration{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Event{}, id).Error
	})
}

// ListByCommunity 社区主办的活动，以及已接受合作的活动
func (r *EventRepository) ListByCommunity(ctx context.Context, communityID uint64, page Page) ([]model.Event, int64, error) {
	page = page.Normalize()
	db := r.DB.WithContext(ctx)
	collab := db.Model(&model.EventCollaboration{}).Select("event_id").
		Where("collaborating_community_id = ? AND status = ?", communityID, model.CollabAccepted)
	q := db.Model(&model.Event{}).
		Where("organized_by_id = ? OR id IN (?)", communityID, collab).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Event
	err := q.Order("created_at DESC").Order("id DESC").Offset(page.Offset()).Limit(page.Size).Find(&list).Error
	return list, total, err
}

// RequestCollaboration 主办方邀请其他社区合作
func (r *EventRepository) RequestCollaboration(ctx context.Context, e *model.Event, communityID uint64) (*model.EventCollaboration, error) {
	if e.OrganizedByID == communityID {
		return nil, ErrCollabSelf
	}
	c := &model.EventCollaboration{
		EventID:                  e.ID,
		CollaboratingCommunityID: communityID,
		Status:                   model.CollabPending,
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.EventCollaboration{}).
			Where("event_id = ? AND collaborating_community_id = ?", e.ID, communityID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyExists
		}
		if err := tx.Create(c).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *EventRepository) FindCollaboration(ctx context.Context, eventID, id uint64) (*model.EventCollaboration, error) {
	var c model.EventCollaboration
	err := r.DB.WithContext(ctx).Where("id = ? AND event_id = ?", id, eventID).First(&c).Error
	return &c, err
}

func (r *EventRepository) ListCollaborations(ctx context.Context, eventID uint64) ([]model.EventCollaboration, error) {
	var list []model.EventCollaboration
	err := r.DB.WithContext(ctx).Where("event_id = ?", eventID).Order("id ASC").Find(&list).Error
	return list, err
}

// TransitionCollaboration 只有当前状态在 from 中时才更新，否则 ErrStateChanged
func (r *EventRepository) TransitionCollaboration(ctx context.Context, c *model.EventCollaboration, from []model.CollaborationStatus, to model.CollaborationStatus, actorID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.EventCollaboration{}).
			Where("id = ? AND status IN ?", c.ID, from).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateChanged
		}
		if err := insertOutbox(tx, model.EventCollaborationChanged, c.CollaboratingCommunityID, actorID, map[string]any{
			"collaboration_id": c.ID,
			"event_id":         c.EventID,
			"from":             c.Status,
			"to":               to,
		}); err != nil {
			return err
		}
		return tx.First(c, c.ID).Error
	})
}

// Register 报名：免费活动 N/A，收费活动 pending
func (r *EventRepository) Register(ctx context.Context, e *model.Event, userID uint64) (*model.EventRegistration, error) {
	reg := &model.EventRegistration{
		UserID:        userID,
		EventID:       e.ID,
		PaymentStatus: model.PaymentNotApplicable,
	}
	if !e.IsFree {
		reg.PaymentStatus = model.PaymentPending
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.EventRegistration{}).
			Where("event_id = ? AND user_id = ?", e.ID, userID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyExists
		}
		if err := tx.Create(reg).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyExists
			}
			return err
		}
		return insertOutbox(tx, model.EventRegistrationCreated, e.OrganizedByID, userID, map[string]any{
			"event_id":        e.ID,
			"registration_id": reg.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *EventRepository) FindRegistration(ctx context.Context, id uint64) (*model.EventRegistration, error) {
	var reg model.EventRegistration
	err := r.DB.WithContext(ctx).First(&reg, id).Error
	return &reg, err
}

// RegistrationRow 报名列表行
type RegistrationRow struct {
	ID            uint64              `json:"id"`
	UserID        uint64              `json:"user"`
	Username      string              `json:"username"`
	FullName      string              `json:"full_name"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

func (r *EventRepository) ListRegistrations(ctx context.Context, eventID uint64, page Page) ([]RegistrationRow, int64, error) {
	page = page.Normalize()
	q := r.DB.WithContext(ctx).
		Table("event_registrations AS reg").
		Joins("JOIN users ON users.id = reg.user_id").
		Joins("LEFT JOIN user_profile ON user_profile.user_id = reg.user_id").
		Where("reg.event_id = ?", eventID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []RegistrationRow
	err := q.Select("reg.id, reg.user_id, users.username, user_profile.full_name, reg.payment_status").
		Order("reg.id ASC").Offset(page.Offset()).Limit(page.Size).
		Scan(&rows).Error
	return rows, total, err
}

// CreatePayment 一次报名只有一条付款记录
func (r *EventRepository) CreatePayment(ctx context.Context, p *model.Payment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Payment{}).Where("registration_id = ?", p.RegistrationID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyExists
		}
		p.Status = model.PaymentPending
		if err := tx.Create(p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyExists
			}
			return err
		}
		return tx.Model(&model.EventRegistration{}).Where("id = ?", p.RegistrationID).
			Update("payment_status", model.PaymentPending).Error
	})
}

func (r *EventRepository) FindPayment(ctx context.Context, id uint64) (*model.Payment, error) {
	var p model.Payment
	err := r.DB.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *EventRepository) FindPaymentByRegistration(ctx context.Context, registrationID uint64) (*model.Payment, error) {
	var p model.Payment
	err := r.DB.WithContext(ctx).Where("registration_id = ?", registrationID).First(&p).Error
	return &p, err
}

// UpdatePaymentStatus CAS 更新付款状态，报名上的 payment_status 同步
func (r *EventRepository) UpdatePaymentStatus(ctx context.Context, p *model.Payment, from, to model.PaymentStatus, organizerID, actorID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Payment{}).
			Where("id = ? AND status = ?", p.ID, from).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateChanged
		}
		if err := tx.Model(&model.EventRegistration{}).Where("id = ?", p.RegistrationID).
			Update("payment_status", to).Error; err != nil {
			return err
		}
		if err := insertOutbox(tx, model.EventPaymentStatusChanged, organizerID, actorID, map[string]any{
			"payment_id":      p.ID,
			"registration_id": p.RegistrationID,
			"from":            from,
			"to":              to,
		}); err != nil {
			return err
		}
		return tx.First(p, p.ID).Error
	})
}

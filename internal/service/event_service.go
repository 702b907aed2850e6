package service

import (
	"context"
	stderrors "errors"
	"strings"

	"community_hub/internal/errs"
	"community_hub/internal/model"
	"community_hub/internal/policy"
	"community_hub/internal/repository/mysql"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EventService struct {
	repo        *mysql.EventRepository
	communities *mysql.CommunityRepository
	members     *MembershipService
	auth        *policy.Authorizer
}

func NewEventService(db *gorm.DB, members *MembershipService) *EventService {
	return &EventService{
		repo:        &mysql.EventRepository{DB: db},
		communities: &mysql.CommunityRepository{DB: db},
		members:     members,
		auth:        members.Authorizer(),
	}
}

type EventInput struct {
	Name        string
	Description string
	IsFree      bool
	Fees        *decimal.Decimal
	Currency    string
}

// EventPatch nil 字段不更新
type EventPatch struct {
	Name        *string
	Description *string
	IsFree      *bool
	Fees        *decimal.Decimal
	Currency    *string
}

// validateFees 收费活动必须有大于 0 的费用，免费活动清空费用
func validateFees(isFree bool, fees *decimal.Decimal) (*decimal.Decimal, error) {
	if isFree {
		return nil, nil
	}
	if fees == nil {
		return nil, errs.ValidationField("fees", "Fees are required for paid events.")
	}
	if !fees.IsPositive() {
		return nil, errs.ValidationField("fees", "Fees must be greater than zero.")
	}
	if fees.Exponent() < -2 {
		return nil, errs.ValidationField("fees", "Ensure that there are no more than 2 decimal places.")
	}
	return fees, nil
}

func (s *EventService) Create(ctx context.Context, actor policy.Actor, slug string, in EventInput) (*model.Event, error) {
	c, err := s.members.managed(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	if err = authorize(ctx, s.auth, actor, policy.OpCreate, policy.ResEvent, c.ID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, errs.ValidationField("name", "This field is required.")
	}
	fees, err := validateFees(in.IsFree, in.Fees)
	if err != nil {
		return nil, err
	}
	currency := in.Currency
	if currency == "" {
		currency = model.CurrencyPKR
	}
	if !model.ValidCurrency(currency) {
		return nil, errs.ValidationField("currency", "Invalid currency.")
	}
	actorID := actor.UserID
	e := &model.Event{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		OrganizedByID: c.ID,
		IsFree:        in.IsFree,
		Fees:          fees,
		Currency:      currency,
		CreatedByID:   &actorID,
		UpdatedByID:   &actorID,
	}
	if err = s.repo.Create(ctx, e); err != nil {
		return nil, wrap(err, "event: create")
	}
	return e, nil
}

func (s *EventService) find(ctx context.Context, id uint64) (*model.Event, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "event: find")
	}
	return e, nil
}

// visible 主办社区公开时所有人可见，否则只有管理者可见
func (s *EventService) visible(ctx context.Context, actor policy.Actor, e *model.Event) error {
	c, err := s.communities.FindByID(ctx, e.OrganizedByID)
	if err != nil {
		return lookup(err, "event: find organizer")
	}
	if c.IsActive && c.IsPublished {
		return nil
	}
	ok, err := s.members.IsOwnerOrManager(ctx, actor, c.ID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.NotFound(msgNotFound)
	}
	return nil
}

func (s *EventService) Get(ctx context.Context, actor policy.Actor, id uint64) (*model.Event, error) {
	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = s.visible(ctx, actor, e); err != nil {
		return nil, err
	}
	return e, nil
}

// List 社区主办及已接受合作的活动
func (s *EventService) List(ctx context.Context, actor policy.Actor, slug string, page mysql.Page) (*PageResult[model.Event], error) {
	c, err := s.communities.FindBySlug(ctx, slug)
	if err != nil {
		return nil, lookup(err, "event: find community")
	}
	if !c.IsActive || !c.IsPublished {
		ok, err := s.members.IsOwnerOrManager(ctx, actor, c.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.NotFound(msgNotFound)
		}
		if err = authorize(ctx, s.auth, actor, policy.OpList, policy.ResEvent, c.ID); err != nil {
			return nil, err
		}
	}
	list, total, err := s.repo.ListByCommunity(ctx, c.ID, page)
	if err != nil {
		return nil, wrap(err, "event: list")
	}
	return newPage(list, total, page), nil
}

func (s *EventService) Update(ctx context.Context, actor policy.Actor, id uint64, in EventPatch) (*model.Event, error) {
	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = authorize(ctx, s.auth, actor, policy.OpUpdate, policy.ResEvent, e.OrganizedByID); err != nil {
		return nil, err
	}
	fields := map[string]any{"updated_by_id": actor.UserID}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, errs.ValidationField("name", "This field may not be blank.")
		}
		fields["name"] = name
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Currency != nil {
		if !model.ValidCurrency(*in.Currency) {
			return nil, errs.ValidationField("currency", "Invalid currency.")
		}
		fields["currency"] = *in.Currency
	}

	isFree, fees := e.IsFree, e.Fees
	if in.IsFree != nil {
		isFree = *in.IsFree
	}
	if in.Fees != nil {
		fees = in.Fees
	}
	if fees, err = validateFees(isFree, fees); err != nil {
		return nil, err
	}
	fields["is_free"] = isFree
	fields["fees"] = fees

	if err = s.repo.Update(ctx, e.ID, fields); err != nil {
		return nil, wrap(err, "event: update")
	}
	return s.find(ctx, e.ID)
}

// Delete 仅主办社区拥有者
func (s *EventService) Delete(ctx context.Context, actor policy.Actor, id uint64) error {
	e, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err = authorize(ctx, s.auth, actor, policy.OpDelete, policy.ResEvent, e.OrganizedByID); err != nil {
		return err
	}
	return wrap(s.repo.Delete(ctx, e.ID), "event: delete")
}

// RequestCollaboration 主办方邀请另一个社区
func (s *EventService) RequestCollaboration(ctx context.Context, actor policy.Actor, eventID uint64, slug string) (*model.EventCollaboration, error) {
	e, err := s.find(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err = authorize(ctx, s.auth, actor, policy.OpCreate, policy.ResCollaboration, e.OrganizedByID); err != nil {
		return nil, err
	}
	target, err := s.communities.FindBySlug(ctx, slug)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ValidationField("collaborating_community", "Object with slug="+slug+" does not exist.")
		}
		return nil, wrap(err, "event: find community")
	}
	if !target.IsActive {
		return nil, errs.ValidationField("collaborating_community", "The community is not active.")
	}
	collab, err := s.repo.RequestCollaboration(ctx, e, target.ID)
	switch {
	case stderrors.Is(err, mysql.ErrCollabSelf):
		return nil, errs.ValidationField("collaborating_community", "An event cannot collaborate with its organizer.")
	case stderrors.Is(err, mysql.ErrAlreadyExists):
		return nil, errs.Conflict("This community has already been invited to the event.")
	case err != nil:
		return nil, wrap(err, "event: request collaboration")
	}
	return collab, nil
}

// RespondCollaboration 被邀请社区的管理者接受或拒绝，只能从 pending 出发
func (s *EventService) RespondCollaboration(ctx context.Context, actor policy.Actor, eventID, collabID uint64, status model.CollaborationStatus) (*model.EventCollaboration, error) {
	c, err := s.repo.FindCollaboration(ctx, eventID, collabID)
	if err != nil {
		return nil, lookup(err, "event: find collaboration")
	}
	if err = authorize(ctx, s.auth, actor, policy.OpUpdate, policy.ResCollaboration, c.CollaboratingCommunityID); err != nil {
		return nil, err
	}
	if status != model.CollabAccepted && status != model.CollabRejected {
		return nil, errs.ValidationField("status", "Status must be accepted or rejected.")
	}
	if err = s.transition(ctx, c, []model.CollaborationStatus{model.CollabPending}, status, actor.UserID); err != nil {
		return nil, err
	}
	return c, nil
}

// CancelCollaboration 主办方撤销，pending 或 accepted 可撤销
func (s *EventService) CancelCollaboration(ctx context.Context, actor policy.Actor, eventID, collabID uint64) (*model.EventCollaboration, error) {
	e, err := s.find(ctx, eventID)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindCollaboration(ctx, eventID, collabID)
	if err != nil {
		return nil, lookup(err, "event: find collaboration")
	}
	if err = authorize(ctx, s.auth, actor, policy.OpDelete, policy.ResCollaboration, e.OrganizedByID); err != nil {
		return nil, err
	}
	from := []model.CollaborationStatus{model.CollabPending, model.CollabAccepted}
	if err = s.transition(ctx, c, from, model.CollabCanceled, actor.UserID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *EventService) transition(ctx context.Context, c *model.EventCollaboration, from []model.CollaborationStatus, to model.CollaborationStatus, actorID uint64) error {
	err := s.repo.TransitionCollaboration(ctx, c, from, to, actorID)
	if stderrors.Is(err, mysql.ErrStateChanged) {
		cur, ferr := s.repo.FindCollaboration(ctx, c.EventID, c.ID)
		if ferr != nil {
			return lookup(ferr, "event: reload collaboration")
		}
		return errs.Conflict("Collaboration is already " + string(cur.Status) + ".")
	}
	return wrap(err, "event: transition collaboration")
}

func (s *EventService) ListCollaborations(ctx context.Context, actor policy.Actor, eventID uint64) ([]model.EventCollaboration, error) {
	e, err := s.Get(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListCollaborations(ctx, e.ID)
	if err != nil {
		return nil, wrap(err, "event: list collaborations")
	}
	if list == nil {
		list = []model.EventCollaboration{}
	}
	return list, nil
}

// Register 同一用户对同一活动只能报名一次
func (s *EventService) Register(ctx context.Context, actor policy.Actor, eventID uint64) (*model.EventRegistration, error) {
	if err := authorize(ctx, s.auth, actor, policy.OpCreate, policy.ResRegistration, 0); err != nil {
		return nil, err
	}
	e, err := s.Get(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	reg, err := s.repo.Register(ctx, e, actor.UserID)
	if stderrors.Is(err, mysql.ErrAlreadyExists) {
		return nil, errs.Conflict("You are already registered for this event.")
	}
	if err != nil {
		return nil, wrap(err, "event: register")
	}
	return reg, nil
}

func (s *EventService) ListRegistrations(ctx context.Context, actor policy.Actor, eventID uint64, page mysql.Page) (*PageResult[mysql.RegistrationRow], error) {
	e, err := s.find(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err = authorize(ctx, s.auth, actor, policy.OpList, policy.ResRegistration, e.OrganizedByID); err != nil {
		return nil, err
	}
	rows, total, err := s.repo.ListRegistrations(ctx, e.ID, page)
	if err != nil {
		return nil, wrap(err, "event: list registrations")
	}
	return newPage(rows, total, page), nil
}

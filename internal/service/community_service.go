package service

import (
	"context"
	stderrors "errors"
	"regexp"
	"strings"
	"time"

	"community_hub/internal/errs"
	"community_hub/internal/model"
	"community_hub/internal/policy"
	"community_hub/internal/repository/mysql"

	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[a-z-]+$`)

const (
	slugMinLen = 5
	slugMaxLen = 20
)

// ValidateSlug 只允许小写字母和短横线，长度 5~20
func ValidateSlug(slug string) error {
	switch {
	case slug == "":
		return errs.ValidationField("slug", "This field is required.")
	case !slugPattern.MatchString(slug):
		return errs.ValidationField("slug", "Slug can only contain lowercase letters and dashes.")
	case len(slug) < slugMinLen:
		return errs.ValidationField("slug", "Ensure this field has at least 5 characters.")
	case len(slug) > slugMaxLen:
		return errs.ValidationField("slug", "Ensure this field has no more than 20 characters.")
	}
	return nil
}

type CommunityService struct {
	repo     *mysql.CommunityRepository
	requests *mysql.JoinRequestRepository
	members  *MembershipService
	users    *mysql.UserRepository
	areas    *mysql.AreaRepository
	auth     *policy.Authorizer
}

func NewCommunityService(db *gorm.DB, members *MembershipService) *CommunityService {
	return &CommunityService{
		repo:     &mysql.CommunityRepository{DB: db},
		requests: &mysql.JoinRequestRepository{DB: db},
		members:  members,
		users:    &mysql.UserRepository{DB: db},
		areas:    &mysql.AreaRepository{DB: db},
		auth:     members.Authorizer(),
	}
}

// CommunityView 管理端社区
type CommunityView struct {
	ID                uint64    `json:"id"`
	Slug              string    `json:"slug"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	IsPublished       bool      `json:"is_published"`
	IsActive          bool      `json:"is_active"`
	AreaID            *uint64   `json:"area"`
	AreaName          string    `json:"area_name"`
	TotalParticipants int64     `json:"total_participants"`
	CreatedAt         time.Time `json:"created_at"`
}

// PublicCommunity 公开列表行，附带当前用户的成员/申请状态
type PublicCommunity struct {
	ID          uint64            `json:"id"`
	Slug        string            `json:"slug"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	IsPublished bool              `json:"is_published"`
	AreaName    string            `json:"area_name"`
	IsMember    bool              `json:"is_member"`
	JoinStatus  *model.JoinStatus `json:"join_status"`
}

type PublicCommunityDetail struct {
	ID                uint64 `json:"id"`
	Slug              string `json:"slug"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	IsPublished       bool   `json:"is_published"`
	AreaName          string `json:"area_name"`
	IsMember          bool   `json:"is_member"`
	TotalParticipants int64  `json:"total_participants"`
}

func areaName(c *model.Community) string {
	if c.Area == nil {
		return ""
	}
	return c.Area.Name
}

func toCommunityView(c *model.Community, total int64) CommunityView {
	return CommunityView{
		ID:                c.ID,
		Slug:              c.Slug,
		Name:              c.Name,
		Description:       c.Description,
		IsPublished:       c.IsPublished,
		IsActive:          c.IsActive,
		AreaID:            c.AreaID,
		AreaName:          areaName(c),
		TotalParticipants: total,
		CreatedAt:         c.CreatedAt,
	}
}

type CreateCommunityInput struct {
	Slug        string
	Name        string
	Description string
	IsPublished bool
	AreaID      *uint64
	Owner       string // 拥有者用户名，为空时为操作者本人
	Detail      *model.CommunityDetail
}

func (s *CommunityService) checkArea(ctx context.Context, areaID *uint64) error {
	if areaID == nil {
		return nil
	}
	if _, err := s.areas.FindByID(ctx, *areaID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ValidationField("area", "Invalid pk - object does not exist.")
		}
		return wrap(err, "community: find area")
	}
	return nil
}

// Create 代他人创建社区需要管理员权限
func (s *CommunityService) Create(ctx context.Context, actor policy.Actor, in CreateCommunityInput) (*CommunityView, error) {
	if err := authorize(ctx, s.auth, actor, policy.OpCreate, policy.ResCommunity, 0); err != nil {
		return nil, err
	}
	if err := ValidateSlug(in.Slug); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, errs.ValidationField("name", "This field is required.")
	}
	if err := s.checkArea(ctx, in.AreaID); err != nil {
		return nil, err
	}

	ownerID := actor.UserID
	if in.Owner != "" {
		owner, err := s.users.FindByExactUsername(ctx, in.Owner)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errs.ValidationField("owner", "Object with username="+in.Owner+" does not exist.")
			}
			return nil, wrap(err, "community: find owner")
		}
		if owner.ID != actor.UserID && !actor.Privileged() {
			return nil, errs.PermissionDenied("Only staff can create a community on behalf of another user.")
		}
		ownerID = owner.ID
	}

	actorID := actor.UserID
	c := &model.Community{
		Slug:        in.Slug,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		IsPublished: in.IsPublished,
		IsActive:    true,
		AreaID:      in.AreaID,
		CreatedByID: &actorID,
		UpdatedByID: &actorID,
	}
	if err := s.repo.Create(ctx, c, in.Detail, ownerID, actorID); err != nil {
		if stderrors.Is(err, mysql.ErrSlugTaken) {
			return nil, errs.ValidationField("slug", "community with this slug already exists.")
		}
		return nil, wrap(err, "community: create")
	}
	s.members.invalidate(ctx, ownerID, c.ID)
	return s.view(ctx, c.ID)
}

func (s *CommunityService) view(ctx context.Context, id uint64) (*CommunityView, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "community: find")
	}
	total, err := s.repo.CountMembers(ctx, id)
	if err != nil {
		return nil, wrap(err, "community: count members")
	}
	v := toCommunityView(c, total)
	return &v, nil
}

// managed 管理范围外的社区与不存在无法区分
func (s *CommunityService) managed(ctx context.Context, actor policy.Actor, slug string) (*model.Community, error) {
	return s.members.managed(ctx, actor, slug)
}

type UpdateCommunityInput struct {
	Slug        *string
	Name        *string
	Description *string
	IsPublished *bool
	AreaID      *uint64
}

// Update slug 创建后不可修改
func (s *CommunityService) Update(ctx context.Context, actor policy.Actor, slug string, in UpdateCommunityInput) (*CommunityView, error) {
	c, err := s.managed(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	if err = authorize(ctx, s.auth, actor, policy.OpUpdate, policy.ResCommunity, c.ID); err != nil {
		return nil, err
	}
	if in.Slug != nil {
		return nil, errs.ValidationField("slug", "slug is immutable")
	}
	fields := map[string]any{}
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
	if in.IsPublished != nil {
		fields["is_published"] = *in.IsPublished
	}
	if in.AreaID != nil {
		if err = s.checkArea(ctx, in.AreaID); err != nil {
			return nil, err
		}
		fields["area_id"] = *in.AreaID
	}
	if len(fields) > 0 {
		if err = s.repo.Update(ctx, c.ID, fields, actor.UserID); err != nil {
			return nil, wrap(err, "community: update")
		}
	}
	return s.view(ctx, c.ID)
}

// Deactivate 软删除，仅拥有者
func (s *CommunityService) Deactivate(ctx context.Context, actor policy.Actor, slug string) error {
	c, err := s.managed(ctx, actor, slug)
	if err != nil {
		return err
	}
	if err = authorize(ctx, s.auth, actor, policy.OpDelete, policy.ResCommunity, c.ID); err != nil {
		return err
	}
	return wrap(s.repo.Deactivate(ctx, c.ID, actor.UserID), "community: deactivate")
}

// ManageDetail 管理端单个社区
func (s *CommunityService) ManageDetail(ctx context.Context, actor policy.Actor, slug string) (*CommunityView, error) {
	c, err := s.managed(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	if err = authorize(ctx, s.auth, actor, policy.OpRead, policy.ResCommunity, c.ID); err != nil {
		return nil, err
	}
	return s.view(ctx, c.ID)
}

type ManageFilter struct {
	AreaID   *uint64
	City     string
	Search   string
	Ordering string
}

// ManageList 管理员看全部，其他人只看自己是拥有者或管理者的社区
func (s *CommunityService) ManageList(ctx context.Context, actor policy.Actor, f ManageFilter, page mysql.Page) (*PageResult[CommunityView], error) {
	scope := policy.ScopeFor(actor, policy.ViewManaged)
	list, total, err := s.repo.List(ctx, mysql.CommunityFilter{
		AreaID:   f.AreaID,
		City:     f.City,
		Search:   f.Search,
		Ordering: f.Ordering,
	}, &scope, page)
	if err != nil {
		return nil, wrap(err, "community: manage list")
	}
	return s.views(ctx, list, total, page)
}

func (s *CommunityService) views(ctx context.Context, list []model.Community, total int64, page mysql.Page) (*PageResult[CommunityView], error) {
	ids := make([]uint64, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	counts, err := s.repo.CountMembersByCommunity(ctx, ids)
	if err != nil {
		return nil, wrap(err, "community: count members")
	}
	out := make([]CommunityView, 0, len(list))
	for i := range list {
		out = append(out, toCommunityView(&list[i], counts[list[i].ID]))
	}
	return newPage(out, total, page), nil
}

func (s *CommunityService) ManageSummary(ctx context.Context, actor policy.Actor) ([]mysql.CommunitySummary, error) {
	rows, err := s.repo.Summary(ctx, policy.ScopeFor(actor, policy.ViewManaged))
	if err != nil {
		return nil, wrap(err, "community: summary")
	}
	if rows == nil {
		rows = []mysql.CommunitySummary{}
	}
	return rows, nil
}

type PublicFilter struct {
	AreaName string
	City     string
	Search   string
	Ordering string
}

func (s *CommunityService) publicRows(ctx context.Context, actor policy.Actor, list []model.Community) ([]PublicCommunity, error) {
	ids := make([]uint64, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	roles, err := s.members.repo.Roles(ctx, actor.UserID, ids)
	if err != nil {
		return nil, wrap(err, "community: roles")
	}
	statuses, err := s.requests.Statuses(ctx, actor.UserID, ids)
	if err != nil {
		return nil, wrap(err, "community: join statuses")
	}
	out := make([]PublicCommunity, 0, len(list))
	for i := range list {
		c := &list[i]
		row := PublicCommunity{
			ID:          c.ID,
			Slug:        c.Slug,
			Name:        c.Name,
			Description: c.Description,
			IsPublished: c.IsPublished,
			AreaName:    areaName(c),
			IsMember:    roles[c.ID] != model.RoleNone,
		}
		if st, ok := statuses[c.ID]; ok {
			row.JoinStatus = &st
		}
		out = append(out, row)
	}
	return out, nil
}

// PublicList 已发布且启用的社区
func (s *CommunityService) PublicList(ctx context.Context, actor policy.Actor, f PublicFilter, page mysql.Page) (*PageResult[PublicCommunity], error) {
	list, total, err := s.repo.List(ctx, mysql.CommunityFilter{
		AreaName:          f.AreaName,
		City:              f.City,
		Search:            f.Search,
		SearchDescription: true,
		Ordering:          f.Ordering,
		Published:         true,
	}, nil, page)
	if err != nil {
		return nil, wrap(err, "community: public list")
	}
	rows, err := s.publicRows(ctx, actor, list)
	if err != nil {
		return nil, err
	}
	return newPage(rows, total, page), nil
}

// Mine 当前用户拥有任一成员关系的社区
func (s *CommunityService) Mine(ctx context.Context, actor policy.Actor, f PublicFilter, page mysql.Page) (*PageResult[PublicCommunity], error) {
	scope := policy.ScopeFor(actor, policy.ViewMember)
	list, total, err := s.repo.List(ctx, mysql.CommunityFilter{
		AreaName:          f.AreaName,
		City:              f.City,
		Search:            f.Search,
		SearchDescription: true,
		Ordering:          f.Ordering,
	}, &scope, page)
	if err != nil {
		return nil, wrap(err, "community: mine")
	}
	rows, err := s.publicRows(ctx, actor, list)
	if err != nil {
		return nil, err
	}
	return newPage(rows, total, page), nil
}

// PublicDetail 未发布或已停用视为不存在
func (s *CommunityService) PublicDetail(ctx context.Context, actor policy.Actor, slug string) (*PublicCommunityDetail, error) {
	c, err := s.repo.FindPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, lookup(err, "community: find published")
	}
	role, err := s.members.RoleOf(ctx, actor.UserID, c.ID)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountMembers(ctx, c.ID)
	if err != nil {
		return nil, wrap(err, "community: count members")
	}
	return &PublicCommunityDetail{
		ID:                c.ID,
		Slug:              c.Slug,
		Name:              c.Name,
		Description:       c.Description,
		IsPublished:       c.IsPublished,
		AreaName:          areaName(c),
		IsMember:          role != model.RoleNone,
		TotalParticipants: total,
	}, nil
}

// readable 公开社区对所有人可读，否则需在管理范围内
func (s *CommunityService) readable(ctx context.Context, actor policy.Actor, slug string) (*model.Community, error) {
	c, err := s.repo.FindPublishedBySlug(ctx, slug)
	if err == nil {
		return c, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrap(err, "community: find published")
	}
	return s.managed(ctx, actor, slug)
}

func (s *CommunityService) GetDetail(ctx context.Context, actor policy.Actor, slug string) (*model.CommunityDetail, error) {
	c, err := s.readable(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	if err = authorize(ctx, s.auth, actor, policy.OpRead, policy.ResCommunityDetail, c.ID); err != nil {
		return nil, err
	}
	d, err := s.repo.FindDetail(ctx, c.ID)
	return d, lookup(err, "community: find detail")
}

// UpdateDetail 仅拥有者
func (s *CommunityService) UpdateDetail(ctx context.Context, actor policy.Actor, slug, additionalInfo, rules string) (*model.CommunityDetail, error) {
	c, err := s.managed(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	if err = authorize(ctx, s.auth, actor, policy.OpUpdate, policy.ResCommunityDetail, c.ID); err != nil {
		return nil, err
	}
	d, err := s.repo.SaveDetail(ctx, c.ID, additionalInfo, rules)
	return d, wrap(err, "community: save detail")
}

package service

import (
	"context"
	stderrors "errors"
	"io"
	"regexp"
	"strings"
	"time"

	"community_hub/internal/errs"
	"community_hub/internal/logger"
	"community_hub/internal/model"
	"community_hub/internal/pkg"
	"community_hub/internal/policy"
	"community_hub/internal/repository/mysql"
	"community_hub/internal/repository/redis"
	"community_hub/internal/storage"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

const msgBadCredentials = "No active account found with the given credentials"

// TokenStore access token 白名单
type TokenStore interface {
	AddUserToken(ctx context.Context, userID uint64, token string) error
	GetUserToken(ctx context.Context, userID uint64) (string, error)
	ExtendUserToken(ctx context.Context, userID uint64) error
	DeleteUserToken(ctx context.Context, userID uint64) error
}

type UserService struct {
	repo     *mysql.UserRepository
	profiles *mysql.ProfileRepository
	areas    *mysql.AreaRepository
	tokens   TokenStore
	jwt      *pkg.JWT
	emailSvc *EmailService
	blobs    storage.BlobStore
	auth     *policy.Authorizer
}

func NewUserService(db *gorm.DB, tokens TokenStore, jwt *pkg.JWT, emailSvc *EmailService, blobs storage.BlobStore, auth *policy.Authorizer) *UserService {
	return &UserService{
		repo:     &mysql.UserRepository{DB: db},
		profiles: &mysql.ProfileRepository{DB: db},
		areas:    &mysql.AreaRepository{DB: db},
		tokens:   tokens,
		jwt:      jwt,
		emailSvc: emailSvc,
		blobs:    blobs,
		auth:     auth,
	}
}

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	FullName        string
	AreaID          uint64
}

// validatePassword 至少 8 位且不能全是数字
func validatePassword(field, password string) error {
	if len(password) < 8 {
		return errs.ValidationField(field, "This password is too short. It must contain at least 8 characters.")
	}
	if strings.Trim(password, "0123456789") == "" {
		return errs.ValidationField(field, "This password is entirely numeric.")
	}
	return nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if !usernamePattern.MatchString(in.Username) {
		return nil, errs.ValidationField("username", "Username should only contain letters and numbers")
	}
	if in.Password != in.ConfirmPassword {
		return nil, errs.ValidationField("password", "Password fields didn't match.")
	}
	if err := validatePassword("password", in.Password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, errs.ValidationField("full_name", "This field is required.")
	}
	if _, err := s.areas.FindByID(ctx, in.AreaID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ValidationField("area", "Invalid pk - object does not exist.")
		}
		return nil, wrap(err, "user: find area")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, wrap(err, "user: hash password")
	}
	user := &model.User{
		Username: in.Username,
		Email:    strings.ToLower(in.Email),
		Password: string(hash),
		IsActive: true,
	}
	areaID := in.AreaID
	profile := &model.UserProfile{
		FullName:      strings.TrimSpace(in.FullName),
		AreaID:        &areaID,
		MaritalStatus: model.MaritalSingle,
	}
	if err := s.repo.CreateWithProfile(ctx, user, profile); err != nil {
		if stderrors.Is(err, mysql.ErrAlreadyExists) {
			return nil, errs.Conflict("A user with that username or email already exists.")
		}
		if stderrors.Is(err, mysql.ErrPersonIDTaken) {
			return nil, errs.Conflict("Registration is busy, please try again.")
		}
		return nil, wrap(err, "user: create")
	}
	return user, nil
}

func (s *UserService) issue(ctx context.Context, user *model.User) (*pkg.Pair, error) {
	pair, err := s.jwt.GeneratePair(pkg.Subject{UserID: user.ID, IsStaff: user.IsStaff, IsSuperuser: user.IsSuperuser})
	if err != nil {
		return nil, wrap(err, "user: sign token")
	}
	// 写入白名单，旧 token 随之失效
	if err = s.tokens.AddUserToken(ctx, user.ID, pair.AccessToken); err != nil {
		return nil, wrap(err, "user: save token")
	}
	return pair, nil
}

// Login 用户名或邮箱登录
func (s *UserService) Login(ctx context.Context, username, password string) (*pkg.Pair, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Unauthorized(msgBadCredentials)
		}
		return nil, wrap(err, "user: find")
	}
	if !user.IsActive || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, errs.Unauthorized(msgBadCredentials)
	}
	return s.issue(ctx, user)
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	return wrap(s.tokens.DeleteUserToken(ctx, userID), "user: logout")
}

// Refresh 用 refresh token 换新的 token 对
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	claims, err := s.jwt.ParseRefresh(refreshToken)
	if err != nil {
		return nil, errs.Unauthorized("Token is invalid or expired")
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, errs.Unauthorized("Token is invalid or expired")
	}
	return s.issue(ctx, user)
}

// ChangePassword 修改后强制重新登录
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return lookup(err, "user: find")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return errs.ValidationField("old_password", "Old password is incorrect.")
	}
	if err = validatePassword("new_password", newPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return wrap(err, "user: hash password")
	}
	if err = s.repo.UpdatePassword(ctx, user, string(hash)); err != nil {
		return wrap(err, "user: update password")
	}
	return s.Logout(ctx, userID)
}

// SendResetCode 邮箱不存在时也返回成功，不暴露注册信息
func (s *UserService) SendResetCode(ctx context.Context, email string) error {
	email = strings.ToLower(email)
	if _, err := s.repo.FindByEmail(ctx, email); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return wrap(err, "user: find by email")
	}
	return wrap(s.emailSvc.SendCode(ctx, redis.ScopeReset, email, "Password reset"), "user: send reset code")
}

func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.ToLower(email)
	if err := validatePassword("password", newPassword); err != nil {
		return err
	}
	ok, err := s.emailSvc.VerifyCode(ctx, redis.ScopeReset, email, code)
	if err != nil {
		return wrap(err, "user: verify code")
	}
	if !ok {
		return errs.ValidationField("code", "Invalid or expired code.")
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return lookup(err, "user: find by email")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return wrap(err, "user: hash password")
	}
	if err = s.repo.UpdatePassword(ctx, user, string(hash)); err != nil {
		return wrap(err, "user: update password")
	}
	return s.Logout(ctx, user.ID)
}

// Me 当前用户及档案
type Me struct {
	*model.User
	Profile *model.UserProfile `json:"profile"`
}

func (s *UserService) Me(ctx context.Context, userID uint64) (*Me, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, lookup(err, "user: find")
	}
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, lookup(err, "user: find profile")
	}
	return &Me{User: user, Profile: profile}, nil
}

// UpdateProfileInput nil 字段不更新
type UpdateProfileInput struct {
	FullName               *string
	FathersName            *string
	PersonalEmail          *string
	DateOfBirth            *string // 2006-01-02
	NIC                    *string
	Gender                 *string
	MaritalStatus          *int
	CellphoneNumber        *string
	WhatsappNumber         *string
	EmergencyContactName   *string
	EmergencyContactNumber *string
	CurrentAddress         *string
	PermanentAddress       *string
	City                   *string
	AreaID                 *uint64
}

func (s *UserService) UpdateMe(ctx context.Context, userID uint64, in UpdateProfileInput) (*Me, error) {
	fields := map[string]any{}
	setString := func(col string, v *string) {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}
	if in.FullName != nil && strings.TrimSpace(*in.FullName) == "" {
		return nil, errs.ValidationField("full_name", "This field may not be blank.")
	}
	setString("full_name", in.FullName)
	setString("fathers_name", in.FathersName)
	setString("personal_email", in.PersonalEmail)
	setString("cellphone_number", in.CellphoneNumber)
	setString("whatsapp_number", in.WhatsappNumber)
	setString("emergency_contact_name", in.EmergencyContactName)
	setString("emergency_contact_number", in.EmergencyContactNumber)
	setString("current_address", in.CurrentAddress)
	setString("permanent_address", in.PermanentAddress)
	setString("city", in.City)

	if in.DateOfBirth != nil {
		if *in.DateOfBirth == "" {
			fields["date_of_birth"] = nil
		} else {
			dob, err := time.Parse("2006-01-02", *in.DateOfBirth)
			if err != nil {
				return nil, errs.ValidationField("date_of_birth", "Date has wrong format. Use YYYY-MM-DD.")
			}
			fields["date_of_birth"] = dob
		}
	}
	if in.NIC != nil {
		// 空串存 NULL，唯一索引允许多个 NULL
		if nic := strings.TrimSpace(*in.NIC); nic == "" {
			fields["nic"] = nil
		} else {
			fields["nic"] = nic
		}
	}
	if in.Gender != nil {
		if !model.ValidGender(*in.Gender) {
			return nil, errs.ValidationField("gender", "Invalid gender.")
		}
		fields["gender"] = *in.Gender
	}
	if in.MaritalStatus != nil {
		if !model.ValidMaritalStatus(*in.MaritalStatus) {
			return nil, errs.ValidationField("marital_status", "Invalid marital status.")
		}
		fields["marital_status"] = *in.MaritalStatus
	}
	if in.AreaID != nil {
		if _, err := s.areas.FindByID(ctx, *in.AreaID); err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errs.ValidationField("area", "Invalid pk - object does not exist.")
			}
			return nil, wrap(err, "user: find area")
		}
		fields["area_id"] = *in.AreaID
	}

	if err := s.profiles.Update(ctx, userID, fields); err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.ValidationField("nic", "A person with this NIC already exists.")
		}
		return nil, wrap(err, "user: update profile")
	}
	return s.Me(ctx, userID)
}

// UploadAvatar 生成头像与缩略图并保存
func (s *UserService) UploadAvatar(ctx context.Context, userID uint64, r io.Reader) (*model.UserProfile, error) {
	avatar, thumb, err := storage.ProcessAvatar(r)
	if err != nil {
		if stderrors.Is(err, storage.ErrBadImage) {
			return nil, errs.ValidationField("avatar", "Upload a valid image.")
		}
		return nil, wrap(err, "user: process avatar")
	}
	avatarURL, err := s.blobs.Put(ctx, storage.NewKey("avatars", avatar.Ext), avatar.Data)
	if err != nil {
		return nil, wrap(err, "user: store avatar")
	}
	thumbURL, err := s.blobs.Put(ctx, storage.NewKey("thumbnails", thumb.Ext), thumb.Data)
	if err != nil {
		return nil, wrap(err, "user: store thumbnail")
	}
	if err = s.profiles.SetAvatar(ctx, userID, avatarURL, thumbURL); err != nil {
		return nil, wrap(err, "user: save avatar")
	}
	logger.Infof("avatar updated user=%d", userID)
	profile, err := s.profiles.FindByUserID(ctx, userID)
	return profile, lookup(err, "user: find profile")
}

// ListPeople 仅限管理员
func (s *UserService) ListPeople(ctx context.Context, actor policy.Actor, search string, page mysql.Page) (*PageResult[mysql.PersonRow], error) {
	if err := authorize(ctx, s.auth, actor, policy.OpList, policy.ResPeople, 0); err != nil {
		return nil, err
	}
	rows, total, err := s.profiles.ListPeople(ctx, search, page)
	if err != nil {
		return nil, wrap(err, "user: list people")
	}
	return newPage(rows, total, page), nil
}

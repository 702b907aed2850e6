package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"community_hub/internal/config"
	"community_hub/internal/errs"
	"community_hub/internal/model"
	"community_hub/internal/pkg"
	"community_hub/internal/policy"
	"community_hub/internal/repository/mysql"

	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := mysql.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err = mysql.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// memRoleCache 进程内角色缓存
type memRoleCache struct {
	mu    sync.Mutex
	roles map[[2]uint64]model.Role
	hits  int
}

func newMemRoleCache() *memRoleCache {
	return &memRoleCache{roles: map[[2]uint64]model.Role{}}
}

func (c *memRoleCache) Get(_ context.Context, userID, communityID uint64) (model.Role, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.roles[[2]uint64{userID, communityID}]
	if ok {
		c.hits++
	}
	return r, ok, nil
}

func (c *memRoleCache) Set(_ context.Context, userID, communityID uint64, role model.Role) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roles[[2]uint64{userID, communityID}] = role
	return nil
}

func (c *memRoleCache) Invalidate(_ context.Context, userID, communityID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.roles, [2]uint64{userID, communityID})
	return nil
}

// memTokens token 白名单
type memTokens struct {
	mu     sync.Mutex
	tokens map[uint64]string
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: map[uint64]string{}}
}

func (m *memTokens) AddUserToken(_ context.Context, userID uint64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID] = token
	return nil
}

func (m *memTokens) GetUserToken(_ context.Context, userID uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[userID]
	if !ok {
		return "", errors.New("token not found")
	}
	return t, nil
}

func (m *memTokens) ExtendUserToken(context.Context, uint64) error { return nil }

func (m *memTokens) DeleteUserToken(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, userID)
	return nil
}

// memCodes 验证码两阶段存储
type memCodes struct {
	mu        sync.Mutex
	pending   map[string]string
	confirmed map[string]string
}

func newMemCodes() *memCodes {
	return &memCodes{pending: map[string]string{}, confirmed: map[string]string{}}
}

func codeKey(scope, email string) string { return scope + ":" + email }

func (m *memCodes) SavePending(_ context.Context, scope, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[codeKey(scope, email)] = code
	return nil
}

func (m *memCodes) Confirm(_ context.Context, scope, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := codeKey(scope, email)
	code, ok := m.pending[k]
	if !ok {
		return errors.New("pending code not found")
	}
	delete(m.pending, k)
	m.confirmed[k] = code
	return nil
}

func (m *memCodes) DeletePending(_ context.Context, scope, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, codeKey(scope, email))
	return nil
}

func (m *memCodes) GetConfirmed(_ context.Context, scope, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.confirmed[codeKey(scope, email)]
	if !ok {
		return "", errors.New("code not found")
	}
	return code, nil
}

func (m *memCodes) DeleteConfirmed(_ context.Context, scope, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.confirmed, codeKey(scope, email))
	return nil
}

type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) Send(to, _, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

type memBlobs struct {
	objects map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (b *memBlobs) Put(_ context.Context, key string, data []byte) (string, error) {
	b.objects[key] = data
	return "https://cdn.example.com/" + key, nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	delete(b.objects, key)
	return nil
}

// fixture 所有服务共用一个数据库
type fixture struct {
	db           *gorm.DB
	cache        *memRoleCache
	tokens       *memTokens
	codes        *memCodes
	mailer       *fakeMailer
	blobs        *memBlobs
	jwt          *pkg.JWT
	members      *MembershipService
	communities  *CommunityService
	joinRequests *JoinRequestService
	events       *EventService
	payments     *PaymentService
	users        *UserService
	areas        *AreaService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:     db,
		cache:  newMemRoleCache(),
		tokens: newMemTokens(),
		codes:  newMemCodes(),
		mailer: &fakeMailer{},
		blobs:  newMemBlobs(),
		jwt: pkg.NewJWT(config.JWTConfig{
			AccessSecret:  "access-test",
			RefreshSecret: "refresh-test",
			AccessTTL:     600,
			RefreshTTL:    3600,
		}),
	}
	f.members = NewMembershipService(db, f.cache)
	f.communities = NewCommunityService(db, f.members)
	f.joinRequests = NewJoinRequestService(db, f.members)
	f.events = NewEventService(db, f.members)
	f.payments = NewPaymentService(db, f.blobs, f.members.Authorizer())
	f.users = NewUserService(db, f.tokens, f.jwt, NewEmailService(f.codes, f.mailer, 0), f.blobs, f.members.Authorizer())
	f.areas = NewAreaService(db)
	return f
}

// user 直接写库创建用户，staff 为 true 时带管理员标记
func (f *fixture) user(t *testing.T, name string, staff bool) policy.Actor {
	t.Helper()
	u := &model.User{Username: name, Password: "x", Email: name + "@example.com", IsActive: true}
	repo := &mysql.UserRepository{DB: f.db}
	if err := repo.CreateWithProfile(context.Background(), u, &model.UserProfile{FullName: name + " full"}); err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	if staff {
		if err := f.db.Model(u).Update("is_staff", true).Error; err != nil {
			t.Fatalf("mark staff: %v", err)
		}
	}
	return policy.Actor{UserID: u.ID, IsStaff: staff}
}

func (f *fixture) community(t *testing.T, owner policy.Actor, slug string, published bool) *CommunityView {
	t.Helper()
	v, err := f.communities.Create(context.Background(), owner, CreateCommunityInput{
		Slug:        slug,
		Name:        slug + " name",
		IsPublished: published,
	})
	if err != nil {
		t.Fatalf("seed community %s: %v", slug, err)
	}
	return v
}

func (f *fixture) area(t *testing.T, name, city string) *model.Area {
	t.Helper()
	a := &model.Area{Name: name, City: city}
	if err := (&mysql.AreaRepository{DB: f.db}).Create(context.Background(), a); err != nil {
		t.Fatalf("seed area: %v", err)
	}
	return a
}

func requireKind(t *testing.T, err error, kind errs.Kind) *errs.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	e, ok := errs.As(err)
	if !ok || e.Kind != kind {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
	return e
}

func countRows(t *testing.T, db *gorm.DB, m any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(m).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatal(fmt.Errorf("count: %w", err))
	}
	return n
}

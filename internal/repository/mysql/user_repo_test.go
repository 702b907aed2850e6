package mysql

import (
	"context"
	"errors"
	"testing"

	"community_hub/internal/model"

	"gorm.io/gorm"
)

func TestCreateWithProfileSequentialPersonID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "first")
	second := seedUser(t, db, "second")

	profiles := &ProfileRepository{DB: db}
	p, err := profiles.FindByUserID(ctx, second.ID)
	if err != nil {
		t.Fatalf("find profile: %v", err)
	}
	if p.PersonID != "00000002" {
		t.Fatalf("expected person id 00000002, got %q", p.PersonID)
	}
}

func TestCreateWithProfileDuplicate(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "taken")

	repo := &UserRepository{DB: db}
	dupName := &model.User{Username: "taken", Password: "x", Email: "other@example.com"}
	if err := repo.CreateWithProfile(context.Background(), dupName, &model.UserProfile{FullName: "x"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for username, got %v", err)
	}
	dupEmail := &model.User{Username: "fresh", Password: "x", Email: "taken@example.com"}
	if err := repo.CreateWithProfile(context.Background(), dupEmail, &model.UserProfile{FullName: "x"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for email, got %v", err)
	}
}

// 模拟并发注册拿到已被占用的编号：重试后分配下一个编号
func TestCreateWithProfileRetriesPersonIDCollision(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedUser(t, db, "first")

	calls := 0
	allocPersonID = func(tx *gorm.DB) (string, error) {
		calls++
		if calls == 1 {
			return "00000001", nil
		}
		return nextPersonID(tx)
	}
	t.Cleanup(func() { allocPersonID = nextPersonID })

	u := &model.User{Username: "second", Password: "x", Email: "second@example.com"}
	if err := (&UserRepository{DB: db}).CreateWithProfile(ctx, u, &model.UserProfile{FullName: "second full"}); err != nil {
		t.Fatalf("create after collision: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, got %d allocations", calls)
	}
	p, err := (&ProfileRepository{DB: db}).FindByUserID(ctx, u.ID)
	if err != nil || p.PersonID != "00000002" {
		t.Fatalf("expected person id 00000002, got %+v %v", p, err)
	}
	var n int64
	db.Model(&model.User{}).Where("username = ?", "second").Count(&n)
	if n != 1 {
		t.Fatalf("rolled back attempts leave no user rows, got %d", n)
	}
}

func TestCreateWithProfilePersonIDExhausted(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "first")

	allocPersonID = func(*gorm.DB) (string, error) { return "00000001", nil }
	t.Cleanup(func() { allocPersonID = nextPersonID })

	u := &model.User{Username: "second", Password: "x", Email: "second@example.com"}
	err := (&UserRepository{DB: db}).CreateWithProfile(context.Background(), u, &model.UserProfile{FullName: "x"})
	if !errors.Is(err, ErrPersonIDTaken) {
		t.Fatalf("expected ErrPersonIDTaken, got %v", err)
	}
}

func TestFindByUsernameAcceptsEmail(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, "login")

	repo := &UserRepository{DB: db}
	got, err := repo.FindByUsername(context.Background(), "login@example.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("expected lookup by email, got %+v %v", got, err)
	}
}

func TestListPeopleSearch(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice")
	seedUser(t, db, "bobby")

	repo := &ProfileRepository{DB: db}
	rows, total, err := repo.ListPeople(context.Background(), "ALI", Page{})
	if err != nil {
		t.Fatalf("list people: %v", err)
	}
	if total != 1 || rows[0].Username != "alice" {
		t.Fatalf("unexpected people %d %+v", total, rows)
	}
}

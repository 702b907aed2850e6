package mysql

import (
	"context"
	"path/filepath"
	"testing"

	"community_hub/internal/config"
	"community_hub/internal/model"

	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err = Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Password: "x", Email: username + "@example.com"}
	repo := &UserRepository{DB: db}
	if err := repo.CreateWithProfile(context.Background(), u, &model.UserProfile{FullName: username + " full"}); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func seedCommunity(t *testing.T, db *gorm.DB, slug string, ownerID uint64, published bool) *model.Community {
	t.Helper()
	c := &model.Community{Slug: slug, Name: slug + " name", IsPublished: published}
	repo := &CommunityRepository{DB: db}
	if err := repo.Create(context.Background(), c, nil, ownerID, ownerID); err != nil {
		t.Fatalf("seed community %s: %v", slug, err)
	}
	return c
}

func countOutbox(t *testing.T, db *gorm.DB, event string) int64 {
	t.Helper()
	n, err := (&OutboxRepository{DB: db}).CountByType(context.Background(), event)
	if err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	return n
}

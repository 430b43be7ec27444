package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pmstore/pmstore-api/internal/config"
	"github.com/pmstore/pmstore-api/internal/domain"
	"github.com/pmstore/pmstore-api/internal/security"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&domain.User{}, &domain.Product{}, &domain.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestHasher(t *testing.T) security.PasswordHasher {
	t.Helper()
	h, err := security.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return h
}

func testSessionConfig() *config.Config {
	return &config.Config{
		SessionTTL:        config.DefaultSessionTTL,
		SessionCookieName: "sid",
		SessionPepper:     "test-session-pepper",
		CookieSecure:      true,
	}
}

package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dispatch-next/internal/config"
	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/models"
	"github.com/dispatch-next/internal/repository"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupAuthServiceTest(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Admin{}, &models.UserLog{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret-key-0123456789abcdef"
	cfg.JWT.ExpireHours = 1
	svc := NewAuthService(cfg, repository.NewAdminRepository(db), repository.NewUserLogRepository(db))
	return svc, db
}

func createTestAdmin(t *testing.T, db *gorm.DB, username, password string, tenantID uint, status string) *models.Admin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	admin := &models.Admin{
		Username:     username,
		PasswordHash: string(hash),
		TenantID:     tenantID,
		Status:       status,
	}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	return admin
}

func TestLoginIssuesTokenWithTenantClaims(t *testing.T) {
	svc, db := setupAuthServiceTest(t)
	createTestAdmin(t, db, "colombo-ops", "secret-pass", 3, constants.AdminStatusActive)

	admin, token, expiresAt, err := svc.Login("colombo-ops", "secret-pass")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" || !expiresAt.After(time.Now()) {
		t.Fatalf("expected a token with a future expiry, got %q / %v", token, expiresAt)
	}
	if admin.LastLoginAt == nil {
		t.Fatalf("expected last login timestamp to be set")
	}

	claims, err := svc.ParseJWT(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.TenantID != 3 || claims.Username != "colombo-ops" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	var entry models.UserLog
	if err := db.Where("action = ? AND user_id = ?", constants.AuditActionAdminLogin, admin.ID).First(&entry).Error; err != nil {
		t.Fatalf("login audit entry missing: %v", err)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc, db := setupAuthServiceTest(t)
	createTestAdmin(t, db, "colombo-ops", "secret-pass", 3, constants.AdminStatusActive)

	if _, _, _, err := svc.Login("colombo-ops", "wrong"); !errors.Is(err, ErrCredentialsInvalid) {
		t.Fatalf("expected ErrCredentialsInvalid, got %v", err)
	}
	if _, _, _, err := svc.Login("no-such-user", "wrong"); !errors.Is(err, ErrCredentialsInvalid) {
		t.Fatalf("expected ErrCredentialsInvalid for unknown user, got %v", err)
	}
}

func TestLoginRejectsDisabledAdmin(t *testing.T) {
	svc, db := setupAuthServiceTest(t)
	createTestAdmin(t, db, "colombo-ops", "secret-pass", 3, constants.AdminStatusDisabled)

	if _, _, _, err := svc.Login("colombo-ops", "secret-pass"); !errors.Is(err, ErrAdminDisabled) {
		t.Fatalf("expected ErrAdminDisabled, got %v", err)
	}
}

func TestChangePasswordRevokesOldTokens(t *testing.T) {
	svc, db := setupAuthServiceTest(t)
	admin := createTestAdmin(t, db, "colombo-ops", "secret-pass", 3, constants.AdminStatusActive)

	if err := svc.ChangePassword(admin.ID, "wrong", "new-pass"); !errors.Is(err, ErrCredentialsInvalid) {
		t.Fatalf("expected ErrCredentialsInvalid for wrong old password, got %v", err)
	}
	if err := svc.ChangePassword(admin.ID, "secret-pass", "new-pass"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	var updated models.Admin
	if err := db.First(&updated, admin.ID).Error; err != nil {
		t.Fatalf("reload admin failed: %v", err)
	}
	if updated.TokenVersion != admin.TokenVersion+1 {
		t.Fatalf("expected token version bump, got %d", updated.TokenVersion)
	}
	if bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("new-pass")) != nil {
		t.Fatalf("new password does not verify")
	}
}

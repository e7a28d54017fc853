package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mapstorycreator/mapstory-backend/internal/config"
	"github.com/mapstorycreator/mapstory-backend/internal/dto"
	"github.com/mapstorycreator/mapstory-backend/internal/models"
)

const testSecret = "this-is-a-test-secret-with-32-bytes!"

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        testSecret,
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 168 * time.Hour,
	}
}

func register(t *testing.T, svc *AuthService, username string) *dto.AuthResponse {
	t.Helper()

	resp, err := svc.Register(&dto.RegisterRequest{
		Email:    username + "@example.com",
		Username: username,
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register failed for %s: %v", username, err)
	}
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	resp := register(t, svc, "alice")
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if resp.User.SubscriptionPlan != "free" {
		t.Errorf("expected default plan free, got %q", resp.User.SubscriptionPlan)
	}

	// The access token carries the user id as subject.
	token, err := jwt.Parse(resp.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("issued token does not verify: %v", err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub != resp.User.ID.String() {
		t.Errorf("expected sub %s, got %s (%v)", resp.User.ID, sub, err)
	}

	// Login works with the email and with the username.
	for _, login := range []string{"alice@example.com", "alice"} {
		if _, err := svc.Login(&dto.LoginRequest{Login: login, Password: "password123"}); err != nil {
			t.Errorf("login with %q failed: %v", login, err)
		}
	}

	if _, err := svc.Login(&dto.LoginRequest{Login: "alice", Password: "wrong-password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(&dto.LoginRequest{Login: "nobody", Password: "password123"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown login, got %v", err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())
	register(t, svc, "alice")

	_, err := svc.Register(&dto.RegisterRequest{
		Email:    "alice@example.com",
		Username: "different",
		Password: "password123",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	_, err = svc.Register(&dto.RegisterRequest{
		Email:    "other@example.com",
		Username: "alice",
		Password: "password123",
	})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())

	cases := []dto.RegisterRequest{
		{Username: "alice", Password: "password123"},
		{Email: "a@example.com", Password: "password123"},
		{Email: "a@example.com", Username: "alice", Password: "short"},
	}
	for _, req := range cases {
		if _, err := svc.Register(&req); err == nil {
			t.Errorf("expected validation error for %+v", req)
		}
	}
}

func TestRefreshRotates(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())
	resp := register(t, svc, "alice")

	rotated, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if rotated.RefreshToken == resp.RefreshToken {
		t.Error("expected a new refresh token on rotation")
	}

	// The spent token is revoked.
	if _, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for reused token, got %v", err)
	}

	// The rotated token still works.
	if _, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: rotated.RefreshToken}); err != nil {
		t.Errorf("rotated token rejected: %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())
	resp := register(t, svc, "alice")

	if err := svc.Logout(&dto.LogoutRequest{RefreshToken: resp.RefreshToken}); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken after logout, got %v", err)
	}
}

func TestGetUserNotFoundIsNil(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())
	resp := register(t, svc, "alice")

	user, err := svc.GetUser(resp.User.ID)
	if err != nil || user == nil {
		t.Fatalf("expected user, got %v / %v", user, err)
	}

	ghost, err := svc.GetUser(uuid.New())
	if err != nil {
		t.Fatalf("expected no error for missing user, got %v", err)
	}
	if ghost != nil {
		t.Error("expected nil for missing user")
	}
}

func TestDeleteAccountRecomputesCounters(t *testing.T) {
	db := setupTestDB(t)
	authSvc := NewAuthService(db, testConfig())
	mapSvc := NewMapService(db)

	alice := register(t, authSvc, "alice")
	bob := register(t, authSvc, "bob")

	m := createTestMap(t, db, alice.User.ID, "Shared", true)
	if _, err := mapSvc.Like(m.ID, bob.User.ID); err != nil {
		t.Fatalf("bob like failed: %v", err)
	}
	if got := mapLikes(t, db, m.ID); got != 1 {
		t.Fatalf("expected 1 like before deletion, got %d", got)
	}

	// Deleting bob removes his like row and decrements alice's map counter.
	if err := authSvc.DeleteAccount(bob.User.ID, "password123"); err != nil {
		t.Fatalf("delete account failed: %v", err)
	}
	if got := mapLikes(t, db, m.ID); got != 0 {
		t.Errorf("counter drifted after account deletion: %d", got)
	}
	if rows := likeRowCount(t, db, m.ID); rows != 0 {
		t.Errorf("expected 0 like rows, got %d", rows)
	}

	// Deleting alice takes her maps, markers, and tokens with her.
	if err := db.Create(&models.Marker{MapID: m.ID, Name: "stop", Latitude: 1, Longitude: 1}).Error; err != nil {
		t.Fatalf("failed to create marker: %v", err)
	}
	if err := authSvc.DeleteAccount(alice.User.ID, "password123"); err != nil {
		t.Fatalf("delete account failed: %v", err)
	}

	var maps, markers, tokens int64
	db.Model(&models.Map{}).Where("user_id = ?", alice.User.ID).Count(&maps)
	db.Model(&models.Marker{}).Where("map_id = ?", m.ID).Count(&markers)
	db.Model(&models.RefreshToken{}).Where("user_id = ?", alice.User.ID).Count(&tokens)
	if maps != 0 || markers != 0 || tokens != 0 {
		t.Errorf("residue after account deletion: maps=%d markers=%d tokens=%d", maps, markers, tokens)
	}
}

func TestDeleteAccountRequiresPassword(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testConfig())
	resp := register(t, svc, "alice")

	if err := svc.DeleteAccount(resp.User.ID, ""); err == nil {
		t.Error("expected error for missing password")
	}
	if err := svc.DeleteAccount(resp.User.ID, "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

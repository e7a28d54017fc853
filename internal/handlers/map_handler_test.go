package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mapstorycreator/mapstory-backend/internal/config"
	"github.com/mapstorycreator/mapstory-backend/internal/dto"
	"github.com/mapstorycreator/mapstory-backend/internal/handlers"
	"github.com/mapstorycreator/mapstory-backend/internal/models"
	"github.com/mapstorycreator/mapstory-backend/internal/routes"
	"github.com/mapstorycreator/mapstory-backend/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// =============================================================================
// Test Helpers
// =============================================================================

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	authSvc *services.AuthService
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Map{},
		&models.Marker{},
		&models.UserLike{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:        "this-is-a-test-secret-with-32-bytes!",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 168 * time.Hour,
	}

	authSvc := services.NewAuthService(db, cfg)
	mapSvc := services.NewMapService(db)
	markerSvc := services.NewMarkerService(db)

	app := fiber.New()
	routes.Setup(app, cfg,
		handlers.NewAuthHandler(authSvc),
		handlers.NewMapHandler(mapSvc),
		handlers.NewMarkerHandler(markerSvc, mapSvc),
		handlers.NewHealthHandler(),
	)

	return &testEnv{app: app, db: db, authSvc: authSvc}
}

func (e *testEnv) registerUser(t *testing.T, username string) (uuid.UUID, string) {
	t.Helper()

	resp, err := e.authSvc.Register(&dto.RegisterRequest{
		Email:    username + "@example.com",
		Username: username,
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register failed for %s: %v", username, err)
	}
	return resp.User.ID, resp.AccessToken
}

func (e *testEnv) createMap(t *testing.T, userID uuid.UUID, title string, isPublic bool) *models.Map {
	t.Helper()

	m := &models.Map{
		UserID:    userID,
		Title:     title,
		IsPublic:  isPublic,
		CenterLat: 10.77653100,
		CenterLng: 106.70098100,
		ZoomLevel: 12,
	}
	if err := e.db.Create(m).Error; err != nil {
		t.Fatalf("failed to create test map: %v", err)
	}
	return m
}

func (e *testEnv) request(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeLike(t *testing.T, resp *http.Response) dto.LikeResponse {
	t.Helper()

	var body dto.LikeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode like response: %v", err)
	}
	return body
}

// =============================================================================
// Like endpoints
// =============================================================================

func TestLikeEndpointStatusMapping(t *testing.T) {
	env := setupTestApp(t)
	ownerID, _ := env.registerUser(t, "owner")
	_, visitorToken := env.registerUser(t, "visitor")
	m := env.createMap(t, ownerID, "Public Map", true)

	// Unauthenticated like attempts never reach the protocol.
	resp := env.request(t, "POST", "/api/maps/"+m.ID.String()+"/like", "", "")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	// Unknown map.
	resp = env.request(t, "POST", "/api/maps/"+uuid.NewString()+"/like", visitorToken, "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("expected 404 for unknown map, got %d", resp.StatusCode)
	}

	// First like succeeds.
	resp = env.request(t, "POST", "/api/maps/"+m.ID.String()+"/like", visitorToken, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	like := decodeLike(t, resp)
	if like.Likes != 1 || !like.IsLiked {
		t.Errorf("unexpected like response: %+v", like)
	}

	// Second like is a 400, count unchanged.
	resp = env.request(t, "POST", "/api/maps/"+m.ID.String()+"/like", visitorToken, "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400 for double like, got %d", resp.StatusCode)
	}

	// Unlike brings it back down.
	resp = env.request(t, "DELETE", "/api/maps/"+m.ID.String()+"/like", visitorToken, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for unlike, got %d", resp.StatusCode)
	}
	like = decodeLike(t, resp)
	if like.Likes != 0 || like.IsLiked {
		t.Errorf("unexpected unlike response: %+v", like)
	}

	// Unlike without a like is a 400.
	resp = env.request(t, "DELETE", "/api/maps/"+m.ID.String()+"/like", visitorToken, "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400 for unlike without like, got %d", resp.StatusCode)
	}
}

func TestLikePrivateMapForbidden(t *testing.T) {
	env := setupTestApp(t)
	ownerID, ownerToken := env.registerUser(t, "owner")
	_, visitorToken := env.registerUser(t, "visitor")
	m := env.createMap(t, ownerID, "Private Map", false)

	resp := env.request(t, "POST", "/api/maps/"+m.ID.String()+"/like", visitorToken, "")
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("expected 403 for private map, got %d", resp.StatusCode)
	}

	// The owner may like their own private map.
	resp = env.request(t, "POST", "/api/maps/"+m.ID.String()+"/like", ownerToken, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200 for owner, got %d", resp.StatusCode)
	}
}

// =============================================================================
// Single-map fetch
// =============================================================================

func TestGetMapVisibilityAndViews(t *testing.T) {
	env := setupTestApp(t)
	ownerID, ownerToken := env.registerUser(t, "owner")
	pub := env.createMap(t, ownerID, "Public Map", true)
	priv := env.createMap(t, ownerID, "Private Map", false)

	// Anonymous fetch of a public map succeeds and counts a view.
	resp := env.request(t, "GET", "/api/maps/"+pub.ID.String(), "", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var detail dto.MapDetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		t.Fatalf("failed to decode map: %v", err)
	}
	if detail.Views != 1 {
		t.Errorf("expected 1 view after first fetch, got %d", detail.Views)
	}
	if detail.IsLiked {
		t.Error("anonymous viewer cannot have liked the map")
	}

	// Private maps are hidden from everyone but the owner.
	resp = env.request(t, "GET", "/api/maps/"+priv.ID.String(), "", "")
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("expected 403 for anonymous fetch of private map, got %d", resp.StatusCode)
	}
	resp = env.request(t, "GET", "/api/maps/"+priv.ID.String(), ownerToken, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200 for owner fetch of private map, got %d", resp.StatusCode)
	}

	resp = env.request(t, "GET", "/api/maps/"+uuid.NewString(), "", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("expected 404 for unknown map, got %d", resp.StatusCode)
	}
}

// =============================================================================
// Map mutations
// =============================================================================

func TestCreateMapEndpoint(t *testing.T) {
	env := setupTestApp(t)
	_, token := env.registerUser(t, "owner")

	resp := env.request(t, "POST", "/api/maps", token, `{"title":"New Map"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400 for missing required fields, got %d", resp.StatusCode)
	}

	body := `{"title":"New Map","center_lat":10.776531,"center_lng":106.700981,"zoom_level":12}`
	resp = env.request(t, "POST", "/api/maps", token, body)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created models.Map
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode created map: %v", err)
	}
	if created.Likes != 0 || created.Views != 0 {
		t.Errorf("expected zero counters on creation, got likes=%d views=%d", created.Likes, created.Views)
	}
}

func TestUpdateMapOwnership(t *testing.T) {
	env := setupTestApp(t)
	ownerID, ownerToken := env.registerUser(t, "owner")
	_, strangerToken := env.registerUser(t, "stranger")
	m := env.createMap(t, ownerID, "Mine", true)

	resp := env.request(t, "PUT", "/api/maps/"+m.ID.String(), strangerToken, `{"title":"Stolen"}`)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("expected 403 for non-owner update, got %d", resp.StatusCode)
	}

	resp = env.request(t, "PUT", "/api/maps/"+m.ID.String(), ownerToken, `{"title":"Renamed"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for owner update, got %d", resp.StatusCode)
	}
	var updated models.Map
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode updated map: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("title not updated: %q", updated.Title)
	}

	resp = env.request(t, "DELETE", "/api/maps/"+m.ID.String(), strangerToken, "")
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("expected 403 for non-owner delete, got %d", resp.StatusCode)
	}
	resp = env.request(t, "DELETE", "/api/maps/"+m.ID.String(), ownerToken, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200 for owner delete, got %d", resp.StatusCode)
	}
}

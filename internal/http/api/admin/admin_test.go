package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/latchwork/latchd/internal/access"
	"github.com/latchwork/latchd/internal/audit"
	"github.com/latchwork/latchd/internal/config"
	"github.com/latchwork/latchd/internal/db"
	"github.com/latchwork/latchd/internal/models"
	"github.com/latchwork/latchd/internal/security"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + filepath.Join(t.TempDir(), "latchd-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	recorder := audit.NewRecorder(conn)
	gate := access.NewGate(conn, recorder)
	jwtCfg := config.JWTConfig{Secret: "test-secret", Expiry: time.Hour}

	r := gin.New()
	RegisterAdminRoutes(r, conn, jwtCfg, gate, recorder)
	return r, conn
}

func seedAccount(t *testing.T, conn *gorm.DB, username, password string, role models.AdminRole) {
	t.Helper()
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	admin := models.Admin{Username: username, Password: hash, Role: role, Active: true}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("seed admin: %v", errCreate)
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var errMarshal error
		payload, errMarshal = json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func loginAs(t *testing.T, r *gin.Engine, username, password string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/v0/admin/login", "", gin.H{
		"username": username,
		"password": password,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode login response: %v", errDecode)
	}
	if resp.Token == "" {
		t.Fatalf("expected a token")
	}
	return resp.Token
}

func TestLogin_WrongPassword(t *testing.T) {
	r, conn := newTestServer(t)
	seedAccount(t, conn, "root", "password", models.RoleAdmin)

	w := doJSON(t, r, http.MethodPost, "/v0/admin/login", "", gin.H{
		"username": "root",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestProtectedRoutes_RejectWithoutToken(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/v0/admin/devices", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/v0/admin/devices", "not-a-jwt", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", w.Code)
	}
}

func TestDeviceLifecycle_AsAdmin(t *testing.T) {
	r, conn := newTestServer(t)
	seedAccount(t, conn, "root", "password", models.RoleAdmin)
	token := loginAs(t, r, "root", "password")

	w := doJSON(t, r, http.MethodPost, "/v0/admin/devices", token, gin.H{"chip_id": "chip-001"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create device: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/v0/admin/devices/chip-001/trust", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("trust device: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var device models.Device
	if errFind := conn.Where("chip_id = ?", "chip-001").First(&device).Error; errFind != nil {
		t.Fatalf("find device: %v", errFind)
	}
	if device.Status != models.DeviceStatusTrusted {
		t.Fatalf("expected trusted, got %v", device.Status)
	}

	w = doJSON(t, r, http.MethodPost, "/v0/admin/devices/chip-001/block", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("block device: expected 200, got %d", w.Code)
	}
}

func TestOperator_RoleGating(t *testing.T) {
	r, conn := newTestServer(t)
	seedAccount(t, conn, "desk", "password", models.RoleOperator)
	token := loginAs(t, r, "desk", "password")

	// Device management is off limits for operators.
	w := doJSON(t, r, http.MethodPost, "/v0/admin/devices", token, gin.H{"chip_id": "chip-001"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}

	// Guest users are in scope.
	w = doJSON(t, r, http.MethodPost, "/v0/admin/users", token, gin.H{
		"username": "visitor",
		"group":    db.GuestGroupName,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create guest user: expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestOperator_CannotTouchNonGuestUsers(t *testing.T) {
	r, conn := newTestServer(t)
	seedAccount(t, conn, "desk", "password", models.RoleOperator)
	token := loginAs(t, r, "desk", "password")

	staff := models.UserGroup{Name: "Staff", LockGroupIDs: models.LockGroupIDs{}}
	if errCreate := conn.Create(&staff).Error; errCreate != nil {
		t.Fatalf("create group: %v", errCreate)
	}

	w := doJSON(t, r, http.MethodPost, "/v0/admin/users", token, gin.H{
		"username": "insider",
		"group":    "Staff",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

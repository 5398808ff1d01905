package hardware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/latchwork/latchd/internal/access"
	"github.com/latchwork/latchd/internal/audit"
	"github.com/latchwork/latchd/internal/db"
	"github.com/latchwork/latchd/internal/models"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
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
	engine := access.NewEngine(conn, access.GroupPolicy{}, gate, recorder)

	r := gin.New()
	Register(r, engine)
	return r, conn
}

func doAuth(t *testing.T, r *gin.Engine, query string) (int, access.Decision) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth?"+query, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decision access.Decision
	if errDecode := json.Unmarshal(w.Body.Bytes(), &decision); errDecode != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), errDecode)
	}
	return w.Code, decision
}

func TestAuthorize_AlwaysHTTP200(t *testing.T) {
	r, _ := newTestRouter(t)

	code, decision := doAuth(t, r, "uuid=card-001&dev=chip-001&status=0")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if decision.Status != access.StatusNotAuthorized {
		t.Fatalf("expected status %d, got %d", access.StatusNotAuthorized, decision.Status)
	}
	if decision.Message != access.MsgDeviceUnknown {
		t.Fatalf("expected message %q, got %q", access.MsgDeviceUnknown, decision.Message)
	}
}

func TestAuthorize_MissingParamsStillAnswer(t *testing.T) {
	r, _ := newTestRouter(t)

	code, decision := doAuth(t, r, "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if decision.Status != access.StatusNotAuthorized {
		t.Fatalf("expected not-authorized, got %d", decision.Status)
	}
}

func TestAuthorize_FullGrantFlow(t *testing.T) {
	r, conn := newTestRouter(t)

	lockGroup := models.LockGroup{Name: "doors"}
	if err := conn.Create(&lockGroup).Error; err != nil {
		t.Fatalf("create lock group: %v", err)
	}
	device := models.Device{ChipID: "chip-001", Status: models.DeviceStatusTrusted}
	if err := conn.Create(&device).Error; err != nil {
		t.Fatalf("create device: %v", err)
	}
	lock := models.Lock{Name: "Front Door", DeviceID: &device.ID, LockGroupIDs: models.LockGroupIDs{lockGroup.ID}}
	if err := conn.Create(&lock).Error; err != nil {
		t.Fatalf("create lock: %v", err)
	}
	group := models.UserGroup{Name: "Staff", LockGroupIDs: models.LockGroupIDs{lockGroup.ID}}
	if err := conn.Create(&group).Error; err != nil {
		t.Fatalf("create user group: %v", err)
	}
	user := models.User{Username: "alice", UserGroupID: group.ID}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	card := models.Card{UUID: "card-001", UserID: user.ID}
	if err := conn.Create(&card).Error; err != nil {
		t.Fatalf("create card: %v", err)
	}

	code, decision := doAuth(t, r, "uuid=card-001&dev=chip-001&status=0")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if decision.Status != access.StatusAuthorized || decision.Message != access.MsgAuthorized {
		t.Fatalf("expected authorized, got %+v", decision)
	}

	// Requesting pin engagement without the override grant answers with
	// do-not-disturb.
	_, decision = doAuth(t, r, "uuid=card-001&dev=chip-001&status=1")
	if decision.Status != access.StatusDoNotDisturb {
		t.Fatalf("expected do-not-disturb, got %+v", decision)
	}
}

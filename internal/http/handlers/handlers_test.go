package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/repo"
	"github.com/hajeen-app/go-care-backend/internal/services"
	"github.com/hajeen-app/go-care-backend/internal/sms"
)

// ---------- test DB ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ---------- quiet channel fakes ----------

type nopNotifier struct{}

func (nopNotifier) Notify(_ context.Context, userID, _, _, category string, _ *string) (*domain.Notification, error) {
	return &domain.Notification{ID: uuid.NewString(), UserID: userID, Category: category}, nil
}

type nopGateway struct{}

func (nopGateway) Send(context.Context, []string, string, string) (sms.SendResult, error) {
	return sms.SendResult{Success: true, MessageID: "t"}, nil
}

// ---------- wiring ----------

// newTestHandlers wires real services over the test database, with the
// external channels stubbed out.
func newTestHandlers(db *gorm.DB) *Handlers {
	quotaSvc := &services.QuotaService{DB: db, Notifier: nopNotifier{}}
	dispatchSvc := &services.DispatchService{
		DB:       db,
		Quota:    quotaSvc,
		Notifier: nopNotifier{},
		Gateway:  nopGateway{},
	}
	authSvc := &services.AuthService{
		DB:        db,
		Quota:     quotaSvc,
		Gateway:   nopGateway{},
		JWTSecret: []byte("handler-test-secret"),
		TokenTTL:  time.Hour,
	}
	phraseSvc := &services.PhraseService{DB: db}
	return New(db, authSvc, dispatchSvc, quotaSvc, phraseSvc)
}

// seedGuardian creates a user + guardian pair and returns both ids.
func seedGuardian(t *testing.T, db *gorm.DB, phone string) (userID, guardianID string) {
	t.Helper()
	ctx := context.Background()
	u, err := repo.CreateUser(ctx, db, phone, domain.RoleGuardian)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	g, err := repo.CreateGuardian(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("create guardian: %v", err)
	}
	return u.ID, g.ID
}

// seedBoundDependent creates a dependent with a bound device.
func seedBoundDependent(t *testing.T, db *gorm.DB, guardianID, regID string) *domain.Dependent {
	t.Helper()
	ctx := context.Background()
	d, err := repo.CreateDependent(ctx, db, guardianID, "سالم", "motor", "eye")
	if err != nil {
		t.Fatalf("create dependent: %v", err)
	}
	if err := repo.BindRegistrationID(ctx, db, d.ID, regID); err != nil {
		t.Fatalf("bind device: %v", err)
	}
	d, err = repo.GetDependent(ctx, db, d.ID)
	if err != nil {
		t.Fatalf("reload dependent: %v", err)
	}
	return d
}

// doJSON performs one request against the router with an optional JSON body
// and X-User-ID header.
func doJSON(r *gin.Engine, method, path, asUser string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if asUser != "" {
		req.Header.Set("X-User-ID", asUser)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// doJSONWithHeader is doJSON plus one extra request header.
func doJSONWithHeader(r *gin.Engine, method, path, asUser, key, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if asUser != "" {
		req.Header.Set("X-User-ID", asUser)
	}
	req.Header.Set(key, value)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/repo"
	"github.com/hajeen-app/go-care-backend/internal/sms"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

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
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func mkGuardian(t *testing.T, db *gorm.DB, phone string) *domain.Guardian {
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
	return g
}

// recordingNotifier captures every Notify call and optionally fails.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

type notifyCall struct {
	userID    string
	title     string
	body      string
	category  string
	messageID *string
}

func (n *recordingNotifier) Notify(_ context.Context, userID, title, body, category string, messageID *string) (*domain.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return nil, n.err
	}
	n.calls = append(n.calls, notifyCall{userID, title, body, category, messageID})
	return &domain.Notification{ID: uuid.NewString(), UserID: userID, Category: category}, nil
}

func (n *recordingNotifier) byCategory(cat string) []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifyCall
	for _, c := range n.calls {
		if c.category == cat {
			out = append(out, c)
		}
	}
	return out
}

// recordingGateway captures SMS sends and can simulate transport or provider
// failures.
type recordingGateway struct {
	mu     sync.Mutex
	sent   [][]string
	bodies []string
	err    error
	result sms.SendResult
}

func (g *recordingGateway) Send(_ context.Context, recipients []string, body, _ string) (sms.SendResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return sms.SendResult{}, g.err
	}
	g.sent = append(g.sent, recipients)
	g.bodies = append(g.bodies, body)
	if g.result.Success || g.result.Error != "" {
		return g.result, nil
	}
	return sms.SendResult{Success: true, MessageID: "test-msg"}, nil
}

func (g *recordingGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

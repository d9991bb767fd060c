package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hajeen-app/go-care-backend/internal/domain"
	"github.com/hajeen-app/go-care-backend/internal/repo"
)

// recordingPusher captures pushes per device token.
type recordingPusher struct {
	mu     sync.Mutex
	pushes []pushCall
	err    error
}

type pushCall struct {
	token string
	title string
	data  map[string]string
	high  bool
}

func (p *recordingPusher) Send(_ context.Context, token, title, _ string, data map[string]string, high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, pushCall{token, title, data, high})
	return p.err
}

func (p *recordingPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushes)
}

func TestNotify_PersistsWithoutDevices(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	g := mkGuardian(t, db, "+966504000001")
	pusher := &recordingPusher{}
	svc := &NotifyService{DB: db, Pusher: pusher}

	n, err := svc.Notify(ctx, g.UserID, "تنبيه", "نص", domain.NotifCategoryPackageRenewed, nil)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if n.ID == "" || n.Read {
		t.Fatalf("notification = %+v", n)
	}
	if pusher.count() != 0 {
		t.Fatalf("pushes = %d, want 0 without devices", pusher.count())
	}
}

func TestNotify_FansOutToAllDevices(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	g := mkGuardian(t, db, "+966504000002")
	for _, tok := range []string{"tok-a", "tok-b", "tok-c"} {
		if _, err := repo.UpsertPushDevice(ctx, db, g.UserID, tok, "android"); err != nil {
			t.Fatalf("register device: %v", err)
		}
	}
	pusher := &recordingPusher{}
	svc := &NotifyService{DB: db, Pusher: pusher}

	msgID := "msg-123"
	n, err := svc.Notify(ctx, g.UserID, "رسالة جديدة", "نص", domain.NotifCategoryNewMessage, &msgID)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if pusher.count() != 3 {
		t.Fatalf("pushes = %d, want 3", pusher.count())
	}
	for _, c := range pusher.pushes {
		if c.high {
			t.Fatalf("non-emergency push flagged high priority")
		}
		if c.data["notification_id"] != n.ID || c.data["message_id"] != msgID {
			t.Fatalf("push data = %v", c.data)
		}
	}
}

func TestNotify_EmergencyIsHighPriority(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	g := mkGuardian(t, db, "+966504000003")
	if _, err := repo.UpsertPushDevice(ctx, db, g.UserID, "tok-e", "ios"); err != nil {
		t.Fatalf("register device: %v", err)
	}
	pusher := &recordingPusher{}
	svc := &NotifyService{DB: db, Pusher: pusher}

	if _, err := svc.Notify(ctx, g.UserID, "طوارئ", "نص", domain.NotifCategoryEmergency, nil); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if pusher.count() != 1 || !pusher.pushes[0].high {
		t.Fatalf("emergency push not high priority: %+v", pusher.pushes)
	}
}

func TestNotify_RowSurvivesPushFailure(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	g := mkGuardian(t, db, "+966504000004")
	if _, err := repo.UpsertPushDevice(ctx, db, g.UserID, "tok-f", "android"); err != nil {
		t.Fatalf("register device: %v", err)
	}
	svc := &NotifyService{DB: db, Pusher: &recordingPusher{err: errors.New("fcm down")}}

	n, err := svc.Notify(ctx, g.UserID, "تنبيه", "نص", domain.NotifCategoryPackageExpired, nil)
	if err != nil {
		t.Fatalf("notify must tolerate push failure, got: %v", err)
	}

	rows, err := repo.ListNotificationsPage(ctx, db, g.UserID, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != n.ID {
		t.Fatalf("persisted notifications = %+v", rows)
	}
}

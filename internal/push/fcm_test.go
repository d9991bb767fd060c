package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSend_NormalPriority(t *testing.T) {
	var gotAuth string
	var gotPayload fcmPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "server-key", time.Second)
	data := map[string]string{"notification_id": "n-1", "type": "new_message"}
	if err := c.Send(context.Background(), "tok-1", "عنوان", "نص", data, false); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAuth != "key=server-key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotPayload.To != "tok-1" || gotPayload.Priority != "normal" {
		t.Fatalf("payload = %+v", gotPayload)
	}
	if gotPayload.Notification.Sound != "" {
		t.Fatalf("normal push carries sound %q", gotPayload.Notification.Sound)
	}
	if gotPayload.Data["notification_id"] != "n-1" {
		t.Fatalf("data = %v", gotPayload.Data)
	}
}

func TestSend_HighPriority(t *testing.T) {
	var gotPayload fcmPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "server-key", time.Second)
	if err := c.Send(context.Background(), "tok-2", "طوارئ", "نص", nil, true); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPayload.Priority != "high" || gotPayload.Notification.Sound != "default" {
		t.Fatalf("payload = %+v", gotPayload)
	}
}

func TestSend_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-key", time.Second)
	if err := c.Send(context.Background(), "tok-3", "t", "b", nil, false); err == nil {
		t.Fatalf("expected error on non-2xx response")
	}
}

package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSend_Success(t *testing.T) {
	var gotAuth, gotPath string
	var gotPayload sendPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sendResponse{StatusCode: 201, MessageID: "m-1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-123", time.Second)
	res, err := c.Send(context.Background(), []string{"+966500000001"}, "مرحبا", "Hajeen")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !res.Success || res.MessageID != "m-1" {
		t.Fatalf("result = %+v", res)
	}
	if gotAuth != "Bearer key-123" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotPath != "/v1/messages" {
		t.Fatalf("path = %q", gotPath)
	}
	if len(gotPayload.Recipients) != 1 || gotPayload.Sender != "Hajeen" || gotPayload.Body != "مرحبا" {
		t.Fatalf("payload = %+v", gotPayload)
	}
}

func TestSend_ProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(sendResponse{StatusCode: 422, Message: "sender not approved"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", time.Second)
	res, err := c.Send(context.Background(), []string{"+966500000001"}, "x", "Nope")
	if err != nil {
		t.Fatalf("rejection must not be a transport error: %v", err)
	}
	if res.Success || res.Error != "sender not approved" {
		t.Fatalf("result = %+v", res)
	}
}

func TestSend_InvalidResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", time.Second)
	res, err := c.Send(context.Background(), []string{"+966500000001"}, "x", "Hajeen")
	if err != nil {
		t.Fatalf("unparsable body must not be a transport error: %v", err)
	}
	if res.Success {
		t.Fatalf("result = %+v, want failure", res)
	}
}

func TestSend_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, "key", time.Second)
	if _, err := c.Send(context.Background(), []string{"+966500000001"}, "x", "Hajeen"); err == nil {
		t.Fatalf("expected transport error against a closed server")
	}
}

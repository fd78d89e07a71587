package pocketbase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// memoryAuthStore はテスト用のインメモリ認証ストアです。
type memoryAuthStore struct {
	token  string
	record *Record
	saves  int
}

func (s *memoryAuthStore) Token() string {
	return s.token
}

func (s *memoryAuthStore) Save(token string, record *Record) error {
	s.token = token
	s.record = record
	s.saves++
	return nil
}

func (s *memoryAuthStore) Clear() error {
	s.token = ""
	s.record = nil
	return nil
}

func TestAuthWithPasswordSuccess(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/collections/users/auth-with-password" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content-type: %s", ct)
		}

		var creds struct {
			Identity string `json:"identity"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("failed to decode credentials: %v", err)
		}
		if creds.Identity != "tester@example.com" {
			t.Errorf("unexpected identity: %s", creds.Identity)
		}
		if bcrypt.CompareHashAndPassword(hash, []byte(creds.Password)) != nil {
			t.Errorf("unexpected password: %s", creds.Password)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"token": "test-token",
			"record": {
				"id": "rec123456789012",
				"collectionId": "col123456789012",
				"collectionName": "users",
				"username": "tester",
				"verified": true,
				"emailVisibility": false,
				"email": "tester@example.com",
				"created": "2022-01-02 03:04:05.123Z",
				"updated": "2024-05-06 07:08:09.000Z",
				"name": "Tester",
				"avatar": "avatar.png"
			}
		}`)
	}))
	defer server.Close()

	store := &memoryAuthStore{}
	client := New(server.URL, store)

	resp, err := client.AuthWithPassword(context.Background(), "users", "tester@example.com", "secret123")
	if err != nil {
		t.Fatalf("AuthWithPassword returned error: %v", err)
	}
	if !resp.IsValid() {
		t.Fatal("expected valid response")
	}
	if resp.Record.Email != "tester@example.com" {
		t.Fatalf("unexpected email: %s", resp.Record.Email)
	}

	expectedCreated := time.Date(2022, 1, 2, 3, 4, 5, 123000000, time.UTC)
	if !resp.Record.Created.Equal(expectedCreated) {
		t.Fatalf("unexpected created time: %v", resp.Record.Created)
	}

	// 有効なレスポンスはストアへ保存される
	if store.saves != 1 {
		t.Fatalf("expected one save, got %d", store.saves)
	}
	if store.token != "test-token" {
		t.Fatalf("unexpected stored token: %q", store.token)
	}
}

func TestAuthWithPasswordFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":400,"message":"Failed to authenticate.","data":{}}`)
	}))
	defer server.Close()

	store := &memoryAuthStore{}
	client := New(server.URL, store)

	_, err := client.AuthWithPassword(context.Background(), "users", "tester@example.com", "wrong")
	cre, ok := IsClientResponseError(err)
	if !ok {
		t.Fatalf("expected ClientResponseError, got %v", err)
	}
	if cre.Status != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", cre.Status)
	}
	if cre.Message != "Failed to authenticate." {
		t.Fatalf("unexpected message: %q", cre.Message)
	}
	if store.saves != 0 {
		t.Fatal("store must not be touched on failure")
	}
}

func TestAuthWithPasswordMalformedErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream exploded")
	}))
	defer server.Close()

	client := New(server.URL, &memoryAuthStore{})

	_, err := client.AuthWithPassword(context.Background(), "users", "tester@example.com", "secret123")
	cre, ok := IsClientResponseError(err)
	if !ok {
		t.Fatalf("expected ClientResponseError, got %v", err)
	}
	// JSON でないボディはステータス由来のメッセージにフォールバックする
	if cre.Message != http.StatusText(http.StatusBadGateway) {
		t.Fatalf("unexpected message: %q", cre.Message)
	}
}

func TestAuthWithPasswordInvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"token":"","record":null}`)
	}))
	defer server.Close()

	store := &memoryAuthStore{}
	client := New(server.URL, store)

	resp, err := client.AuthWithPassword(context.Background(), "users", "tester@example.com", "secret123")
	if err != nil {
		t.Fatalf("AuthWithPassword returned error: %v", err)
	}
	if resp.IsValid() {
		t.Fatal("expected invalid response")
	}
	if store.saves != 0 {
		t.Fatal("invalid response must not be saved")
	}
}

func TestAuthWithPasswordSendsExistingToken(t *testing.T) {
	var gotAuthorization string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthorization = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"token":"","record":null}`)
	}))
	defer server.Close()

	client := New(server.URL, &memoryAuthStore{token: "existing-token"})

	if _, err := client.AuthWithPassword(context.Background(), "users", "tester@example.com", "secret123"); err != nil {
		t.Fatalf("AuthWithPassword returned error: %v", err)
	}
	if gotAuthorization != "existing-token" {
		t.Fatalf("unexpected Authorization header: %q", gotAuthorization)
	}
}

func TestAuthWithPasswordNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // 接続エラーを発生させる

	client := New(server.URL, &memoryAuthStore{})

	_, err := client.AuthWithPassword(context.Background(), "users", "tester@example.com", "secret123")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := IsClientResponseError(err); ok {
		t.Fatal("transport errors must not be ClientResponseError")
	}
}

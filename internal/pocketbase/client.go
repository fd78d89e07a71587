// Package pocketbase は PocketBase の認証APIを呼び出す最小限のクライアントを提供します。
package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// AuthStore は発行済みトークンとユーザーレコードの保存先です。
// クライアントは認証成功時に Save を呼び、リクエスト送信時に Token を参照します。
type AuthStore interface {
	Token() string
	Save(token string, record *Record) error
	Clear() error
}

// Client は PocketBase インスタンスへの HTTP クライアントです。
// リクエストごとにセッションに紐付いた AuthStore と合わせて生成します。
type Client struct {
	baseURL string
	http    *http.Client
	store   AuthStore
}

// New は Client を生成します。
func New(baseURL string, store AuthStore) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		store:   store,
	}
}

// AuthStore はクライアントに紐付いたストアを返します。
func (c *Client) AuthStore() AuthStore {
	return c.store
}

// AuthResponse は auth-with-password の成功レスポンスです。
type AuthResponse struct {
	Token  string  `json:"token"`
	Record *Record `json:"record"`
}

// IsValid はトークンとレコードが揃った有効なレスポンスかどうかを返します。
func (r *AuthResponse) IsValid() bool {
	return r != nil && r.Token != "" && r.Record != nil && r.Record.ID != ""
}

// ClientResponseError は PocketBase が返す構造化エラーです。
type ClientResponseError struct {
	URL     string         `json:"url"`
	Status  int            `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// Error は error インターフェースを実装します。
func (e *ClientResponseError) Error() string {
	return fmt.Sprintf("pocketbase: %d %s", e.Status, e.Message)
}

// AuthWithPassword は指定コレクションに対してパスワード認証を行います。
// 有効なレスポンスを受け取った場合は AuthStore へ保存してから返します。
func (c *Client) AuthWithPassword(ctx context.Context, collection, identity, password string) (*AuthResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"identity": identity,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/collections/%s/auth-with-password", c.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.store.Token(); token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newResponseError(endpoint, resp)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}

	if authResp.IsValid() {
		if err := c.store.Save(authResp.Token, authResp.Record); err != nil {
			return nil, fmt.Errorf("failed to persist auth state: %w", err)
		}
	}

	return &authResp, nil
}

// newResponseError はエラーレスポンスのボディを ClientResponseError に変換します。
func newResponseError(endpoint string, resp *http.Response) error {
	cre := &ClientResponseError{
		URL:     endpoint,
		Status:  resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
	}

	var body struct {
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Message != "" {
			cre.Message = body.Message
		}
		cre.Data = body.Data
	}

	return cre
}

// IsClientResponseError はエラーが ClientResponseError であれば取り出します。
func IsClientResponseError(err error) (*ClientResponseError, bool) {
	var cre *ClientResponseError
	if errors.As(err, &cre) {
		return cre, true
	}
	return nil, false
}

// Package auth はセッションを用いた認証の保存・検証・ハンドラーを提供します。
package auth

import (
	"encoding/gob"
	"errors"

	"github.com/yourusername/pocket-gate/internal/pocketbase"
)

const (
	// セッションに保存するキー。クッキーのペイロードにそのまま現れます。
	sessionKeyToken = "auth"
	sessionKeyModel = "auth_model"
	sessionKeyError = "error"

	// projectionTimeLayout はセッションに保存するタイムスタンプの形式です。
	projectionTimeLayout = "2006-01-02 15:04:05"
)

// ErrNoAuthState は認証情報が無いセッションに対して Clear を呼んだ場合のエラーです。
// 呼び出し側は投機的に Clear してはいけません。
var ErrNoAuthState = errors.New("auth: session keys not found")

func init() {
	// クッキーストアは gob でシリアライズするため、投影型を登録しておく
	gob.Register(UserView{})
}

// Session はセッションストアに要求する操作の最小集合です。
// gin-contrib/sessions の Session がこれを満たします。
type Session interface {
	Get(key interface{}) interface{}
	Set(key interface{}, val interface{})
	Delete(key interface{})
	Save() error
}

// UserView はセッションに保存するユーザーレコードの固定投影です。
// プロバイダー内部のフィールドやシリアライズ不能な値は含めません。
type UserView struct {
	ID              string
	CollectionID    string
	CollectionName  string
	Username        string
	Verified        bool
	EmailVisibility bool
	Email           string
	Created         string
	Updated         string
	Name            string
	Avatar          string
}

// SessionStore はセッションを PocketBase クライアントの認証ストアとして扱う
// アダプターです。アダプター自身は状態を持たず、毎回セッションを読み書きします。
type SessionStore struct {
	session Session
}

// NewSessionStore は指定セッションに紐付いたストアを生成します。
func NewSessionStore(session Session) *SessionStore {
	return &SessionStore{session: session}
}

// Token はセッションのトークンをそのまま返します。存在しない場合は空文字列です。
// 有効期限や署名の検証は行いません（トークンの正当性はプロバイダーが判断します）。
func (s *SessionStore) Token() string {
	token, _ := s.session.Get(sessionKeyToken).(string)
	return token
}

// User は保存済みの投影からユーザービューを組み立てます。
// トークンか投影のどちらかが欠けている場合は ok=false を返します。
// 毎回新しい値を返すため、呼び出し側での変更はセッションに影響しません。
func (s *SessionStore) User() (*UserView, bool) {
	if s.Token() == "" {
		return nil, false
	}

	stored, ok := s.session.Get(sessionKeyModel).(UserView)
	if !ok {
		return nil, false
	}

	view := stored
	return &view, true
}

// Save はトークンと投影をセッションに書き込み、フラッシュします。
// レコード全体は保存せず、固定形の投影だけを保存します。
func (s *SessionStore) Save(token string, record *pocketbase.Record) error {
	if record == nil {
		return errors.New("auth: record is nil")
	}

	s.session.Set(sessionKeyToken, token)
	s.session.Set(sessionKeyModel, projectRecord(record))
	return s.session.Save()
}

// Clear はトークンと投影をセッションから削除します。
// どちらかのキーが既に存在しない場合は ErrNoAuthState を返します。
func (s *SessionStore) Clear() error {
	if s.session.Get(sessionKeyToken) == nil || s.session.Get(sessionKeyModel) == nil {
		return ErrNoAuthState
	}

	s.session.Delete(sessionKeyToken)
	s.session.Delete(sessionKeyModel)
	return s.session.Save()
}

// projectRecord はプロバイダーのレコードをセッション保存用の投影に変換します。
func projectRecord(record *pocketbase.Record) UserView {
	return UserView{
		ID:              record.ID,
		CollectionID:    record.CollectionID,
		CollectionName:  record.CollectionName,
		Username:        record.Username,
		Verified:        record.Verified,
		EmailVisibility: record.EmailVisibility,
		Email:           record.Email,
		Created:         formatTimestamp(record.Created),
		Updated:         formatTimestamp(record.Updated),
		Name:            record.Name,
		Avatar:          record.Avatar,
	}
}

func formatTimestamp(dt pocketbase.DateTime) string {
	if dt.IsZero() {
		return ""
	}
	return dt.UTC().Format(projectionTimeLayout)
}

// SetFlashError はログイン失敗メッセージをセッションに保存します。
func SetFlashError(session Session, message string) error {
	session.Set(sessionKeyError, message)
	return session.Save()
}

// PopFlashError は保存されたエラーメッセージを取り出して削除します。
// 二度目の呼び出しは空文字列を返します（一回限りの表示）。
func PopFlashError(session Session) string {
	message, ok := session.Get(sessionKeyError).(string)
	if !ok {
		return ""
	}
	session.Delete(sessionKeyError)
	_ = session.Save()
	return message
}

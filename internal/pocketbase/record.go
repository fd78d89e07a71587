package pocketbase

import (
	"fmt"
	"strings"
	"time"
)

// datetimeLayouts は PocketBase が返す日時表現の候補です。
// 標準は "2006-01-02 15:04:05.000Z" 形式ですが、念のため RFC3339 も受け付けます。
var datetimeLayouts = []string{
	"2006-01-02 15:04:05.000Z",
	"2006-01-02 15:04:05.999Z07:00",
	time.RFC3339Nano,
	time.RFC3339,
}

// DateTime は PocketBase のワイヤ形式の日時をラップします。
type DateTime struct {
	time.Time
}

// UnmarshalJSON は PocketBase の日時文字列をパースします。空文字列はゼロ値になります。
func (d *DateTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range datetimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("pocketbase: unsupported datetime %q", s)
}

// MarshalJSON はワイヤ形式 ("2006-01-02 15:04:05.000Z") に戻します。
func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.UTC().Format("2006-01-02 15:04:05.000Z") + `"`), nil
}

// Record は認証プロバイダーが保持するユーザーレコードです。
// プロバイダー内部のフィールドは保持せず、この投影だけを扱います。
type Record struct {
	ID              string   `json:"id"`
	CollectionID    string   `json:"collectionId"`
	CollectionName  string   `json:"collectionName"`
	Username        string   `json:"username"`
	Verified        bool     `json:"verified"`
	EmailVisibility bool     `json:"emailVisibility"`
	Email           string   `json:"email"`
	Created         DateTime `json:"created"`
	Updated         DateTime `json:"updated"`
	Name            string   `json:"name"`
	Avatar          string   `json:"avatar"`
}

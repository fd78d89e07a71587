package auth

import (
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// SessionCookieName はセッションクッキーの名前です。
const SessionCookieName = "pg_session"

// トークン自体の有効期限はプロバイダーが管理するため、
// クッキーの寿命はその既定値より短めにとっています。
var maxSessionLifetime = 7 * 24 * time.Hour

// SessionMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func SessionMaxAgeSeconds() int {
	return int(maxSessionLifetime.Seconds())
}

// ContextTokenKey は、ハンドラー間でセッショントークンを共有するためのキーです。
// ミドルウェアだけが設定するため、クエリパラメータ等から注入されることはありません。
const ContextTokenKey = "auth.token"

// loginPath は未認証リクエストのリダイレクト先です。
const loginPath = "/login"

// DefaultSkipPatterns は認証チェックを免除するパスのパターンです。
// 静的アセットとログインページ自体、ヘルスチェックを許可します。
func DefaultSkipPatterns() []string {
	return []string{
		`^/favicon\.ico$`,
		`^/static/.*`,
		`.*\.css$`,
		`.*\.js$`,
		`^/login$`,
		`^/health$`,
	}
}

// Gate は全ルートに先立って実行されるアクセスゲートです。
// セッショントークンの有無だけを見る二値の認可で、ロールやスコープは扱いません。
type Gate struct {
	skip []*regexp.Regexp
}

// NewGate はスキップパターンをコンパイルしてゲートを生成します。
func NewGate(skipPatterns ...string) (*Gate, error) {
	skip := make([]*regexp.Regexp, 0, len(skipPatterns))
	for _, pattern := range skipPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid skip pattern %q: %w", pattern, err)
		}
		skip = append(skip, re)
	}
	return &Gate{skip: skip}, nil
}

// Middleware はセッショントークンを検証するミドルウェアを返します。
// トークンが無い場合は 303 でログインページへリダイレクトします。
// 303 は POST を GET に変えるリダイレクトで、フォーム送信後にも適しています。
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.skipped(c.Request.URL.Path) {
			c.Next()
			return
		}

		store := NewSessionStore(sessions.Default(c))
		token := store.Token()
		if token == "" {
			c.Redirect(http.StatusSeeOther, loginPath)
			c.Abort()
			return
		}

		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

func (g *Gate) skipped(path string) bool {
	for _, re := range g.skip {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

package auth

import (
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/pocket-gate/internal/config"
	"github.com/yourusername/pocket-gate/internal/pocketbase"
)

// usersCollection はパスワード認証に使用する PocketBase のコレクション名です。
const usersCollection = "users"

// Manager は認証まわりのハンドラーをまとめた構造体です。
// プロバイダークライアントはリクエストごとにセッションと紐付けて生成するため、
// Manager 自体はリクエスト間で共有される状態を持ちません。
type Manager struct {
	cfg *config.Config
}

// NewManager は認証マネージャーを作成します。
func NewManager(cfg *config.Config) *Manager {
	return &Manager{cfg: cfg}
}

// client は現在のリクエストのセッションに紐付いたプロバイダークライアントを返します。
func (m *Manager) client(c *gin.Context) *pocketbase.Client {
	store := NewSessionStore(sessions.Default(c))
	return pocketbase.New(m.cfg.PBBaseURL, store)
}

// redirectToLogin は 303 でログインページへリダイレクトします。
func redirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, loginPath)
}

// Home は GET / のハンドラーです。認証の強制はアクセスゲートが行うため、
// ここでは有効なユーザービューが存在する前提でプロフィールを描画します。
func (m *Manager) Home(c *gin.Context) {
	store := NewSessionStore(sessions.Default(c))
	user, ok := store.User()
	if !ok {
		// ゲートを通過していれば到達しないが、nil 参照よりはリダイレクトする
		redirectToLogin(c)
		return
	}

	log.Printf("Logged in as %s", user.Email)

	c.HTML(http.StatusOK, "home.html", gin.H{
		"User": user,
	})
}

// LoginForm は GET /login のハンドラーです。
// 直前のログイン失敗メッセージがあれば一度だけ表示します。
func (m *Manager) LoginForm(c *gin.Context) {
	errorMessage := PopFlashError(sessions.Default(c))

	c.HTML(http.StatusOK, "login.html", gin.H{
		"Error": errorMessage,
	})
}

// LoginSubmit は POST /login のハンドラーです。
// 認証はすべてプロバイダーへ委譲し、成功時のセッション保存はクライアントが
// 認証ストア経由で行います。
func (m *Manager) LoginSubmit(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	if email == "" || password == "" {
		redirectToLogin(c)
		return
	}

	resp, err := m.client(c).AuthWithPassword(c.Request.Context(), usersCollection, email, password)
	if err != nil {
		if cre, ok := pocketbase.IsClientResponseError(err); ok {
			// 資格情報エラー等はメッセージを保存してログインページで一度だけ表示する
			if saveErr := SetFlashError(sessions.Default(c), cre.Message); saveErr != nil {
				_ = c.AbortWithError(http.StatusInternalServerError, saveErr)
				return
			}
			redirectToLogin(c)
			return
		}
		// プロバイダー到達不能などの通信障害はそのままサーバーエラーにする
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if resp.IsValid() {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	redirectToLogin(c)
}

// Logout は GET /logout のハンドラーです。
// ローカルのセッション状態を破棄するだけで、プロバイダー側のトークン無効化は
// 行いません（トークンはステートレスな JWT のため）。
func (m *Manager) Logout(c *gin.Context) {
	store := NewSessionStore(sessions.Default(c))
	if err := store.Clear(); err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	redirectToLogin(c)
}

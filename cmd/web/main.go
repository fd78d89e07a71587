// Package main はWebサーバーのエントリーポイントです。
package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/pocket-gate/internal/auth"
	"github.com/yourusername/pocket-gate/internal/config"
	"github.com/yourusername/pocket-gate/internal/webui"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode())

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// セッションストアの設定（クッキー署名鍵は必須）
	store, err := newSessionStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}
	router.Use(sessions.Sessions(auth.SessionCookieName, store))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowOrigins = origins
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// リクエストID採番
	router.Use(requestIDMiddleware())

	// テンプレートと静的ファイル
	router.SetHTMLTemplate(webui.Templates())
	router.Static("/static", cfg.StaticDir)

	// ルーティングの設定
	if err := setupRoutes(router, cfg); err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting web server on %s (provider: %s)", addr, cfg.PBBaseURL)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newSessionStore は設定に応じてクッキーまたは Redis のセッションストアを返します。
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store

	if cfg.RedisAddr != "" {
		redisStore, err := redis.NewStore(10, "tcp", cfg.RedisAddr, cfg.RedisPassword, []byte(cfg.SessionSecret))
		if err != nil {
			return nil, err
		}
		store = redisStore
	} else {
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   auth.SessionMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   !cfg.Debug,
		// 外部リンクからの通常遷移でもセッションを送るため Lax にする
		SameSite: http.SameSiteLaxMode,
	})

	return store, nil
}

// requestIDMiddleware は X-Request-Id ヘッダーを採番・伝搬するミドルウェアです。
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "pocket-gate",
		"version": "0.1.0",
	})
}

// setupRoutes はアクセスゲートと各ルートの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config) error {
	// 静的アセット・ログインページ・ヘルスチェック以外はゲートで保護する
	gate, err := auth.NewGate(auth.DefaultSkipPatterns()...)
	if err != nil {
		return err
	}
	router.Use(gate.Middleware())

	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	manager := auth.NewManager(cfg)
	router.GET("/", manager.Home)
	router.GET("/login", manager.LoginForm)
	router.POST("/login", manager.LoginSubmit)
	router.GET("/logout", manager.Logout)

	return nil
}

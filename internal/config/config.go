// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// 認証プロバイダー設定
	PBBaseURL string // PocketBase のベースURL

	// サーバー設定
	Port  string // Webサーバーのポート番号
	Debug bool   // フレームワークの詳細診断を有効にするか

	// セッション設定
	SessionSecret string // セッションクッキー署名用の秘密鍵
	RedisAddr     string // 設定時は Redis セッションストアを使用（例: 127.0.0.1:6379）
	RedisPassword string // Redis 認証パスワード

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// 静的ファイル設定
	StaticDir string // /static で配信するディレクトリ
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// 認証プロバイダー設定
		PBBaseURL: getEnv("PB_BASE_URL", "http://localhost:8090"),

		// サーバー設定
		Port:  getEnv("PORT", "8080"),
		Debug: getEnvAsBool("DEBUG", false),

		// セッション設定
		SessionSecret: getEnv("SESSION_SECRET", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// 静的ファイル設定
		StaticDir: getEnv("STATIC_DIR", "./static"),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// GinMode は Debug フラグに応じた Gin の実行モード (debug, release) を返します。
func (c *Config) GinMode() string {
	if c.Debug {
		return "debug"
	}
	return "release"
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.PBBaseURL == "" {
		return fmt.Errorf("PB_BASE_URL is required")
	}

	// ローカル開発では署名鍵は任意
	// 本番環境では厳格にチェックする想定
	if !c.Debug {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します。
func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

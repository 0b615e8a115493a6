package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	AuthModeStatic = "static"
	AuthModeStore  = "store"
)

type Config struct {
	AppName          string `json:"app_name"`
	ListenIP         string `json:"listen_ip"`
	ListenPort       int    `json:"listen_port"`
	SessionKey       string `json:"session_key"`
	SecureCookies    bool   `json:"secure_cookies"`
	DBPath           string `json:"db_path"`
	AuthMode         string `json:"auth_mode"`
	AdminUsername    string `json:"admin_username"`
	AdminPassword    string `json:"admin_password"`
	DashboardCommand string `json:"dashboard_command"`
	CaptchaEnabled   bool   `json:"captcha_enabled"`
	RateLimitEnabled bool   `json:"rate_limit_enabled"`
	LogLevel         string `json:"log_level"`

	sessionKeyGenerated bool
}

var AppConfig Config

// Default returns the configuration used when a field is absent from the file.
func Default() Config {
	return Config{
		AppName:       "Inventory Management System",
		ListenIP:      "127.0.0.1",
		ListenPort:    8080,
		DBPath:        ":memory:",
		AuthMode:      AuthModeStatic,
		AdminUsername: "admin",
		AdminPassword: "1234",
		LogLevel:      "info",
	}
}

func LoadConfig(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	cfg := Default()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return err
	}

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	// If no key is provided or it's the placeholder, generate a secure random one
	if cfg.SessionKey == "" || cfg.SessionKey == "CHANGE_ME_IN_PRODUCTION" {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err != nil {
			return err
		}
		cfg.SessionKey = hex.EncodeToString(randomKey)
		cfg.sessionKeyGenerated = true
	}

	AppConfig = cfg
	return nil
}

// SessionKeyGenerated reports whether LoadConfig had to invent a session key.
// Sessions signed with it do not survive a restart.
func (c Config) SessionKeyGenerated() bool {
	return c.sessionKeyGenerated
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("INVENTORY_SESSION_KEY"); v != "" {
		cfg.SessionKey = v
	}
	if v := os.Getenv("INVENTORY_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("INVENTORY_AUTH_MODE"); v != "" {
		cfg.AuthMode = v
	}
	if v := os.Getenv("INVENTORY_DASHBOARD_COMMAND"); v != "" {
		cfg.DashboardCommand = v
	}
}

func (c Config) Validate() error {
	if c.AuthMode != AuthModeStatic && c.AuthMode != AuthModeStore {
		return fmt.Errorf("unknown auth_mode %q (want %q or %q)", c.AuthMode, AuthModeStatic, AuthModeStore)
	}
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("invalid listen_port %d", c.ListenPort)
	}
	if c.AdminUsername == "" {
		return fmt.Errorf("admin_username must not be empty")
	}
	return nil
}

// Addr is the listen address in host:port form.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenIP, c.ListenPort)
}

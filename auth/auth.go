package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/gob"
	"fmt"
	"net/http"

	"inventory/config"
	"inventory/db"
	"inventory/models"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

var Store *sessions.CookieStore

func InitStore() {
	// Derive two 32-byte keys from the session key to ensure secure encryption
	// Auth key for signing (HMAC)
	authKey := sha256.Sum256([]byte(config.AppConfig.SessionKey + "auth"))
	// Encryption key for content encryption (AES)
	encKey := sha256.Sum256([]byte(config.AppConfig.SessionKey + "encryption"))

	Store = sessions.NewCookieStore(authKey[:], encKey[:])

	Store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   config.AppConfig.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}

	gob.Register(models.Notice{})
}

const SessionName = "inventory-session"

func session(r *http.Request) *sessions.Session {
	// A tampered or stale cookie yields a fresh session; that is the desired reset.
	s, _ := Store.Get(r, SessionName)
	return s
}

func save(w http.ResponseWriter, r *http.Request, s *sessions.Session) {
	if err := s.Save(r, w); err != nil {
		zap.L().Error("saving session", zap.Error(err))
	}
}

func GetIdentity(r *http.Request) (models.Identity, bool) {
	s := session(r)
	username, ok := s.Values["username"].(string)
	if !ok || username == "" {
		return models.Identity{}, false
	}
	role, _ := s.Values["role"].(string)
	admin, _ := s.Values["admin"].(bool)
	return models.Identity{Username: username, Role: role, Admin: admin}, true
}

func SetSession(w http.ResponseWriter, r *http.Request, id models.Identity) {
	s := session(r)
	s.Values["username"] = id.Username
	s.Values["role"] = id.Role
	s.Values["admin"] = id.Admin
	delete(s.Values, "view")
	save(w, r, s)
}

// GetView returns the panel the window shows. A new window starts on login.
func GetView(r *http.Request) models.View {
	if v, ok := session(r).Values["view"].(string); ok && models.View(v) == models.ViewSignup {
		return models.ViewSignup
	}
	return models.ViewLogin
}

func SetView(w http.ResponseWriter, r *http.Request, v models.View) {
	s := session(r)
	s.Values["view"] = string(v)
	save(w, r, s)
}

func AddNotice(w http.ResponseWriter, r *http.Request, n models.Notice) {
	s := session(r)
	s.AddFlash(n)
	save(w, r, s)
}

// PopNotices drains the notices queued by AddNotice.
func PopNotices(w http.ResponseWriter, r *http.Request) []models.Notice {
	s := session(r)
	flashes := s.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	save(w, r, s)

	notices := make([]models.Notice, 0, len(flashes))
	for _, f := range flashes {
		if n, ok := f.(models.Notice); ok {
			notices = append(notices, n)
		}
	}
	return notices
}

func ClearSession(w http.ResponseWriter, r *http.Request) {
	s := session(r)
	s.Values = map[any]any{}
	s.Options.MaxAge = -1
	save(w, r, s)
}

// Token-based Auth for API (Persistent)
func CreateAPIToken(id models.Identity) (string, error) {
	token := generateRandomToken(32)

	_, err := db.DB.Exec("INSERT INTO api_sessions (token, username, role, is_admin) VALUES (?, ?, ?, ?)",
		token, id.Username, id.Role, id.Admin)
	if err != nil {
		return "", fmt.Errorf("creating API token: %w", err)
	}

	return token, nil
}

func GetAPISession(token string) (models.Identity, bool) {
	var id models.Identity
	err := db.DB.QueryRow("SELECT username, role, is_admin FROM api_sessions WHERE token = ?", token).
		Scan(&id.Username, &id.Role, &id.Admin)
	if err != nil {
		return models.Identity{}, false
	}
	return id, true
}

func generateRandomToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// If we can't generate random numbers, the system is in a critical state.
		panic(fmt.Sprintf("critical security error: failed to generate random token: %v", err))
	}
	return base64.URLEncoding.EncodeToString(b)
}

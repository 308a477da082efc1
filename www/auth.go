package www

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionName = "fdsbridge_session"
	sessionTTL  = 24 * 60 * 60 // seconds
)

// newCookieStore builds the session store. The secret is base64; anything
// shorter than 32 bytes is replaced with a random per-process key, which
// logs everyone out on restart.
func newCookieStore(secret string) *sessions.CookieStore {
	key, _ := base64.StdEncoding.DecodeString(secret)
	if len(key) < 32 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionTTL,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// currentUser reads the logged-in username off the request's session.
func (h *Handlers) currentUser(r *http.Request) (string, bool) {
	sess, _ := h.cookies.Get(r, sessionName)
	u, ok := sess.Values["username"].(string)
	return u, ok
}

// beginSession marks the request's session as logged in.
func (h *Handlers) beginSession(w http.ResponseWriter, r *http.Request, username string) {
	sess, _ := h.cookies.Get(r, sessionName)
	sess.Values["username"] = username
	sess.Save(r, w)
}

// endSession expires the session cookie.
func (h *Handlers) endSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.cookies.Get(r, sessionName)
	delete(sess.Values, "username")
	sess.Options.MaxAge = -1
	sess.Save(r, w)
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPassword produces a bcrypt hash for the admin_password_hash setting.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

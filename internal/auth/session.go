package auth

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	SessionName     = "restage_session"
	sessionTokenKey = "token"
)

var sessionStore *sessions.CookieStore

// configures the cookie store that carries the same JWT browsers use instead of a header
func InitializeSessions(secret string, secure bool) {
	store := sessions.NewCookieStore([]byte(secret))

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	sessionStore = store
}

// stores the token in the HTTP-only session cookie
func SetSessionToken(w http.ResponseWriter, r *http.Request, token string) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}

	session, err := sessionStore.Get(r, SessionName)
	if err != nil && session == nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	session.Values[sessionTokenKey] = token

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// expires the session cookie
func ClearSession(w http.ResponseWriter, r *http.Request) error {
	if sessionStore == nil {
		return nil
	}

	session, err := sessionStore.Get(r, SessionName)
	if err != nil && session == nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	session.Values = map[any]any{}
	session.Options.MaxAge = -1

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	return nil
}

// returns the token stored in the session cookie, or empty string
func TokenFromSession(r *http.Request) string {
	if sessionStore == nil {
		return ""
	}

	session, err := sessionStore.Get(r, SessionName)
	if err != nil || session == nil {
		return ""
	}

	token, _ := session.Values[sessionTokenKey].(string)

	return token
}

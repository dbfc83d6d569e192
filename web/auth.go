// Package web mounts the authentication engine behind an HTTP surface:
// credential and session endpoints, csrf issuance, email verification and
// password reset, and the oauth redirect/callback pair per provider.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"

	"github.com/authkit-go/authkit"
	"github.com/authkit-go/authkit/oauth"
)

// SessionCookieName carries the session credential issued on login.
const SessionCookieName = "authkit_session"

// Auth wires an Engine (and optionally an oauth Flow) into a router.
// Populate the fields, register providers, then mount Handler() under
// your auth prefix.
type Auth struct {
	Engine *authkit.Engine

	// Flow completes oauth logins. Required only when providers are
	// registered.
	Flow *oauth.Flow

	// Session holds short-lived server-side state for the oauth redirect
	// dance (the state nonce and the post-login destination).
	Session *scs.SessionManager

	// CookieDomain, when set, scopes the session and csrf cookies.
	CookieDomain string

	providers map[string]*oauth.Provider
	router    *mux.Router
}

func New(engine *authkit.Engine) *Auth {
	return (&Auth{Engine: engine}).EnsureDefaults()
}

func (a *Auth) EnsureDefaults() *Auth {
	if a.Session == nil {
		a.Session = scs.New()
		a.Session.Lifetime = 15 * time.Minute
		a.Session.Cookie.SameSite = a.Engine.Config.CookieSameSite
	}
	if a.Flow == nil {
		a.Flow = &oauth.Flow{
			Adapter:  a.Engine.Adapter,
			Sessions: a.Engine.Sessions,
		}
	}
	if a.Flow.IssueSession == nil {
		a.Flow.IssueSession = a.Engine.IssueSession
	}
	if a.providers == nil {
		a.providers = map[string]*oauth.Provider{}
	}
	return a
}

// AddProvider registers an oauth provider under /{provider} and
// /{provider}/callback.
func (a *Auth) AddProvider(p *oauth.Provider) *Auth {
	a.EnsureDefaults()
	a.providers[p.ID] = p.EnsureDefaults()
	return a
}

// Handler returns the mounted router wrapped in the scs middleware.
func (a *Auth) Handler() http.Handler {
	a.EnsureDefaults()
	if a.router == nil {
		r := mux.NewRouter()
		r.HandleFunc("/csrf", a.onCsrf).Methods("GET")
		r.HandleFunc("/signup", a.onSignup).Methods("POST")
		r.HandleFunc("/login", a.onLogin).Methods("POST")
		r.HandleFunc("/logout", a.onLogout).Methods("POST")
		r.HandleFunc("/session", a.onSession).Methods("GET")
		r.HandleFunc("/verify-email", a.onVerifyEmail).Methods("GET")
		r.HandleFunc("/forgot-password", a.onForgotPassword).Methods("POST")
		r.HandleFunc("/reset-password", a.onResetPassword).Methods("POST")
		r.HandleFunc("/invite", a.onInvite).Methods("POST")
		r.HandleFunc("/{provider}", a.onOAuthBegin).Methods("GET")
		r.HandleFunc("/{provider}/callback", a.onOAuthCallback).Methods("GET")
		a.router = r
	}
	return a.Session.LoadAndSave(a.router)
}

// checkCsrf enforces the double-submit pair on state-changing requests.
// It answers the request itself on failure and reports whether the caller
// may proceed.
func (a *Auth) checkCsrf(w http.ResponseWriter, r *http.Request) bool {
	cookieValue := ""
	if c, err := r.Cookie(authkit.CsrfCookieName); err == nil {
		cookieValue = c.Value
	}
	supplied := r.Header.Get(authkit.CsrfHeaderName)
	if err := a.Engine.Csrf.Validate(cookieValue, supplied, r.Method); err != nil {
		http.Error(w, `{"error": "CSRF token mismatch"}`, http.StatusForbidden)
		return false
	}
	return true
}

func (a *Auth) onCsrf(w http.ResponseWriter, r *http.Request) {
	token, err := a.Engine.Csrf.IssueToken()
	if err != nil {
		http.Error(w, `{"error": "Failed to issue token"}`, http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authkit.CsrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   a.CookieDomain,
		MaxAge:   int(authkit.CsrfCacheTTL / time.Second),
		SameSite: a.Engine.Config.CookieSameSite,
	})
	writeJSON(w, map[string]any{"csrfToken": token})
}

func (a *Auth) onSignup(w http.ResponseWriter, r *http.Request) {
	if !a.checkCsrf(w, r) {
		return
	}
	var body struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, `{"error": "Invalid post body"}`, http.StatusBadRequest)
		return
	}

	user, err := a.Engine.Register(r.Context(), body.Email, body.Name, body.Password)
	if err != nil {
		a.writeAuthError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"user": user})
}

func (a *Auth) onLogin(w http.ResponseWriter, r *http.Request) {
	if !a.checkCsrf(w, r) {
		return
	}
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil || body.Email == "" || body.Password == "" {
		http.Error(w, `{"error": "Email and password required"}`, http.StatusBadRequest)
		return
	}

	sess, err := a.Engine.LoginWithPassword(r.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, authkit.ErrInvalidCredentials) {
			http.Error(w, `{"error": "Invalid credentials"}`, http.StatusUnauthorized)
			return
		}
		log.Println("error logging in: ", err)
		http.Error(w, `{"error": "Login failed"}`, http.StatusInternalServerError)
		return
	}

	// The session id is the client credential under either strategy; a
	// stateless engine puts the signed token there.
	a.setSessionCookie(w, sess.ID)
	writeJSON(w, map[string]any{"success": true, "userId": sess.UserID})
}

func (a *Auth) onLogout(w http.ResponseWriter, r *http.Request) {
	if !a.checkCsrf(w, r) {
		return
	}
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		if err := a.Engine.RevokeSessionToken(r.Context(), c.Value); err != nil {
			log.Println("error revoking session: ", err)
		}
	}
	a.clearSessionCookie(w)
	writeJSON(w, map[string]any{"success": true})
}

func (a *Auth) onSession(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		http.Error(w, `{"error": "Not logged in"}`, http.StatusUnauthorized)
		return
	}
	sess, err := a.Engine.ValidateSessionToken(r.Context(), c.Value)
	if err != nil {
		if errors.Is(err, authkit.ErrNotFound) || errors.Is(err, authkit.ErrExpired) {
			a.clearSessionCookie(w)
			http.Error(w, `{"error": "Session expired"}`, http.StatusUnauthorized)
			return
		}
		http.Error(w, `{"error": "Session lookup failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"userId":    sess.UserID,
		"expiresAt": sess.ExpiresAt,
	})
}

func (a *Auth) onVerifyEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	token := r.URL.Query().Get("token")
	if email == "" || token == "" {
		http.Error(w, `{"error": "Token required"}`, http.StatusBadRequest)
		return
	}
	if err := a.Engine.VerifyEmail(r.Context(), email, token); err != nil {
		if errors.Is(err, authkit.ErrInvalidCredentials) {
			http.Error(w, `{"error": "Invalid or expired token"}`, http.StatusBadRequest)
			return
		}
		http.Error(w, `{"error": "Verification failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"success": true, "message": "Email verified successfully"})
}

func (a *Auth) onForgotPassword(w http.ResponseWriter, r *http.Request) {
	if !a.checkCsrf(w, r) {
		return
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &body); err != nil || body.Email == "" {
		http.Error(w, `{"error": "Email required"}`, http.StatusBadRequest)
		return
	}
	// Always answers the same whether or not the email exists.
	a.Engine.RequestPasswordReset(r.Context(), body.Email)
	writeJSON(w, map[string]any{"success": true, "message": "If the email exists, a reset link has been sent"})
}

func (a *Auth) onResetPassword(w http.ResponseWriter, r *http.Request) {
	if !a.checkCsrf(w, r) {
		return
	}
	var body struct {
		Email    string `json:"email"`
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil || body.Token == "" {
		http.Error(w, `{"error": "Token required"}`, http.StatusBadRequest)
		return
	}
	if err := a.Engine.ResetPassword(r.Context(), body.Email, body.Token, body.Password); err != nil {
		if errors.Is(err, authkit.ErrInvalidCredentials) {
			http.Error(w, `{"error": "Invalid or expired token"}`, http.StatusBadRequest)
			return
		}
		a.writeAuthError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "message": "Password updated"})
}

func (a *Auth) onInvite(w http.ResponseWriter, r *http.Request) {
	if !a.checkCsrf(w, r) {
		return
	}
	if _, err := a.requireSession(r); err != nil {
		http.Error(w, `{"error": "Not logged in"}`, http.StatusUnauthorized)
		return
	}
	var body struct {
		Email string `json:"email"`
		OrgID string `json:"orgId"`
		Role  string `json:"role"`
	}
	if err := decodeBody(r, &body); err != nil || body.Email == "" || body.OrgID == "" || body.Role == "" {
		http.Error(w, `{"error": "Email, orgId and role required"}`, http.StatusBadRequest)
		return
	}
	invite, err := a.Engine.InviteToOrg(r.Context(), body.Email, body.OrgID, body.Role)
	if err != nil {
		http.Error(w, `{"error": "Failed to create invite"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"invite": invite})
}

func (a *Auth) onOAuthBegin(w http.ResponseWriter, r *http.Request) {
	provider, ok := a.providers[mux.Vars(r)["provider"]]
	if !ok {
		http.Error(w, `{"error": "Unknown provider"}`, http.StatusNotFound)
		return
	}

	redirectURL, state, err := a.Flow.BeginAuthorization(provider)
	if err != nil {
		log.Println("error starting oauth flow: ", err)
		http.Error(w, `{"error": "Failed to start login"}`, http.StatusInternalServerError)
		return
	}

	a.Session.Put(r.Context(), "oauthState", state)
	if to := r.URL.Query().Get("to"); to != "" && strings.HasPrefix(to, "/") {
		a.Session.Put(r.Context(), "oauthRedirect", to)
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func (a *Auth) onOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := a.providers[mux.Vars(r)["provider"]]
	if !ok {
		http.Error(w, `{"error": "Unknown provider"}`, http.StatusNotFound)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	expected := a.Session.PopString(r.Context(), "oauthState")

	sess, err := a.Flow.CompleteAuthorization(r.Context(), provider, code, state, expected)
	if err != nil {
		if errors.Is(err, authkit.ErrInvalidState) {
			http.Error(w, `{"error": "State mismatch"}`, http.StatusForbidden)
			return
		}
		log.Println("error completing oauth flow: ", err)
		http.Error(w, `{"error": "Login failed"}`, http.StatusUnauthorized)
		return
	}

	a.setSessionCookie(w, sess.ID)

	target := a.Session.PopString(r.Context(), "oauthRedirect")
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (a *Auth) requireSession(r *http.Request) (*authkit.Session, error) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return nil, authkit.ErrNotFound
	}
	return a.Engine.ValidateSessionToken(r.Context(), c.Value)
}

func (a *Auth) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   a.CookieDomain,
		HttpOnly: true,
		SameSite: a.Engine.Config.CookieSameSite,
		MaxAge:   int(a.Engine.Config.SessionTTL() / time.Second),
		Expires:  time.Now().Add(a.Engine.Config.SessionTTL()),
	})
}

func (a *Auth) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:    SessionCookieName,
		Value:   "",
		Path:    "/",
		Domain:  a.CookieDomain,
		MaxAge:  -1,
		Expires: time.Now(),
	})
}

func (a *Auth) writeAuthError(w http.ResponseWriter, err error) {
	var authErr *authkit.AuthError
	if errors.As(err, &authErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": authErr.Message,
			"code":  authErr.Code,
			"field": authErr.Field,
		})
		return
	}
	log.Println("internal error: ", err)
	http.Error(w, `{"error": "Internal error"}`, http.StatusInternalServerError)
}

func decodeBody(r *http.Request, out any) error {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("error parsing form")
		}
		data := map[string]any{}
		for key := range r.Form {
			data[key] = r.FormValue(key)
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, out)
	}
	return json.NewDecoder(r.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

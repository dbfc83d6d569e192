package oauth

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/authkit-go/authkit"
)

// Flow drives the authorization-code state machine for any Provider
// descriptor: build the redirect, validate the returned state, exchange
// the code, resolve the canonical profile, upsert the identity through
// the Adapter, and issue a session. Any step failing leaves no partial
// identity behind.
type Flow struct {
	Adapter  authkit.Adapter
	Sessions *authkit.SessionManager

	// IssueSession mints the session for the resolved user, usually
	// Engine.IssueSession so the engine's session strategy applies. When
	// nil the flow persists one through Sessions, which under a stateless
	// engine would leave session rows its tokens never reference.
	IssueSession func(ctx context.Context, userID string) (*authkit.Session, error)

	// HTTPClient is used for JSON-style exchanges and userinfo fetches.
	// Defaults to a 10s-timeout client.
	HTTPClient *http.Client
}

func (f *Flow) client() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// BeginAuthorization builds the provider's authorization URL with a fresh
// anti-forgery state. The caller stores the state (cookie or server-side
// session) and must hand it back to CompleteAuthorization.
func (f *Flow) BeginAuthorization(p *Provider) (redirectURL, state string, err error) {
	state, err = authkit.GenerateSecureToken()
	if err != nil {
		return "", "", err
	}

	q := url.Values{}
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", p.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(p.Scopes, " "))
	q.Set("state", state)
	for k, v := range p.AuthParams {
		q.Set(k, v)
	}

	sep := "?"
	if strings.Contains(p.AuthURL, "?") {
		sep = "&"
	}
	return p.AuthURL + sep + q.Encode(), state, nil
}

// CompleteAuthorization finishes the flow: state is validated first and
// fails closed on mismatch, the code is exchanged, the profile resolved
// and normalized, the user/account pair upserted, and a session issued
// for the resolved user.
func (f *Flow) CompleteAuthorization(ctx context.Context, p *Provider, code, state, expectedState string) (*authkit.Session, error) {
	if expectedState == "" || state == "" ||
		subtle.ConstantTimeCompare([]byte(state), []byte(expectedState)) != 1 {
		return nil, authkit.ErrInvalidState
	}

	token, err := f.exchange(ctx, p, code)
	if err != nil {
		return nil, err
	}

	profile, err := f.resolveProfile(ctx, p, token)
	if err != nil {
		return nil, err
	}
	if profile.ExternalID == "" {
		return nil, &authkit.ProviderError{
			Provider: p.ID,
			Endpoint: "userinfo",
			Err:      errors.New("profile has no external id"),
		}
	}

	user, err := f.upsertIdentity(ctx, p, profile, token)
	if err != nil {
		return nil, err
	}
	return f.issueSession(ctx, user.ID)
}

func (f *Flow) issueSession(ctx context.Context, userID string) (*authkit.Session, error) {
	if f.IssueSession != nil {
		return f.IssueSession(ctx, userID)
	}
	return f.Sessions.Create(ctx, userID)
}

// exchange swaps the authorization code for tokens using the provider's
// declared encoding.
func (f *Flow) exchange(ctx context.Context, p *Provider, code string) (*oauth2.Token, error) {
	if p.TokenStyle == TokenStyleJSON || len(p.TokenHeaders) > 0 {
		return f.exchangeManual(ctx, p, code)
	}

	conf := &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURL,
		Scopes:       p.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthURL,
			TokenURL: p.TokenURL,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client())
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		perr := &authkit.ProviderError{Provider: p.ID, Endpoint: "token", Err: err}
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			perr.StatusCode = rerr.Response.StatusCode
		}
		return nil, perr
	}
	return token, nil
}

// exchangeManual handles providers whose token endpoints want a JSON body
// or custom headers, which x/oauth2 does not speak.
func (f *Flow) exchangeManual(ctx context.Context, p *Provider, code string) (*oauth2.Token, error) {
	var body io.Reader
	contentType := "application/x-www-form-urlencoded"

	params := map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"client_id":     p.ClientID,
		"client_secret": p.ClientSecret,
		"redirect_uri":  p.RedirectURL,
	}

	if p.TokenStyle == TokenStyleJSON {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	} else {
		form := url.Values{}
		for k, v := range params {
			form.Set(k, v)
		}
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TokenURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	for k, v := range p.TokenHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, &authkit.ProviderError{Provider: p.ID, Endpoint: "token", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &authkit.ProviderError{Provider: p.ID, Endpoint: "token", StatusCode: resp.StatusCode}
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
		IDToken      string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &authkit.ProviderError{Provider: p.ID, Endpoint: "token", Err: err}
	}
	if payload.AccessToken == "" {
		return nil, &authkit.ProviderError{
			Provider: p.ID, Endpoint: "token",
			Err: errors.New("response carried no access_token"),
		}
	}

	token := &oauth2.Token{
		AccessToken:  payload.AccessToken,
		TokenType:    payload.TokenType,
		RefreshToken: payload.RefreshToken,
	}
	if payload.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	if payload.IDToken != "" {
		token = token.WithExtra(map[string]any{"id_token": payload.IDToken})
	}
	return token, nil
}

// resolveProfile produces the canonical profile, either from the
// provider's id_token claims or by fetching its userinfo endpoint.
func (f *Flow) resolveProfile(ctx context.Context, p *Provider, token *oauth2.Token) (Profile, error) {
	var raw map[string]any

	if p.ProfileFromIDToken {
		idToken, _ := token.Extra("id_token").(string)
		if idToken == "" {
			return Profile{}, &authkit.ProviderError{
				Provider: p.ID, Endpoint: "token",
				Err: errors.New("response carried no id_token"),
			}
		}
		// The id_token came straight from the token endpoint over TLS, so
		// its claims are read without a JWKS signature check.
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
			return Profile{}, &authkit.ProviderError{Provider: p.ID, Endpoint: "token", Err: err}
		}
		raw = map[string]any(claims)
	} else {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserinfoURL, nil)
		if err != nil {
			return Profile{}, err
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := f.client().Do(req)
		if err != nil {
			return Profile{}, &authkit.ProviderError{Provider: p.ID, Endpoint: "userinfo", Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return Profile{}, &authkit.ProviderError{Provider: p.ID, Endpoint: "userinfo", StatusCode: resp.StatusCode}
		}
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return Profile{}, &authkit.ProviderError{Provider: p.ID, Endpoint: "userinfo", Err: err}
		}
	}

	if p.MapProfile == nil {
		return Profile{}, fmt.Errorf("provider %s has no profile mapping", p.ID)
	}
	return p.MapProfile(raw), nil
}

// upsertIdentity resolves the provider identity to a User, creating and
// linking records as needed. The sequence is one logical operation: if
// linking fails after a user was created for it, the user is removed
// again so no partial pair stays visible.
func (f *Flow) upsertIdentity(ctx context.Context, p *Provider, profile Profile, token *oauth2.Token) (*authkit.User, error) {
	acct, err := f.Adapter.GetAccountByProvider(ctx, p.ID, profile.ExternalID)
	if err == nil {
		user, err := f.Adapter.GetUser(ctx, acct.UserID)
		if err != nil {
			return nil, authkit.NewStorageError("get user", err)
		}
		return user, nil
	}
	if !errors.Is(err, authkit.ErrNotFound) {
		return nil, authkit.NewStorageError("get account by provider", err)
	}

	// Abandoned exchanges must not leave new records behind.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var user *authkit.User
	createdNew := false

	// Only a provider-asserted verified email may claim an existing user;
	// anything weaker would let an attacker link into someone's account.
	if profile.Email != "" && profile.EmailVerified {
		user, err = f.Adapter.GetUserByEmail(ctx, authkit.NormalizeEmail(profile.Email))
		if err != nil && !errors.Is(err, authkit.ErrNotFound) {
			return nil, authkit.NewStorageError("get user by email", err)
		}
	}

	if user == nil {
		user, err = f.Adapter.CreateUser(ctx, &authkit.User{
			Email:         authkit.NormalizeEmail(profile.Email),
			EmailVerified: profile.EmailVerified,
			Name:          profile.Name,
			Image:         profile.Image,
		})
		if err != nil {
			return nil, authkit.NewStorageError("create user", err)
		}
		createdNew = true
	}

	acct = &authkit.Account{
		UserID:            user.ID,
		Provider:          p.ID,
		ProviderAccountID: profile.ExternalID,
		AccessToken:       token.AccessToken,
		RefreshToken:      token.RefreshToken,
		TokenExpiresAt:    token.Expiry,
	}
	if _, err := f.Adapter.LinkAccount(ctx, acct); err != nil {
		if createdNew {
			if delErr := f.Adapter.DeleteUser(context.WithoutCancel(ctx), user.ID); delErr != nil {
				return nil, authkit.NewStorageError("link account (orphan user cleanup also failed)", err)
			}
		}
		return nil, authkit.NewStorageError("link account", err)
	}

	return user, nil
}

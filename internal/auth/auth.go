// Package auth runs the Google OAuth2 authorization-code flow used to obtain
// a read-only YouTube credential for the session.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

// CallbackPath is where the consent screen sends the user back to.
const CallbackPath = "/auth"

// Scopes requested at consent time.
var Scopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	youtube.YoutubeReadonlyScope,
}

// ErrNotConfigured is returned by New when the client credentials are missing.
var ErrNotConfigured = errors.New("oauth client id and secret are required")

// Google implements the browser-redirect OAuth flow against Google.
type Google struct {
	clientID     string
	clientSecret string
	redirectURL  string
	endpoint     oauth2.Endpoint
}

// Option customizes a Google authenticator.
type Option func(*Google)

// WithRedirectURL pins the callback URL instead of deriving it per request.
func WithRedirectURL(u string) Option {
	return func(g *Google) { g.redirectURL = u }
}

// WithEndpoint overrides the authorization server, e.g. for tests.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(g *Google) { g.endpoint = ep }
}

// New returns a Google authenticator for the given OAuth client.
func New(clientID, clientSecret string, opts ...Option) (*Google, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrNotConfigured
	}
	g := &Google{
		clientID:     clientID,
		clientSecret: clientSecret,
		endpoint:     google.Endpoint,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// AuthCodeURL returns the consent URL for r, carrying state.
// Consent is always prompted so a refresh token is issued.
func (g *Google) AuthCodeURL(r *http.Request, state string) string {
	return g.config(r).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a token. The redirect URL must
// match the one used for AuthCodeURL, so it is derived from r the same way.
func (g *Google) Exchange(ctx context.Context, r *http.Request, code string) (*oauth2.Token, error) {
	return g.config(r).Exchange(ctx, code)
}

// TokenSource returns a source that refreshes tok as it expires.
func (g *Google) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return g.config(nil).TokenSource(ctx, tok)
}

func (g *Google) config(r *http.Request) *oauth2.Config {
	redirect := g.redirectURL
	if redirect == "" && r != nil {
		redirect = RedirectURL(r)
	}
	return &oauth2.Config{
		ClientID:     g.clientID,
		ClientSecret: g.clientSecret,
		Endpoint:     g.endpoint,
		RedirectURL:  redirect,
		Scopes:       Scopes,
	}
}

// RedirectURL derives the callback URL from the incoming request. Behind a
// TLS-terminating proxy the request arrives as plain http, so
// X-Forwarded-Proto is honored.
func RedirectURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + CallbackPath
}

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateSession = "oauth-state"
	stateKey     = "state"

	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// ErrStateMismatch is returned when the callback state does not match the
// one issued at the start of the flow.
var ErrStateMismatch = errors.New("oauth state mismatch")

// OAuthConfig configures one OAuth2 provider. Endpoint URLs default to
// Google's.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// Identity is the user returned by a provider.
type Identity struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// OAuth runs the authorization code flow. The state value lives in a signed
// cookie session between the redirect and the callback.
type OAuth struct {
	Provider string

	conf        *oauth2.Config
	userInfoURL string
	sessions    *sessions.CookieStore
}

// NewOAuth creates a Google login flow.
func NewOAuth(cfg OAuthConfig, store *sessions.CookieStore) (*OAuth, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("oauth client id and secret are required")
	}
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	userInfo := cfg.UserInfoURL
	if userInfo == "" {
		userInfo = googleUserInfoURL
	}
	return &OAuth{
		Provider: ProviderGoogle,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: userInfo,
		sessions:    store,
	}, nil
}

// Begin stores a fresh state in the session cookie and returns the provider
// URL to redirect to.
func (o *OAuth) Begin(w http.ResponseWriter, r *http.Request) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating oauth state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	session, _ := o.sessions.Get(r, stateSession)
	session.Values[stateKey] = state
	session.Options.MaxAge = 600
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("saving oauth state: %w", err)
	}
	return o.conf.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Complete checks the state, exchanges the code and fetches the user's
// identity. The state is single use.
func (o *OAuth) Complete(w http.ResponseWriter, r *http.Request) (*Identity, error) {
	session, _ := o.sessions.Get(r, stateSession)
	want, _ := session.Values[stateKey].(string)
	delete(session.Values, stateKey)
	session.Options.MaxAge = -1
	_ = session.Save(r, w)

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return nil, fmt.Errorf("provider returned error: %s", e)
	}
	if want == "" || q.Get("state") != want {
		return nil, ErrStateMismatch
	}
	code := q.Get("code")
	if code == "" {
		return nil, fmt.Errorf("missing authorization code")
	}

	tok, err := o.conf.Exchange(r.Context(), code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}
	return o.fetchIdentity(r.Context(), tok)
}

func (o *OAuth) fetchIdentity(ctx context.Context, tok *oauth2.Token) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching user info: status %d", resp.StatusCode)
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, fmt.Errorf("decoding user info: %w", err)
	}
	id.Email = strings.ToLower(strings.TrimSpace(id.Email))
	if id.Email == "" {
		return nil, fmt.Errorf("provider returned no email")
	}
	if !id.EmailVerified {
		return nil, fmt.Errorf("email %s is not verified", id.Email)
	}
	return &id, nil
}

// NewSessionStore creates the signed cookie store used for OAuth state.
func NewSessionStore(key []byte, secure bool) *sessions.CookieStore {
	s := sessions.NewCookieStore(key)
	s.Options.HttpOnly = true
	s.Options.Secure = secure
	s.Options.SameSite = http.SameSiteLaxMode
	s.Options.Path = "/"
	return s
}

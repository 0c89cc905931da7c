package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

// fakeProvider serves the token and userinfo endpoints.
func fakeProvider(t *testing.T, identity Identity) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(identity)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestOAuth(t *testing.T, srv *httptest.Server) *OAuth {
	t.Helper()
	o, err := NewOAuth(OAuthConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://app.local/api/auth/oauth/google/callback",
		AuthURL:      srv.URL + "/auth",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
	}, NewSessionStore([]byte("0123456789abcdef0123456789abcdef"), false))
	if err != nil {
		t.Fatalf("NewOAuth: %v", err)
	}
	return o
}

// begin runs the first leg and returns the issued state and cookies.
func begin(t *testing.T, o *OAuth) (string, []*http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	redirect, err := o.Begin(rec, httptest.NewRequest("GET", "/api/auth/oauth/google", nil))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	u, err := url.Parse(redirect)
	if err != nil {
		t.Fatalf("parsing redirect: %v", err)
	}
	state := u.Query().Get("state")
	if state == "" {
		t.Fatal("expected state in redirect URL")
	}
	return state, rec.Result().Cookies()
}

func callback(o *OAuth, query string, cookies []*http.Cookie) (*Identity, error) {
	req := httptest.NewRequest("GET", "/api/auth/oauth/google/callback?"+query, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return o.Complete(httptest.NewRecorder(), req)
}

func TestOAuthFlow(t *testing.T) {
	srv := fakeProvider(t, Identity{Email: " Priya@Campus.edu", EmailVerified: true, Name: "Priya"})
	o := newTestOAuth(t, srv)

	state, cookies := begin(t, o)
	id, err := callback(o, "state="+url.QueryEscape(state)+"&code=good-code", cookies)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if id.Email != "priya@campus.edu" || id.Name != "Priya" {
		t.Errorf("unexpected identity %+v", id)
	}
}

func TestOAuthStateMismatch(t *testing.T) {
	srv := fakeProvider(t, Identity{Email: "a@campus.edu", EmailVerified: true})
	o := newTestOAuth(t, srv)

	_, cookies := begin(t, o)
	if _, err := callback(o, "state=forged&code=good-code", cookies); !errors.Is(err, ErrStateMismatch) {
		t.Errorf("expected ErrStateMismatch, got %v", err)
	}
	// No cookie at all.
	if _, err := callback(o, "state=x&code=good-code", nil); !errors.Is(err, ErrStateMismatch) {
		t.Errorf("expected ErrStateMismatch without cookie, got %v", err)
	}
}

func TestOAuthFailures(t *testing.T) {
	srv := fakeProvider(t, Identity{Email: "a@campus.edu", EmailVerified: false})
	o := newTestOAuth(t, srv)

	state, cookies := begin(t, o)
	if _, err := callback(o, "state="+url.QueryEscape(state)+"&code=bad-code", cookies); err == nil {
		t.Error("expected exchange failure for bad code")
	}

	state, cookies = begin(t, o)
	if _, err := callback(o, "state="+url.QueryEscape(state)+"&code=good-code", cookies); err == nil {
		t.Error("expected unverified email to be rejected")
	}

	if _, err := NewOAuth(OAuthConfig{}, nil); err == nil {
		t.Error("expected missing client credentials to fail")
	}
}

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

// fakeGitHub serves the token endpoint and the two API calls Exchange makes.
func fakeGitHub(t *testing.T, user map[string]any, emails []map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_test", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(user)
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(emails)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(srv *httptest.Server) *GitHubProvider {
	return newGitHubProvider("client", "secret", "http://localhost/cb", oauth2.Endpoint{
		AuthURL:  srv.URL + "/login/oauth/authorize",
		TokenURL: srv.URL + "/login/oauth/access_token",
	}, srv.URL)
}

func TestAuthURL(t *testing.T) {
	p := NewGitHubProvider("client-id", "secret", "http://localhost:8080/auth/github/callback")

	u, err := url.Parse(p.AuthURL("state-123"))
	if err != nil {
		t.Fatalf("AuthURL() is not a URL: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "state-123" || q.Get("client_id") != "client-id" {
		t.Errorf("AuthURL() query = %v", q)
	}
	if !strings.Contains(q.Get("scope"), "user:email") {
		t.Errorf("scope = %q, want user:email", q.Get("scope"))
	}
}

func TestExchange_PublicEmail(t *testing.T) {
	srv := fakeGitHub(t, map[string]any{"id": 99, "login": "octo", "email": "octo@example.com"}, nil)

	u, err := testProvider(srv).Exchange(context.Background(), "code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if u.ID != 99 || u.Email != "octo@example.com" || u.DisplayName() != "octo" {
		t.Errorf("Exchange() = %+v", u)
	}
}

func TestExchange_HiddenEmailUsesPrimary(t *testing.T) {
	srv := fakeGitHub(t,
		map[string]any{"id": 5, "login": "quiet", "name": "Quiet Person"},
		[]map[string]any{
			{"email": "old@example.com", "primary": false, "verified": true},
			{"email": "main@example.com", "primary": true, "verified": true},
		},
	)

	u, err := testProvider(srv).Exchange(context.Background(), "code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if u.Email != "main@example.com" {
		t.Errorf("Email = %q, want main@example.com", u.Email)
	}
	if u.DisplayName() != "Quiet Person" {
		t.Errorf("DisplayName() = %q", u.DisplayName())
	}
}

func TestExchange_NoVerifiedEmail(t *testing.T) {
	srv := fakeGitHub(t,
		map[string]any{"id": 5, "login": "quiet"},
		[]map[string]any{{"email": "x@example.com", "primary": true, "verified": false}},
	)

	if _, err := testProvider(srv).Exchange(context.Background(), "code"); err == nil {
		t.Fatal("Exchange() should fail without a verified primary email")
	}
}

func TestExchange_InvalidUser(t *testing.T) {
	srv := fakeGitHub(t, map[string]any{"id": 0}, nil)

	if _, err := testProvider(srv).Exchange(context.Background(), "code"); err == nil {
		t.Fatal("Exchange() should reject ID 0")
	}
}

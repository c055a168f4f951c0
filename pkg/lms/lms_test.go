package lms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(domain string) *Client {
	return NewClient(Config{
		Domain:       domain,
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost/auth/callback",
	})
}

func TestNextPageURL(t *testing.T) {
	link := `<https://canvas.example.edu/api/v1/courses?page=2&per_page=100>; rel="next", ` +
		`<https://canvas.example.edu/api/v1/courses?page=1&per_page=100>; rel="first"`

	next := nextPageURL(link)
	if next != "https://canvas.example.edu/api/v1/courses?page=2&per_page=100" {
		t.Fatalf("unexpected next page: %s", next)
	}

	if nextPageURL(`<https://x>; rel="last"`) != "" {
		t.Fatal("expected empty next page")
	}
	if nextPageURL("") != "" {
		t.Fatal("expected empty next page for empty header")
	}
}

func TestListActiveCoursesPagination(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"id": 2, "name": "Second"}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/courses?page=2>; rel="next"`, server.URL))
		fmt.Fprint(w, `[{"id": 1, "name": "First"}]`)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	courses, err := testClient(server.URL).ListActiveCourses(context.Background(), "token")
	if err != nil {
		t.Fatal(err)
	}
	if len(courses) != 2 {
		t.Fatalf("expected 2 courses across pages, got %d", len(courses))
	}
	if courses[0].ID != 1 || courses[1].ID != 2 {
		t.Fatalf("unexpected course order: %+v", courses)
	}
}

func TestUnauthorizedIsTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "revoked", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient(server.URL).ListActiveCourses(context.Background(), "token")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestOtherStatusIsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testClient(server.URL).ListQuizzes(context.Background(), "token", 101)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", apiErr.Status)
	}
}

func TestExchangeCodePropagatesProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "invalid_grant", "error_description": "authorization code reused"}`)
	}))
	defer server.Close()

	_, err := testClient(server.URL).ExchangeCode(context.Background(), "code")
	var tokenErr *TokenError
	if !errors.As(err, &tokenErr) {
		t.Fatalf("expected TokenError, got %v", err)
	}
	if tokenErr.Status != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", tokenErr.Status)
	}
	if tokenErr.Cause.Code != "invalid_grant" {
		t.Fatalf("unexpected error code %s", tokenErr.Cause.Code)
	}
}

func TestExchangeCodeSendsConfidentialSecret(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Error(err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("unexpected grant_type %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("client_secret") != "secret" {
			t.Errorf("client secret missing from exchange")
		}
		fmt.Fprint(w, `{"access_token": "at", "token_type": "Bearer", "expires_in": 3600,
			"refresh_token": "rt", "user": {"id": 42, "name": "Ada Lovelace"}}`)
	}))
	defer server.Close()

	tokenResponse, err := testClient(server.URL).ExchangeCode(context.Background(), "code")
	if err != nil {
		t.Fatal(err)
	}
	if tokenResponse.AccessToken != "at" || tokenResponse.User.ID != 42 {
		t.Fatalf("unexpected token response: %+v", tokenResponse)
	}
}

func TestFetchProfileRejectsMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"unexpected": true}`)
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchProfile(context.Background(), "token")
	if err == nil {
		t.Fatal("expected validation error for malformed profile")
	}
}

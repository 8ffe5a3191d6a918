package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, nav Navigator) (*Client, *MemoryTokenStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	tokens := NewMemoryTokenStore()
	client, err := New(Config{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Tokens:     tokens,
		Navigator:  nav,
	})
	require.NoError(t, err)
	return client, tokens
}

type recordingNavigator struct {
	path      string
	redirects []string
}

func (n *recordingNavigator) CurrentPath() string  { return n.path }
func (n *recordingNavigator) Redirect(path string) { n.redirects = append(n.redirects, path) }

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func TestNewNormalizesBaseURL(t *testing.T) {
	client, err := New(Config{BaseURL: "https://api.example.com/"})
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/api/v1", client.baseURL)

	client, err = New(Config{BaseURL: "https://api.example.com/api/v1"})
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/api/v1", client.baseURL)

	_, err = New(Config{})
	require.Error(t, err)
}

func TestClientAppendsBasePathAndBearer(t *testing.T) {
	userID := uuid.New()
	var gotPath, gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		writeBody(w, http.StatusOK, fmt.Sprintf(`{"success":true,"data":{"id":%q,"email":"dev@example.com"}}`, userID))
	})
	client, tokens := newTestClient(t, handler, nil)
	tokens.SetTokens("token-1", "refresh-1")

	user, err := client.Auth.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "/api/v1/auth/me", gotPath)
	require.Equal(t, "Bearer token-1", gotAuth)
	require.Equal(t, userID, user.ID)
	require.Equal(t, "dev@example.com", user.Email)
}

func TestClientRefreshesOnceAndReplays(t *testing.T) {
	userID := uuid.New()
	var meCalls, refreshCalls int32
	var refreshBody, refreshAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&meCalls, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeBody(w, http.StatusUnauthorized, `{"success":false,"error":"token expired"}`)
			return
		}
		writeBody(w, http.StatusOK, fmt.Sprintf(`{"success":true,"data":{"id":%q,"email":"dev@example.com"}}`, userID))
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		refreshAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		refreshBody = string(body)
		writeBody(w, http.StatusOK, `{"success":true,"data":{"access_token":"fresh","refresh_token":"refresh-2"}}`)
	})
	client, tokens := newTestClient(t, mux, nil)
	tokens.SetTokens("stale", "refresh-1")

	user, err := client.Auth.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "dev@example.com", user.Email)
	require.EqualValues(t, 1, atomic.LoadInt32(&refreshCalls), "exactly one refresh call")
	require.EqualValues(t, 2, atomic.LoadInt32(&meCalls), "original request replayed once")
	require.Empty(t, refreshAuth, "refresh goes out without a bearer")
	require.JSONEq(t, `{"refresh_token":"refresh-1"}`, refreshBody)
	require.Equal(t, "fresh", tokens.AccessToken())
	require.Equal(t, "refresh-2", tokens.RefreshToken())
}

func TestClientCoalescesConcurrentRefreshes(t *testing.T) {
	userID := uuid.New()
	var refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeBody(w, http.StatusUnauthorized, `{"success":false,"error":"token expired"}`)
			return
		}
		writeBody(w, http.StatusOK, fmt.Sprintf(`{"success":true,"data":{"id":%q,"email":"dev@example.com"}}`, userID))
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		// hold the refresh open so the other callers pile up behind it
		time.Sleep(30 * time.Millisecond)
		writeBody(w, http.StatusOK, `{"success":true,"data":{"access_token":"fresh","refresh_token":"refresh-2"}}`)
	})
	client, tokens := newTestClient(t, mux, nil)
	tokens.SetTokens("stale", "refresh-1")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Auth.Me(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&refreshCalls), "the 401 burst collapses into one refresh")
}

func TestClientRefreshFailureEndsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/career-stories/stats", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusUnauthorized, `{"success":false,"error":"token expired"}`)
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusUnauthorized, `{"success":false,"error":"refresh token expired"}`)
	})
	nav := &recordingNavigator{path: "/dashboard"}
	client, tokens := newTestClient(t, mux, nav)
	tokens.SetTokens("stale", "dead")

	_, err := client.Stories.Stats(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Empty(t, tokens.AccessToken())
	require.Empty(t, tokens.RefreshToken())
	require.Equal(t, []string{"/login"}, nav.redirects)
}

func TestClientRefreshFailureSkipsRedirectOnPublicPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/career-stories/stats", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusUnauthorized, `{"success":false,"error":"token expired"}`)
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusUnauthorized, `{"success":false,"error":"refresh token expired"}`)
	})
	nav := &recordingNavigator{path: "/login"}
	client, tokens := newTestClient(t, mux, nav)
	tokens.SetTokens("stale", "dead")

	_, err := client.Stories.Stats(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Empty(t, tokens.AccessToken(), "tokens are dropped either way")
	require.Empty(t, nav.redirects)
}

func TestClientMissingRefreshTokenEndsSession(t *testing.T) {
	var refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/career-stories/stats", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusUnauthorized, `{"success":false,"error":"token expired"}`)
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		writeBody(w, http.StatusOK, `{"success":true,"data":{"access_token":"fresh","refresh_token":"refresh-2"}}`)
	})
	nav := &recordingNavigator{path: "/timeline"}
	client, tokens := newTestClient(t, mux, nav)
	tokens.SetTokens("stale", "")

	_, err := client.Stories.Stats(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	require.EqualValues(t, 0, atomic.LoadInt32(&refreshCalls), "no refresh call without a refresh token")
	require.Equal(t, []string{"/login"}, nav.redirects)
}

func TestClientClassifiesErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/career-stories/stories", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusUnprocessableEntity,
			`{"success":false,"error":"validation failed","details":[{"field":"title","message":"title is required"}]}`)
	})
	mux.HandleFunc("/api/v1/career-stories/activities/", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusNotFound, `{"success":false,"error":"activity not found"}`)
	})
	mux.HandleFunc("/api/v1/wallet", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	})
	client, tokens := newTestClient(t, mux, nil)
	tokens.SetTokens("token", "refresh")
	ctx := context.Background()

	_, err := client.Stories.CreateStory(ctx, CreateStoryRequest{ClusterID: uuid.New()})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, http.StatusUnprocessableEntity, vErr.Status)
	require.Equal(t, "title is required", vErr.Field("title"))
	require.Empty(t, vErr.Field("body"))
	require.Equal(t, "HTTP 422: validation failed", vErr.Error())

	_, err = client.Stories.Activity(ctx, uuid.New())
	var hErr *HTTPError
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, http.StatusNotFound, hErr.Status)
	require.Equal(t, "HTTP 404: activity not found", hErr.Error())

	_, err = client.Wallet.Balance(ctx)
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, http.StatusInternalServerError, hErr.Status)
	require.Equal(t, "HTTP 500", hErr.Error(), "non-JSON bodies fall back to the bare status")
}

func TestClientWrapsTransportFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	client, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)
	server.Close()

	_, err = client.Wallet.Balance(context.Background())
	require.ErrorIs(t, err, ErrNetwork)
}

func TestClientRejectsUnsuccessfulEnvelope(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, `{"success":false,"message":"feature disabled"}`)
	})
	client, tokens := newTestClient(t, handler, nil)
	tokens.SetTokens("token", "refresh")

	_, err := client.Stories.Clusters(context.Background())
	var hErr *HTTPError
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, http.StatusOK, hErr.Status)
	require.Equal(t, "HTTP 200: feature disabled", hErr.Error())
}

func TestUploadSendsMultipartForm(t *testing.T) {
	var gotContentType, gotKind, gotFile string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeBody(w, http.StatusBadRequest, `{"success":false,"error":"bad form"}`)
			return
		}
		gotKind = r.FormValue("kind")
		file, header, err := r.FormFile("archive")
		if err != nil {
			writeBody(w, http.StatusBadRequest, `{"success":false,"error":"missing file"}`)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotFile = header.Filename + ":" + string(data)
		writeBody(w, http.StatusOK, `{"success":true,"data":{"imported":3}}`)
	})
	client, tokens := newTestClient(t, handler, nil)
	tokens.SetTokens("token", "refresh")

	var out struct {
		Imported int `json:"imported"`
	}
	files := []FilePart{{Field: "archive", FileName: "export.json", Content: []byte(`[{"number":412}]`)}}
	err := client.Upload(context.Background(), "/career-stories/activities/import", files, map[string]string{"kind": "github"}, &out)
	require.NoError(t, err)
	require.Equal(t, 3, out.Imported)
	require.Contains(t, gotContentType, "multipart/form-data")
	require.Equal(t, "github", gotKind)
	require.Equal(t, `export.json:[{"number":412}]`, gotFile)
}

func TestPublicPath(t *testing.T) {
	for _, path := range []string{"/", "/login", "/register", "/about", "/privacy", "/terms"} {
		require.True(t, PublicPath(path), path)
	}
	require.False(t, PublicPath("/dashboard"))
	require.False(t, PublicPath("/login/reset"))
}

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore()
	require.Empty(t, store.AccessToken())

	store.SetTokens("access", "refresh")
	require.Equal(t, "access", store.AccessToken())
	require.Equal(t, "refresh", store.RefreshToken())

	store.Clear()
	require.Empty(t, store.AccessToken())
	require.Empty(t, store.RefreshToken())
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/drivelink/drivelink/internal/config"
	"github.com/drivelink/drivelink/internal/logging"
	"github.com/drivelink/drivelink/internal/models"
)

func newTestClient(t *testing.T, handler nethttp.Handler) (*Client, *config.CredentialStore, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := config.NewCredentialStore(filepath.Join(t.TempDir(), "credentials"))
	if err != nil {
		t.Fatalf("NewCredentialStore() error = %v", err)
	}

	cfg := &config.Config{ServerURL: server.URL, ProxyMode: "no-proxy"}
	client, err := NewClient(cfg, store, logging.NewLogger("test"))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client, store, server
}

func writeJSON(w nethttp.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestAccessTokenAttachedAsBearer(t *testing.T) {
	var gotAuth string
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/api/v1/file", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, nethttp.StatusOK, []models.FileRecord{})
	})

	client, store, _ := newTestClient(t, mux)
	if err := store.Set(models.TokenPair{AccessToken: "T1", RefreshToken: "R1"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := client.ListFiles(context.Background(), ""); err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if gotAuth != "Bearer T1" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer T1")
	}
}

func TestNoTokenSendsUnauthenticatedRequest(t *testing.T) {
	var gotAuth string
	var sawHeader bool
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/api/v1/file", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotAuth = r.Header.Get("Authorization")
		sawHeader = true
		writeJSON(w, nethttp.StatusOK, []models.FileRecord{})
	})

	client, _, _ := newTestClient(t, mux)
	if _, err := client.ListFiles(context.Background(), ""); err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if !sawHeader {
		t.Fatal("server never saw the request")
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty for tokenless client", gotAuth)
	}
}

func TestRefreshEndpointUsesRefreshToken(t *testing.T) {
	var refreshAuth string
	calls := 0
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/api/v1/file", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		calls++
		if calls == 1 {
			writeJSON(w, nethttp.StatusUnauthorized, map[string]string{"message": "token expired"})
			return
		}
		writeJSON(w, nethttp.StatusOK, []models.FileRecord{})
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		refreshAuth = r.Header.Get("Authorization")
		writeJSON(w, nethttp.StatusOK, models.TokenPair{AccessToken: "T2"})
	})

	client, store, _ := newTestClient(t, mux)
	store.Set(models.TokenPair{AccessToken: "T1", RefreshToken: "R1"})

	if _, err := client.ListFiles(context.Background(), ""); err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if refreshAuth != "Bearer R1" {
		t.Errorf("refresh Authorization = %q, want %q", refreshAuth, "Bearer R1")
	}
}

func TestRefreshOn401ReplaysWithNewToken(t *testing.T) {
	var mu sync.Mutex
	var fileAuths []string
	refreshCalls := 0

	mux := nethttp.NewServeMux()
	mux.HandleFunc("/api/v1/file", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		mu.Lock()
		fileAuths = append(fileAuths, r.Header.Get("Authorization"))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer T2" {
			writeJSON(w, nethttp.StatusUnauthorized, map[string]string{"message": "token expired"})
			return
		}
		writeJSON(w, nethttp.StatusOK, []models.FileRecord{{ID: "1", Name: "a.txt"}})
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		mu.Lock()
		refreshCalls++
		mu.Unlock()
		writeJSON(w, nethttp.StatusOK, models.TokenPair{AccessToken: "T2", RefreshToken: "R2"})
	})

	client, store, _ := newTestClient(t, mux)
	store.Set(models.TokenPair{AccessToken: "T1", RefreshToken: "R1"})

	records, err := client.ListFiles(context.Background(), "")
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
	if refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", refreshCalls)
	}
	if len(fileAuths) != 2 || fileAuths[0] != "Bearer T1" || fileAuths[1] != "Bearer T2" {
		t.Errorf("file call auths = %v, want [Bearer T1, Bearer T2]", fileAuths)
	}

	pair := store.Get()
	if pair.AccessToken != "T2" || pair.RefreshToken != "R2" {
		t.Errorf("stored pair = %+v, want rotated tokens", pair)
	}
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	var refreshCalls atomic.Int64

	mux := nethttp.NewServeMux()
	mux.HandleFunc("/api/v1/file", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Header.Get("Authorization") != "Bearer T2" {
			writeJSON(w, nethttp.StatusUnauthorized, map[string]string{"message": "token expired"})
			return
		}
		writeJSON(w, nethttp.StatusOK, []models.FileRecord{})
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		refreshCalls.Add(1)
		writeJSON(w, nethttp.StatusOK, models.TokenPair{AccessToken: "T2"})
	})

	client, store, _ := newTestClient(t, mux)
	store.Set(models.TokenPair{AccessToken: "T1", RefreshToken: "R1"})

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.ListFiles(context.Background(), "")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("request %d error = %v, want nil", i, err)
		}
	}
	// Concurrent 401s may straggle in after a refresh settles, but they
	// must share flights: one expiry never fans out into one refresh per
	// request.
	if got := refreshCalls.Load(); got >= n {
		t.Errorf("refresh calls = %d for %d concurrent requests, want shared flights", got, n)
	}
}

func TestRefreshFailureClearsCredentialsAndNotifies(t *testing.T) {
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/api/v1/file", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusUnauthorized, map[string]string{"message": "token expired"})
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusUnauthorized, map[string]string{"message": "refresh token revoked"})
	})

	client, store, _ := newTestClient(t, mux)
	store.Set(models.TokenPair{AccessToken: "T1", RefreshToken: "R1"})

	expired := false
	client.SetSessionExpiredHandler(func() { expired = true })

	_, err := client.ListFiles(context.Background(), "")
	if err == nil {
		t.Fatal("ListFiles() error = nil, want authentication failure")
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
	if !expired {
		t.Error("session expired handler was not invoked")
	}

	pair := store.Get()
	if pair.AccessToken != "" || pair.RefreshToken != "" {
		t.Errorf("stored pair = %+v, want cleared", pair)
	}
}

func TestLogin401DoesNotTriggerRefresh(t *testing.T) {
	refreshCalled := false
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		refreshCalled = true
		writeJSON(w, nethttp.StatusOK, models.TokenPair{AccessToken: "T2"})
	})

	client, _, _ := newTestClient(t, mux)

	_, err := client.Login(context.Background(), models.Credentials{Email: "a@b.com", Password: "wrong"})
	if err == nil {
		t.Fatal("Login() error = nil, want invalid credentials failure")
	}
	if err.Error() != "invalid credentials" {
		t.Errorf("error message = %q, want server-provided %q", err.Error(), "invalid credentials")
	}
	if refreshCalled {
		t.Error("login 401 must not enter the refresh protocol")
	}
}

func TestLoginWithStaleTokenStaysAnonymous(t *testing.T) {
	var loginAuth string
	refreshCalled := false
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		loginAuth = r.Header.Get("Authorization")
		writeJSON(w, nethttp.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		refreshCalled = true
		writeJSON(w, nethttp.StatusOK, models.TokenPair{AccessToken: "T2"})
	})

	client, store, _ := newTestClient(t, mux)
	store.Set(models.TokenPair{AccessToken: "stale", RefreshToken: "R1"})

	_, err := client.Login(context.Background(), models.Credentials{Email: "a@b.com", Password: "wrong"})
	if err == nil {
		t.Fatal("Login() error = nil, want invalid credentials failure")
	}
	if err.Error() != "invalid credentials" {
		t.Errorf("error message = %q, want server-provided %q", err.Error(), "invalid credentials")
	}
	if loginAuth != "" {
		t.Errorf("login Authorization = %q, want none despite stored tokens", loginAuth)
	}
	if refreshCalled {
		t.Error("bad-password 401 entered the refresh protocol")
	}
}

func TestErrorTaxonomyFromStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", nethttp.StatusUnauthorized, ErrUnauthorized},
		{"validation", nethttp.StatusBadRequest, ErrValidation},
		{"not found", nethttp.StatusNotFound, ErrNotFound},
		{"server", nethttp.StatusInternalServerError, ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := nethttp.NewServeMux()
			mux.HandleFunc("/api/v1/auth/login", func(w nethttp.ResponseWriter, r *nethttp.Request) {
				writeJSON(w, tt.status, map[string]string{"message": "nope"})
			})

			client, _, _ := newTestClient(t, mux)
			_, err := client.Login(context.Background(), models.Credentials{})
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want errors.Is(%v)", err, tt.want)
			}
		})
	}
}

func TestProgressReaderRewindResetsFraction(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 100)
	var fractions []float64
	reader := &progressReader{
		r:      bytes.NewReader(payload),
		total:  int64(len(payload)),
		report: func(f float64) { fractions = append(fractions, f) },
	}

	if _, err := io.Copy(io.Discard, reader); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if len(fractions) == 0 || fractions[len(fractions)-1] != 1.0 {
		t.Fatalf("fractions = %v, want final 1.0", fractions)
	}

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	fractions = nil
	buf := make([]byte, 10)
	if _, err := reader.Read(buf); err != nil {
		t.Fatalf("Read() after rewind error = %v", err)
	}
	if len(fractions) != 1 || fractions[0] != 0.1 {
		t.Errorf("fractions after rewind = %v, want [0.1]", fractions)
	}
}

func TestUploadProgressFollowsTransportReads(t *testing.T) {
	mux := nethttp.NewServeMux()
	mux.HandleFunc("/api/v1/file", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		io.Copy(io.Discard, r.Body)
		writeJSON(w, nethttp.StatusCreated, models.FileRecord{ID: "1", Name: "a.bin"})
	})

	client, _, _ := newTestClient(t, mux)

	var mu sync.Mutex
	var fractions []float64
	content := bytes.NewReader(bytes.Repeat([]byte("d"), 256*1024))
	record, err := client.UploadFile(context.Background(), "a.bin", content, nil, func(f float64) {
		mu.Lock()
		fractions = append(fractions, f)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if record.ID != "1" {
		t.Errorf("record ID = %q, want %q", record.ID, "1")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(fractions) == 0 {
		t.Fatal("no progress reported during upload")
	}
	for i := 1; i < len(fractions); i++ {
		if fractions[i] < fractions[i-1] {
			t.Fatalf("progress regressed within one attempt: %v then %v", fractions[i-1], fractions[i])
		}
	}
	if last := fractions[len(fractions)-1]; last != 1.0 {
		t.Errorf("final progress = %v, want 1.0", last)
	}
}

func TestShareURLIsPublicViewLink(t *testing.T) {
	client, _, server := newTestClient(t, nethttp.NewServeMux())

	want := server.URL + "/api/v1/file/abc123/view"
	if got := client.ShareURL("abc123"); got != want {
		t.Errorf("ShareURL() = %q, want %q", got, want)
	}
}

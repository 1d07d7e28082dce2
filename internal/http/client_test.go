package http

import (
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/drivelink/drivelink/internal/config"
	"github.com/drivelink/drivelink/internal/logging"
)

func TestConfigureHTTPClientProxyModes(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		wantErr bool
	}{
		{"no-proxy", &config.Config{ProxyMode: "no-proxy"}, false},
		{"empty defaults to no-proxy", &config.Config{}, false},
		{"system", &config.Config{ProxyMode: "system"}, false},
		{"basic with host", &config.Config{ProxyMode: "basic", ProxyHost: "proxy.local", ProxyPort: 3128}, false},
		{"basic without host", &config.Config{ProxyMode: "basic"}, true},
		{"ntlm with host", &config.Config{ProxyMode: "ntlm", ProxyHost: "proxy.local"}, false},
		{"ntlm without host", &config.Config{ProxyMode: "ntlm"}, true},
		{"unknown mode", &config.Config{ProxyMode: "socks5"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := ConfigureHTTPClient(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ConfigureHTTPClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && client == nil {
				t.Fatal("ConfigureHTTPClient() returned nil client")
			}
		})
	}
}

func TestRetryClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		calls.Add(1)
		w.WriteHeader(nethttp.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewRetryClient(&config.Config{ProxyMode: "no-proxy"}, logging.NewLogger("test"))
	if err != nil {
		t.Fatalf("NewRetryClient() error = %v", err)
	}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != nethttp.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1 (4xx must not retry)", got)
	}
}

func TestRetryClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(nethttp.StatusBadGateway)
			return
		}
		w.WriteHeader(nethttp.StatusOK)
	}))
	defer server.Close()

	client, err := NewRetryClient(&config.Config{ProxyMode: "no-proxy"}, logging.NewLogger("test"))
	if err != nil {
		t.Fatalf("NewRetryClient() error = %v", err)
	}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		t.Errorf("status = %d, want 200 after retry", resp.StatusCode)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d calls, want 2", got)
	}
}

func TestProxyFuncBypassesNoProxyHosts(t *testing.T) {
	proxyURL := &url.URL{Scheme: "http", Host: "proxy.local:3128"}
	proxyFunc := proxyFuncWithBypass(proxyURL, "internal.example.com")

	direct, _ := nethttp.NewRequest(nethttp.MethodGet, "https://internal.example.com/path", nil)
	got, err := proxyFunc(direct)
	if err != nil {
		t.Fatalf("proxyFunc() error = %v", err)
	}
	if got != nil {
		t.Errorf("proxy for bypassed host = %v, want nil", got)
	}

	proxied, _ := nethttp.NewRequest(nethttp.MethodGet, "https://files.example.com/path", nil)
	got, err = proxyFunc(proxied)
	if err != nil {
		t.Fatalf("proxyFunc() error = %v", err)
	}
	if got == nil || got.Host != "proxy.local:3128" {
		t.Errorf("proxy for external host = %v, want proxy.local:3128", got)
	}
}

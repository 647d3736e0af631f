package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "Test-Crawler/1.0" {
			t.Errorf("Expected User-Agent 'Test-Crawler/1.0', got '%s'", ua)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		// Add delay to test TTFB
		time.Sleep(50 * time.Millisecond)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body>Test Page</body></html>"))
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 30*time.Second, 0)
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Failed to get URL: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Expected status code 200, got %d", resp.StatusCode)
	}
	if resp.ContentType != "text/html; charset=utf-8" {
		t.Errorf("Expected content type 'text/html; charset=utf-8', got '%s'", resp.ContentType)
	}
	if resp.Metrics.TTFB < 50*time.Millisecond {
		t.Errorf("TTFB should be at least 50ms, got %v", resp.Metrics.TTFB)
	}
	if resp.Metrics.DownloadTime < resp.Metrics.TTFB {
		t.Errorf("Download time should be greater than TTFB")
	}
	if resp.Truncated {
		t.Errorf("Expected body not to be truncated")
	}

	expectedBody := "<html><body>Test Page</body></html>"
	if string(resp.Body) != expectedBody {
		t.Errorf("Expected body '%s', got '%s'", expectedBody, string(resp.Body))
	}
}

func TestHTTPClientRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/final" {
			http.Redirect(w, r, "/final", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Final page"))
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 30*time.Second, 0)
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL+"/start")
	if err != nil {
		t.Fatalf("Failed to get URL: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status code 200, got %d", resp.StatusCode)
	}
	if resp.FinalURL != server.URL+"/final" {
		t.Errorf("Expected final URL '%s', got '%s'", server.URL+"/final", resp.FinalURL)
	}
}

func TestHTTPClientRedirectLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n int
		_, _ = fmt.Sscanf(r.URL.Path, "/hop/%d", &n)
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", n+1), http.StatusFound)
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 30*time.Second, 0)
	defer client.Close()

	_, err := client.Get(context.Background(), server.URL+"/hop/0")
	if err == nil {
		t.Fatal("Expected redirect loop to fail")
	}
	if !strings.Contains(err.Error(), "too many redirects") {
		t.Errorf("Expected too many redirects error, got %v", err)
	}
}

func TestHTTPClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 1*time.Second, 0)
	defer client.Close()

	if _, err := client.Get(context.Background(), server.URL); err == nil {
		t.Errorf("Expected timeout error, got nil")
	}
}

func TestHTTPClientBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 30*time.Second, 64)
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Failed to get URL: %v", err)
	}
	if len(resp.Body) != 64 {
		t.Errorf("Expected body cut to 64 bytes, got %d", len(resp.Body))
	}
	if !resp.Truncated {
		t.Errorf("Expected Truncated to be set")
	}
}

func TestHTTPClientFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>Page</body></html>"))
		case "/sniffed":
			w.Header()["Content-Type"] = nil
			_, _ = w.Write([]byte("<!DOCTYPE html><html><body>Sniffed</body></html>"))
		case "/data.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case "/moved":
			http.Redirect(w, r, "/page", http.StatusMovedPermanently)
		default:
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("<html><body>Not Found</body></html>"))
		}
	}))
	defer server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 30*time.Second, 0)
	defer client.Close()

	tests := []struct {
		name     string
		path     string
		status   int
		finalURL string
		hasBody  bool
	}{
		{"HTML page", "/page", 200, "/page", true},
		{"Sniffed HTML", "/sniffed", 200, "/sniffed", true},
		{"Non-HTML body absent", "/data.json", 200, "/data.json", false},
		{"Redirect followed", "/moved", 200, "/page", true},
		{"Not found keeps body", "/missing", 404, "/missing", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := client.Fetch(context.Background(), server.URL+tt.path)
			if res.Error != "" {
				t.Fatalf("Unexpected fetch error: %s", res.Error)
			}
			if res.Status != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, res.Status)
			}
			if res.URL != server.URL+tt.path {
				t.Errorf("Expected URL %s, got %s", server.URL+tt.path, res.URL)
			}
			if res.FinalURL != server.URL+tt.finalURL {
				t.Errorf("Expected final URL %s, got %s", server.URL+tt.finalURL, res.FinalURL)
			}
			if (res.Body != nil) != tt.hasBody {
				t.Errorf("Expected body present=%v, got %q", tt.hasBody, res.Body)
			}
		})
	}
}

func TestHTTPClientFetchNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	client := NewHTTPClient("Test-Crawler/1.0", 5*time.Second, 0)
	defer client.Close()

	res := client.Fetch(context.Background(), addr)
	if res.Status != 0 {
		t.Errorf("Expected status 0 on network error, got %d", res.Status)
	}
	if res.Error == "" {
		t.Errorf("Expected error message to be set")
	}
	if res.Body != nil {
		t.Errorf("Expected absent body, got %q", res.Body)
	}
}

func TestIsHTML(t *testing.T) {
	tests := []struct {
		contentType string
		body        string
		expected    bool
	}{
		{"text/html", "", true},
		{"text/html; charset=utf-8", "", true},
		{"TEXT/HTML", "", true},
		{"application/xhtml+xml", "", true},
		{"application/pdf", "%PDF-1.4", false},
		{"text/plain", "<html>", false},
		{"", "<html><body>x</body></html>", true},
		{"", "plain words", false},
		{"", "", false},
	}

	for _, tt := range tests {
		if got := isHTML(tt.contentType, []byte(tt.body)); got != tt.expected {
			t.Errorf("isHTML(%q, %q) = %v, expected %v", tt.contentType, tt.body, got, tt.expected)
		}
	}
}

package sms

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp/entity"
	"github.com/shandysiswandi/phoneverify/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneverify/internal/pkg/uid"
)

const lookupOK = `{"return":{"status":200,"message":"ok"},"entries":[{"messageid":8792343,"status":5}]}`

func liveConfig(baseURL string) Config {
	return Config{
		Provider:    ProviderLookup,
		BaseURL:     baseURL,
		APIKey:      "key-123",
		Template:    "verify",
		Timeout:     time.Second,
		MaxRetry:    3,
		BackoffBase: time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
	}
}

func newGateway(t *testing.T, cfg Config) *Gateway {
	t.Helper()

	g, err := New(cfg, instrument.NewNoop(), uid.NewUUID())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = g.Close() })

	return g
}

func TestGateway_Send_RetriesTransientThenSucceeds(t *testing.T) {
	// Arrange
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, lookupOK)
	}))
	defer srv.Close()

	g := newGateway(t, liveConfig(srv.URL))

	// Act
	res := g.Send(context.Background(), "989121958296", "123456")

	// Assert
	if !res.Success {
		t.Fatalf("Send() failed: %v", res.Err)
	}
	if res.Attempts != 3 || hits.Load() != 3 {
		t.Fatalf("attempts = %d, hits = %d, want 3 and 3", res.Attempts, hits.Load())
	}
	if res.MessageID != "8792343" {
		t.Fatalf("MessageID = %q, want 8792343", res.MessageID)
	}
	if s := g.Stats(); s.Attempts != 3 || s.Delivered != 1 || s.Failed != 0 {
		t.Fatalf("Stats() = %+v", s)
	}
}

func TestGateway_Send_TransientExhaustsRetries(t *testing.T) {
	// Arrange
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := newGateway(t, liveConfig(srv.URL))

	// Act
	res := g.Send(context.Background(), "989121958296", "123456")

	// Assert
	if res.Success {
		t.Fatalf("Send() succeeded, want failure")
	}
	if hits.Load() != 3 || res.Attempts != 3 {
		t.Fatalf("hits = %d attempts = %d, want 3", hits.Load(), res.Attempts)
	}
	if res.Class != entity.ErrorClassTransient {
		t.Fatalf("Class = %v, want TRANSIENT", res.Class)
	}
	var de *Error
	if !errors.As(res.Err, &de) || de.Status != http.StatusTooManyRequests {
		t.Fatalf("Err = %v, want last *Error with status 429", res.Err)
	}
}

func TestGateway_Send_TerminalNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "bad request", status: http.StatusBadRequest, body: `{"return":{"status":400,"message":"bad receptor"}}`},
		{name: "unauthorized", status: http.StatusUnauthorized, body: "denied"},
		{name: "envelope rejection", status: http.StatusOK, body: `{"return":{"status":411,"message":"invalid receptor"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			g := newGateway(t, liveConfig(srv.URL))

			// Act
			res := g.Send(context.Background(), "989121958296", "123456")

			// Assert
			if res.Success || res.Class != entity.ErrorClassTerminal {
				t.Fatalf("result = %+v, want terminal failure", res)
			}
			if hits.Load() != 1 {
				t.Fatalf("hits = %d, want 1", hits.Load())
			}
		})
	}
}

func TestGateway_Send_AttemptTimeoutIsTransient(t *testing.T) {
	// Arrange
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		_, _ = io.WriteString(w, lookupOK)
	}))
	defer srv.Close()

	cfg := liveConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	g := newGateway(t, cfg)

	// Act
	res := g.Send(context.Background(), "989121958296", "123456")

	// Assert
	if !res.Success || res.Attempts != 2 {
		t.Fatalf("result = %+v, want success on attempt 2", res)
	}
}

func TestGateway_Send_CanceledContextStops(t *testing.T) {
	// Arrange
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := newGateway(t, liveConfig(srv.URL))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	res := g.Send(ctx, "989121958296", "123456")

	// Assert
	if res.Success {
		t.Fatalf("Send() succeeded on a canceled context")
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("Err = %v, want context.Canceled", res.Err)
	}
	if hits.Load() != 0 {
		t.Fatalf("hits = %d, want 0", hits.Load())
	}
}

func TestGateway_Send_LookupRequestShape(t *testing.T) {
	// Arrange
	var (
		gotPath string
		gotForm url.Values
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = r.ParseForm()
		gotForm = r.PostForm
		_, _ = io.WriteString(w, lookupOK)
	}))
	defer srv.Close()

	g := newGateway(t, liveConfig(srv.URL+"/v1/"))

	// Act
	res := g.Send(context.Background(), "989121958296", "654321")

	// Assert
	if !res.Success {
		t.Fatalf("Send() failed: %v", res.Err)
	}
	if gotPath != "/v1/key-123/verify/lookup.json" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotForm.Get("receptor") != "989121958296" || gotForm.Get("token") != "654321" || gotForm.Get("template") != "verify" {
		t.Fatalf("form = %v", gotForm)
	}
}

func TestGateway_Send_JSONProvider(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantOK    bool
		wantID    string
		wantClass entity.ErrorClass
		wantHits  int32
	}{
		{name: "message_id", status: 200, body: `{"success":true,"message_id":"m-1"}`, wantOK: true, wantID: "m-1", wantHits: 1},
		{name: "id alias", status: 202, body: `{"id":42}`, wantOK: true, wantID: "42", wantHits: 1},
		{name: "messageId alias", status: 200, body: `{"messageId":"abc"}`, wantOK: true, wantID: "abc", wantHits: 1},
		{name: "non json accepted", status: 200, body: `queued`, wantOK: true, wantHits: 1},
		{name: "rejected", status: 200, body: `{"success":false,"error":{"code":"invalid_number","message":"bad"}}`, wantClass: entity.ErrorClassTerminal, wantHits: 1},
		{name: "throttled", status: 200, body: `{"success":false,"error":{"code":"THROTTLED","message":"slow down"}}`, wantClass: entity.ErrorClassTransient, wantHits: 3},
		{name: "retryable flag", status: 200, body: `{"error":{"code":9,"retryable":true}}`, wantClass: entity.ErrorClassTransient, wantHits: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				if r.Header.Get("Authorization") != "Bearer key-123" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				body, _ := io.ReadAll(r.Body)
				if !strings.Contains(string(body), `"parameters":{"code":"123456"}`) {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			cfg := liveConfig(srv.URL)
			cfg.Provider = ProviderJSON
			g := newGateway(t, cfg)

			// Act
			res := g.Send(context.Background(), "989121958296", "123456")

			// Assert
			if res.Success != tt.wantOK {
				t.Fatalf("Success = %v, want %v (err %v)", res.Success, tt.wantOK, res.Err)
			}
			if res.MessageID != tt.wantID {
				t.Fatalf("MessageID = %q, want %q", res.MessageID, tt.wantID)
			}
			if !tt.wantOK && res.Class != tt.wantClass {
				t.Fatalf("Class = %v, want %v", res.Class, tt.wantClass)
			}
			if hits.Load() != tt.wantHits {
				t.Fatalf("hits = %d, want %d", hits.Load(), tt.wantHits)
			}
		})
	}
}

func TestGateway_Send_ProxyRotation(t *testing.T) {
	// Arrange
	var (
		mu      sync.Mutex
		indexes []int
	)
	// A forward proxy for plain HTTP sees absolute request URIs; it answers
	// itself and records which pool index the credentials point at.
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := strings.TrimPrefix(r.Header.Get("Proxy-Authorization"), "Basic ")
		raw, _ := base64.StdEncoding.DecodeString(auth)
		user, _, _ := strings.Cut(string(raw), ":")
		idx, err := strconv.Atoi(strings.TrimPrefix(user, "pool"))
		if err != nil || !r.URL.IsAbs() {
			w.WriteHeader(http.StatusProxyAuthRequired)
			return
		}
		mu.Lock()
		indexes = append(indexes, idx)
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer proxy.Close()

	cfg := liveConfig("http://sms.invalid")
	cfg.MaxRetry = 5
	cfg.UseProxy = true
	cfg.ProxyPoolMin = 3
	cfg.ProxyPoolMax = 6
	cfg.ProxyURLTemplate = "http://pool%d:secret@" + strings.TrimPrefix(proxy.URL, "http://")
	g := newGateway(t, cfg)

	// Act
	for range 4 {
		_ = g.Send(context.Background(), "989121958296", "123456")
	}

	// Assert
	mu.Lock()
	defer mu.Unlock()
	if len(indexes) != 20 {
		t.Fatalf("proxied attempts = %d, want 20", len(indexes))
	}
	for _, idx := range indexes {
		if idx < 3 || idx > 6 {
			t.Fatalf("proxy index %d outside [3,6]", idx)
		}
	}
}

func TestClientPool_PickUsesInjectedIndex(t *testing.T) {
	// Arrange
	cfg := liveConfig("https://sms.example.com")
	cfg.UseProxy = true
	cfg.ProxyPoolMin = 10
	cfg.ProxyPoolMax = 12
	cfg.ProxyURLTemplate = "http://proxy-%d.internal:3128"
	pool, err := newClientPool(cfg)
	if err != nil {
		t.Fatalf("newClientPool() error = %v", err)
	}
	pool.intn = func(n int) int { return n - 1 }

	// Act
	c1, idx, err := pool.pick()
	c2, _, _ := pool.pick()

	// Assert
	if err != nil || idx != 12 {
		t.Fatalf("pick() = %d, %v; want 12", idx, err)
	}
	if c1 != c2 {
		t.Fatalf("pick() built a second client for the same index")
	}
	tr := c1.Transport.(*http.Transport)
	if tr.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("TLS verification must stay on")
	}
	u, _ := tr.Proxy(httptest.NewRequest(http.MethodGet, "https://sms.example.com", nil))
	if u == nil || u.Host != "proxy-12.internal:3128" {
		t.Fatalf("proxy = %v, want proxy-12.internal:3128", u)
	}
}

func TestGateway_MockMode(t *testing.T) {
	// Arrange
	g := newGateway(t, Config{MockMode: true})

	// Act
	res := g.Send(context.Background(), "989121958296", "777111")

	// Assert
	if !res.Success || !strings.HasPrefix(res.MessageID, "mock-") {
		t.Fatalf("result = %+v, want mock success", res)
	}
	code, ok := g.Mock().LastCode("989121958296")
	if !ok || code != "777111" {
		t.Fatalf("LastCode() = %q, %v", code, ok)
	}
	if g.Mock().Sent() != 1 {
		t.Fatalf("Sent() = %d, want 1", g.Mock().Sent())
	}
}

func TestNew_ConfigErrors(t *testing.T) {
	dir := t.TempDir()
	badCA := filepath.Join(dir, "bad.pem")
	if err := os.WriteFile(badCA, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}

	base := liveConfig("https://sms.example.com")
	tests := []struct {
		name string
		mod  func(c *Config)
	}{
		{name: "missing api key", mod: func(c *Config) { c.APIKey = "" }},
		{name: "missing base url", mod: func(c *Config) { c.BaseURL = " " }},
		{name: "relative base url", mod: func(c *Config) { c.BaseURL = "sms.example.com" }},
		{name: "missing template", mod: func(c *Config) { c.Template = "" }},
		{name: "unknown provider", mod: func(c *Config) { c.Provider = "carrier-pigeon" }},
		{name: "template without index", mod: func(c *Config) {
			c.UseProxy, c.ProxyPoolMax, c.ProxyURLTemplate = true, 2, "http://proxy:3128"
		}},
		{name: "inverted pool", mod: func(c *Config) {
			c.UseProxy, c.ProxyPoolMin, c.ProxyPoolMax, c.ProxyURLTemplate = true, 5, 1, "http://proxy-%d:3128"
		}},
		{name: "missing ca file", mod: func(c *Config) { c.CAFile = filepath.Join(dir, "nope.pem") }},
		{name: "unparsable ca file", mod: func(c *Config) { c.CAFile = badCA }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cfg := base
			tt.mod(&cfg)

			// Act
			_, err := New(cfg, instrument.NewNoop(), uid.NewUUID())

			// Assert
			if !errors.Is(err, entity.ErrConfig) {
				t.Fatalf("New() error = %v, want ErrConfig", err)
			}
		})
	}

	t.Run("mock mode skips live checks", func(t *testing.T) {
		if _, err := New(Config{MockMode: true}, instrument.NewNoop(), uid.NewUUID()); err != nil {
			t.Fatalf("New() error = %v", err)
		}
	})
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		err  error
		want entity.ErrorClass
	}{
		{err: nil, want: entity.ErrorClassNone},
		{err: &Error{Class: entity.ErrorClassTransient}, want: entity.ErrorClassTransient},
		{err: fmt.Errorf("wrap: %w", &Error{Class: entity.ErrorClassTerminal}), want: entity.ErrorClassTerminal},
		{err: context.DeadlineExceeded, want: entity.ErrorClassTransient},
		{err: entity.ErrConfig, want: entity.ErrorClassConfig},
		{err: errors.New("boom"), want: entity.ErrorClassTerminal},
	}
	for _, tt := range tests {
		if got := ClassOf(tt.err); got != tt.want {
			t.Errorf("ClassOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}

	for code, want := range map[int]entity.ErrorClass{
		200: entity.ErrorClassNone, 408: entity.ErrorClassTransient, 425: entity.ErrorClassTransient,
		429: entity.ErrorClassTransient, 500: entity.ErrorClassTransient, 503: entity.ErrorClassTransient,
		400: entity.ErrorClassTerminal, 401: entity.ErrorClassTerminal, 404: entity.ErrorClassTerminal,
	} {
		if got := statusClass(code); got != want {
			t.Errorf("statusClass(%d) = %v, want %v", code, got, want)
		}
	}
}

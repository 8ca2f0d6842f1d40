package sms

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp/entity"
)

const directIndex = -1

// clientPool hands out one HTTP client per proxy index so keep-alive
// connections through the same proxy are reused across attempts.
type clientPool struct {
	tls      *tls.Config
	template string
	min, max int
	useProxy bool
	intn     func(n int) int

	mu      sync.Mutex
	clients map[int]*http.Client
}

func newClientPool(cfg Config) (*clientPool, error) {
	tlsCfg, err := tlsConfig(cfg.CAFile)
	if err != nil {
		return nil, err
	}

	return &clientPool{
		tls:      tlsCfg,
		template: cfg.ProxyURLTemplate,
		min:      cfg.ProxyPoolMin,
		max:      cfg.ProxyPoolMax,
		useProxy: cfg.UseProxy,
		intn:     rand.IntN,
		clients:  map[int]*http.Client{},
	}, nil
}

// pick returns the client for this attempt and the proxy index it routes
// through, or directIndex without a proxy.
func (p *clientPool) pick() (*http.Client, int, error) {
	idx := directIndex
	if p.useProxy {
		idx = p.min + p.intn(p.max-p.min+1)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[idx]; ok {
		return c, idx, nil
	}

	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSClientConfig:       p.tls.Clone(),
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	if idx != directIndex {
		u, err := proxyURL(p.template, idx)
		if err != nil {
			return nil, idx, err
		}
		tr.Proxy = http.ProxyURL(u)
	}

	c := &http.Client{Transport: tr}
	p.clients[idx] = c

	return c, idx, nil
}

func (p *clientPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.clients {
		c.CloseIdleConnections()
	}
}

func proxyURL(template string, idx int) (*url.URL, error) {
	raw := fmt.Sprintf(template, idx)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("proxy url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy url %q is not absolute", raw)
	}

	return u, nil
}

// tlsConfig keeps certificate verification on. A CA file, when given, is
// appended to the system roots rather than replacing them.
func tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}

	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read ca file: %w", entity.ErrConfig, err)
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%w: %w", entity.ErrConfig, errors.New("ca file has no usable certificates"))
	}
	cfg.RootCAs = pool

	return cfg, nil
}

package sms

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp/entity"
)

const (
	ProviderLookup = "lookup"
	ProviderJSON   = "json"

	DefaultTimeout     = 15 * time.Second
	DefaultMaxRetry    = 3
	DefaultBackoffBase = 500 * time.Millisecond
	DefaultBackoffMax  = 4 * time.Second
)

// Config drives the delivery gateway.
type Config struct {
	// MockMode disables the network entirely and captures codes in memory.
	MockMode bool
	// Provider selects the request/response shape: lookup or json.
	Provider string
	BaseURL  string
	APIKey   string
	Template string
	Sender   string

	// Timeout bounds a single attempt.
	Timeout time.Duration
	// MaxRetry is the total number of attempts, including the first.
	MaxRetry    int
	BackoffBase time.Duration
	BackoffMax  time.Duration

	UseProxy         bool
	ProxyPoolMin     int
	ProxyPoolMax     int
	ProxyURLTemplate string
	// CAFile is a PEM bundle appended to the system roots.
	CAFile string
}

func (c Config) withDefaults() Config {
	if c.Provider == "" {
		c.Provider = ProviderLookup
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetry < 1 {
		c.MaxRetry = DefaultMaxRetry
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.BackoffMax < c.BackoffBase {
		c.BackoffMax = max(DefaultBackoffMax, c.BackoffBase)
	}

	return c
}

func (c Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "api key")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		missing = append(missing, "base url")
	}
	if strings.TrimSpace(c.Template) == "" {
		missing = append(missing, "template")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: sms live mode requires %s", entity.ErrConfig, strings.Join(missing, ", "))
	}

	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: sms base url %q is not absolute", entity.ErrConfig, c.BaseURL)
	}

	switch c.Provider {
	case ProviderLookup, ProviderJSON:
	default:
		return fmt.Errorf("%w: unknown sms provider %q", entity.ErrConfig, c.Provider)
	}

	if c.UseProxy {
		if !strings.Contains(c.ProxyURLTemplate, "%d") {
			return fmt.Errorf("%w: proxy url template must contain %%d", entity.ErrConfig)
		}
		if c.ProxyPoolMin < 0 || c.ProxyPoolMin > c.ProxyPoolMax {
			return fmt.Errorf("%w: proxy pool range [%d,%d] is invalid", entity.ErrConfig, c.ProxyPoolMin, c.ProxyPoolMax)
		}
		for _, idx := range []int{c.ProxyPoolMin, c.ProxyPoolMax} {
			if _, err := proxyURL(c.ProxyURLTemplate, idx); err != nil {
				return fmt.Errorf("%w: %w", entity.ErrConfig, err)
			}
		}
	}

	if c.CAFile != "" {
		if _, err := os.Stat(c.CAFile); err != nil {
			return fmt.Errorf("%w: ca file: %w", entity.ErrConfig, err)
		}
	}

	return nil
}

// LatencyBound is the longest a single Send can take in live mode.
func (c Config) LatencyBound() time.Duration {
	if c.MockMode {
		return 0
	}
	c = c.withDefaults()

	return time.Duration(c.MaxRetry) * (c.Timeout + c.BackoffMax)
}

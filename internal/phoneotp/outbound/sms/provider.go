package sms

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Provider builds the request for one SMS API and turns its response into a
// message id or a classified *Error.
type Provider interface {
	Name() string
	NewRequest(ctx context.Context, phone, code string) (*http.Request, error)
	Parse(status int, body []byte) (string, error)
}

func newProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderLookup:
		return &lookupProvider{baseURL: cfg.BaseURL, apiKey: cfg.APIKey, template: cfg.Template}, nil
	case ProviderJSON:
		return &jsonProvider{baseURL: cfg.BaseURL, apiKey: cfg.APIKey, template: cfg.Template, sender: cfg.Sender}, nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.Provider)
	}
}

// flexID accepts an identifier sent either as a JSON string or a number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	*f = flexID(b)

	return nil
}

func firstID(ids ...flexID) string {
	for _, id := range ids {
		if s := strings.TrimSpace(string(id)); s != "" {
			return s
		}
	}

	return ""
}

// snippet keeps error messages readable when a provider answers with HTML.
func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	if s == "" {
		return "empty response"
	}

	return s
}

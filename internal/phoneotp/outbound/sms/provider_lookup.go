package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp/entity"
)

// lookupProvider talks to template verify-lookup APIs of the form
// POST {base}/{apiKey}/verify/lookup.json.
type lookupProvider struct {
	baseURL  string
	apiKey   string
	template string
}

type lookupEnvelope struct {
	Return struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"return"`
	Entries []struct {
		MessageID flexID `json:"messageid"`
	} `json:"entries"`
}

func (*lookupProvider) Name() string { return ProviderLookup }

func (p *lookupProvider) NewRequest(ctx context.Context, phone, code string) (*http.Request, error) {
	endpoint := strings.TrimRight(p.baseURL, "/") + "/" + url.PathEscape(p.apiKey) + "/verify/lookup.json"

	form := url.Values{
		"receptor": {phone},
		"token":    {code},
		"template": {p.template},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return req, nil
}

func (p *lookupProvider) Parse(status int, body []byte) (string, error) {
	var env lookupEnvelope
	decoded := json.Unmarshal(body, &env) == nil

	if class := statusClass(status); class != entity.ErrorClassNone {
		msg := snippet(body)
		if decoded && env.Return.Message != "" {
			msg = env.Return.Message
		}
		return "", &Error{Class: class, Status: status, Provider: p.Name(), Msg: msg}
	}

	// A 2xx without a recognizable envelope is still an accepted send.
	if !decoded || env.Return.Status == 0 {
		return "", nil
	}

	if env.Return.Status != http.StatusOK {
		class := entity.ErrorClassTerminal
		if env.Return.Status >= 500 {
			class = entity.ErrorClassTransient
		}
		return "", &Error{Class: class, Status: env.Return.Status, Provider: p.Name(), Msg: env.Return.Message}
	}

	var id flexID
	if len(env.Entries) > 0 {
		id = env.Entries[0].MessageID
	}

	return firstID(id), nil
}

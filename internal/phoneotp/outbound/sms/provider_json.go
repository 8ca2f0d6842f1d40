package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/phoneverify/internal/phoneotp/entity"
)

// transientCodes are provider error codes that are worth another attempt.
var transientCodes = []string{"rate_limited", "throttled", "timeout", "temporarily_unavailable", "service_unavailable"}

// jsonProvider talks to generic bearer-authenticated JSON SMS APIs.
type jsonProvider struct {
	baseURL  string
	apiKey   string
	template string
	sender   string
}

type jsonRequest struct {
	Recipient  string            `json:"recipient"`
	Template   string            `json:"template"`
	Sender     string            `json:"sender,omitempty"`
	Parameters map[string]string `json:"parameters"`
}

type jsonEnvelope struct {
	Success   *bool  `json:"success"`
	MessageID flexID `json:"message_id"`
	ID        flexID `json:"id"`
	MsgID     flexID `json:"messageId"`
	Error     *struct {
		Code      flexID `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
}

func (*jsonProvider) Name() string { return ProviderJSON }

func (p *jsonProvider) NewRequest(ctx context.Context, phone, code string) (*http.Request, error) {
	body, err := json.Marshal(jsonRequest{
		Recipient:  phone,
		Template:   p.template,
		Sender:     p.sender,
		Parameters: map[string]string{"code": code},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	return req, nil
}

func (p *jsonProvider) Parse(status int, body []byte) (string, error) {
	var env jsonEnvelope
	decoded := json.Unmarshal(body, &env) == nil

	if class := statusClass(status); class != entity.ErrorClassNone {
		msg := snippet(body)
		if decoded && env.Error != nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		return "", &Error{Class: class, Status: status, Provider: p.Name(), Msg: msg}
	}

	if !decoded {
		return "", nil
	}

	failed := env.Success != nil && !*env.Success
	if !failed && env.Error == nil {
		return firstID(env.MessageID, env.ID, env.MsgID), nil
	}

	e := &Error{Class: entity.ErrorClassTerminal, Status: status, Provider: p.Name(), Msg: "provider rejected the message"}
	if env.Error != nil {
		if env.Error.Message != "" {
			e.Msg = env.Error.Message
		}
		code := strings.ToLower(string(env.Error.Code))
		if env.Error.Retryable || lo.Contains(transientCodes, code) {
			e.Class = entity.ErrorClassTransient
		}
	}

	return "", e
}

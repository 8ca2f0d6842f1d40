package inbound

import (
	"github.com/shandysiswandi/phoneverify/internal/phoneotp/entity"
	"github.com/shandysiswandi/phoneverify/internal/phoneotp/usecase"
	"github.com/shandysiswandi/phoneverify/internal/pkg/router"
)

// HTTPEndpoint exposes the phone verification workflow over HTTP.
type HTTPEndpoint struct {
	uc uc
}

// RequestCode sends a new code to the phone in the body.
// Responds 429 with Retry-After while a code is pending or the send budget is
// spent, and 503 when the SMS could not be delivered.
func (h *HTTPEndpoint) RequestCode(r *router.Request) (any, error) {
	var req RequestCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RequestCode(r.Context(), usecase.RequestCodeInput{Phone: req.Phone})
	if err != nil {
		return nil, err
	}

	return RequestCodeResponse{
		Phone:            resp.Phone,
		ExpiresInSeconds: entity.CeilSeconds(resp.ExpiresIn),
	}, nil
}

// VerifyCode checks a code. Wrong, unknown and expired codes all answer 401
// with the same message.
func (h *HTTPEndpoint) VerifyCode(r *router.Request) (any, error) {
	var req VerifyCodeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if _, err := h.uc.VerifyCode(r.Context(), usecase.VerifyCodeInput{
		Phone: req.Phone,
		Code:  req.Code,
	}); err != nil {
		return nil, err
	}

	return VerifyCodeResponse{Verified: true}, nil
}

package inbound

type RequestCodeRequest struct {
	Phone string `json:"phone"`
}

type RequestCodeResponse struct {
	Phone            string `json:"phone"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

func (RequestCodeResponse) Message() string {
	return "Verification code sent."
}

type VerifyCodeRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type VerifyCodeResponse struct {
	Verified bool `json:"verified"`
}

func (VerifyCodeResponse) Message() string {
	return "Phone number verified."
}

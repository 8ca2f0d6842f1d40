package router

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/shandysiswandi/phoneverify/internal/pkg/goerror"
)

// Bodies here are a phone number and a code; anything near this size is abuse.
const maxBodyBytes = 4 << 10

// Request is the *http.Request handed to a Handler.
type Request struct {
	*http.Request
}

// DecodeBody reads exactly one JSON object into dst. A non-JSON content type,
// unknown fields, trailing data and bodies over maxBodyBytes all come back as
// goerror invalid-format errors.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		return goerror.NewInvalidFormat("Request body is required")
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			return goerror.NewInvalidFormat("Content-Type must be application/json")
		}
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}

	return nil
}

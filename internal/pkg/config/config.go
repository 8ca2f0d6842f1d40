package config

import (
	"io"
	"time"
)

// Durations are stored as plain integers and the unit lives in the getter,
// so keys carry a suffix such as "_seconds" or "_ms".
type Durations interface {
	GetMillisecond(key string) time.Duration
	GetSecond(key string) time.Duration
}

// Config is the read side of the service configuration. Missing keys yield
// the zero value of the requested type; callers fall back to their own
// defaults or to the ones registered with WithDefaults.
type Config interface {
	io.Closer
	Durations

	GetString(key string) string
	GetBool(key string) bool
	GetInt(key string) int
	GetFloat64(key string) float64

	// GetArray accepts either a YAML sequence or a comma-separated string,
	// so list values can also be overridden from a single env variable.
	GetArray(key string) []string
}

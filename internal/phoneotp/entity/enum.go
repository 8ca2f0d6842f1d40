package entity

// Outcome is the result of checking a submitted code.
type Outcome int8

const (
	OutcomeOK Outcome = iota
	OutcomeNotFound
	OutcomeMismatch
	OutcomeExpired
	OutcomeTooManyAttempts
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "OK"
	case OutcomeNotFound:
		return "NOT_FOUND"
	case OutcomeMismatch:
		return "MISMATCH"
	case OutcomeExpired:
		return "EXPIRED"
	case OutcomeTooManyAttempts:
		return "TOO_MANY_ATTEMPTS"
	default:
		return "UNKNOWN"
	}
}

// ErrorClass tells the delivery retry loop what to do with a failure.
type ErrorClass int8

const (
	// ErrorClassNone means the attempt succeeded.
	ErrorClassNone ErrorClass = iota
	// ErrorClassTransient failures may succeed on another attempt.
	ErrorClassTransient
	// ErrorClassTerminal failures will fail the same way again.
	ErrorClassTerminal
	// ErrorClassConfig failures come from a setup that cannot work.
	ErrorClassConfig
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorClassNone:
		return "NONE"
	case ErrorClassTransient:
		return "TRANSIENT"
	case ErrorClassTerminal:
		return "TERMINAL"
	case ErrorClassConfig:
		return "CONFIG"
	default:
		return "UNKNOWN"
	}
}

package httpapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind classifies the outcome of a request.
type Kind int

const (
	KindNone Kind = iota
	// KindTransport covers DNS, connect and timeout failures. Retryable.
	KindTransport
	// KindRateLimited is an HTTP 429 or a locally throttled request. Retry after backoff.
	KindRateLimited
	// KindProtocol is a 4xx/5xx response carrying a server body.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransport:
		return "transport"
	case KindRateLimited:
		return "rate_limited"
	case KindProtocol:
		return "protocol"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	RateLimitedMessage       = "Rate limited: too many requests, retry later"
	ClientRateLimitedMessage = "Rate limited (client): request dropped to protect the backend"
)

// Result is the outcome of a single request.
type Result struct {
	Success    bool
	StatusCode int
	Body       []byte
	Kind       Kind
	// Detail describes transport failures; empty otherwise.
	Detail string
}

// Payload is the string delivered to callbacks: the body on success or on a
// protocol error, the failure description otherwise.
func (r Result) Payload() string {
	switch r.Kind {
	case KindNone:
		return string(r.Body)
	case KindRateLimited:
		if r.Detail != "" {
			return r.Detail
		}
		return RateLimitedMessage
	case KindProtocol:
		if len(r.Body) > 0 {
			return string(r.Body)
		}
		return fmt.Sprintf("HTTP %d", r.StatusCode)
	default:
		return r.Detail
	}
}

// Retryable reports whether the failure is worth retrying without user action.
func (r Result) Retryable() bool {
	return r.Kind == KindTransport || r.Kind == KindRateLimited
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ErrorMessage extracts a human readable message from an error payload. JSON
// bodies with a message or error field are unwrapped; anything else is
// returned trimmed.
func ErrorMessage(payload string) string {
	trimmed := strings.TrimSpace(payload)
	if strings.HasPrefix(trimmed, "{") {
		var eb errorBody
		if err := json.Unmarshal([]byte(trimmed), &eb); err == nil {
			if eb.Message != "" {
				return eb.Message
			}
			if eb.Error != "" {
				return eb.Error
			}
		}
	}
	if trimmed == "" {
		return "unknown error"
	}
	return trimmed
}

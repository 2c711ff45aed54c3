package providererr

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// FromTransport classifies a transport-level failure (one that never
// reached the HTTP response stage) into an *Error. It mirrors the
// net/url/tls error taxonomy the standard library's http.Client raises.
func FromTransport(err error, timeout time.Duration) *Error {
	if err == nil {
		return nil
	}

	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutError(timeout)
	}
	if errors.Is(err, context.Canceled) {
		return StreamingError("request cancelled")
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NetworkError(fmt.Sprintf("DNS lookup failed for %s: %s", dnsErr.Name, dnsErr.Err))
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return TimeoutError(timeout)
		}
		return NetworkError(opErr.Error())
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return TimeoutError(timeout)
		}
		return FromTransport(urlErr.Err, timeout)
	}

	var tlsRecordErr *tls.RecordHeaderError
	if errors.As(err, &tlsRecordErr) {
		return TLSError("TLS record header error")
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return TLSError(fmt.Sprintf("certificate verification failed: %v", certErr.Err))
	}

	var unknownAuthErr x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthErr) {
		return TLSError("certificate signed by unknown authority")
	}

	var syscallErrno syscall.Errno
	if errors.As(err, &syscallErrno) {
		switch syscallErrno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ENETUNREACH:
			return NetworkError(syscallErrno.Error())
		case syscall.ETIMEDOUT:
			return TimeoutError(timeout)
		}
	}

	errStr := err.Error()
	if strings.Contains(errStr, "tls:") || strings.Contains(errStr, "TLS") {
		return TLSError(errStr)
	}

	return HTTPError(errStr)
}

// extractErrorMessage covers the two response shapes providers actually
// return: {"error":{"message":...}} (OpenAI) and
// {"message":...} or {"error":{"type":...,"message":...}} (Anthropic).
func extractErrorMessage(body []byte) (string, bool) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(body, &generic); err != nil {
		return "", false
	}

	if rawErr, ok := generic["error"]; ok {
		var errObj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(rawErr, &errObj); err == nil && errObj.Message != "" {
			return errObj.Message, true
		}
		var errStr string
		if err := json.Unmarshal(rawErr, &errStr); err == nil && errStr != "" {
			return errStr, true
		}
	}

	if rawMsg, ok := generic["message"]; ok {
		var msg string
		if err := json.Unmarshal(rawMsg, &msg); err == nil && msg != "" {
			return msg, true
		}
	}

	return "", false
}

func extractRetryAfter(body []byte) (time.Duration, bool) {
	var generic struct {
		RetryAfter *uint64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &generic); err != nil || generic.RetryAfter == nil {
		return 0, false
	}
	return time.Duration(*generic.RetryAfter) * time.Second, true
}

// ParseAPIError reads resp's body and classifies it into an *Error,
// extracting the provider's structured error message and, for 429s, any
// retry-after hint it supplies in the body. The caller is responsible
// for closing resp.Body; ParseAPIError only reads it.
func ParseAPIError(resp *http.Response) *Error {
	status := resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return APIError(status, fmt.Sprintf("failed to read error response: %v", err), "")
	}

	message, hasMessage := extractErrorMessage(body)

	switch status {
	case http.StatusUnauthorized:
		if !hasMessage {
			message = "invalid API key"
		}
		return AuthenticationError(message)
	case http.StatusTooManyRequests:
		if !hasMessage {
			message = "rate limit exceeded"
		}
		var retryAfter *time.Duration
		if d, ok := extractRetryAfter(body); ok {
			retryAfter = &d
		} else if header := resp.Header.Get("Retry-After"); header != "" {
			if secs, convErr := time.ParseDuration(header + "s"); convErr == nil {
				retryAfter = &secs
			}
		}
		return RateLimitError(message, retryAfter)
	case http.StatusRequestEntityTooLarge:
		if !hasMessage {
			message = "request too large"
		}
		return PayloadTooLargeError(message)
	case http.StatusServiceUnavailable:
		if !hasMessage {
			message = "service unavailable"
		}
		return ServiceUnavailableError(message)
	default:
		if !hasMessage {
			message = http.StatusText(status)
		}
		return APIError(status, message, string(body))
	}
}

// Package types holds the data model shared by every subsystem: session
// and request identifiers, the provider enum, per-token and per-request
// timing records, and the aggregated statistical shapes derived from them.
package types

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SessionId identifies one orchestrator run. It is created once per run
// and stays stable across serialization.
type SessionId struct {
	id uuid.UUID
}

// NewSessionId generates a new random SessionId.
func NewSessionId() SessionId {
	return SessionId{id: uuid.New()}
}

// ParseSessionId parses a SessionId from its canonical string form.
func ParseSessionId(s string) (SessionId, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return SessionId{}, fmt.Errorf("session id: %w", err)
	}
	return SessionId{id: id}, nil
}

func (s SessionId) String() string {
	return s.id.String()
}

// MarshalJSON renders the SessionId as its canonical string form.
func (s SessionId) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.id.String())
}

// UnmarshalJSON parses a SessionId from its canonical string form.
func (s *SessionId) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := uuid.Parse(str)
	if err != nil {
		return fmt.Errorf("session id: %w", err)
	}
	s.id = parsed
	return nil
}

// RequestId identifies one streamed request within a session.
type RequestId struct {
	id uuid.UUID
}

// NewRequestId generates a new random RequestId.
func NewRequestId() RequestId {
	return RequestId{id: uuid.New()}
}

// ParseRequestId parses a RequestId from its canonical string form.
func ParseRequestId(s string) (RequestId, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return RequestId{}, fmt.Errorf("request id: %w", err)
	}
	return RequestId{id: id}, nil
}

func (r RequestId) String() string {
	return r.id.String()
}

// MarshalJSON renders the RequestId as its canonical string form.
func (r RequestId) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.id.String())
}

// UnmarshalJSON parses a RequestId from its canonical string form.
func (r *RequestId) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := uuid.Parse(str)
	if err != nil {
		return fmt.Errorf("request id: %w", err)
	}
	r.id = parsed
	return nil
}

// Short returns the first 8 characters of the identifier, used by the
// Prometheus per-request exporter to keep label cardinality bounded.
func (r RequestId) Short() string {
	s := r.id.String()
	if len(s) <= 8 {
		return s
	}
	return s[:8]
}

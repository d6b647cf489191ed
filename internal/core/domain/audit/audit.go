// Package audit describes the journal of administrative actions: who cleared which
// cached responses, sent mail, touched stored objects or revoked tokens.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionClear  Action = "clear"
	ActionSend   Action = "send"
	ActionUpload Action = "upload"
	ActionDelete Action = "delete"
	ActionRevoke Action = "revoke"
)

type Resource string

const (
	ResourceResponseCache Resource = "response_cache"
	ResourceMail          Resource = "mail"
	ResourceObject        Resource = "object"
	ResourceToken         Resource = "token"
)

// TargetAll is the target of actions that apply to every item of a resource, such as
// a full cache clear.
const TargetAll = "*"

// Event is one administrative action. Target names what was acted on: a cache key,
// an object key, a mail message id or a token id.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Subject   string          `json:"subject"`
	Action    Action          `json:"action"`
	Resource  Resource        `json:"resource"`
	Target    string          `json:"target"`
	Details   json.RawMessage `json:"details,omitempty"`
	IPAddress string          `json:"ip_address,omitempty"`
	UserAgent string          `json:"user_agent,omitempty"`
	At        time.Time       `json:"at"`
}

// NewEvent builds an event with details encoded as JSON. ID and time are assigned when
// the event is recorded.
func NewEvent(subject string, action Action, resource Resource, target string, details any) (*Event, error) {
	e := &Event{Subject: subject, Action: action, Resource: resource, Target: target}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("encode audit details: %w", err)
		}
		e.Details = raw
	}
	return e, nil
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Query selects events, newest first. Zero fields do not filter. TargetPrefix matches
// targets by prefix, so "/api/v1/geo/" finds every clear of a geo route.
type Query struct {
	Subject      string
	Action       Action
	Resource     Resource
	TargetPrefix string
	Since        time.Time
	Until        time.Time
	Limit        int
	Offset       int
}

// Normalized returns q with Limit clamped to [1, MaxLimit] and a non-negative Offset.
func (q Query) Normalized() Query {
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Page is one window of matching events plus the number of matches overall.
type Page struct {
	Events []*Event `json:"events"`
	Total  int      `json:"total"`
}

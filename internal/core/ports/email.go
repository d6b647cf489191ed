package ports

import (
	"context"
	"errors"
)

var (
	ErrNoRecipients     = errors.New("email: no recipients")
	ErrEmptyContent     = errors.New("email: message has no content")
	ErrTemplateNotFound = errors.New("email: template not found")
)

// Mailer sends transactional email.
type Mailer interface {
	Send(ctx context.Context, opts *MailOptions) (*MailResponse, error)
}

// MailOptions describes a single message. When several content sources are set,
// Body overrides the text rendered from the template and HTMLBody overrides its HTML.
type MailOptions struct {
	// To is a comma separated list of recipients.
	To           string         `json:"to"`
	Subject      string         `json:"subject"`
	TemplateName string         `json:"template_name,omitempty"`
	Replace      map[string]any `json:"replace,omitempty"`
	Body         string         `json:"body,omitempty"`
	HTMLBody     string         `json:"html_body,omitempty"`
}

// MailResponse reports the transport result.
type MailResponse struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	MessageID  string `json:"message_id,omitempty"`
}

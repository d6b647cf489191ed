package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/service-kit/configs"
	"github.com/avatarctic/service-kit/internal/core/ports"
)

// sendClient is the part of the SendGrid client the mailer needs.
type sendClient interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer implements ports.Mailer on top of SendGrid.
type Mailer struct {
	config    *config.EmailConfig
	logger    *logrus.Logger
	client    sendClient
	templates map[string]*template.Template
}

// NewMailer creates a SendGrid mailer and loads every *.html template in the configured
// template directory. A missing directory leaves the mailer usable for plain messages.
func NewMailer(cfg *config.EmailConfig, logger *logrus.Logger) (*Mailer, error) {
	return newMailer(cfg, sendgrid.NewSendClient(cfg.SendGridAPIKey), logger)
}

func newMailer(cfg *config.EmailConfig, client sendClient, logger *logrus.Logger) (*Mailer, error) {
	templates, err := loadTemplates(cfg.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	if logger != nil {
		logger.WithFields(logrus.Fields{"dir": cfg.TemplateDir, "templates": len(templates)}).Debug("email templates loaded")
	}
	return &Mailer{config: cfg, logger: logger, client: client, templates: templates}, nil
}

// loadTemplates parses each template file on its own so they can share block names.
func loadTemplates(dir string) (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)
	if dir == "" {
		return templates, nil
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return templates, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		tmpl, err := template.ParseFiles(file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", file, err)
		}
		templates[name] = tmpl
	}
	return templates, nil
}

// Send builds and delivers a message. Template output provides the HTML part and a text
// alternative; Body and HTMLBody take precedence over them.
func (m *Mailer) Send(ctx context.Context, opts *ports.MailOptions) (*ports.MailResponse, error) {
	if opts == nil {
		return nil, ports.ErrEmptyContent
	}
	recipients := splitRecipients(opts.To)
	if len(recipients) == 0 {
		return nil, ports.ErrNoRecipients
	}

	var htmlContent, textContent string
	if opts.TemplateName != "" {
		rendered, err := m.renderTemplate(opts.TemplateName, opts.Replace)
		if err != nil {
			return nil, err
		}
		htmlContent = rendered
		textContent, err = HTMLToText(rendered)
		if err != nil {
			return nil, fmt.Errorf("failed to derive text from template %s: %w", opts.TemplateName, err)
		}
	}
	if opts.Body != "" {
		textContent = opts.Body
	}
	if opts.HTMLBody != "" {
		htmlContent = opts.HTMLBody
	}
	if htmlContent == "" && textContent == "" {
		return nil, ports.ErrEmptyContent
	}

	message := m.buildMessage(recipients, opts.Subject, textContent, htmlContent)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	response, err := m.client.Send(message)
	if err != nil {
		m.log().WithFields(logrus.Fields{"to": opts.To, "subject": opts.Subject, "error": err}).Error("Failed to send email")
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= http.StatusBadRequest {
		m.log().WithFields(logrus.Fields{"to": opts.To, "status_code": response.StatusCode, "body": response.Body}).Error("Email rejected by provider")
		return &ports.MailResponse{Success: false, StatusCode: response.StatusCode}, fmt.Errorf("failed to send email: provider returned status %d", response.StatusCode)
	}

	res := &ports.MailResponse{Success: true, StatusCode: response.StatusCode}
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		res.MessageID = ids[0]
	}
	m.log().WithFields(logrus.Fields{"to": opts.To, "subject": opts.Subject, "status_code": response.StatusCode}).Info("Email sent successfully")
	return res, nil
}

func (m *Mailer) buildMessage(recipients []string, subject, text, html string) *mail.SGMailV3 {
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(m.config.FromName, m.config.FromEmail))
	message.Subject = subject

	p := mail.NewPersonalization()
	for _, r := range recipients {
		p.AddTos(mail.NewEmail("", r))
	}
	message.AddPersonalizations(p)

	// text/plain must precede text/html
	if text != "" {
		message.AddContent(mail.NewContent("text/plain", text))
	}
	if html != "" {
		message.AddContent(mail.NewContent("text/html", html))
	}
	return message
}

func (m *Mailer) renderTemplate(name string, data map[string]any) (string, error) {
	tmpl, exists := m.templates[name]
	if !exists {
		return "", fmt.Errorf("%w: %s", ports.ErrTemplateNotFound, name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (m *Mailer) log() *logrus.Logger {
	if m.logger == nil {
		return logrus.StandardLogger()
	}
	return m.logger
}

func splitRecipients(to string) []string {
	var out []string
	for _, part := range strings.Split(to, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

package email

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	config "github.com/avatarctic/service-kit/configs"
	"github.com/avatarctic/service-kit/internal/core/ports"
)

type fakeSendClient struct {
	sendFn func(email *mail.SGMailV3) (*rest.Response, error)
	sent   []*mail.SGMailV3
}

func (f *fakeSendClient) Send(email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.sendFn != nil {
		return f.sendFn(email)
	}
	return &rest.Response{StatusCode: 202, Headers: map[string][]string{"X-Message-Id": {"msg-1"}}}, nil
}

func newTestMailer(t *testing.T, client sendClient) *Mailer {
	t.Helper()
	dir := t.TempDir()
	tmpl := `<html><head><title>x</title></head><body><h1>Hello {{.name}}</h1><p>Visit <a href="{{.link}}">here</a></p></body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "welcome.html"), []byte(tmpl), 0o600))

	m, err := newMailer(&config.EmailConfig{FromEmail: "noreply@example.com", FromName: "Kit", TemplateDir: dir}, client, logrus.New())
	require.NoError(t, err)
	return m
}

func contents(msg *mail.SGMailV3) map[string]string {
	out := map[string]string{}
	for _, c := range msg.Content {
		out[c.Type] = c.Value
	}
	return out
}

func TestMailer_SendTemplate(t *testing.T) {
	client := &fakeSendClient{}
	m := newTestMailer(t, client)

	res, err := m.Send(context.Background(), &ports.MailOptions{
		To:           "a@example.com, b@example.com",
		Subject:      "Welcome",
		TemplateName: "welcome",
		Replace:      map[string]any{"name": "Ada", "link": "https://example.com/start"},
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 202, res.StatusCode)
	require.Equal(t, "msg-1", res.MessageID)

	require.Len(t, client.sent, 1)
	msg := client.sent[0]
	require.Equal(t, "Welcome", msg.Subject)
	require.Equal(t, "noreply@example.com", msg.From.Address)
	require.Len(t, msg.Personalizations[0].To, 2)
	require.Equal(t, "b@example.com", msg.Personalizations[0].To[1].Address)

	c := contents(msg)
	require.Contains(t, c["text/html"], "Hello Ada")
	require.Equal(t, "Hello Ada\n\nVisit here [https://example.com/start]", c["text/plain"])
	require.Equal(t, "text/plain", msg.Content[0].Type)
}

func TestMailer_BodyOverridesTemplate(t *testing.T) {
	client := &fakeSendClient{}
	m := newTestMailer(t, client)

	_, err := m.Send(context.Background(), &ports.MailOptions{
		To:           "a@example.com",
		TemplateName: "welcome",
		Body:         "plain body",
		HTMLBody:     "<b>html body</b>",
	})
	require.NoError(t, err)
	c := contents(client.sent[0])
	require.Equal(t, "plain body", c["text/plain"])
	require.Equal(t, "<b>html body</b>", c["text/html"])
}

func TestMailer_Validation(t *testing.T) {
	client := &fakeSendClient{}
	m := newTestMailer(t, client)
	ctx := context.Background()

	_, err := m.Send(ctx, &ports.MailOptions{To: " , ", Body: "x"})
	require.True(t, errors.Is(err, ports.ErrNoRecipients))

	_, err = m.Send(ctx, &ports.MailOptions{To: "a@example.com"})
	require.True(t, errors.Is(err, ports.ErrEmptyContent))

	_, err = m.Send(ctx, &ports.MailOptions{To: "a@example.com", TemplateName: "missing"})
	require.True(t, errors.Is(err, ports.ErrTemplateNotFound))

	require.Empty(t, client.sent)
}

func TestMailer_ProviderErrors(t *testing.T) {
	client := &fakeSendClient{sendFn: func(*mail.SGMailV3) (*rest.Response, error) {
		return &rest.Response{StatusCode: 401, Body: `{"errors":[]}`}, nil
	}}
	m := newTestMailer(t, client)

	res, err := m.Send(context.Background(), &ports.MailOptions{To: "a@example.com", Body: "x"})
	require.Error(t, err)
	require.False(t, res.Success)
	require.Equal(t, 401, res.StatusCode)

	client.sendFn = func(*mail.SGMailV3) (*rest.Response, error) { return nil, errors.New("dial tcp: timeout") }
	_, err = m.Send(context.Background(), &ports.MailOptions{To: "a@example.com", Body: "x"})
	require.Error(t, err)
}

func TestNewMailer_MissingTemplateDir(t *testing.T) {
	m, err := newMailer(&config.EmailConfig{TemplateDir: filepath.Join(t.TempDir(), "nope")}, &fakeSendClient{}, nil)
	require.NoError(t, err)
	require.Empty(t, m.templates)
}

func TestHTMLToText(t *testing.T) {
	text, err := HTMLToText(`<style>p{}</style><ul><li>one</li><li>two</li></ul><p>a<br>b</p>`)
	require.NoError(t, err)
	require.Equal(t, "* one\n* two\n\na\nb", text)
}

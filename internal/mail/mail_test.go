package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/appointment-service/internal/domain"
)

func cancellationMail() domain.Mail {
	return domain.Mail{
		To:       "bruno@example.com",
		ToName:   "Bruno",
		Subject:  "Agendamento cancelado",
		Template: domain.MailTemplateCancellation,
		Context: map[string]string{
			"provider": "Bruno",
			"user":     "Ana <Silva>",
			"date":     "10 de março, às 15:00h",
		},
	}
}

func TestRendererCancellationPortuguese(t *testing.T) {
	r, err := NewRenderer("pt_BR")
	require.NoError(t, err)

	msg, err := r.Render(cancellationMail())
	require.NoError(t, err)
	assert.Equal(t, "bruno@example.com", msg.To)
	assert.Equal(t, "Agendamento cancelado", msg.Subject)
	assert.Contains(t, msg.Body, "Olá, Bruno")
	assert.Contains(t, msg.Body, "Cliente: Ana <Silva>")
	assert.Contains(t, msg.Body, "10 de março, às 15:00h")
	assert.Contains(t, msg.HTML, "Ana &lt;Silva&gt;")
}

func TestRendererFallsBackToDefaultLocale(t *testing.T) {
	r, err := NewRenderer("xx_XX")
	require.NoError(t, err)

	msg, err := r.Render(cancellationMail())
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Houve um cancelamento")
}

func TestRendererEnglish(t *testing.T) {
	r, err := NewRenderer("en_US")
	require.NoError(t, err)

	msg, err := r.Render(cancellationMail())
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Customer: Ana <Silva>")
}

func TestRendererRejectsMissingContext(t *testing.T) {
	r, err := NewRenderer("pt_BR")
	require.NoError(t, err)

	m := cancellationMail()
	delete(m.Context, "date")
	_, err = r.Render(m)
	assert.Error(t, err)

	m = cancellationMail()
	m.Template = "welcome"
	_, err = r.Render(m)
	assert.ErrorContains(t, err, "unknown template")
}

func TestNewSendGridSenderNilWithoutAPIKey(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{FromEmail: "noreply@example.com"}, nil))

	sender := NewSendGridSender(SendGridConfig{APIKey: "key", FromEmail: "noreply@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, defaultFromName, sender.fromName)
}

func TestSendGridSenderNilClient(t *testing.T) {
	var sender *SendGridSender
	assert.Error(t, sender.Send(context.Background(), Message{To: "x@example.com"}))
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSenderBuildsSimpleMessage(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "noreply@example.com"}, nil)
	require.NotNil(t, sender)

	err := sender.Send(context.Background(), Message{
		To: "bruno@example.com", ToName: "Bruno", Subject: "Agendamento cancelado", Body: "text", HTML: "<p>html</p>",
	})
	require.NoError(t, err)
	require.NotNil(t, client.input)
	assert.Equal(t, "Equipe GoBarber <noreply@example.com>", aws.ToString(client.input.FromEmailAddress))
	assert.Equal(t, []string{"Bruno <bruno@example.com>"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "text", aws.ToString(client.input.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(client.input.Content.Simple.Body.Html.Data))
}

func TestSESSenderWrapsErrors(t *testing.T) {
	sender := NewSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "noreply@example.com"}, nil)
	err := sender.Send(context.Background(), Message{To: "bruno@example.com", Subject: "s", Body: "b"})
	assert.ErrorContains(t, err, "throttled")
}

func TestStubSenderNeverFails(t *testing.T) {
	assert.NoError(t, NewStubSender(nil).Send(context.Background(), Message{To: "x@example.com"}))
}

package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/spec-kit/appointment-service/internal/domain"
)

const defaultFromName = "Equipe GoBarber"

// DefaultLocale is used when a mail names a locale without templates.
const DefaultLocale = "pt_BR"

type localized struct {
	text string
	html string
}

var catalog = map[string]map[string]localized{
	"pt_BR": {
		domain.MailTemplateCancellation: {
			text: `Olá, {{.provider}}

Houve um cancelamento de horário, confira os detalhes abaixo:

Cliente: {{.user}}
Data/hora: {{.date}}

O horário está novamente disponível para novos agendamentos.

Equipe GoBarber
`,
			html: `<div style="font-family: Arial, Helvetica, sans-serif; font-size: 16px; line-height: 1.6; color: #222;">
  <strong>Olá, {{.provider}}</strong>
  <p>Houve um cancelamento de horário, confira os detalhes abaixo:</p>
  <p>
    <strong>Cliente: </strong> {{.user}}<br />
    <strong>Data/hora: </strong> {{.date}}<br />
    <br />
    <small>O horário está novamente disponível para novos agendamentos.</small>
  </p>
  <p>Equipe GoBarber</p>
</div>`,
		},
	},
	"en_US": {
		domain.MailTemplateCancellation: {
			text: `Hello, {{.provider}}

An appointment was canceled, see the details below:

Customer: {{.user}}
Date/time: {{.date}}

The slot is available for new bookings again.
`,
			html: `<div style="font-family: Arial, Helvetica, sans-serif; font-size: 16px; line-height: 1.6; color: #222;">
  <strong>Hello, {{.provider}}</strong>
  <p>An appointment was canceled, see the details below:</p>
  <p>
    <strong>Customer: </strong> {{.user}}<br />
    <strong>Date/time: </strong> {{.date}}<br />
    <br />
    <small>The slot is available for new bookings again.</small>
  </p>
</div>`,
		},
	},
}

type compiled struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// Renderer turns a queued domain.Mail into a Message using the locale's templates.
type Renderer struct {
	templates map[string]compiled
}

// NewRenderer parses the templates of locale, falling back to DefaultLocale.
func NewRenderer(locale string) (*Renderer, error) {
	set, ok := catalog[locale]
	if !ok {
		set = catalog[DefaultLocale]
	}
	r := &Renderer{templates: make(map[string]compiled, len(set))}
	for name, src := range set {
		text, err := texttemplate.New(name).Option("missingkey=error").Parse(src.text)
		if err != nil {
			return nil, fmt.Errorf("mail: parse %s text: %w", name, err)
		}
		html, err := htmltemplate.New(name).Option("missingkey=error").Parse(src.html)
		if err != nil {
			return nil, fmt.Errorf("mail: parse %s html: %w", name, err)
		}
		r.templates[name] = compiled{text: text, html: html}
	}
	return r, nil
}

// Render executes the mail's template against its context.
func (r *Renderer) Render(m domain.Mail) (Message, error) {
	tpl, ok := r.templates[m.Template]
	if !ok {
		return Message{}, fmt.Errorf("mail: unknown template %q", m.Template)
	}

	var text, html bytes.Buffer
	if err := tpl.text.Execute(&text, m.Context); err != nil {
		return Message{}, fmt.Errorf("mail: render %s: %w", m.Template, err)
	}
	if err := tpl.html.Execute(&html, m.Context); err != nil {
		return Message{}, fmt.Errorf("mail: render %s html: %w", m.Template, err)
	}

	return Message{
		To:      m.To,
		ToName:  m.ToName,
		Subject: m.Subject,
		Body:    text.String(),
		HTML:    html.String(),
	}, nil
}

package domain

// MailTemplateCancellation renders the provider-facing cancellation email.
const MailTemplateCancellation = "cancellation"

// Mail is a queued email described by template name and rendering context.
type Mail struct {
	To       string            `json:"to"`
	ToName   string            `json:"to_name"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Context  map[string]string `json:"context"`
}

// Recipient formats the destination as "Name <email>".
func (m Mail) Recipient() string {
	if m.ToName == "" {
		return m.To
	}
	return m.ToName + " <" + m.To + ">"
}

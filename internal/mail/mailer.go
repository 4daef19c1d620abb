// Package mail sends transactional email. The production implementation
// uses SendGrid; a console variant backs local runs and tests.
package mail

import "context"

// Message is one outbound email. Both bodies are pre-rendered by the
// caller.
type Message struct {
	To       string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer is any service that can dispatch a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

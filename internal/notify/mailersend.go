package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	client := mailersend.NewMailersend(apiKey)
	client.SetClient(&http.Client{Timeout: 10 * time.Second})

	return &MailerSendClient{
		client: client,
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
}

func (m *MailerSendClient) Name() string { return "mailersend" }

func (m *MailerSendClient) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	message := m.client.Email.NewMessage()
	message.SetFrom(m.from)
	message.SetRecipients([]mailersend.Recipient{{Email: msg.To}})
	message.SetSubject(msg.Subject)

	if strings.TrimSpace(msg.Text) != "" {
		message.SetText(msg.Text)
	}
	if strings.TrimSpace(msg.HTML) != "" {
		message.SetHTML(msg.HTML)
	}

	if _, err := m.client.Email.Send(ctx, message); err != nil {
		return fmt.Errorf("mailersend: %w", err)
	}
	return nil
}

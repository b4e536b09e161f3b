package notify

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/diagnosis/taskmanager/pkg/logger"
)

const banner = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"

// DevMailer prints messages instead of sending them.
type DevMailer struct {
	out io.Writer
}

func NewDevMailer() *DevMailer {
	return &DevMailer{out: os.Stdout}
}

func (d *DevMailer) Name() string { return "dev-log" }

func (d *DevMailer) Send(ctx context.Context, msg Message) error {
	logger.InfoContext(ctx, "[DEV MAIL] email not sent, no transport configured",
		"to", msg.To,
		"subject", msg.Subject,
	)

	fmt.Fprintf(d.out, "\n"+banner+
		"📧 EMAIL (DEV MODE)\n"+
		banner+
		"To: %s\n"+
		"Subject: %s\n"+
		"\n"+
		"%s\n"+
		banner+"\n",
		msg.To, msg.Subject, msg.Text)

	return nil
}

type DevSMS struct {
	out io.Writer
}

func NewDevSMS() *DevSMS {
	return &DevSMS{out: os.Stdout}
}

func (d *DevSMS) Name() string { return "dev-log" }

func (d *DevSMS) SendSMS(ctx context.Context, to, body string) error {
	logger.InfoContext(ctx, "[DEV SMS] sms not sent, no transport configured", "to", to)

	fmt.Fprintf(d.out, "\n"+banner+
		"📱 SMS (DEV MODE)\n"+
		banner+
		"To: %s\n"+
		"%s\n"+
		banner+"\n",
		to, body)

	return nil
}

package notify

import (
	"fmt"
	"time"

	"github.com/diagnosis/taskmanager/internal/domain"
)

var emailSubjects = map[domain.Purpose]string{
	domain.PurposeRegistration:  "Verify Your Email - Task Manager",
	domain.PurposeLogin:         "Login Verification Code - Task Manager",
	domain.PurposePasswordReset: "Password Reset Code - Task Manager",
}

var emailIntros = map[domain.Purpose]string{
	domain.PurposeRegistration:  "Thank you for registering with Task Manager. Use the code below to verify your email address.",
	domain.PurposeLogin:         "Use the code below to finish signing in to Task Manager.",
	domain.PurposePasswordReset: "We received a request to reset your Task Manager password. Use the code below to continue.",
}

func renderEmail(to, code string, purpose domain.Purpose, ttl time.Duration) Message {
	minutes := int(ttl.Minutes())
	intro := emailIntros[purpose]

	text := fmt.Sprintf("%s\n\nYour code: %s\n\nThis code will expire in %d minutes.\nIf you didn't request this, please ignore this email.", intro, code, minutes)
	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2 style="color: #333;">%s</h2>
			<p>%s</p>
			<div style="background-color: #f4f4f4; padding: 20px; text-align: center; margin: 20px 0;">
				<h1 style="color: #4CAF50; letter-spacing: 5px; margin: 0;">%s</h1>
			</div>
			<p>This code will expire in %d minutes.</p>
			<p>If you didn't request this, please ignore this email.</p>
		</div>
	`, emailSubjects[purpose], intro, code, minutes)

	return Message{
		To:      to,
		Subject: emailSubjects[purpose],
		Text:    text,
		HTML:    html,
	}
}

func renderSMS(code string, purpose domain.Purpose, ttl time.Duration) string {
	return fmt.Sprintf("Your Task Manager %s code is %s. It will expire in %d minutes.", purpose.Label(), code, int(ttl.Minutes()))
}

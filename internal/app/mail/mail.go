/*
Package mail sends transactional email through SendGrid.

The password-reset flow mails a short verification code; everything else in
the system is in-band. Mailer is an interface so handlers can be tested with
a recording fake.
*/
package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/JulietLog/JulietLog-back/internal/pkg/errs"
	"github.com/JulietLog/JulietLog-back/internal/pkg/logx"
)

const senderName = "JulietLog"

// Mailer delivers transactional mail.
type Mailer interface {
	// SendVerificationCode mails the password-reset code to the address.
	SendVerificationCode(ctx context.Context, email, code string) error
}

// SendgridMailer implements Mailer over the SendGrid v3 API.
type SendgridMailer struct {
	client *sendgrid.Client
	sender string
}

// NewSendgridMailer constructs a Mailer using the given API key and sender address.
func NewSendgridMailer(apiKey, sender string) *SendgridMailer {
	return &SendgridMailer{
		client: sendgrid.NewSendClient(apiKey),
		sender: sender,
	}
}

// SendVerificationCode mails the password-reset verification code.
func (m *SendgridMailer) SendVerificationCode(ctx context.Context, email, code string) error {
	from := sgmail.NewEmail(senderName, m.sender)
	to := sgmail.NewEmail("", email)
	subject := "JulietLog Password Reset Verification Code"
	plainText := fmt.Sprintf("Verification code: %s. This code will expire in 10 minutes.", code)
	htmlContent := fmt.Sprintf("<p>Verification code: <strong>%s</strong></p><p>This code will expire in 10 minutes.</p>", code)

	message := sgmail.NewSingleEmail(from, subject, to, plainText, htmlContent)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		logx.Error(err, "Failed to send verification email", "email", email)
		return errs.NewError(errs.ErrMailDeliveryFailed)
	}

	if response.StatusCode >= 400 {
		logx.Warn("SendGrid rejected verification email.", "email", email, "status", response.StatusCode)
		return errs.NewError(errs.ErrMailDeliveryFailed)
	}

	return nil
}

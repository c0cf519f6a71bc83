// Package email notifies project owners about critical bug reports.
package email

import (
	"fmt"
	"html"

	"github.com/apex/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"bugspot/backend/db"
)

// Notifier sends report notifications through SendGrid. A nil Notifier is
// valid and sends nothing, so callers need no enabled checks.
type Notifier struct {
	apiKey string
	from   string
	send   func(*mail.SGMailV3) error
}

func NewNotifier(apiKey, from string) *Notifier {
	if apiKey == "" || from == "" {
		return nil
	}
	n := &Notifier{apiKey: apiKey, from: from}
	n.send = func(m *mail.SGMailV3) error {
		client := sendgrid.NewSendClient(n.apiKey)
		response, err := client.Send(m)
		if err != nil {
			return err
		}
		if response.StatusCode >= 400 {
			return fmt.Errorf("sendgrid status %d: %s", response.StatusCode, response.Body)
		}
		return nil
	}
	return n
}

// NotifyCriticalReport mails the project owner about a critical report.
// Failures are logged, not returned: notification must never block intake.
func (n *Notifier) NotifyCriticalReport(recipient string, report *db.BugReport) {
	if n == nil || recipient == "" {
		return
	}

	from := mail.NewEmail("BugSpot", n.from)
	to := mail.NewEmail(recipient, recipient)
	subject := fmt.Sprintf("Critical bug report: %s", report.Title)

	plain := fmt.Sprintf("A critical bug report was just filed.\n\nTitle: %s\n\n%s\n\nPage: %s\n",
		report.Title, report.Description, report.URL)
	htmlBody := fmt.Sprintf(
		"<p><strong>Critical bug report</strong></p><p><strong>%s</strong></p><p>%s</p><p>Page: %s</p>",
		html.EscapeString(report.Title),
		html.EscapeString(report.Description),
		html.EscapeString(report.URL))

	message := mail.NewV3Mail()
	message.SetFrom(from)
	message.Subject = subject

	p := mail.NewPersonalization()
	p.AddTos(to)
	message.AddPersonalizations(p)

	message.AddContent(mail.NewContent("text/plain", plain))
	message.AddContent(mail.NewContent("text/html", htmlBody))

	if err := n.send(message); err != nil {
		log.Warnf("Error sending critical report email to %s: %v", recipient, err)
		return
	}
	log.Infof("Critical report email sent to %s", recipient)
}

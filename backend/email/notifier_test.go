package email

import (
	"errors"
	"testing"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugspot/backend/db"
)

func TestNewNotifierRequiresConfig(t *testing.T) {
	assert.Nil(t, NewNotifier("", "from@test.io"))
	assert.Nil(t, NewNotifier("SG.key", ""))
	assert.NotNil(t, NewNotifier("SG.key", "from@test.io"))
}

func TestNotifyCriticalReport(t *testing.T) {
	var sent *mail.SGMailV3
	n := NewNotifier("SG.key", "alerts@bugspot.io")
	n.send = func(m *mail.SGMailV3) error {
		sent = m
		return nil
	}

	n.NotifyCriticalReport("owner@test.io", &db.BugReport{
		Title:       "Checkout broken",
		Description: "Payment always fails",
		URL:         "https://shop.test/checkout",
	})

	require.NotNil(t, sent)
	assert.Equal(t, "Critical bug report: Checkout broken", sent.Subject)
	require.Len(t, sent.Personalizations, 1)
	require.Len(t, sent.Personalizations[0].To, 1)
	assert.Equal(t, "owner@test.io", sent.Personalizations[0].To[0].Address)
	require.Len(t, sent.Content, 2)
	assert.Contains(t, sent.Content[0].Value, "Payment always fails")
}

func TestNotifyCriticalReportSafeOnNilAndFailure(t *testing.T) {
	var nilNotifier *Notifier
	nilNotifier.NotifyCriticalReport("owner@test.io", &db.BugReport{Title: "x"})

	n := NewNotifier("SG.key", "alerts@bugspot.io")
	n.send = func(*mail.SGMailV3) error { return errors.New("quota exceeded") }
	n.NotifyCriticalReport("owner@test.io", &db.BugReport{Title: "x"})

	n.NotifyCriticalReport("", &db.BugReport{Title: "x"})
}

package mailer

import (
	"fmt"

	"github.com/oksasatya/user-registry/internal/domain/event"
	mailtpl "github.com/oksasatya/user-registry/pkg/mailer/templates"
)

// Brand carries the sender-side fields shared by every email.
type Brand struct {
	AppName     string
	CompanyName string
	SupportURL  string
}

// EmailJob is a rendered-on-demand email addressed to one recipient.
type EmailJob struct {
	To       string
	Template string
	Data     mailtpl.EmailData
}

// ErrUnsupportedEvent is returned for event types that produce no email.
type ErrUnsupportedEvent struct{ Type event.Type }

func (e ErrUnsupportedEvent) Error() string {
	return fmt.Sprintf("no email for event type %q", e.Type)
}

// JobFromEvent maps a user event onto the email announcing it.
func JobFromEvent(evt event.UserEvent, brand Brand) (EmailJob, error) {
	var tpl string
	switch evt.Type {
	case event.UserCreated:
		tpl = mailtpl.UserCreated
	case event.UserDeleted:
		tpl = mailtpl.UserDeleted
	default:
		return EmailJob{}, ErrUnsupportedEvent{Type: evt.Type}
	}
	if evt.Email == "" {
		return EmailJob{}, fmt.Errorf("event %s for user %d has no email", evt.Type, evt.UserID)
	}
	return EmailJob{
		To:       evt.Email,
		Template: tpl,
		Data: mailtpl.EmailData{
			Name:        evt.Name,
			Email:       evt.Email,
			AppName:     brand.AppName,
			CompanyName: brand.CompanyName,
			SupportURL:  brand.SupportURL,
			OccurredAt:  evt.OccurredAt,
		},
	}, nil
}

// Render produces subject, plain text and HTML bodies for the job.
func (j EmailJob) Render() (subject, text, html string, err error) {
	return mailtpl.Render(j.Template, j.Data)
}

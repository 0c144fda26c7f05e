// Package consumer turns queued user events into notification emails.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-registry/internal/domain/event"
	"github.com/oksasatya/user-registry/pkg/mailer"
)

// Outcome is what happened to a delivery.
type Outcome string

const (
	Sent    Outcome = "sent"
	Skipped Outcome = "skipped" // acked without an email
	Dropped Outcome = "dropped" // rejected without requeue
	Retried Outcome = "retried" // rejected with requeue
)

// UserEventMailer handles deliveries from the user events queue.
type UserEventMailer struct {
	Sender      mailer.Sender
	Brand       mailer.Brand
	Logger      *logrus.Logger
	SendTimeout time.Duration
}

// Handle acks or nacks d. Undecodable or unrenderable messages are dropped;
// send failures are requeued.
func (m *UserEventMailer) Handle(ctx context.Context, d amqp.Delivery) Outcome {
	log := m.Logger.WithFields(logrus.Fields{"delivery_tag": d.DeliveryTag, "type": d.Type})

	var evt event.UserEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		log.WithError(err).Warn("bad message")
		_ = d.Nack(false, false)
		return Dropped
	}
	log = log.WithFields(logrus.Fields{"event": evt.Type, "user_id": evt.UserID})

	job, err := mailer.JobFromEvent(evt, m.Brand)
	if err != nil {
		var unsupported mailer.ErrUnsupportedEvent
		if errors.As(err, &unsupported) {
			log.Debug("event has no email")
			_ = d.Ack(false)
			return Skipped
		}
		log.WithError(err).Warn("unusable event")
		_ = d.Nack(false, false)
		return Dropped
	}

	subject, text, html, err := job.Render()
	if err != nil {
		log.WithError(err).Error("render failed")
		_ = d.Nack(false, false)
		return Dropped
	}

	timeout := m.SendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := m.Sender.Send(c, job.To, subject, text, html); err != nil {
		log.WithError(err).Error("send failed")
		_ = d.Nack(false, true)
		return Retried
	}
	_ = d.Ack(false)
	log.WithField("to", job.To).Info("email sent")
	return Sent
}

// Run handles deliveries until ctx is done or the channel closes.
func (m *UserEventMailer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			m.Handle(ctx, d)
		}
	}
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oksasatya/user-registry/config"
	"github.com/oksasatya/user-registry/internal/interface/consumer"
	"github.com/oksasatya/user-registry/pkg/helpers"
	"github.com/oksasatya/user-registry/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if err := run(cfg, logger); err != nil {
		helpers.LogError(logger, "email worker stopped", err, nil)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	var sender mailer.Sender
	if cfg.MailSendEnabled {
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
			return errors.New("mailgun not configured")
		}
		sender = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	} else {
		logger.Warn("MAIL_SEND_ENABLED=false; emails will be logged, not sent")
		sender = mailer.LogSender(func(to, subject string) {
			logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("email suppressed")
		})
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(16, 0, false); err != nil {
		return err
	}
	if err := helpers.DeclareQueue(ch, cfg.RabbitMQUserEventQueue); err != nil {
		return err
	}
	deliveries, err := ch.Consume(cfg.RabbitMQUserEventQueue, cfg.AppName+"-email-worker", false, false, false, false, nil)
	if err != nil {
		return err
	}

	m := &consumer.UserEventMailer{
		Sender: sender,
		Brand: mailer.Brand{
			AppName:     cfg.AppName,
			CompanyName: cfg.CompanyName,
			SupportURL:  cfg.SupportURL,
		},
		Logger: logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.Run(ctx, deliveries) })
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case err := <-closed:
			if err != nil {
				return err
			}
			return nil
		}
	})

	logger.WithField("queue", cfg.RabbitMQUserEventQueue).Info("email worker listening")
	return g.Wait()
}

package messaging

import (
	"context"
	"expvar"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-registry/internal/application"
	"github.com/oksasatya/user-registry/internal/domain/event"
)

// JSONPublisher is the subset of helpers.RabbitPublisher the notifier needs.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, msgType string, body any) error
}

// RabbitNotifier publishes user events as JSON messages.
type RabbitNotifier struct {
	Pub JSONPublisher
}

func NewRabbitNotifier(pub JSONPublisher) *RabbitNotifier {
	return &RabbitNotifier{Pub: pub}
}

func (n *RabbitNotifier) Publish(ctx context.Context, evt event.UserEvent) error {
	return n.Pub.PublishJSON(ctx, string(evt.Type), evt)
}

// LogNotifier only logs events. Used when no broker is configured.
type LogNotifier struct {
	Logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) Publish(_ context.Context, evt event.UserEvent) error {
	n.Logger.WithFields(logrus.Fields{
		"event":   evt.Type,
		"user_id": evt.UserID,
		"email":   evt.Email,
	}).Info("user event")
	return nil
}

// CountingNotifier wraps another notifier and keeps per-type counters that
// are published through expvar under the given name.
type CountingNotifier struct {
	Next      application.EventNotifier
	published *expvar.Map
	failed    *expvar.Map
}

// NewCountingNotifier registers "<name>" in expvar. Registering the same name
// twice reuses the existing maps.
func NewCountingNotifier(name string, next application.EventNotifier) *CountingNotifier {
	root, ok := expvar.Get(name).(*expvar.Map)
	if !ok {
		root = expvar.NewMap(name)
	}
	return &CountingNotifier{
		Next:      next,
		published: childMap(root, "published"),
		failed:    childMap(root, "failed"),
	}
}

func childMap(root *expvar.Map, key string) *expvar.Map {
	if m, ok := root.Get(key).(*expvar.Map); ok {
		return m
	}
	m := new(expvar.Map).Init()
	root.Set(key, m)
	return m
}

func (n *CountingNotifier) Publish(ctx context.Context, evt event.UserEvent) error {
	if err := n.Next.Publish(ctx, evt); err != nil {
		n.failed.Add(string(evt.Type), 1)
		return err
	}
	n.published.Add(string(evt.Type), 1)
	return nil
}

// Published returns the number of successfully published events of type t.
func (n *CountingNotifier) Published(t event.Type) int64 {
	return intVar(n.published, string(t))
}

// Failed returns the number of failed publishes of type t.
func (n *CountingNotifier) Failed(t event.Type) int64 {
	return intVar(n.failed, string(t))
}

func intVar(m *expvar.Map, key string) int64 {
	if v, ok := m.Get(key).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

var (
	_ application.EventNotifier = (*RabbitNotifier)(nil)
	_ application.EventNotifier = (*LogNotifier)(nil)
	_ application.EventNotifier = (*CountingNotifier)(nil)
)

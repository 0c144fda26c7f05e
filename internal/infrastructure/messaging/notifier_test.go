package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-registry/internal/domain/event"
)

type fakePublisher struct {
	types  []string
	bodies [][]byte
	err    error
}

func (p *fakePublisher) PublishJSON(_ context.Context, msgType string, body any) error {
	if p.err != nil {
		return p.err
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	p.types = append(p.types, msgType)
	p.bodies = append(p.bodies, b)
	return nil
}

func TestRabbitNotifier_PublishesEventJSON(t *testing.T) {
	pub := &fakePublisher{}
	n := NewRabbitNotifier(pub)

	require.NoError(t, n.Publish(context.Background(), event.Created(7, "a@b.com", "A")))
	require.Len(t, pub.types, 1)
	assert.Equal(t, "user.created", pub.types[0])

	var got event.UserEvent
	require.NoError(t, json.Unmarshal(pub.bodies[0], &got))
	assert.Equal(t, event.UserCreated, got.Type)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "a@b.com", got.Email)
	assert.False(t, got.OccurredAt.IsZero())
}

func TestCountingNotifier(t *testing.T) {
	pub := &fakePublisher{}
	n := NewCountingNotifier("test_user_events", NewRabbitNotifier(pub))
	ctx := context.Background()

	require.NoError(t, n.Publish(ctx, event.Created(1, "a@b.com", "A")))
	require.NoError(t, n.Publish(ctx, event.Deleted(1, "a@b.com", "A")))

	pub.err = errors.New("channel closed")
	require.Error(t, n.Publish(ctx, event.Created(2, "b@b.com", "B")))

	assert.Equal(t, int64(1), n.Published(event.UserCreated))
	assert.Equal(t, int64(1), n.Published(event.UserDeleted))
	assert.Equal(t, int64(1), n.Failed(event.UserCreated))
	assert.Equal(t, int64(0), n.Failed(event.UserDeleted))

	// same expvar name is reused rather than panicking on re-registration
	again := NewCountingNotifier("test_user_events", NewRabbitNotifier(&fakePublisher{}))
	assert.Equal(t, int64(1), again.Published(event.UserCreated))
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	require.NoError(t, NewLogNotifier(logger).Publish(context.Background(), event.Deleted(3, "c@b.com", "C")))
	assert.Contains(t, buf.String(), `"event":"user.deleted"`)
	assert.Contains(t, buf.String(), `"email":"c@b.com"`)
}

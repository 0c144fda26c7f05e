package container

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-registry/config"
	"github.com/oksasatya/user-registry/internal/application"
	"github.com/oksasatya/user-registry/internal/domain/event"
)

func TestNewInMemory(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := NewInMemory(config.Load(), logger)
	defer c.Close()

	assert.Nil(t, c.Pool)
	assert.Empty(t, c.Ping(context.Background()))

	before := c.Events.Published(event.UserCreated)
	age := 20
	id, err := c.Users.CreateUser(context.Background(), application.UserInput{Name: "Ann", Email: "ann@example.com", Age: &age})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, before+1, c.Events.Published(event.UserCreated))
}

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishWithoutHandlers(t *testing.T) {
	bus := NewBus(nil)

	// Must not panic or block.
	bus.Publish(context.Background(), Event{Name: UserLogin})
}

func TestHandlersRunInRegistrationOrder(t *testing.T) {
	bus := NewBus(nil)
	var order []string

	bus.Subscribe(UserLogin, func(ctx context.Context, evt Event) error {
		order = append(order, "first")
		return nil
	})
	bus.Subscribe(UserLogin, func(ctx context.Context, evt Event) error {
		order = append(order, "second")
		return nil
	})

	bus.Publish(context.Background(), Event{Name: UserLogin})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestHandlersOnlyReceiveMatchingEvents(t *testing.T) {
	bus := NewBus(nil)
	calls := 0

	bus.Subscribe(UserLogin, func(ctx context.Context, evt Event) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), Event{Name: UserLogout})
	assert.Zero(t, calls)

	bus.Publish(context.Background(), Event{Name: UserLogin})
	assert.Equal(t, 1, calls)
}

func TestWildcardReceivesEverythingAfterNamed(t *testing.T) {
	bus := NewBus(nil)
	var order []string

	bus.Subscribe(Wildcard, func(ctx context.Context, evt Event) error {
		order = append(order, "wild:"+evt.Name)
		return nil
	})
	bus.Subscribe(PostCreated, func(ctx context.Context, evt Event) error {
		order = append(order, "named:"+evt.Name)
		return nil
	})

	bus.Publish(context.Background(), Event{Name: PostCreated})
	bus.Publish(context.Background(), Event{Name: UserLogin})

	assert.Equal(t, []string{
		"named:post.created",
		"wild:post.created",
		"wild:user.login",
	}, order)
}

func TestFailingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewBus(nil)
	reached := false

	bus.Subscribe(UserLogin, func(ctx context.Context, evt Event) error {
		return errors.New("broker down")
	})
	bus.Subscribe(UserLogin, func(ctx context.Context, evt Event) error {
		reached = true
		return nil
	})

	bus.Publish(context.Background(), Event{Name: UserLogin})
	assert.True(t, reached)
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus(nil)
	reached := false

	bus.Subscribe(UserLogin, func(ctx context.Context, evt Event) error {
		panic("handler bug")
	})
	bus.Subscribe(UserLogin, func(ctx context.Context, evt Event) error {
		reached = true
		return nil
	})

	// The panic must not escape Publish.
	bus.Publish(context.Background(), Event{Name: UserLogin})
	assert.True(t, reached)
}

func TestPublishStampsTime(t *testing.T) {
	bus := NewBus(nil)
	var got Event

	bus.Subscribe(UserLogin, func(ctx context.Context, evt Event) error {
		got = evt
		return nil
	})

	bus.Publish(context.Background(), Event{Name: UserLogin})
	assert.False(t, got.At.IsZero())

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bus.Publish(context.Background(), Event{Name: UserLogin, At: at})
	assert.Equal(t, at, got.At)
}

func TestUserEventPayload(t *testing.T) {
	evt := UserEvent(UserLogin, "42")
	require.Equal(t, UserLogin, evt.Name)
	assert.Equal(t, "42", evt.Payload["subject"])
	assert.NotEmpty(t, evt.Payload["timestamp"])
}

func TestPostEventPayload(t *testing.T) {
	evt := PostEvent(PostDeleted, 7, "42")
	require.Equal(t, PostDeleted, evt.Name)
	assert.Equal(t, 7, evt.Payload["post_id"])
	assert.Equal(t, "42", evt.Payload["actor"])
}

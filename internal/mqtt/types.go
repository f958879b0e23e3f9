package mqtt

import (
	"context"
)

// MessageHandler is the callback invoked for a received message.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client is the subset of MQTT behavior the rover needs: status
// subscription and cycle report publication.
type Client interface {
	// Start initiates the connection to the broker. It does not block; use AwaitConnection.
	Start(ctx context.Context) error

	Disconnect(ctx context.Context)

	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers handler for a topic filter. Subscriptions are
	// re-sent after every reconnect.
	Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error

	AwaitConnection(ctx context.Context) error
}

// Personal.AI order the ending

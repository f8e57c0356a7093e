package ports

import "context"

// EventPublisher publishes wallet lifecycle events to notify other parts of
// the system.
type EventPublisher interface {
	PublishConnected(ctx context.Context, address string, chainID int64) error
	PublishDisconnected(ctx context.Context, address string, reason string) error
	PublishChainSwitched(ctx context.Context, address string, chainID int64) error
}

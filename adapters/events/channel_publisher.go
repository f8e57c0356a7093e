package events

import (
	"context"
	"time"
)

// LifecycleEvent is the in-process form of a wallet lifecycle event.
type LifecycleEvent struct {
	Kind    string    `json:"kind"` // connected, disconnected, chain_switched
	Address string    `json:"address"`
	ChainID int64     `json:"chain_id,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

// ChannelPublisher delivers lifecycle events on an in-process channel.
// Used when no message broker is configured. A slow consumer drops events
// rather than blocking the state machine.
type ChannelPublisher struct {
	ch chan LifecycleEvent
}

func NewChannelPublisher(buffer int) *ChannelPublisher {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelPublisher{ch: make(chan LifecycleEvent, buffer)}
}

// Events is the consumer side of the publisher.
func (p *ChannelPublisher) Events() <-chan LifecycleEvent {
	return p.ch
}

func (p *ChannelPublisher) PublishConnected(ctx context.Context, address string, chainID int64) error {
	p.emit(LifecycleEvent{Kind: "connected", Address: address, ChainID: chainID, At: time.Now()})
	return nil
}

func (p *ChannelPublisher) PublishDisconnected(ctx context.Context, address string, reason string) error {
	p.emit(LifecycleEvent{Kind: "disconnected", Address: address, Reason: reason, At: time.Now()})
	return nil
}

func (p *ChannelPublisher) PublishChainSwitched(ctx context.Context, address string, chainID int64) error {
	p.emit(LifecycleEvent{Kind: "chain_switched", Address: address, ChainID: chainID, At: time.Now()})
	return nil
}

func (p *ChannelPublisher) emit(ev LifecycleEvent) {
	select {
	case p.ch <- ev:
	default:
	}
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/parkview-app/walletcore/ports"
)

const (
	// TopicConnected carries wallet connected events.
	TopicConnected = "wallet.connected"
	// TopicDisconnected carries wallet disconnected events.
	TopicDisconnected = "wallet.disconnected"
	// TopicChainSwitched carries network switch events.
	TopicChainSwitched = "wallet.chain_switched"
)

// ConnectedEvent is published when a session is established.
type ConnectedEvent struct {
	Address string    `json:"address"`
	ChainID int64     `json:"chain_id"`
	At      time.Time `json:"at"`
}

// DisconnectedEvent is published when a session ends.
type DisconnectedEvent struct {
	Address string    `json:"address"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

// ChainSwitchedEvent is published when the session's chain changes.
type ChainSwitchedEvent struct {
	Address string    `json:"address"`
	ChainID int64     `json:"chain_id"`
	At      time.Time `json:"at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishConnected publishes a wallet connected event
func (p *WatermillPublisher) PublishConnected(ctx context.Context, address string, chainID int64) error {
	return p.publish(TopicConnected, ConnectedEvent{Address: address, ChainID: chainID, At: time.Now()})
}

// PublishDisconnected publishes a wallet disconnected event
func (p *WatermillPublisher) PublishDisconnected(ctx context.Context, address string, reason string) error {
	return p.publish(TopicDisconnected, DisconnectedEvent{Address: address, Reason: reason, At: time.Now()})
}

// PublishChainSwitched publishes a network switch event
func (p *WatermillPublisher) PublishChainSwitched(ctx context.Context, address string, chainID int64) error {
	return p.publish(TopicChainSwitched, ChainSwitchedEvent{Address: address, ChainID: chainID, At: time.Now()})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

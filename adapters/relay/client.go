package relay

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsHandshakeTimeout = 15 * time.Second
	wsWriteTimeout     = 10 * time.Second

	// defaultTTL is the relay-side retention for published messages, so a
	// wallet that is briefly offline still receives them.
	defaultTTL = 300
)

// MessageHandler receives decoded subscription pushes from the relay.
type MessageHandler func(topic, message string)

// Client is the websocket connection to the relay. It multiplexes RPC calls
// by id and routes subscription pushes to a single handler.
type Client struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[int64]chan rpcResponse

	nextID  atomic.Int64
	handler atomic.Pointer[MessageHandler]

	closeOnce sync.Once
	done      chan struct{}
}

// DialRelay opens an authenticated websocket to the relay endpoint.
func DialRelay(ctx context.Context, relayURL, projectID string, authKey *ecdsa.PrivateKey, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	token, err := NewAuthToken(authKey, relayURL, projectID)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(relayURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay url %q: %w", relayURL, err)
	}
	q := u.Query()
	q.Set("projectId", projectID)
	q.Set("auth", token)
	u.RawQuery = q.Encode()

	dialer := &websocket.Dialer{
		HandshakeTimeout:  wsHandshakeTimeout,
		EnableCompression: false,
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("relay handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial relay: %w", err)
	}

	c := &Client{
		conn:    conn,
		logger:  logger,
		pending: make(map[int64]chan rpcResponse),
		done:    make(chan struct{}),
	}

	go c.readPump()

	logger.Info("relay connected", zap.String("url", relayURL))
	return c, nil
}

// SetMessageHandler installs the handler for subscription pushes.
func (c *Client) SetMessageHandler(h MessageHandler) {
	c.handler.Store(&h)
}

// Call performs one RPC round trip on the relay connection.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s params: %w", method, err)
	}

	id := c.nextID.Add(1)
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: raw}

	ch := make(chan rpcResponse, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.writeJSON(req); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("relay error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, fmt.Errorf("relay connection closed")
	}
}

// Subscribe registers interest in a topic.
func (c *Client) Subscribe(ctx context.Context, topic string) error {
	_, err := c.Call(ctx, methodSubscribe, subscribeParams{Topic: topic})
	if err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", topic, err)
	}
	return nil
}

// Unsubscribe drops interest in a topic.
func (c *Client) Unsubscribe(ctx context.Context, topic string) error {
	_, err := c.Call(ctx, methodUnsubscribe, subscribeParams{Topic: topic})
	if err != nil {
		return fmt.Errorf("failed to unsubscribe %s: %w", topic, err)
	}
	return nil
}

// Publish sends an envelope to a topic.
func (c *Client) Publish(ctx context.Context, topic, message string, tag int) error {
	_, err := c.Call(ctx, methodPublish, publishParams{
		Topic:   topic,
		Message: message,
		TTL:     defaultTTL,
		Tag:     tag,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("relay write failed: %w", err)
	}
	return nil
}

func (c *Client) readPump() {
	defer c.shutdown()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("relay read failed", zap.Error(err))
			}
			return
		}

		// A frame is either a response to one of our calls or an inbound
		// subscription push.
		var probe struct {
			ID     int64  `json:"id"`
			Method string `json:"method"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			c.logger.Warn("undecodable relay frame", zap.Error(err))
			continue
		}

		if probe.Method == methodSubscription {
			var req rpcRequest
			if err := json.Unmarshal(data, &req); err != nil {
				continue
			}
			var params subscriptionParams
			if err := json.Unmarshal(req.Params, &params); err != nil {
				c.logger.Warn("undecodable subscription push", zap.Error(err))
				continue
			}

			// Ack before dispatch; the relay redelivers unacked messages.
			ack := rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`true`)}
			if err := c.writeJSON(ack); err != nil {
				c.logger.Warn("failed to ack subscription push", zap.Error(err))
			}

			if h := c.handler.Load(); h != nil {
				(*h)(params.Data.Topic, params.Data.Message)
			}
			continue
		}

		var resp rpcResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			continue
		}
		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		c.pendingMu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Done is closed when the connection terminates.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close tears down the websocket.
func (c *Client) Close() error {
	c.shutdown()
	return nil
}

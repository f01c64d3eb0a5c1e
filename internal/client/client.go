package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"github.com/xiaomi-sm6250/powerhal/internal/protocol"
)

const writeTimeout = 10 * time.Second

// Client sends requests to a running HAL and waits for their acknowledgements.
type Client struct {
	conn   *websocket.Conn
	nextID *atomic.Int64

	// mu serializes request/response pairs on the connection.
	mu sync.Mutex
}

// Dial connects to the HAL endpoint at url.
func Dial(ctx context.Context, url string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: writeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn, nextID: atomic.NewInt64(0)}, nil
}

// Call sends one request and returns the matching response. Responses for
// other ids are discarded.
func (c *Client) Call(ctx context.Context, typ string, payload interface{}) (protocol.Response, error) {
	req := protocol.Request{
		ID:   strconv.FormatInt(c.nextID.Inc(), 10),
		Type: typ,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return protocol.Response{}, fmt.Errorf("encode %s: %w", typ, err)
		}
		req.Payload = raw
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(req); err != nil {
		return protocol.Response{}, fmt.Errorf("send %s: %w", typ, err)
	}

	_ = c.conn.SetReadDeadline(deadline)
	for {
		var resp protocol.Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			return protocol.Response{}, fmt.Errorf("read %s result: %w", typ, err)
		}
		if resp.ID == req.ID {
			return resp, nil
		}
	}
}

// Do is Call followed by decoding the result payload into out. A response
// with success=false is returned as an error carrying the HAL's message.
func (c *Client) Do(ctx context.Context, typ string, payload, out interface{}) error {
	resp, err := c.Call(ctx, typ, payload)
	if err != nil {
		return err
	}
	if !resp.Success {
		var e protocol.ErrorPayload
		if len(resp.Payload) > 0 && json.Unmarshal(resp.Payload, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s: %s", typ, e.Error)
		}
		if out != nil && len(resp.Payload) > 0 {
			_ = json.Unmarshal(resp.Payload, out)
		}
		return fmt.Errorf("%s: not handled", typ)
	}
	if out != nil && len(resp.Payload) > 0 {
		if err := json.Unmarshal(resp.Payload, out); err != nil {
			return fmt.Errorf("decode %s result: %w", typ, err)
		}
	}
	return nil
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

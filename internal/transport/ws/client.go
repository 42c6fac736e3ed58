// Package ws implements zome.Caller over a websocket connection to the conductor.
//
// Each call is a JSON frame carrying a request id; responses are matched back
// to their caller by that id, so calls may be issued concurrently.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hay-kot/lobby/internal/core/zome"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 << 20
)

// Frame types.
const (
	TypeCall   = "call"
	TypeResult = "result"
	TypeError  = "error"
)

// Error kinds reported by the conductor. Guest errors come from zome code.
const (
	ErrorGuest    = "guest"
	ErrorInternal = "internal"
)

// Request is the frame sent for every call.
type Request struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Zome    string          `json:"zome"`
	Fn      string          `json:"fn"`
	Cap     []byte          `json:"cap,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the frame answering a Request with the same ID.
type Response struct {
	ID    string          `json:"id"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody describes a failed call.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Client is a connected conductor client. It is safe for concurrent use.
type Client struct {
	conn *websocket.Conn
	log  zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Response

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the conductor at url.
func Dial(ctx context.Context, url string, log zerolog.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w: %w", url, zome.ErrTransport, err)
	}

	c := &Client{
		conn:    conn,
		log:     log,
		pending: make(map[string]chan Response),
		done:    make(chan struct{}),
	}

	go c.readLoop()
	go c.pingLoop()

	log.Debug().Str("url", url).Msg("connected to conductor")
	return c, nil
}

// Call implements zome.Caller.
func (c *Client) Call(ctx context.Context, req zome.Request, out any) error {
	frame := Request{
		ID:   uuid.NewString(),
		Type: TypeCall,
		Zome: req.Zome,
		Fn:   req.Fn,
		Cap:  req.Cap,
	}
	if req.Payload != nil {
		data, err := json.Marshal(req.Payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", req, err)
		}
		frame.Payload = data
	}

	ch := make(chan Response, 1)
	c.mu.Lock()
	c.pending[frame.ID] = ch
	c.mu.Unlock()
	defer c.forget(frame.ID)

	if err := c.write(frame); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.err()
	case resp := <-ch:
		return decode(req, resp, out)
	}
}

func decode(req zome.Request, resp Response, out any) error {
	if resp.Type == TypeError || resp.Error != nil {
		body := resp.Error
		if body == nil {
			body = &ErrorBody{Kind: ErrorInternal, Message: "error frame without body"}
		}
		if body.Kind == ErrorGuest {
			return &zome.RemoteError{Zome: req.Zome, Fn: req.Fn, Message: body.Message}
		}
		return fmt.Errorf("%s: %w: %s", req, zome.ErrTransport, body.Message)
	}

	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("%s: %w: malformed result: %w", req, zome.ErrTransport, err)
	}
	return nil
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) write(frame Request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return c.err()
	default:
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(frame); err != nil {
		c.shutdown(err)
		return fmt.Errorf("send %s/%s: %w: %w", frame.Zome, frame.Fn, zome.ErrTransport, err)
	}
	return nil
}

func (c *Client) readLoop() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil || resp.ID == "" {
			c.log.Warn().Err(err).Int("bytes", len(data)).Msg("dropping malformed frame")
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		c.mu.Unlock()
		if !ok {
			c.log.Debug().Str("id", resp.ID).Msg("response for unknown or abandoned call")
			continue
		}
		select {
		case ch <- resp:
		default:
			c.log.Warn().Str("id", resp.ID).Msg("duplicate response")
		}
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				c.shutdown(err)
				return
			}
		}
	}
}

func (c *Client) shutdown(cause error) {
	c.closeOnce.Do(func() {
		if cause == nil || websocket.IsCloseError(cause, websocket.CloseNormalClosure) {
			cause = errors.New("connection closed")
		}
		c.closeErr = fmt.Errorf("%w: %w", zome.ErrTransport, cause)
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) err() error {
	<-c.done
	return c.closeErr
}

// Close closes the connection. Pending calls fail with zome.ErrTransport.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()

	c.shutdown(nil)
	return nil
}

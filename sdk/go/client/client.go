// Package client is a Go client for the runhole server, over WebSocket or
// QUIC.
package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/runhole/internal/core/observability/log"
	"github.com/zeusync/runhole/internal/server"
)

// Client represents one controlling participant connection.
type Client struct {
	conn    transport
	session string

	frames chan server.Outbound
	done   chan struct{}

	// Client state
	closed  int32 // atomic bool
	writeMu sync.Mutex

	config Config
	logger log.Log
}

// Config holds configuration for the client
type Config struct {
	// URL is the server's WebSocket endpoint, e.g. ws://localhost:8080/ws.
	// DialQUIC takes a host:port address instead.
	URL            string
	Token          string
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	// FrameBuffer is how many unread frames are kept before the reader blocks.
	FrameBuffer int
	// TLS is used by DialQUIC. The runhole ALPN is added when NextProtos is
	// empty.
	TLS    *tls.Config
	Logger log.Log
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() Config {
	return Config{
		URL:            "ws://localhost:8080/ws",
		ConnectTimeout: 10 * time.Second,
		WriteTimeout:   5 * time.Second,
		FrameBuffer:    256,
	}
}

// transport moves whole JSON messages in both directions.
type transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	// Normal reports whether a read error is the server's goodbye.
	Normal(err error) bool
	Close() error
}

// Dial connects over WebSocket and waits for the welcome frame.
func Dial(ctx context.Context, config Config) (*Client, error) {
	config, err := prepare(config)
	if err != nil {
		return nil, err
	}
	ctx, cancel := connectContext(ctx, config)
	defer cancel()

	url := config.URL
	if config.Token != "" {
		url += "?token=" + config.Token
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return start(ctx, &wsTransport{conn: conn}, config)
}

func prepare(config Config) (Config, error) {
	if config.URL == "" {
		return config, ErrInvalidConfig
	}
	if config.Logger == nil {
		config.Logger = log.NewNop()
	}
	if config.FrameBuffer <= 0 {
		config.FrameBuffer = DefaultClientConfig().FrameBuffer
	}
	return config, nil
}

func connectContext(ctx context.Context, config Config) (context.Context, context.CancelFunc) {
	if config.ConnectTimeout > 0 {
		return context.WithTimeout(ctx, config.ConnectTimeout)
	}
	return ctx, func() {}
}

// start reads the welcome frame and launches the frame reader.
func start(ctx context.Context, conn transport, config Config) (*Client, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	data, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Time{})

	var welcome server.Outbound
	if err = json.Unmarshal(data, &welcome); err != nil || welcome.Type != server.FrameWelcome {
		_ = conn.Close()
		return nil, ErrInvalidMessage
	}

	c := &Client{
		conn:    conn,
		session: welcome.Session,
		frames:  make(chan server.Outbound, config.FrameBuffer),
		done:    make(chan struct{}),
		config:  config,
		logger:  config.Logger.With(log.String("component", "client"), log.String("session", welcome.Session)),
	}
	go c.readFrames()

	c.logger.Info("Connected", log.String("url", config.URL))
	return c, nil
}

// Session is the server-assigned session ID.
func (c *Client) Session() string { return c.session }

// Frames delivers tick frames and the final over frame. The channel is
// closed when the connection ends.
func (c *Client) Frames() <-chan server.Outbound { return c.frames }

// Done is closed once the reader stops.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) readFrames() {
	defer close(c.done)
	defer close(c.frames)
	for {
		data, err := c.conn.ReadMessage()
		if err != nil {
			if atomic.LoadInt32(&c.closed) == 0 && !c.conn.Normal(err) {
				c.logger.Warn("Read failed", log.Error(err))
			}
			// answer the server's goodbye
			_ = c.Close()
			return
		}
		var frame server.Outbound
		if err = json.Unmarshal(data, &frame); err != nil {
			c.logger.Debug("Dropping frame", log.Error(err))
			continue
		}
		c.frames <- frame
	}
}

// Steer sends the full movement key state.
func (c *Client) Steer(keys server.Inbound) error {
	keys.Type = server.CommandSteer
	return c.send(keys)
}

func (c *Client) Look(yaw, pitch float64) error {
	return c.send(server.Inbound{Type: server.CommandLook, Yaw: yaw, Pitch: pitch})
}

func (c *Client) Roll(clockwise bool) error {
	return c.send(server.Inbound{Type: server.CommandRoll, Clockwise: clockwise})
}

func (c *Client) Quit() error {
	return c.send(server.Inbound{Type: server.CommandQuit})
}

func (c *Client) send(msg server.Inbound) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return ErrClientClosed
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var deadline time.Time
	if c.config.WriteTimeout > 0 {
		deadline = time.Now().Add(c.config.WriteTimeout)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(data, deadline)
}

// Close says goodbye and drops the connection. Multiple calls are safe.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.Close()
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) WriteMessage(data []byte, deadline time.Time) error {
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) SetReadDeadline(d time.Time) error { return t.conn.SetReadDeadline(d) }

func (t *wsTransport) Normal(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

func (t *wsTransport) Close() error {
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return t.conn.Close()
}

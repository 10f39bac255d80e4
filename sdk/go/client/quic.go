package client

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/zeusync/runhole/internal/server"
)

// maxFrameSize bounds one server frame on a QUIC stream.
const maxFrameSize = 1 << 20

// DialQUIC connects to the server's QUIC listener at config.URL (host:port),
// presents the token in the hello and waits for the welcome frame.
func DialQUIC(ctx context.Context, config Config) (*Client, error) {
	config, err := prepare(config)
	if err != nil {
		return nil, err
	}
	ctx, cancel := connectContext(ctx, config)
	defer cancel()

	tlsConfig := config.TLS.Clone()
	if tlsConfig == nil {
		tlsConfig = &tls.Config{}
	}
	if len(tlsConfig.NextProtos) == 0 {
		tlsConfig.NextProtos = []string{server.QUICProtocol}
	}

	conn, err := quic.DialAddr(ctx, config.URL, tlsConfig, &quic.Config{KeepAlivePeriod: 10 * time.Second})
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(server.QUICCodeProtocol, "no stream")
		return nil, err
	}
	t := newQUICTransport(conn, stream)

	hello, err := json.Marshal(server.Inbound{Type: server.CommandHello, Token: config.Token})
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	deadline, _ := ctx.Deadline()
	if err = t.WriteMessage(hello, deadline); err != nil {
		_ = t.Close()
		return nil, rejection(err)
	}

	c, err := start(ctx, t, config)
	if err != nil {
		return nil, rejection(err)
	}
	return c, nil
}

// rejection maps the server's close codes onto the server package errors.
func rejection(err error) error {
	var appErr *quic.ApplicationError
	if !errors.As(err, &appErr) || !appErr.Remote {
		return err
	}
	switch appErr.ErrorCode {
	case server.QUICCodeUnauthorized:
		return server.ErrUnauthorized
	case server.QUICCodeUnavailable:
		return fmt.Errorf("%w: %s", ErrRejected, appErr.ErrorMessage)
	default:
		return err
	}
}

type quicTransport struct {
	conn   *quic.Conn
	stream *quic.Stream
	lines  *bufio.Scanner
}

func newQUICTransport(conn *quic.Conn, stream *quic.Stream) *quicTransport {
	lines := bufio.NewScanner(stream)
	lines.Buffer(make([]byte, 0, 4096), maxFrameSize)
	return &quicTransport{conn: conn, stream: stream, lines: lines}
}

func (t *quicTransport) ReadMessage() ([]byte, error) {
	if !t.lines.Scan() {
		if err := t.lines.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return append([]byte(nil), t.lines.Bytes()...), nil
}

func (t *quicTransport) WriteMessage(data []byte, deadline time.Time) error {
	if err := t.stream.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err := t.stream.Write(append(data, '\n'))
	return err
}

func (t *quicTransport) SetReadDeadline(d time.Time) error { return t.stream.SetReadDeadline(d) }

func (t *quicTransport) Normal(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var appErr *quic.ApplicationError
	return errors.As(err, &appErr) && appErr.ErrorCode == server.QUICCodeNormal
}

func (t *quicTransport) Close() error {
	_ = t.stream.Close()
	return t.conn.CloseWithError(server.QUICCodeNormal, "")
}

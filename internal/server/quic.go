package server

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/zeusync/runhole/internal/core/observability/log"
)

// QUICProtocol is the ALPN name both ends negotiate.
const QUICProtocol = "runhole"

// Application error codes a QUIC connection is closed with.
const (
	QUICCodeNormal quic.ApplicationErrorCode = iota
	QUICCodeUnauthorized
	QUICCodeUnavailable
	QUICCodeProtocol
	QUICCodeInternal
)

// listenQUIC opens the UDP listener. The client opens one bidirectional
// stream, sends a hello line and then exchanges the same newline-delimited
// JSON messages a WebSocket client does.
func (s *Server) listenQUIC() (*quic.Listener, error) {
	tlsConfig, err := s.quicTLSConfig()
	if err != nil {
		return nil, err
	}
	return quic.ListenAddr(s.config.Server.QUIC.Listen, tlsConfig, &quic.Config{
		MaxIdleTimeout:        30 * time.Second,
		KeepAlivePeriod:       10 * time.Second,
		MaxIncomingStreams:    1,
		MaxIncomingUniStreams: -1,
	})
}

func (s *Server) acceptQUIC(ctx context.Context, ln *quic.Listener) error {
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if errors.Is(err, quic.ErrServerClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handleQUIC(conn)
	}
}

// handleQUIC waits for the hello, admits the client and runs its session.
func (s *Server) handleQUIC(conn *quic.Conn) {
	remote := conn.RemoteAddr().String()
	timeout := s.config.Server.QUIC.HandshakeTimeout

	ctx, cancel := context.WithTimeout(conn.Context(), timeout)
	stream, err := conn.AcceptStream(ctx)
	cancel()
	if err != nil {
		s.logger.Debug("QUIC client opened no stream", log.String("remote_addr", remote), log.Error(err))
		_ = conn.CloseWithError(QUICCodeProtocol, "no stream")
		return
	}

	l := newQUICLink(conn, stream, s.config.Server.MaxMessageSize, s.config.Server.WriteTimeout)
	_ = stream.SetReadDeadline(time.Now().Add(timeout))
	data, err := l.ReadMessage()
	_ = stream.SetReadDeadline(time.Time{})
	if err != nil {
		s.logger.Debug("QUIC hello not received", log.String("remote_addr", remote), log.Error(err))
		_ = conn.CloseWithError(QUICCodeProtocol, "no hello")
		return
	}
	hello, err := DecodeHello(data)
	if err != nil {
		s.logger.Debug("QUIC hello rejected", log.String("remote_addr", remote), log.Error(err))
		_ = conn.CloseWithError(QUICCodeProtocol, err.Error())
		return
	}

	if err = s.auth.CheckToken(hello.Token); err != nil {
		s.logger.Warn("Connection rejected", log.String("remote_addr", remote), log.Error(err))
		_ = conn.CloseWithError(QUICCodeUnauthorized, err.Error())
		return
	}
	if err = s.admit(); err != nil {
		s.logger.Warn("Session refused", log.String("remote_addr", remote), log.Error(err))
		_ = conn.CloseWithError(QUICCodeUnavailable, err.Error())
		return
	}

	s.serve(l, remote, "quic")
}

type quicLink struct {
	conn    *quic.Conn
	stream  *quic.Stream
	lines   *bufio.Scanner
	timeout time.Duration
}

func newQUICLink(conn *quic.Conn, stream *quic.Stream, maxMessage int64, timeout time.Duration) *quicLink {
	lines := bufio.NewScanner(stream)
	lines.Buffer(make([]byte, 0, 1024), int(maxMessage))
	return &quicLink{conn: conn, stream: stream, lines: lines, timeout: timeout}
}

func (l *quicLink) ReadMessage() ([]byte, error) {
	if !l.lines.Scan() {
		if err := l.lines.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return append([]byte(nil), l.lines.Bytes()...), nil
}

func (l *quicLink) WriteMessage(data []byte) error {
	if err := l.stream.SetWriteDeadline(time.Now().Add(l.timeout)); err != nil {
		return err
	}
	_, err := l.stream.Write(data)
	return err
}

// Close finishes the stream and gives the peer until the write timeout to
// read the last frames and hang up.
func (l *quicLink) Close(reason string, failure error) {
	if failure != nil {
		_ = l.conn.CloseWithError(QUICCodeInternal, reason)
		return
	}
	_ = l.stream.Close()
	select {
	case <-l.conn.Context().Done():
	case <-time.After(l.timeout):
	}
	_ = l.conn.CloseWithError(QUICCodeNormal, reason)
}

// quicTLSConfig loads the configured certificate pair or generates a
// self-signed one for local play.
func (s *Server) quicTLSConfig() (*tls.Config, error) {
	q := s.config.Server.QUIC

	var (
		cert tls.Certificate
		err  error
	)
	if q.CertFile != "" {
		cert, err = tls.LoadX509KeyPair(q.CertFile, q.KeyFile)
	} else {
		cert, err = selfSignedCertificate()
	}
	if err != nil {
		return nil, fmt.Errorf("quic certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{QUICProtocol},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

func selfSignedCertificate() (tls.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{Organization: []string{"runhole"}},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}

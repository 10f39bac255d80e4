package client

import (
	"context"
	"crypto/tls"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/runhole/internal/config"
	"github.com/zeusync/runhole/internal/core/session"
	"github.com/zeusync/runhole/internal/server"
)

func startServer(t *testing.T, mutate func(*config.Config)) *server.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Server.QUIC.Listen = "127.0.0.1:0"
	cfg.Server.TickRate = 5 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := server.NewServer(cfg, nil, nil)
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func quicConfig(srv *server.Server) Config {
	cc := DefaultClientConfig()
	cc.URL = srv.QUICAddr().String()
	cc.TLS = &tls.Config{InsecureSkipVerify: true}
	return cc
}

// play steers left until the body moves, quits and returns the over frame.
func play(t *testing.T, c *Client) server.Outbound {
	t.Helper()
	require.NotEmpty(t, c.Session())
	require.NoError(t, c.Steer(server.Inbound{Left: true}))

	moved := false
	timeout := time.After(5 * time.Second)
	for !moved {
		select {
		case f := <-c.Frames():
			require.Equal(t, server.FrameTick, f.Type)
			moved = f.Snapshot.Position.X >= 1
		case <-timeout:
			t.Fatal("body never moved")
		}
	}

	require.NoError(t, c.Steer(server.Inbound{}))
	require.NoError(t, c.Quit())

	var over server.Outbound
	for f := range c.Frames() {
		if f.Type == server.FrameOver {
			over = f
		}
	}
	return over
}

func TestClient(t *testing.T) {
	t.Run("WebSocket", func(t *testing.T) {
		srv := startServer(t, nil)

		cc := DefaultClientConfig()
		cc.URL = "ws://" + srv.Addr().String() + "/ws"
		c, err := Dial(context.Background(), cc)
		require.NoError(t, err)
		defer c.Close()

		over := play(t, c)
		require.Equal(t, session.EndPlayerQuit, over.Stats.End)
		require.GreaterOrEqual(t, over.Stats.Moves, 1)

		<-c.Done()
		require.NoError(t, c.Close())
		require.ErrorIs(t, c.Quit(), ErrClientClosed)
	})

	t.Run("QUIC", func(t *testing.T) {
		srv := startServer(t, nil)

		c, err := DialQUIC(context.Background(), quicConfig(srv))
		require.NoError(t, err)
		defer c.Close()

		over := play(t, c)
		require.Equal(t, c.Session(), over.Session)
		require.Equal(t, session.EndPlayerQuit, over.Stats.End)
		require.GreaterOrEqual(t, over.Stats.Moves, 1)

		<-c.Done()
		require.ErrorIs(t, c.Quit(), ErrClientClosed)
	})

	t.Run("QUIC token", func(t *testing.T) {
		srv := startServer(t, func(cfg *config.Config) { cfg.Server.Token = "secret" })

		_, err := DialQUIC(context.Background(), quicConfig(srv))
		require.ErrorIs(t, err, server.ErrUnauthorized)

		cc := quicConfig(srv)
		cc.Token = "secret"
		c, err := DialQUIC(context.Background(), cc)
		require.NoError(t, err)
		require.NoError(t, c.Close())
	})

	t.Run("QUIC session limit", func(t *testing.T) {
		srv := startServer(t, func(cfg *config.Config) { cfg.Server.MaxSessions = 1 })

		c, err := DialQUIC(context.Background(), quicConfig(srv))
		require.NoError(t, err)
		defer c.Close()

		_, err = DialQUIC(context.Background(), quicConfig(srv))
		require.ErrorIs(t, err, ErrRejected)
	})

	t.Run("Missing address", func(t *testing.T) {
		_, err := DialQUIC(context.Background(), Config{})
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

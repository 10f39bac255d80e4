package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/zeusync/runhole/internal/config"
	"github.com/zeusync/runhole/internal/core/body"
	"github.com/zeusync/runhole/internal/core/course"
	"github.com/zeusync/runhole/internal/core/events/bus"
	"github.com/zeusync/runhole/internal/core/metrics"
	"github.com/zeusync/runhole/internal/core/observability/log"
	"github.com/zeusync/runhole/internal/core/render"
	"github.com/zeusync/runhole/internal/core/session"
	"github.com/zeusync/runhole/internal/core/voxel"
	"github.com/zeusync/runhole/pkg/concurrent"
	"github.com/zeusync/runhole/pkg/generic"
)

// Server accepts WebSocket and, when configured, QUIC connections and runs
// one session per connection.
type Server struct {
	config  config.Config
	logger  log.Log
	bus     bus.EventBus
	metrics *metrics.Metrics
	auth    TokenAuth

	mask   body.Mask
	course course.Course
	frames *generic.Pool[*bytes.Buffer]

	httpServer *http.Server
	listener   net.Listener
	quic       *quic.Listener
	group      *concurrent.Group

	// Session management
	sessions     sync.Map // map[string]*session.Session
	sessionCount int64    // atomic
	live         sync.WaitGroup

	// Server state
	mu      sync.Mutex // orders admissions against Stop
	running int32      // atomic bool
	closed  int32      // atomic bool
}

// NewServer checks that the configured course builds and prepares the shared
// event bus. m may be nil.
func NewServer(cfg config.Config, logger log.Log, m *metrics.Metrics) (*Server, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	mask, err := cfg.Mask()
	if err != nil {
		return nil, fmt.Errorf("player mask: %w", err)
	}
	c, err := cfg.LoadCourse()
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	built, err := course.Build(c, voxel.Cell{}, mask)
	if err != nil {
		return nil, fmt.Errorf("build course: %w", err)
	}

	b := bus.New()
	b.AddObserver(m)

	s := &Server{
		config:  cfg,
		logger:  logger.With(log.String("component", "server")),
		bus:     b,
		metrics: m,
		auth:    NewTokenAuth(cfg.Server.Token),
		mask:    mask,
		course:  c,
		frames: generic.NewPool(
			func() *bytes.Buffer { return new(bytes.Buffer) },
			func(b *bytes.Buffer) { b.Reset() },
		),
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Server created",
		log.String("listen_addr", cfg.Server.Listen),
		log.Int("max_sessions", cfg.Server.MaxSessions),
		log.String("quic_listen_addr", cfg.Server.QUIC.Listen),
		log.String("course", c.Name),
		log.Int("course_walls", len(built.Walls)),
		log.Uint64("course_digest", built.Grid.Digest()),
		log.Bool("auth", s.auth.Enabled()),
	)
	return s, nil
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.config.Server.Listen)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		s.logger.Error("Failed to create listener", log.Error(err))
		return fmt.Errorf("%w: %v", ErrListenerFailed, err)
	}
	s.listener = ln

	if s.config.Server.QUIC.Listen != "" {
		ql, err := s.listenQUIC()
		if err != nil {
			_ = ln.Close()
			atomic.StoreInt32(&s.running, 0)
			s.logger.Error("Failed to create QUIC listener", log.Error(err))
			return fmt.Errorf("%w: %v", ErrListenerFailed, err)
		}
		s.quic = ql
	}

	s.group = concurrent.NewGroup(ctx)
	s.group.Go(func(context.Context) error {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if s.quic != nil {
		ql := s.quic
		s.group.Go(func(ctx context.Context) error { return s.acceptQUIC(ctx, ql) })
		s.logger.Info("QUIC listening", log.String("addr", ql.Addr().String()))
	}

	s.logger.Info("Server listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// QUICAddr is the bound UDP address, or nil when QUIC is off.
func (s *Server) QUICAddr() net.Addr {
	if s.quic == nil {
		return nil
	}
	return s.quic.Addr()
}

// Stop ends every running session with EndCommandStop, waits for them to say
// goodbye and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	stopped := atomic.CompareAndSwapInt32(&s.running, 1, 0)
	s.mu.Unlock()
	if !stopped {
		return ErrServerNotRunning
	}
	s.logger.Info("Stopping server", log.Int64("sessions", atomic.LoadInt64(&s.sessionCount)))

	err := s.httpServer.Shutdown(ctx)
	s.StopSessions(ctx, session.EndCommandStop)

	done := make(chan struct{})
	go func() {
		s.live.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}

	// closing the listener tears down its connections, so sessions go first
	if s.quic != nil {
		err = errors.Join(err, s.quic.Close())
	}
	err = errors.Join(err, s.group.Wait())
	s.logger.Info("Server stopped")
	return err
}

// Close stops the server if needed and refuses later starts.
func (s *Server) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	if atomic.LoadInt32(&s.running) == 1 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(ctx)
	}
	return nil
}

// StopSessions asks every running session to end with the given reason.
func (s *Server) StopSessions(ctx context.Context, end session.EndType) {
	var all []*session.Session
	s.sessions.Range(func(_, value any) bool {
		all = append(all, value.(*session.Session))
		return true
	})
	_ = concurrent.ForEach(ctx, all, 0, func(_ context.Context, sess *session.Session) error {
		sess.Stop(end)
		return nil
	})
}

// Sessions is the number of sessions currently running.
func (s *Server) Sessions() int { return int(atomic.LoadInt64(&s.sessionCount)) }

func (s *Server) Bus() bus.EventBus { return s.bus }

func (s *Server) isRunning() bool { return atomic.LoadInt32(&s.running) == 1 }

// admit claims a session slot and registers the connection with Stop. Every
// successful admit is paired with leave.
func (s *Server) admit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning() {
		return ErrServerNotRunning
	}
	if !s.reserve() {
		return ErrMaxSessionsReached
	}
	s.live.Add(1)
	return nil
}

func (s *Server) leave() {
	s.release()
	s.live.Done()
}

// reserve claims a session slot.
func (s *Server) reserve() bool {
	for {
		n := atomic.LoadInt64(&s.sessionCount)
		if int(n) >= s.config.Server.MaxSessions {
			return false
		}
		if atomic.CompareAndSwapInt64(&s.sessionCount, n, n+1) {
			return true
		}
	}
}

func (s *Server) release() { atomic.AddInt64(&s.sessionCount, -1) }

// newSession builds a fresh world from the course and a session on it.
func (s *Server) newSession(id string, proxy render.Proxy, logger log.Log) (*session.Session, error) {
	built, err := course.Build(s.course, voxel.Cell{}, s.mask)
	if err != nil {
		return nil, fmt.Errorf("build course: %w", err)
	}
	logger.Debug("Course built",
		log.String("session", id),
		log.Int("walls", len(built.Walls)),
		log.Int("length", built.Length),
		log.Uint64("digest", built.Grid.Digest()),
	)
	return session.New(session.Options{
		ID:            id,
		World:         built.Grid,
		Mask:          s.mask,
		Body:          s.config.BodyParams(),
		Camera:        s.config.CameraParams(),
		Input:         s.config.InputSettings(),
		Passage:       s.config.Passage.Margin,
		PreviewSearch: s.config.Preview.Search,
		FinishDepth:   s.config.Course.FinishDepth,
		TickRate:      s.config.Server.TickRate,
		MailboxSize:   s.config.Server.MailboxSize,
		Proxy:         proxy,
		Bus:           s.bus,
		Logger:        logger,
		Observers:     []session.TickObserver{s.metrics},
	})
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/zeusync/runhole/internal/core/input"
	"github.com/zeusync/runhole/internal/core/observability/log"
	"github.com/zeusync/runhole/internal/core/render"
	"github.com/zeusync/runhole/internal/core/session"
)

// link is one admitted client connection carrying JSON messages. ReadMessage
// is called from the reader goroutine only; WriteMessage and Close from the
// session goroutine only.
type link interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	// Close ends the connection. A non-nil failure marks an abnormal close.
	Close(reason string, failure error)
}

// serve runs one session over an admitted link until the game is over. The
// calling goroutine drives the session and is the only writer.
func (s *Server) serve(l link, remote, transport string) {
	defer s.leave()

	id := uuid.NewString()
	ctx := log.ContextWithSession(context.Background(), id)
	base := s.logger.With(log.String("transport", transport))
	logger := base.WithContext(ctx)

	rec := render.NewRecorder()
	sess, err := s.newSession(id, rec, base)
	if err != nil {
		logger.Error("Failed to create session", log.Error(err))
		l.Close("session unavailable", err)
		return
	}
	stats, err := session.WatchStats(s.bus, sess.Topic())
	if err != nil {
		logger.Error("Failed to watch session", log.Error(err))
		sess.Close()
		l.Close("session unavailable", err)
		return
	}
	defer func() { _ = stats.Close() }()

	s.sessions.Store(id, sess)
	defer s.sessions.Delete(id)
	// Stop may have ranged over the sessions before this one was stored
	if !s.isRunning() {
		sess.Stop(session.EndCommandStop)
	}
	s.metrics.SessionOpened()
	defer s.metrics.SessionClosed()

	logger.Info("Client connected",
		log.String("remote_addr", remote),
		log.Int("total_sessions", s.Sessions()),
	)

	go s.readCommands(ctx, l, sess, logger)

	if err = s.write(l, Outbound{Type: FrameWelcome, Session: id}); err != nil {
		sess.Stop(session.EndDisconnect)
	}

	runErr := sess.Run(ctx, func(snap session.Snapshot) {
		changes := rec.Flush()
		if err := s.write(l, Outbound{Type: FrameTick, Snapshot: &snap, Render: &changes}); err != nil {
			sess.Stop(session.EndDisconnect)
		}
	})
	if runErr != nil {
		logger.Warn("Session ended with error", log.Error(runErr))
	}

	final := stats.Snapshot()
	last := sess.Last()
	_ = s.write(l, Outbound{Type: FrameOver, Session: id, Snapshot: &last, Stats: &final})
	l.Close(sess.End().String(), nil)

	logger.Info("Client disconnected",
		log.Stringer("end", sess.End()),
		log.Int("walls_passed", final.WallsPassed),
		log.Int("perfect_walls", final.PerfectWalls),
	)
}

// readCommands forwards client messages until the connection fails. A
// broken connection ends the session as a disconnect.
func (s *Server) readCommands(ctx context.Context, l link, sess *session.Session, logger log.Log) {
	defer sess.Stop(session.EndDisconnect)
	for {
		data, err := l.ReadMessage()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("Read ended", log.Error(err))
			}
			return
		}

		cmd, err := DecodeCommand(data)
		if err != nil {
			logger.Debug("Dropping client message", log.Error(err))
			continue
		}
		if err = sess.Submit(ctx, cmd); err != nil {
			if errors.Is(err, input.ErrMailboxClosed) {
				return
			}
			logger.Debug("Command dropped", log.Error(err))
		}
	}
}

// write encodes one frame as a newline-terminated JSON document.
func (s *Server) write(l link, msg Outbound) error {
	buf := s.frames.Get()
	defer s.frames.Put(buf)

	if err := json.NewEncoder(buf).Encode(msg); err != nil {
		return err
	}
	return l.WriteMessage(buf.Bytes())
}

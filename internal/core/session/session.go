// Package session runs one participant's game: it owns the body, camera,
// hole matcher and render views, and drives them through a fixed per-tick
// pipeline. Only the goroutine running the session touches its state; other
// goroutines talk to it through Submit and Stop.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/runhole/internal/core/body"
	"github.com/zeusync/runhole/internal/core/camera"
	"github.com/zeusync/runhole/internal/core/events/bus"
	"github.com/zeusync/runhole/internal/core/input"
	"github.com/zeusync/runhole/internal/core/observability/log"
	"github.com/zeusync/runhole/internal/core/orient"
	"github.com/zeusync/runhole/internal/core/passage"
	"github.com/zeusync/runhole/internal/core/render"
	"github.com/zeusync/runhole/internal/core/voxel"
)

var (
	ErrNoID    = errors.New("session id is empty")
	ErrNoWorld = errors.New("session world is nil")
	ErrNoBus   = errors.New("session bus is nil")
)

const DefaultTickRate = 50 * time.Millisecond

// Options configure a session. Everything is fixed once New returns.
type Options struct {
	ID     string
	World  voxel.World
	Origin voxel.Cell
	Mask   body.Mask

	Body    body.Params
	Camera  camera.Params
	Input   input.Settings
	Passage float64

	PreviewSearch int
	// FinishDepth ends the run successfully once the body reaches it. Zero disables.
	FinishDepth int
	TickRate    time.Duration
	MailboxSize int

	Proxy     render.Proxy
	Bus       bus.EventBus
	Logger    log.Log
	Observers []TickObserver
}

// TickObserver is told about every completed tick.
type TickObserver interface {
	ObserveTick(snap Snapshot, took time.Duration)
}

// Snapshot is the externally visible state after a tick.
type Snapshot struct {
	Session      string             `json:"session"`
	Tick         uint64             `json:"tick"`
	Position     body.Position      `json:"position"`
	Orientation  orient.Orientation `json:"orientation"`
	Center       mgl64.Vec3         `json:"center"`
	Speed        float64            `json:"speed"`
	Boosting     bool               `json:"boosting"`
	Continuous   bool               `json:"continuous"`
	Camera       mgl64.Vec3         `json:"camera"`
	CameraBlend  float64            `json:"camera_blend"`
	Warning      bool               `json:"warning"`
	WarningLevel float64            `json:"warning_level"`
	Wall         int                `json:"wall"`
	HasWall      bool               `json:"has_wall"`
	Clear        bool               `json:"clear"`
	Traced       int                `json:"traced"`
	Total        int                `json:"total"`
	Guide        string             `json:"guide,omitempty"`
	Events       []Notification     `json:"events,omitempty"`
	Over         bool               `json:"over"`
	End          EndType            `json:"end"`
}

type Session struct {
	id       string
	log      log.Log
	bus      bus.EventBus
	tickRate time.Duration
	finish   int

	body    *body.ShapeBody
	camera  *camera.Camera
	matcher *HoleMatcher
	interp  *input.Interpreter
	mailbox *input.Mailbox
	view    *render.BodyView
	preview *render.PreviewView

	observers []TickObserver
	stop      chan EndType

	tick    uint64
	over    bool
	end     EndType
	pending []Notification
	last    Snapshot
	match   MatchResult
	frame   input.Frame
}

func New(opts Options) (*Session, error) {
	if opts.ID == "" {
		return nil, ErrNoID
	}
	if opts.World == nil {
		return nil, ErrNoWorld
	}
	if opts.Bus == nil {
		return nil, ErrNoBus
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	if opts.Proxy == nil {
		opts.Proxy = render.NewRecorder()
	}
	if opts.TickRate <= 0 {
		opts.TickRate = DefaultTickRate
	}

	b, err := body.NewShapeBody(opts.World, opts.Origin, opts.Mask, opts.Body)
	if err != nil {
		return nil, fmt.Errorf("create body: %w", err)
	}
	cam, err := camera.New(opts.World, b.Center(), opts.Camera)
	if err != nil {
		return nil, fmt.Errorf("create camera: %w", err)
	}
	if err = opts.Bus.CreateTopic(opts.ID); err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}

	s := &Session{
		id:        opts.ID,
		log:       opts.Logger.With(log.String("component", "session"), log.String("session", opts.ID)),
		bus:       opts.Bus,
		tickRate:  opts.TickRate,
		finish:    opts.FinishDepth,
		body:      b,
		camera:    cam,
		interp:    input.NewInterpreter(opts.Input),
		mailbox:   input.NewMailbox(opts.MailboxSize, false),
		view:      render.NewBodyView(opts.Proxy, b, render.ColorWhite, opts.Camera.MountHeight),
		preview:   render.NewPreviewView(opts.Proxy),
		observers: opts.Observers,
		stop:      make(chan EndType, 1),
	}
	s.matcher = NewHoleMatcher(opts.Passage, opts.PreviewSearch, s.publish, s.log)
	s.last = s.snapshot(0)

	s.log.Info("Session created",
		log.Int("origin_x", opts.Origin.X),
		log.Int("origin_y", opts.Origin.Y),
		log.Int("origin_z", opts.Origin.Z),
		log.String("mask", opts.Mask.Pattern()),
	)
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Topic is the bus topic the session publishes on.
func (s *Session) Topic() string { return s.id }

// Body exposes the body for read-only inspection by tests and tools running
// on the session goroutine.
func (s *Session) Body() *body.ShapeBody { return s.body }

func (s *Session) Over() bool { return s.over }

func (s *Session) End() EndType { return s.end }

// Submit queues a participant command. Safe from any goroutine.
func (s *Session) Submit(ctx context.Context, cmd input.Command) error {
	return s.mailbox.Post(ctx, cmd)
}

// Stop asks a running session to end with the given reason. Safe from any
// goroutine; only the first request counts.
func (s *Session) Stop(end EndType) {
	select {
	case s.stop <- end:
	default:
	}
}

// Step runs one tick of the pipeline and returns the resulting snapshot.
func (s *Session) Step() Snapshot {
	if s.over {
		return s.last
	}
	s.tick++
	s.pending = nil

	s.mailbox.Drain(s.interp.Feed)
	s.frame = s.interp.Next()
	s.applyInput(s.frame)
	if s.over {
		return s.commit(0)
	}

	speed := s.body.Advance()

	if s.body.ContinuousBoosting() && !s.matcher.Green() {
		s.body.StopContinuousBoost()
	}

	if hits := s.body.Colliding(); len(hits) > 0 {
		cells := make([]voxel.Cell, len(hits))
		for i, h := range hits {
			cells[i] = h.World
		}
		s.view.Sync(s.body)
		s.view.MarkCollided(hits)
		s.publish(EventCollision, Collision{Cells: cells})
		s.gameOver(EndCollision)
		return s.commit(speed)
	}

	var sighting *passage.Sighting
	if hole, ok := s.body.DetectHole(); ok {
		sighting = &passage.Sighting{Position: hole.Center}
	}

	s.camera.Update(camera.BodyView{Center: s.body.Center(), Hole: sighting})
	s.match = s.matcher.Update(s.body, sighting)

	s.view.Sync(s.body)
	if s.match.HasWall {
		s.preview.Sync(s.match.Preview, s.match.Clear, s.match.Traced)
	} else if !s.match.Inside {
		s.preview.Sync(nil, false, nil)
	}

	if s.finish > 0 && s.body.Cell().Z >= s.body.Origin().Z+s.finish {
		s.gameOver(EndFinished)
	}
	return s.commit(speed)
}

func (s *Session) applyInput(f input.Frame) {
	if f.Quit {
		s.gameOver(EndPlayerQuit)
		return
	}

	if f.BoostHeld {
		if s.matcher.Green() && !s.body.ContinuousBoosting() {
			s.body.StartContinuousBoost()
			s.publish(EventContinuousBoost, nil)
		}
		if f.BoostPressed {
			s.publish(EventBoostStarted, nil)
		}
	}
	s.body.SetBoosting(f.BoostHeld)

	if f.HasMove() {
		s.body.StopContinuousBoost()
		if s.body.Move(f.DX, f.DY) {
			s.interp.Moved()
			s.publish(EventMoved, Moved{DX: f.DX, DY: f.DY})
		} else {
			s.log.Debug("Move rejected", log.Int("dx", f.DX), log.Int("dy", f.DY))
		}
	}

	for _, turn := range f.Turns {
		s.body.StopContinuousBoost()
		if s.body.Rotate(turn) {
			s.publish(EventRotated, Rotated{Turn: turn, Orientation: s.body.Orientation()})
		} else {
			s.log.Debug("Rotation rejected", log.Stringer("turn", turn))
		}
	}
}

func (s *Session) gameOver(end EndType) {
	if s.over {
		return
	}
	s.over = true
	s.end = end
	s.body.SetBoosting(false)
	s.body.StopContinuousBoost()
	s.publish(EventGameOver, GameOver{End: end, Tick: s.tick})
	s.log.Info("Game over",
		log.Stringer("end", end),
		log.Uint64("tick", s.tick),
		log.Int("cells", s.body.Position().Cells),
	)
}

func (s *Session) publish(typ string, data any) {
	s.pending = append(s.pending, Notification{Type: typ, Data: data})
	if err := s.bus.PublishToTopic(s.id, bus.NewEvent(typ, s.id, data)); err != nil {
		s.log.Warn("Event handler failed", log.String("event", typ), log.Error(err))
	}
}

func (s *Session) commit(speed float64) Snapshot {
	s.last = s.snapshot(speed)
	return s.last
}

func (s *Session) snapshot(speed float64) Snapshot {
	warn, level := s.body.ShouldWarn()
	return Snapshot{
		Session:      s.id,
		Tick:         s.tick,
		Position:     s.body.Position(),
		Orientation:  s.body.Orientation(),
		Center:       s.body.Center(),
		Speed:        speed,
		Boosting:     s.body.Boosting(),
		Continuous:   s.body.ContinuousBoosting(),
		Camera:       s.camera.Viewpoint(),
		CameraBlend:  s.camera.Blend(),
		Warning:      warn && !s.over,
		WarningLevel: level,
		Wall:         s.match.Wall,
		HasWall:      s.match.HasWall,
		Clear:        s.match.Clear,
		Traced:       s.match.Done,
		Total:        s.match.Total,
		Guide:        s.frame.Guide,
		Events:       s.pending,
		Over:         s.over,
		End:          s.end,
	}
}

// Last is the snapshot produced by the most recent tick.
func (s *Session) Last() Snapshot { return s.last }

// Run ticks the session until the game ends, Stop is called or ctx is done.
// sink receives every snapshot on the session goroutine.
func (s *Session) Run(ctx context.Context, sink func(Snapshot)) error {
	ticker := time.NewTicker(s.tickRate)
	defer ticker.Stop()
	defer s.Close()

	s.log.Info("Session started", log.Duration("tick_rate", s.tickRate))
	for {
		select {
		case <-ctx.Done():
			s.gameOver(EndDisconnect)
			s.emit(sink, s.commit(0), 0)
			return ctx.Err()
		case end := <-s.stop:
			s.gameOver(end)
			s.emit(sink, s.commit(0), 0)
			return nil
		case <-ticker.C:
			start := time.Now()
			snap := s.Step()
			s.emit(sink, snap, time.Since(start))
			if snap.Over {
				return nil
			}
		}
	}
}

func (s *Session) emit(sink func(Snapshot), snap Snapshot, took time.Duration) {
	for _, o := range s.observers {
		o.ObserveTick(snap, took)
	}
	if sink != nil {
		sink(snap)
	}
}

// Close releases render markers, the bus topic and the mailbox.
func (s *Session) Close() {
	s.view.Close()
	s.preview.Close()
	s.mailbox.Close()
	s.bus.DropTopic(s.id)
}

func voxelCentre(c voxel.Cell) mgl64.Vec3 {
	return mgl64.Vec3{float64(c.X) + 0.5, float64(c.Y) + 0.5, float64(c.Z) + 0.5}
}

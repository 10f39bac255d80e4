// Package config loads the server configuration from YAML. Every value has
// a default, so an empty file is a valid configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/runhole/internal/core/body"
	"github.com/zeusync/runhole/internal/core/camera"
	"github.com/zeusync/runhole/internal/core/course"
	"github.com/zeusync/runhole/internal/core/input"
	"github.com/zeusync/runhole/internal/core/observability/log"
	"github.com/zeusync/runhole/internal/core/passage"
	"github.com/zeusync/runhole/internal/core/session"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultMask is a single voxel in the centre of the 3×3×3 grid.
const DefaultMask = "000000000" + "000010000" + "000000000"

type Config struct {
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
	Body    Body    `yaml:"body"`
	Camera  Camera  `yaml:"camera"`
	Passage Passage `yaml:"passage"`
	Preview Preview `yaml:"preview"`
	Input   Input   `yaml:"input"`
	Course  Course  `yaml:"course"`
}

type Server struct {
	Listen         string        `yaml:"listen"`
	MaxSessions    int           `yaml:"max_sessions"`
	TickRate       time.Duration `yaml:"tick_rate"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	MailboxSize    int           `yaml:"mailbox_size"`
	// Token, when set, must be presented by every connecting client.
	Token string `yaml:"token"`
	QUIC  QUIC   `yaml:"quic"`
}

// QUIC configures the optional QUIC listener. Without a certificate pair a
// self-signed certificate is generated at start.
type QUIC struct {
	// Listen is the UDP address; empty disables QUIC.
	Listen   string `yaml:"listen"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	// HandshakeTimeout bounds the wait for the client's hello.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

type Log struct {
	Level string `yaml:"level"`
}

// Body holds the player's mask and motion tuning. Mask is 27 characters of
// '0'/'1' indexed x + 3y + 9z.
type Body struct {
	Mask              string  `yaml:"mask"`
	CruiseSpeed       float64 `yaml:"cruise_speed"`
	BoostMultiplier   float64 `yaml:"boost_multiplier"`
	MinSpeed          float64 `yaml:"min_speed"`
	SlowdownRange     float64 `yaml:"slowdown_range"`
	StallBreakerTicks int     `yaml:"stall_breaker_ticks"`
	WallScanAhead     float64 `yaml:"wall_scan_ahead"`
	WarningDistance   float64 `yaml:"warning_distance"`
	DetectRadius      int     `yaml:"detect_radius"`
	WallMinSolid      int     `yaml:"wall_min_solid"`
	HoleMinOpen       int     `yaml:"hole_min_open"`
}

type Camera struct {
	Distance    float64 `yaml:"distance"`
	Height      float64 `yaml:"height"`
	FollowLerp  float64 `yaml:"follow_lerp"`
	CeilingLerp float64 `yaml:"ceiling_lerp"`
	SwitchLerp  float64 `yaml:"switch_lerp"`
	HeightTrim  float64 `yaml:"height_trim"`
	MountHeight float64 `yaml:"mount_height"`
}

type Passage struct {
	Margin float64 `yaml:"margin"`
}

type Preview struct {
	Search int `yaml:"search"`
}

type Input struct {
	MoveCooldownTicks   int     `yaml:"move_cooldown_ticks"`
	RotateCooldownTicks int     `yaml:"rotate_cooldown_ticks"`
	GestureThreshold    float64 `yaml:"gesture_threshold"`
	GestureLerp         float64 `yaml:"gesture_lerp"`
}

// Course picks the level. Path wins over the inline definition.
type Course struct {
	Path        string        `yaml:"path"`
	FinishDepth int           `yaml:"finish_depth"`
	Inline      course.Course `yaml:"inline"`
}

func Default() Config {
	bp := body.DefaultParams()
	cp := camera.DefaultParams()
	ip := input.DefaultSettings()

	return Config{
		Server: Server{
			Listen:         "127.0.0.1:8080",
			MaxSessions:    256,
			TickRate:       session.DefaultTickRate,
			WriteTimeout:   5 * time.Second,
			MaxMessageSize: 4096,
			MailboxSize:    input.DefaultMailboxSize,
			QUIC:           QUIC{HandshakeTimeout: 5 * time.Second},
		},
		Log: Log{Level: "info"},
		Body: Body{
			Mask:              DefaultMask,
			CruiseSpeed:       bp.CruiseSpeed,
			BoostMultiplier:   bp.BoostMultiplier,
			MinSpeed:          bp.MinSpeed,
			SlowdownRange:     bp.SlowdownRange,
			StallBreakerTicks: bp.StallBreakerTicks,
			WallScanAhead:     bp.WallScanAhead,
			WarningDistance:   bp.WarningDistance,
			DetectRadius:      bp.DetectRadius,
			WallMinSolid:      bp.WallMinSolid,
			HoleMinOpen:       bp.HoleMinOpen,
		},
		Camera: Camera{
			Distance:    cp.Distance,
			Height:      cp.Height,
			FollowLerp:  cp.FollowLerp,
			CeilingLerp: cp.CeilingLerp,
			SwitchLerp:  cp.SwitchLerp,
			HeightTrim:  cp.HeightTrim,
			MountHeight: cp.MountHeight,
		},
		Passage: Passage{Margin: passage.DefaultMargin},
		Preview: Preview{Search: session.DefaultPreviewSearch},
		Input: Input{
			MoveCooldownTicks:   ip.MoveCooldownTicks,
			RotateCooldownTicks: ip.RotateCooldownTicks,
			GestureThreshold:    ip.GestureThreshold,
			GestureLerp:         ip.GestureLerp,
		},
		Course: Course{
			FinishDepth: 0,
			Inline: course.Course{
				Name:     "endless",
				Width:    7,
				Height:   7,
				Floor:    true,
				Enclosed: true,
				Procedural: &course.ProceduralSpec{
					Count:      50,
					Spacing:    12,
					FirstDepth: 15,
					Seed:       1,
				},
			},
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// inlineCourse finds out whether a document brings its own inline course.
type inlineCourse struct {
	Course struct {
		Inline yaml.Node `yaml:"inline"`
	} `yaml:"course"`
}

// Parse decodes YAML over the defaults. Unknown keys are rejected. An
// inline course in the document replaces the default course as a whole.
func Parse(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	var probe inlineCourse
	if err = yaml.Unmarshal(data, &probe); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if probe.Course.Inline.Kind != 0 {
		cfg.Course.Inline = course.Course{}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err = dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch {
	case c.Server.Listen == "":
		return invalid("server.listen is empty")
	case c.Server.MaxSessions <= 0:
		return invalid("server.max_sessions must be positive")
	case c.Server.TickRate <= 0:
		return invalid("server.tick_rate must be positive")
	case c.Server.MaxMessageSize <= 0:
		return invalid("server.max_message_size must be positive")
	case c.Body.CruiseSpeed <= 0:
		return invalid("body.cruise_speed must be positive")
	case c.Body.BoostMultiplier < 1:
		return invalid("body.boost_multiplier must be at least 1")
	case c.Body.MinSpeed <= 0 || c.Body.MinSpeed > c.Body.CruiseSpeed:
		return invalid("body.min_speed must be in (0, cruise_speed]")
	case c.Body.DetectRadius < 0:
		return invalid("body.detect_radius is negative")
	case c.Camera.Distance <= 0:
		return invalid("camera.distance must be positive")
	case !unit(c.Camera.FollowLerp) || !unit(c.Camera.CeilingLerp) || !unit(c.Camera.SwitchLerp):
		return invalid("camera lerp factors must be in (0, 1]")
	case c.Passage.Margin < 0:
		return invalid("passage.margin is negative")
	case c.Preview.Search <= 0:
		return invalid("preview.search must be positive")
	case c.Input.MoveCooldownTicks < 0 || c.Input.RotateCooldownTicks < 0:
		return invalid("input cooldowns are negative")
	case c.Course.FinishDepth < 0:
		return invalid("course.finish_depth is negative")
	case (c.Server.QUIC.CertFile == "") != (c.Server.QUIC.KeyFile == ""):
		return invalid("server.quic needs both cert_file and key_file")
	case c.Server.QUIC.Listen != "" && c.Server.QUIC.HandshakeTimeout <= 0:
		return invalid("server.quic.handshake_timeout must be positive")
	}

	if _, err := body.ParseMask(c.Body.Mask); err != nil {
		return invalid("body.mask: %v", err)
	}
	if c.Course.Path == "" {
		if err := c.Course.Inline.Validate(); err != nil {
			return invalid("course.inline: %v", err)
		}
	}
	return nil
}

func unit(v float64) bool { return v > 0 && v <= 1 }

func (c Config) LogLevel() log.Level { return log.ParseLevel(c.Log.Level) }

func (c Config) Mask() (body.Mask, error) { return body.ParseMask(c.Body.Mask) }

func (c Config) BodyParams() body.Params {
	b := c.Body
	return body.Params{
		CruiseSpeed:       b.CruiseSpeed,
		BoostMultiplier:   b.BoostMultiplier,
		MinSpeed:          b.MinSpeed,
		SlowdownRange:     b.SlowdownRange,
		StallBreakerTicks: b.StallBreakerTicks,
		WallScanAhead:     b.WallScanAhead,
		WarningDistance:   b.WarningDistance,
		DetectRadius:      b.DetectRadius,
		WallMinSolid:      b.WallMinSolid,
		HoleMinOpen:       b.HoleMinOpen,
	}
}

func (c Config) CameraParams() camera.Params {
	cm := c.Camera
	return camera.Params{
		Distance:    cm.Distance,
		Height:      cm.Height,
		FollowLerp:  cm.FollowLerp,
		CeilingLerp: cm.CeilingLerp,
		SwitchLerp:  cm.SwitchLerp,
		HeightTrim:  cm.HeightTrim,
		MountHeight: cm.MountHeight,
		Margin:      c.Passage.Margin,
	}
}

func (c Config) InputSettings() input.Settings {
	return input.Settings{
		MoveCooldownTicks:   c.Input.MoveCooldownTicks,
		RotateCooldownTicks: c.Input.RotateCooldownTicks,
		GestureThreshold:    c.Input.GestureThreshold,
		GestureLerp:         c.Input.GestureLerp,
	}
}

// LoadCourse returns the course file named by Path, or the inline course.
func (c Config) LoadCourse() (course.Course, error) {
	if c.Course.Path == "" {
		return c.Course.Inline, nil
	}
	return course.LoadFile(c.Course.Path)
}

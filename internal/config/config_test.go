package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/runhole/internal/core/body"
	"github.com/zeusync/runhole/internal/core/course"
	"github.com/zeusync/runhole/internal/core/observability/log"
	"github.com/zeusync/runhole/internal/core/voxel"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, body.DefaultParams(), cfg.BodyParams())
	require.Equal(t, log.LevelInfo, cfg.LogLevel())

	mask, err := cfg.Mask()
	require.NoError(t, err)
	require.Equal(t, 1, mask.Count())
}

func TestParse(t *testing.T) {
	t.Run("Empty document keeps defaults", func(t *testing.T) {
		cfg, err := Parse(strings.NewReader(""))
		require.NoError(t, err)
		require.Equal(t, Default(), cfg)
	})

	t.Run("Overrides are applied", func(t *testing.T) {
		cfg, err := Parse(strings.NewReader(`
server:
  listen: ":9000"
  tick_rate: 20ms
log:
  level: debug
body:
  cruise_speed: 0.5
camera:
  distance: 12
passage:
  margin: 2
`))
		require.NoError(t, err)
		require.Equal(t, ":9000", cfg.Server.Listen)
		require.Equal(t, 20*time.Millisecond, cfg.Server.TickRate)
		require.Equal(t, log.LevelDebug, cfg.LogLevel())
		require.InDelta(t, 0.5, cfg.BodyParams().CruiseSpeed, 1e-9)
		require.InDelta(t, 12, cfg.CameraParams().Distance, 1e-9)
		require.InDelta(t, 2, cfg.CameraParams().Margin, 1e-9)
	})

	t.Run("Inline course starts from scratch", func(t *testing.T) {
		cfg, err := Parse(strings.NewReader(`
course:
  inline:
    name: tiny
    walls:
      - depth: 4
        rows:
          - "###"
          - "#.#"
          - "###"
`))
		require.NoError(t, err)

		c, err := cfg.LoadCourse()
		require.NoError(t, err)
		require.Equal(t, "tiny", c.Name)
		require.Nil(t, c.Procedural)
		require.False(t, c.Floor)
		require.False(t, c.Enclosed)

		mask, err := cfg.Mask()
		require.NoError(t, err)
		built, err := course.Build(c, voxel.Cell{}, mask)
		require.NoError(t, err)
		require.Equal(t, []int{4}, built.Walls)
		require.Equal(t, 3, built.Extent.MaxX-built.Extent.MinX+1)
	})

	t.Run("Other course keys keep the default course", func(t *testing.T) {
		cfg, err := Parse(strings.NewReader("course:\n  finish_depth: 40\n"))
		require.NoError(t, err)
		require.Equal(t, 40, cfg.Course.FinishDepth)
		require.Equal(t, Default().Course.Inline, cfg.Course.Inline)
	})

	t.Run("QUIC settings", func(t *testing.T) {
		cfg, err := Parse(strings.NewReader(`
server:
  quic:
    listen: "127.0.0.1:9443"
`))
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1:9443", cfg.Server.QUIC.Listen)
		require.Equal(t, 5*time.Second, cfg.Server.QUIC.HandshakeTimeout)

		_, err = Parse(strings.NewReader("server:\n  quic:\n    cert_file: a.pem\n"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("Unknown keys are rejected", func(t *testing.T) {
		_, err := Parse(strings.NewReader("bogus: 1\n"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("Invalid values are rejected", func(t *testing.T) {
		for _, doc := range []string{
			"server:\n  max_sessions: 0\n",
			"body:\n  mask: \"0101\"\n",
			"body:\n  min_speed: 5\n",
			"camera:\n  follow_lerp: 0\n",
			"preview:\n  search: -1\n",
		} {
			_, err := Parse(strings.NewReader(doc))
			require.ErrorIs(t, err, ErrInvalidConfig, doc)
		}
	})
}

func TestLoadCourse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "course.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: tiny
walls:
  - depth: 4
    rows:
      - "###"
      - "#.#"
      - "###"
`), 0o600))

	cfg := Default()
	cfg.Course.Path = path
	c, err := cfg.LoadCourse()
	require.NoError(t, err)
	require.Equal(t, "tiny", c.Name)
	require.Equal(t, 3, c.Width)

	inline, err := Default().LoadCourse()
	require.NoError(t, err)
	require.Equal(t, "endless", inline.Name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

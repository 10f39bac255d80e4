package generic

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	p := NewPool(func() *bytes.Buffer { return new(bytes.Buffer) }, func(b *bytes.Buffer) { b.Reset() })

	buf := p.Get()
	require.NotNil(t, buf)
	buf.WriteString("frame")
	p.Put(buf)

	// whatever comes back, it is empty
	require.Zero(t, p.Get().Len())
}

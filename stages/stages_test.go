package stages_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pipelinehq/strpipe/handoff"
	"github.com/pipelinehq/strpipe/stages"
)

func TestUppercase(t *testing.T) {
	require.Equal(t, handoff.Record("HELLO"), stages.Uppercase(handoff.Record("Hello")))
	require.Equal(t, handoff.Record(""), stages.Uppercase(handoff.Record("")))
}

func TestFlip(t *testing.T) {
	require.Equal(t, handoff.Record("olleh"), stages.Flip(handoff.Record("hello")))
	require.Equal(t, handoff.Record(""), stages.Flip(handoff.Record("")))
}

func TestRotate(t *testing.T) {
	require.Equal(t, handoff.Record("ohell"), stages.Rotate(handoff.Record("hello")))
	require.Equal(t, handoff.Record(""), stages.Rotate(handoff.Record("")))
	require.Equal(t, handoff.Record("a"), stages.Rotate(handoff.Record("a")))
}

func TestExpand(t *testing.T) {
	require.Equal(t, handoff.Record("h e l l o"), stages.Expand(handoff.Record("hello")))
	require.Equal(t, handoff.Record(""), stages.Expand(handoff.Record("")))
	require.Equal(t, handoff.Record("a"), stages.Expand(handoff.Record("a")))
}

func TestSentinelPassesThroughEveryTransform(t *testing.T) {
	s := handoff.Sentinel()
	require.True(t, stages.Uppercase(s).IsSentinel())
	require.True(t, stages.Flip(s).IsSentinel())
	require.True(t, stages.Rotate(s).IsSentinel())
	require.True(t, stages.Expand(s).IsSentinel())
}

func TestNewLogger_WritesPrefixedLineAndPassesRecordThrough(t *testing.T) {
	var buf bytes.Buffer
	logStage := stages.NewLogger(&buf)

	out := logStage(handoff.Record("hello"))
	require.Equal(t, handoff.Record("hello"), out)
	require.Equal(t, "[logger] hello\n", buf.String())
}

func TestNewLogger_SentinelNotLogged(t *testing.T) {
	var buf bytes.Buffer
	logStage := stages.NewLogger(&buf)

	out := logStage(handoff.Sentinel())
	require.True(t, out.IsSentinel())
	require.Empty(t, buf.String())
}

func TestNewTypewriter_WritesPrefixCharsAndNewline(t *testing.T) {
	var buf bytes.Buffer
	typeStage := stages.NewTypewriter(&buf)

	start := time.Now()
	out := typeStage(handoff.Record("hi"))
	elapsed := time.Since(start)

	require.Equal(t, handoff.Record("hi"), out)
	require.Equal(t, "[typewriter] hi\n", buf.String())
	require.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
}

func TestRegistry_ResolvesBuiltinNames(t *testing.T) {
	reg := stages.NewRegistry(nil)
	for _, name := range reg.Names() {
		fn, err := reg.Resolve(name)
		require.NoError(t, err)
		require.NotNil(t, fn)
	}
}

func TestRegistry_UnknownName(t *testing.T) {
	reg := stages.NewRegistry(nil)
	_, err := reg.Resolve("nonexistent")
	require.Error(t, err)
}

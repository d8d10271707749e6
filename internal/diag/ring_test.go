package diag

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingKeepsNewestBytes(t *testing.T) {
	r := NewRing(8)
	n, err := r.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.Equal(t, 6, n)
	_, _ = r.Write([]byte("ghij"))
	require.Equal(t, "cdefghij", string(r.Snapshot()))
}

func TestRingEmpty(t *testing.T) {
	r := NewRing(0)
	require.Nil(t, r.Snapshot())
	require.Nil(t, r.Lines(5))
	n, err := r.Write(nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRingLines(t *testing.T) {
	r := NewRing(1024)
	for i := 0; i < 5; i++ {
		fmt.Fprintf(r, "line %d\n", i)
	}
	require.Equal(t, []string{"line 3", "line 4"}, r.Lines(2))
	require.Len(t, r.Lines(100), 5)
	require.Nil(t, r.Lines(0))
}

func TestRingLinesSkipsPartialAfterTrim(t *testing.T) {
	r := NewRing(12)
	_, _ = r.Write([]byte("first\nsecond\nthird\n"))
	require.Equal(t, []string{"third"}, r.Lines(10))
}

func TestRingBehindLogHandler(t *testing.T) {
	r := NewRing(4096)
	log := slog.New(slog.NewJSONHandler(r, nil))
	log.Info("connected to game server", "conn_id", "c1")

	lines := r.Lines(1)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], `"msg":"connected to game server"`)
	require.Contains(t, lines[0], `"conn_id":"c1"`)
}

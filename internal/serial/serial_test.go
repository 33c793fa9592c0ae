package serial

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linjuya-lu/device_rfm12_go/internal/config"
)

func TestSplitLine(t *testing.T) {
	line, rest, err := SplitLine([]byte("10 34 0\r\n> msg\n20"))
	require.NoError(t, err)
	assert.Equal(t, "10 34 0", string(line))
	assert.Equal(t, "> msg\n20", string(rest))

	line, rest, err = SplitLine(rest)
	require.NoError(t, err)
	assert.Equal(t, "> msg", string(line))

	line, rest, err = SplitLine(rest)
	require.NoError(t, err)
	assert.Nil(t, line)
	assert.Equal(t, "20", string(rest))

	line, _, err = SplitLine([]byte("\r\n"))
	require.NoError(t, err)
	assert.NotNil(t, line)
	assert.Empty(t, line)

	_, _, err = SplitLine(make([]byte, MaxLineLength+1))
	assert.ErrorIs(t, err, ErrLineTooLong)
}

// chunkReader 按给定分片返回数据，之后返回 EOF 或 err
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks = c.chunks[1:]
	return n, nil
}

func TestReadLines(t *testing.T) {
	broken := errors.New("device gone")
	r := &chunkReader{
		chunks: [][]byte{[]byte("10 3"), []byte("4 0\r\n> ok\n"), []byte("\n20 1")},
		err:    broken,
	}
	out := make(chan string, 10)
	err := ReadLines(context.Background(), r, out, nil)
	assert.ErrorIs(t, err, broken)
	close(out)

	var got []string
	for l := range out {
		got = append(got, l)
	}
	assert.Equal(t, []string{"10 34 0", "> ok", ""}, got)
}

func TestReadLines_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ReadLines(ctx, &chunkReader{}, make(chan string), nil)
	}()
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadLines did not stop")
	}
}

type recordingWriter struct {
	mu    sync.Mutex
	times []time.Time
}

func (w *recordingWriter) WriteFrame([]byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.times = append(w.times, time.Now())
	return nil
}

func TestPacedWriter(t *testing.T) {
	rec := &recordingWriter{}
	w := NewPacedWriter(rec, 50*time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, w.WriteFrame([]byte("1s")))
	}
	require.Len(t, rec.times, 3)
	assert.GreaterOrEqual(t, rec.times[2].Sub(rec.times[0]), 90*time.Millisecond)

	rec = &recordingWriter{}
	w = NewPacedWriter(rec, 0)
	for i := 0; i < 5; i++ {
		require.NoError(t, w.WriteFrame([]byte("1s")))
	}
	assert.Len(t, rec.times, 5)
}

func TestNewPort(t *testing.T) {
	p, err := NewPort(config.SerialConfig{Name: "rfm12", Type: "uart", Device: "/dev/null"})
	require.NoError(t, err)
	assert.IsType(t, &UARTPort{}, p)
	assert.Equal(t, "rfm12", p.Name())

	p, err = NewPort(config.SerialConfig{Type: "rs485"})
	require.NoError(t, err)
	assert.IsType(t, &RS485Port{}, p)

	_, err = NewPort(config.SerialConfig{Type: "can"})
	assert.Error(t, err)

	_, err = (&UARTPort{}).Write([]byte("x"))
	assert.ErrorIs(t, err, errNotOpen)
}

func TestTxDuration(t *testing.T) {
	assert.Equal(t, 10*time.Millisecond, txDuration(96, 96000))
	assert.Equal(t, time.Duration(0), txDuration(5, 0))
}

package comm

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type pipeRW struct {
	*io.PipeReader
	io.Writer
}

func TestPortQueuesBytes(t *testing.T) {
	r, w := io.Pipe()
	var out collectWriter
	port := NewPortSize(&pipeRW{PipeReader: r, Writer: &out}, 4)
	port.Name = "test"

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- port.Run(ctx) }()

	_, err := port.ReadByte()
	require.Equal(t, ErrNoData, err)

	go w.Write([]byte("hi;"))
	require.Eventually(t, func() bool { return port.Available() == 3 },
		time.Second, time.Millisecond)
	for _, expected := range []byte("hi;") {
		b, err := port.ReadByte()
		require.NoError(t, err)
		require.Equal(t, expected, b)
	}
	require.Zero(t, port.Available())

	_, err = port.Write([]byte("ok"))
	require.NoError(t, err)
	require.Equal(t, "ok", string(out.data))

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestPortReadError(t *testing.T) {
	r, w := io.Pipe()
	port := NewPort(&pipeRW{PipeReader: r, Writer: io.Discard})
	w.CloseWithError(io.ErrUnexpectedEOF)
	require.Equal(t, io.ErrUnexpectedEOF, port.Run(context.Background()))
}

func TestLoopback(t *testing.T) {
	var l Loopback
	l.WriteString("ab")
	require.Equal(t, 2, l.Available())
	b, err := l.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte('a'), b)
	l.ReadByte()
	_, err = l.ReadByte()
	require.Equal(t, ErrNoData, err)
}

type collectWriter struct {
	data []byte
}

func (w *collectWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

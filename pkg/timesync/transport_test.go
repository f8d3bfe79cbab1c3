package timesync

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUDPTransport(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer server.Close()

	tr, err := NewUDPTransport()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- tr.Run(ctx) }()

	addr, err := tr.Resolve("127.0.0.1")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", addr)

	serverAddr := server.LocalAddr().(*net.UDPAddr)
	require.NoError(t, tr.SendTo(addr, serverAddr.Port, EncodeRequest()))

	buf := make([]byte, 128)
	server.SetReadDeadline(time.Now().Add(time.Second))
	n, from, err := server.ReadFromUDP(buf)
	require.NoError(t, err)
	require.Equal(t, EncodeRequest(), buf[:n])

	require.Zero(t, tr.Poll())
	_, err = server.WriteToUDP(EncodeResponse(1700000000), from)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return tr.Poll() == PacketSize },
		time.Second, time.Millisecond)
	n = tr.Read(buf)
	unix, err := DecodeResponse(buf[:n])
	require.NoError(t, err)
	require.Equal(t, int64(1700000000), unix)
	require.Zero(t, tr.Poll())

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

package timesync

import (
	"context"
	"net"

	"github.com/golang/glog"

	"github.com/mahendrakumarshinde/iu.go/pkg/framework"
)

// Transport is the datagram service the Helper talks NTP over. None of the
// methods may block.
type Transport interface {
	// Resolve resolves a host name to an address.
	Resolve(host string) (string, error)
	// SendTo sends a packet.
	SendTo(addr string, port int, pkt []byte) error
	// Poll returns the size of the next received packet, 0 if none.
	Poll() int
	// Read copies the next received packet into buf and returns its length.
	Read(buf []byte) int
}

// DefaultRecvQueue is the number of datagrams UDPTransport buffers.
const DefaultRecvQueue = 4

const maxDatagram = 512

// UDPTransport implements Transport on a UDP socket. Datagrams are read by
// Run in the background and queued.
type UDPTransport struct {
	conn   *net.UDPConn
	recvCh chan []byte
	next   []byte
}

// NewUDPTransport opens a UDP socket on an ephemeral port.
func NewUDPTransport() (*UDPTransport, error) {
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, err
	}
	return &UDPTransport{conn: conn, recvCh: make(chan []byte, DefaultRecvQueue)}, nil
}

// LocalAddr returns the address of the socket.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Resolve implements Transport.
func (t *UDPTransport) Resolve(host string) (string, error) {
	addr, err := net.ResolveIPAddr("ip", host)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

// SendTo implements Transport.
func (t *UDPTransport) SendTo(addr string, port int, pkt []byte) error {
	_, err := t.conn.WriteToUDP(pkt, &net.UDPAddr{IP: net.ParseIP(addr), Port: port})
	return err
}

// Poll implements Transport.
func (t *UDPTransport) Poll() int {
	if t.next == nil {
		select {
		case pkt := <-t.recvCh:
			if len(pkt) > 0 {
				t.next = pkt
			}
		default:
		}
	}
	return len(t.next)
}

// Read implements Transport.
func (t *UDPTransport) Read(buf []byte) int {
	if t.Poll() == 0 {
		return 0
	}
	n := copy(buf, t.next)
	t.next = nil
	return n
}

// Run implements framework.Runnable. It closes the socket on return.
func (t *UDPTransport) Run(ctx context.Context) error {
	return framework.RunWithContextCloser(ctx, t.conn, func() error {
		for {
			buf := make([]byte, maxDatagram)
			n, from, err := t.conn.ReadFromUDP(buf)
			if err != nil {
				return err
			}
			select {
			case t.recvCh <- buf[:n]:
			default:
				glog.V(2).Infof("ntp: receive queue full, datagram from %s dropped", from)
			}
		}
	})
}

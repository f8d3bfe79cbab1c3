package timesync

// LoopbackTransport is an in-memory Transport. Requests are recorded and
// responses are queued by the caller, e.g. a bench shell.
type LoopbackTransport struct {
	Sent  int
	inbox [][]byte
}

// Resolve implements Transport.
func (t *LoopbackTransport) Resolve(host string) (string, error) {
	return host, nil
}

// SendTo implements Transport.
func (t *LoopbackTransport) SendTo(addr string, port int, pkt []byte) error {
	t.Sent++
	return nil
}

// Poll implements Transport.
func (t *LoopbackTransport) Poll() int {
	if len(t.inbox) == 0 {
		return 0
	}
	return len(t.inbox[0])
}

// Read implements Transport.
func (t *LoopbackTransport) Read(buf []byte) int {
	if len(t.inbox) == 0 {
		return 0
	}
	n := copy(buf, t.inbox[0])
	t.inbox = t.inbox[1:]
	return n
}

// Inject queues a raw packet.
func (t *LoopbackTransport) Inject(pkt []byte) {
	t.inbox = append(t.inbox, pkt)
}

// Respond queues a server response carrying unix.
func (t *LoopbackTransport) Respond(unix int64) {
	t.Inject(EncodeResponse(unix))
}

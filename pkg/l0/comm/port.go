package comm

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/golang/glog"
)

// DefaultQueueSize is the default number of bytes a Port queues.
const DefaultQueueSize = 1024

const readChunkSize = 64

// Port reads a blocking io.ReadWriter in the background and exposes the
// received bytes as a ByteSource.
type Port struct {
	ReadWriter io.ReadWriter
	Name       string

	byteCh    chan byte
	writeLock sync.Mutex
}

// NewPort creates a Port with the default queue size.
func NewPort(rw io.ReadWriter) *Port {
	return NewPortSize(rw, DefaultQueueSize)
}

// NewPortSize creates a Port queueing at most size bytes. When the queue is
// full the reader stops reading and the OS buffer of the device fills up.
func NewPortSize(rw io.ReadWriter, size int) *Port {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Port{ReadWriter: rw, byteCh: make(chan byte, size)}
}

// Available implements ByteSource.
func (p *Port) Available() int {
	return len(p.byteCh)
}

// ReadByte implements ByteSource.
func (p *Port) ReadByte() (byte, error) {
	select {
	case b := <-p.byteCh:
		return b, nil
	default:
		return 0, ErrNoData
	}
}

// Write writes to the underlying stream.
func (p *Port) Write(data []byte) (int, error) {
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	return p.ReadWriter.Write(data)
}

// Run implements Runnable. It returns when ctx is canceled or reading fails.
func (p *Port) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go p.readLoop(subCtx, errCh)
	select {
	case <-ctx.Done():
		if closer, ok := p.ReadWriter.(io.Closer); ok {
			closer.Close()
		}
		return ctx.Err()
	case err := <-errCh:
		glog.Errorf("port %s: read error: %v", p.Name, err)
		return err
	}
}

func (p *Port) readLoop(ctx context.Context, errCh chan error) {
	buf := make([]byte, readChunkSize)
	for {
		n, err := p.ReadWriter.Read(buf)
		for _, b := range buf[:n] {
			select {
			case p.byteCh <- b:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			errCh <- err
			return
		}
	}
}

// Loopback is an in-memory ByteSource. Written bytes become available for
// reading in order.
type Loopback struct {
	lock sync.Mutex
	data []byte
}

// Write implements io.Writer.
func (l *Loopback) Write(p []byte) (int, error) {
	l.lock.Lock()
	l.data = append(l.data, p...)
	l.lock.Unlock()
	return len(p), nil
}

// WriteString appends s.
func (l *Loopback) WriteString(s string) (int, error) {
	return l.Write([]byte(s))
}

// Available implements ByteSource.
func (l *Loopback) Available() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.data)
}

// ReadByte implements ByteSource.
func (l *Loopback) ReadByte() (byte, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if len(l.data) == 0 {
		return 0, ErrNoData
	}
	b := l.data[0]
	l.data = l.data[1:]
	return b, nil
}

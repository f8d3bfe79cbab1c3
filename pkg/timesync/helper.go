// Package timesync keeps the device wall clock. The reference is set by an
// authoritative peer whenever one speaks, and by NTP otherwise.
package timesync

import (
	"strconv"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
)

// State is the state of the NTP exchange.
type State int

const (
	// StateIdle means no request is outstanding.
	StateIdle State = iota
	// StateRequestPending means a request was sent and no answer arrived.
	StateRequestPending
)

// String implements fmt.Stringer.
func (s State) String() string {
	if s == StateRequestPending {
		return "request-pending"
	}
	return "idle"
}

// Source identifies who set the reference last.
type Source int

// Sources of a Reference.
const (
	SourceNone Source = iota
	SourceNTP
	SourceAuthoritative
)

// String implements fmt.Stringer.
func (s Source) String() string {
	switch s {
	case SourceNTP:
		return "ntp"
	case SourceAuthoritative:
		return "authoritative"
	}
	return "none"
}

// Reference pairs an epoch time with the tick at which it was valid.
type Reference struct {
	Epoch int64
	At    ticks.Millis
}

// Now projects the reference to the tick now.
func (r Reference) Now(now ticks.Millis) int64 {
	return r.Epoch + int64(ticks.Elapsed(now, r.At)/1000)
}

// Config configures a Helper.
type Config struct {
	Server string `yaml:"server"`
	Port   int    `yaml:"port"`
	// UpdateInterval is the maximum age of the reference before NTP is asked.
	UpdateInterval ticks.Millis `yaml:"update_interval"`
	// RequestTimeout abandons an unanswered request.
	RequestTimeout ticks.Millis `yaml:"request_timeout"`
	// RetryInterval is the minimum gap between two requests.
	RetryInterval ticks.Millis `yaml:"retry_interval"`
	// AuthOffset is where the epoch value starts in an authoritative payload.
	AuthOffset int `yaml:"auth_offset"`
}

// Defaults.
const (
	DefaultServer         = "pool.ntp.org"
	DefaultPort           = 123
	DefaultUpdateInterval = ticks.Millis(300000)
	DefaultRequestTimeout = ticks.Millis(5000)
	DefaultRetryInterval  = ticks.Millis(10000)
	DefaultAuthOffset     = 2
)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Server:         DefaultServer,
		Port:           DefaultPort,
		UpdateInterval: DefaultUpdateInterval,
		RequestTimeout: DefaultRequestTimeout,
		RetryInterval:  DefaultRetryInterval,
		AuthOffset:     DefaultAuthOffset,
	}
}

// Stats counts exchange events. Fields are updated atomically.
type Stats struct {
	Requests    uint64
	Responses   uint64
	Timeouts    uint64
	Malformed   uint64
	SendErrors  uint64
	AuthUpdates uint64
}

// Helper arbitrates between authoritative time and NTP.
type Helper struct {
	Transport Transport
	Clock     ticks.Clock

	config     Config
	state      State
	ref        Reference
	source     Source
	lastUpdate ticks.Millis
	sentAt     ticks.Millis
	attempted  bool
	addr       string
	buf        []byte
	stats      Stats
}

// NewHelper creates a Helper. transport may be nil, in which case only
// authoritative time is used.
func NewHelper(transport Transport, clock ticks.Clock, conf Config) *Helper {
	if conf.Port == 0 {
		conf.Port = DefaultPort
	}
	return &Helper{
		Transport: transport,
		Clock:     clock,
		config:    conf,
		buf:       make([]byte, maxDatagram),
	}
}

// Config returns the configuration.
func (h *Helper) Config() Config {
	return h.config
}

// State returns the state of the NTP exchange.
func (h *Helper) State() State {
	return h.state
}

// Source returns who set the reference last.
func (h *Helper) Source() Source {
	return h.source
}

// Synced reports whether the reference was ever set.
func (h *Helper) Synced() bool {
	return h.source != SourceNone
}

// Reference returns the current reference.
func (h *Helper) Reference() Reference {
	return h.ref
}

// Now returns the current epoch seconds.
func (h *Helper) Now() int64 {
	return h.ref.Now(h.Clock.Millis())
}

// Tick advances the NTP exchange. It never blocks.
func (h *Helper) Tick() {
	if h.Transport == nil {
		return
	}
	now := h.Clock.Millis()
	if h.state == StateRequestPending {
		if h.receive(now) {
			return
		}
		if ticks.Expired(now, h.sentAt, h.config.RequestTimeout) {
			glog.Warningf("ntp: no response from %s within %dms, request abandoned",
				h.config.Server, h.config.RequestTimeout)
			atomic.AddUint64(&h.stats.Timeouts, 1)
			h.state = StateIdle
		}
		return
	}
	if h.Synced() && !ticks.Expired(now, h.lastUpdate, h.config.UpdateInterval) {
		return
	}
	if h.attempted && !ticks.Expired(now, h.sentAt, h.config.RetryInterval) {
		return
	}
	h.request(now)
}

func (h *Helper) request(now ticks.Millis) {
	h.attempted, h.sentAt = true, now
	if h.addr == "" {
		addr, err := h.Transport.Resolve(h.config.Server)
		if err != nil {
			glog.Warningf("ntp: resolve %s: %v", h.config.Server, err)
			atomic.AddUint64(&h.stats.SendErrors, 1)
			return
		}
		h.addr = addr
	}
	// stale answers of abandoned requests
	for h.Transport.Poll() > 0 {
		h.Transport.Read(h.buf)
	}
	if err := h.Transport.SendTo(h.addr, h.config.Port, EncodeRequest()); err != nil {
		glog.Warningf("ntp: send to %s: %v", h.addr, err)
		atomic.AddUint64(&h.stats.SendErrors, 1)
		h.addr = ""
		return
	}
	glog.V(2).Infof("ntp: request sent to %s:%d", h.addr, h.config.Port)
	atomic.AddUint64(&h.stats.Requests, 1)
	h.state = StateRequestPending
}

func (h *Helper) receive(now ticks.Millis) bool {
	for h.Transport.Poll() > 0 {
		n := h.Transport.Read(h.buf)
		unix, err := DecodeResponse(h.buf[:n])
		if err != nil {
			glog.V(2).Infof("ntp: %v", err)
			atomic.AddUint64(&h.stats.Malformed, 1)
			continue
		}
		atomic.AddUint64(&h.stats.Responses, 1)
		h.set(unix, now, SourceNTP)
		h.state = StateIdle
		return true
	}
	return false
}

func (h *Helper) set(epoch int64, now ticks.Millis, src Source) {
	h.ref = Reference{Epoch: epoch, At: now}
	h.lastUpdate = now
	h.source = src
	glog.V(2).Infof("time set to %d by %s", epoch, src)
}

// ApplyAuthoritativeTime parses the epoch seconds in payload at AuthOffset
// and applies them with ApplyAuthoritativeEpoch.
func (h *Helper) ApplyAuthoritativeTime(payload []byte) bool {
	epoch := ParseEpoch(payload, h.config.AuthOffset)
	if epoch <= 0 {
		glog.V(2).Infof("authoritative time ignored: %q", payload)
		return false
	}
	return h.ApplyAuthoritativeEpoch(epoch)
}

// ApplyAuthoritativeEpoch replaces the reference when epoch is positive and
// abandons any pending NTP request. It returns whether the reference was
// updated.
func (h *Helper) ApplyAuthoritativeEpoch(epoch int64) bool {
	if epoch <= 0 {
		return false
	}
	atomic.AddUint64(&h.stats.AuthUpdates, 1)
	h.set(epoch, h.Clock.Millis(), SourceAuthoritative)
	h.state = StateIdle
	return true
}

// ParseEpoch reads a signed decimal starting at offset, stopping at the
// first non digit. Leading blanks are skipped. Anything unparsable is 0.
func ParseEpoch(payload []byte, offset int) int64 {
	if offset < 0 || offset >= len(payload) {
		return 0
	}
	s := payload[offset:]
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	v, err := strconv.ParseInt(string(s[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Stats returns a snapshot of the counters.
func (h *Helper) Stats() Stats {
	return Stats{
		Requests:    atomic.LoadUint64(&h.stats.Requests),
		Responses:   atomic.LoadUint64(&h.stats.Responses),
		Timeouts:    atomic.LoadUint64(&h.stats.Timeouts),
		Malformed:   atomic.LoadUint64(&h.stats.Malformed),
		SendErrors:  atomic.LoadUint64(&h.stats.SendErrors),
		AuthUpdates: atomic.LoadUint64(&h.stats.AuthUpdates),
	}
}

package transport

import "github.com/mel2oo/quicbuf/recvbuf"

const (
	DefaultStreamFlushTimeout int64 = 10
	DefaultStreamCloseTimeout int64 = 90

	DefaultMaxBufferedPagesTotal         int = 100000
	DefaultMaxBufferedPagesPerConnection int = 4000

	// DefaultBufferAllocLength is the receive buffer's initial chunk size
	// and flow-control window for each half of a TCP stream. 64KiB matches
	// a typical default TCP receive window.
	DefaultBufferAllocLength uint32 = 1 << 16

	// DefaultWriteLimit bounds total bytes a single flow's receive buffer
	// will ever hold ready-to-read, mirroring a QUIC stream's max_data.
	DefaultWriteLimit uint64 = 1 << 30
)

// Options configures a Pipeline.
type Options struct {
	// The maximum time we will wait before flushing a connection and
	// delivering the data even if there is a gap in the collected
	// sequence. Default 10 seconds.
	StreamFlushTimeout int64

	// The maximum time we will leave a connection open waiting for
	// traffic. Default 90 seconds.
	StreamCloseTimeout int64

	// Maximum size of gopacket reassembly buffers, per interface and
	// direction.
	MaxBufferedPagesTotal int

	// Maximum size of gopacket reassembly buffers, per connection.
	MaxBufferedPagesPerConnection int

	// BufferMode selects the recvbuf.Mode each half-flow's receive buffer
	// is constructed with.
	BufferMode recvbuf.Mode

	// BufferAllocLength and BufferVirtualLength are passed through to
	// recvbuf.WithLengths for each half-flow's receive buffer. Both must
	// be powers of two, with AllocLength <= VirtualLength.
	BufferAllocLength   uint32
	BufferVirtualLength uint32

	// WriteLimit bounds the total ready-to-read bytes a single flow's
	// receive buffer will accept before Write starts reporting a
	// flow-control violation.
	WriteLimit uint64
}

// NewOptions returns the default Options.
func NewOptions() Options {
	return Options{
		StreamFlushTimeout:            DefaultStreamFlushTimeout,
		StreamCloseTimeout:            DefaultStreamCloseTimeout,
		MaxBufferedPagesTotal:         DefaultMaxBufferedPagesTotal,
		MaxBufferedPagesPerConnection: DefaultMaxBufferedPagesPerConnection,
		BufferMode:                    recvbuf.ModeCircular,
		BufferAllocLength:             DefaultBufferAllocLength,
		BufferVirtualLength:           DefaultBufferAllocLength,
		WriteLimit:                    DefaultWriteLimit,
	}
}

// Option mutates an Options value during construction.
type Option func(*Options)

func WithStreamFlushTimeout(t int64) Option {
	return func(o *Options) { o.StreamFlushTimeout = t }
}

func WithStreamCloseTimeout(t int64) Option {
	return func(o *Options) { o.StreamCloseTimeout = t }
}

func WithMaxBufferedPagesTotal(n int) Option {
	return func(o *Options) { o.MaxBufferedPagesTotal = n }
}

func WithMaxBufferedPagesPerConnection(n int) Option {
	return func(o *Options) { o.MaxBufferedPagesPerConnection = n }
}

// WithBufferMode selects the recvbuf.Mode used for each half-flow.
func WithBufferMode(m recvbuf.Mode) Option {
	return func(o *Options) { o.BufferMode = m }
}

// WithBufferLengths sets the receive buffer's alloc/virtual lengths.
func WithBufferLengths(allocLength, virtualLength uint32) Option {
	return func(o *Options) {
		o.BufferAllocLength = allocLength
		o.BufferVirtualLength = virtualLength
	}
}

// WithWriteLimit overrides the per-flow flow-control ceiling.
func WithWriteLimit(n uint64) Option {
	return func(o *Options) { o.WriteLimit = n }
}

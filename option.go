package packetconn

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrorAction defines the action to take when an error occurs.
type ErrorAction int

const (
	// Disconnect closes the connection when an error occurs.
	Disconnect ErrorAction = iota
	// Continue suppresses the error and keeps the connection.
	Continue
)

// options holds the configuration for a client.
type options struct {
	codec    Codec
	logger   Logger
	registry prometheus.Registerer

	// onError is called for *WriteError and *DecodeError.
	// Returns Disconnect to close the connection, Continue to keep it.
	onError func(error) ErrorAction

	maxFrameSize      int           // maximum size of a packet body
	maxDecodeFailures int           // consecutive bad packets treated as desync
	dialTimeout       time.Duration // 0 uses the dialer default
	idleTimeout       time.Duration // read deadline per frame, 0 disables
	writeTimeout      time.Duration // write deadline per frame, 0 disables
}

// Option is a function that configures client options.
type Option func(*options)

// Default configuration values.
const (
	// defaultMaxFrameSize is the default maximum packet body size (1MB).
	defaultMaxFrameSize = 1024 * 1024
	// defaultMaxDecodeFailures is the default number of consecutive
	// malformed packets after which the stream is considered desynchronized.
	defaultMaxDecodeFailures = 3
	// defaultStopWriteTimeout bounds the writes Stop waits for.
	defaultStopWriteTimeout = time.Second
)

// checkOptions validates and sets default values for client options.
func checkOptions(opts *options) error {
	if opts.codec == nil {
		opts.codec = PacketCodec{}
	}

	if opts.maxFrameSize <= 0 {
		opts.maxFrameSize = defaultMaxFrameSize
	}

	if opts.maxDecodeFailures <= 0 {
		opts.maxDecodeFailures = defaultMaxDecodeFailures
	}

	if opts.dialTimeout < 0 || opts.idleTimeout < 0 || opts.writeTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}

	if opts.onError == nil {
		opts.onError = defaultOnError
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	return nil
}

// defaultOnError drops malformed packets and closes on write failures.
func defaultOnError(err error) ErrorAction {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return Continue
	}
	return Disconnect
}

// CustomCodecOption returns an Option that sets the packet codec.
// PacketCodec is used when unset.
func CustomCodecOption(codec Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// MessageMaxSize returns an Option that sets the maximum packet body size.
// Larger inbound frames are treated as a desynchronized stream, larger
// outbound packets are rejected by Send.
func MessageMaxSize(size int) Option {
	return func(o *options) {
		o.maxFrameSize = size
	}
}

// MaxDecodeFailuresOption sets how many consecutive malformed packets are
// tolerated before the connection is closed.
func MaxDecodeFailuresOption(n int) Option {
	return func(o *options) {
		o.maxDecodeFailures = n
	}
}

// DialTimeoutOption bounds Connect.
func DialTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = timeout
	}
}

// IdleTimeoutOption returns an Option that sets the read deadline for each
// inbound frame. A server silent for longer is treated as disconnected.
func IdleTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = timeout
	}
}

// WriteTimeoutOption returns an Option that sets the write deadline for
// each outbound frame. Stop waits at most the smaller of this and one
// second for pending writes.
func WriteTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = timeout
	}
}

// OnErrorOption returns an Option that sets the error callback.
// The callback receives every *WriteError and *DecodeError.
// Return Disconnect to close the connection, or Continue to keep it.
func OnErrorOption(cb func(error) ErrorAction) Option {
	return func(o *options) {
		o.onError = cb
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// MetricsOption registers the client's collectors with registry. They are
// unregistered again when the connection closes. Without it the collectors
// are kept but not registered anywhere.
func MetricsOption(registry prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = registry
	}
}

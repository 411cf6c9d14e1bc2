// Package packetconn is the client half of a small framed TCP protocol.
// Batches of typed elements travel as length-prefixed packets; a background
// listener decodes inbound packets and hands them to a Handler while Send
// writes synchronously on the caller's goroutine.
package packetconn

import (
	"context"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// State is the lifecycle state of a Client.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Client owns at most one connection to a server. It moves from Idle
// through Active to Closed exactly once; Closed is terminal and a new
// Client is needed to connect again. A failed Connect leaves it Idle.
type Client struct {
	id      string
	handler Handler
	opts    options
	logger  *clientLogger
	metrics *metrics

	mu     sync.Mutex // guards the fields below
	state  State
	host   string
	port   int
	conn   *net.TCPConn
	cancel context.CancelFunc

	// writeMu keeps frames from interleaving. Close does not take it, so a
	// write blocked on a full buffer never holds up a disconnect.
	writeMu     sync.Mutex
	writeBroken bool // a frame was cut short; guarded by writeMu
	sessionID   atomic.Int64
	done        chan struct{} // closed when the listener exits
}

// NewClient creates an Idle client that reports to handler.
func NewClient(handler Handler, opt ...Option) (*Client, error) {
	if handler == nil {
		return nil, ErrInvalidHandler
	}

	var opts options
	for _, o := range opt {
		o(&opts)
	}

	if err := checkOptions(&opts); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	c := &Client{
		id:      id,
		handler: handler,
		opts:    opts,
		logger:  newClientLogger(opts.logger, id),
		metrics: newMetrics(opts.registry, id),
		done:    make(chan struct{}),
	}
	c.sessionID.Store(-1)
	return c, nil
}

// Connect dials host:port. On success the client is Active and the
// listener is running. On a dial failure OnUnableToConnect is invoked,
// the client stays Idle and a *DialError is returned. Connect on a client
// that is not Idle returns ErrNotIdle.
//
// ctx bounds the dial only; the connection lives until Stop or a
// disconnect.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return errors.Wrapf(ErrNotIdle, "connect in state %s", state)
	}
	c.state = StateConnecting
	c.host, c.port = host, port
	c.mu.Unlock()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: c.opts.dialTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()

		c.metrics.connectFailures.Inc()
		c.logger.Warn("unable to connect", "addr", addr, "error", err)
		c.handler.OnUnableToConnect()
		return &DialError{Addr: addr, Err: err}
	}

	conn := raw.(*net.TCPConn)
	_ = conn.SetNoDelay(true)
	listenCtx, cancel := context.WithCancel(context.Background())
	c.logger.bind("addr", conn.RemoteAddr().String())

	c.mu.Lock()
	c.state = StateActive
	c.conn = conn
	c.cancel = cancel
	c.mu.Unlock()

	c.metrics.connected.Set(1)
	c.logger.Info("connection established", "host", host, "port", port)
	c.logger.Debug("connection options",
		"max_frame_size", c.opts.maxFrameSize,
		"max_decode_failures", c.opts.maxDecodeFailures,
		"idle_timeout", c.opts.idleTimeout,
		"write_timeout", c.opts.writeTimeout)

	go c.listen(listenCtx, conn)
	return nil
}

// Send encodes elements into one packet and writes it on the calling
// goroutine. Concurrent calls are serialized; each packet reaches the
// server whole and packets from one goroutine arrive in call order.
//
// When the client is not Active, Send does nothing and returns
// ErrNotActive. A failed write returns a *WriteError; whether it also
// closes the connection is decided by the OnErrorOption policy.
func (c *Client) Send(elements ...Element) error {
	for i, e := range elements {
		if e.Kind == KindDisconnect {
			return &EncodeError{Index: i, Err: ErrReservedKind}
		}
	}

	if c.State() != StateActive {
		return ErrNotActive
	}

	body, err := c.opts.codec.Encode(elements)
	if err != nil {
		return err
	}

	return c.writePacket(body, false)
}

// Stop notifies the server, closes the connection and invokes
// OnDisconnected. Only the first call on an Active client does anything.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	conn := c.conn
	c.mu.Unlock()

	// Bounds a Send blocked on a full buffer as well as the notification.
	_ = conn.SetWriteDeadline(time.Now().Add(c.stopWriteTimeout()))

	body, err := c.opts.codec.Encode([]Element{{Kind: KindDisconnect, Payload: disconnectPayload}})
	if err == nil {
		err = c.writePacket(body, true)
	}
	if err != nil {
		c.logger.Debug("disconnect notification not sent", "error", err)
	}

	c.terminate(nil)
}

// Wait blocks until the listener has exited. It returns immediately if
// the client never connected.
func (c *Client) Wait() {
	c.mu.Lock()
	started := c.conn != nil
	c.mu.Unlock()

	if started {
		<-c.done
	}
}

// ID returns the random identifier used in logs and metrics.
func (c *Client) ID() string {
	return c.id
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Host returns the host passed to Connect.
func (c *Client) Host() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host
}

// Port returns the port passed to Connect.
func (c *Client) Port() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port
}

// RawConn returns the underlying socket, or nil before a successful
// Connect. Reading from or closing it breaks the protocol.
func (c *Client) RawConn() *net.TCPConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// SessionID returns the id assigned by the server, or -1.
func (c *Client) SessionID() int64 {
	return c.sessionID.Load()
}

// stopWriteTimeout is the write deadline Stop gives to pending and
// notification writes.
func (c *Client) stopWriteTimeout() time.Duration {
	if c.opts.writeTimeout > 0 && c.opts.writeTimeout < defaultStopWriteTimeout {
		return c.opts.writeTimeout
	}
	return defaultStopWriteTimeout
}

// writePacket frames body and writes it. The Stop path passes closing so
// the disconnect notification can still go out while the client is Closing.
//
// A frame cut short by an error leaves the peer mid-frame, so it closes
// the connection whatever the error policy says.
func (c *Client) writePacket(body []byte, closing bool) error {
	if len(body) > c.opts.maxFrameSize {
		return errors.Wrapf(ErrFrameTooLarge, "packet of %d bytes exceeds %d", len(body), c.opts.maxFrameSize)
	}

	c.writeMu.Lock()
	conn := c.writableConn(closing)
	if conn == nil {
		c.writeMu.Unlock()
		return ErrNotActive
	}

	if closing && c.writeBroken {
		c.writeMu.Unlock()
		return errors.Wrap(ErrStreamDesync, "previous frame was cut short")
	}

	if !closing && c.opts.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.opts.writeTimeout))
	}
	n, err := writeFrame(conn, body, c.opts.maxFrameSize)
	partial := err != nil && n > 0
	if partial {
		c.writeBroken = true
	}
	c.writeMu.Unlock()

	if err != nil {
		werr := &WriteError{Err: err}
		c.metrics.writeErrors.Inc()
		c.logger.Warn("write error", "error", err, "written", n)
		if closing {
			return werr
		}
		if action := c.opts.onError(werr); action == Disconnect || partial {
			c.abort(werr)
		}
		return werr
	}

	c.metrics.packetsSent.Inc()
	c.metrics.bytesSent.Add(float64(n))
	return nil
}

func (c *Client) writableConn(closing bool) *net.TCPConn {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateActive || (closing && c.state == StateClosing) {
		return c.conn
	}
	return nil
}

// abort closes an Active connection that was lost rather than stopped.
func (c *Client) abort(cause error) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	c.mu.Unlock()

	c.terminate(cause)
}

// terminate finishes the Closing -> Closed transition. Only the goroutine
// that moved the client out of Active gets here, so it runs once.
func (c *Client) terminate(cause error) {
	c.mu.Lock()
	c.state = StateClosed
	conn, cancel := c.conn, c.cancel
	c.mu.Unlock()

	cancel()

	// Close is safe next to a pending Write and makes it fail at once.
	if err := conn.Close(); err != nil {
		c.logger.Debug("close error", "error", err)
	}

	c.metrics.connected.Set(0)
	c.metrics.disconnects.WithLabelValues(disconnectReason(cause)).Inc()
	c.metrics.unregister()

	if cause != nil {
		c.logger.Info("connection closed with error", "error", cause)
	} else {
		c.logger.Info("connection closed")
	}

	c.handler.OnDisconnected()
}

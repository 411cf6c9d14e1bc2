package packetconn

import (
	"bufio"
	"context"
	"encoding/binary"
	"net"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// listen runs the background listener of one connection until the read
// loop fails or the connection is terminated. A failure while the client
// is still Active is an unexpected disconnect.
func (c *Client) listen(ctx context.Context, conn *net.TCPConn) {
	defer close(c.done)

	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return c.readLoop(child, conn)
	})

	group.Go(func() error {
		<-child.Done()
		// Wake a blocked read without closing the socket; terminate owns Close.
		_ = conn.SetReadDeadline(time.Now())
		return nil
	})

	err := group.Wait()
	c.logger.Debug("listener stopped", "error", err)

	if err == nil {
		err = errors.New("listener exited")
	}
	c.abort(&DisconnectError{Err: err})
}

// readLoop reads frames, decodes them and dispatches the elements. It
// returns nil once the client has left Active, and an error for anything
// that ends the connection.
func (c *Client) readLoop(ctx context.Context, conn *net.TCPConn) error {
	reader := bufio.NewReader(conn)
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if c.opts.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.opts.idleTimeout))
		}

		body, err := readFrame(reader, c.opts.maxFrameSize)
		if err != nil {
			if c.State() != StateActive {
				return nil
			}
			return err
		}

		// Stop was requested while the read was in flight.
		if c.State() != StateActive {
			return nil
		}

		c.metrics.bytesReceived.Add(float64(framePrefixSize + len(body)))

		elements, err := c.opts.codec.Decode(body)
		if err != nil {
			failures++
			c.metrics.decodeErrors.Inc()
			c.logger.Warn("dropping malformed packet", "error", err, "consecutive", failures)

			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				decodeErr = &DecodeError{Err: err}
			}

			if failures >= c.opts.maxDecodeFailures {
				return errors.Wrapf(ErrStreamDesync, "%d consecutive malformed packets", failures)
			}
			if c.opts.onError(decodeErr) == Disconnect {
				return decodeErr
			}
			continue
		}
		failures = 0

		if err = c.dispatch(elements); err != nil {
			return err
		}
	}
}

// dispatch applies protocol elements and delivers the packet.
func (c *Client) dispatch(elements []Element) error {
	for _, e := range elements {
		switch e.Kind {
		case KindDisconnect:
			return errors.Wrapf(ErrPeerDisconnect, "payload %q", e.Payload)
		case KindSession:
			if len(e.Payload) != 4 {
				c.logger.Warn("ignoring malformed session element", "length", len(e.Payload))
				continue
			}
			id := int64(int32(binary.BigEndian.Uint32(e.Payload)))
			c.sessionID.Store(id)
			c.logger.Debug("session assigned", "session_id", id)
		}
	}

	c.metrics.packetsReceived.Inc()
	c.handler.OnMessage(elements)
	return nil
}

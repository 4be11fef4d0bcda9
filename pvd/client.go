// Package pvd streams the state of a running simulation to a remote visual debugger over QUIC. The
// stream is best effort: frames are dropped while the debugger is unreachable or slow, and a missing
// debugger never affects the simulation.
package pvd

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oomph-ac/contactsim/contact"
	"github.com/oomph-ac/contactsim/oerror"
	"github.com/oomph-ac/contactsim/world"
	"github.com/quic-go/quic-go"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Protocol is the ALPN protocol negotiated with the debugger.
const Protocol = "contactsim-pvd-v1"

// Config holds the settings of a debugger client.
type Config struct {
	// Address is the host:port of the debugger.
	Address string
	// ServerName is the name the certificate of the debugger is verified against.
	ServerName string
	// Insecure disables verification of the certificate of the debugger.
	Insecure bool
	// QueueSize is the amount of frames buffered while the connection is busy. Defaults to 256.
	QueueSize int
	// RetryInterval is the time waited before reconnecting. Defaults to 5 seconds.
	RetryInterval time.Duration

	Log *logrus.Logger
}

// Dial returns a client that connects to the debugger in the background and keeps reconnecting until
// it is closed. The session ID is sent at the start of every connection.
func (conf Config) Dial(session uuid.UUID) (*Client, error) {
	if conf.Address == "" {
		return nil, oerror.New(oerror.ErrResourceCreation, "debugger address must not be empty")
	}
	if conf.QueueSize <= 0 {
		conf.QueueSize = 256
	}
	if conf.RetryInterval <= 0 {
		conf.RetryInterval = time.Second * 5
	}
	if conf.Log == nil {
		conf.Log = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conf:    conf,
		session: session,
		frames:  make(chan []byte, conf.QueueSize),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go c.run(ctx)
	return c, nil
}

// Client is a connection to a remote visual debugger. It implements simulation.Observer.
type Client struct {
	conf    Config
	session uuid.UUID

	frames chan []byte
	cancel context.CancelFunc
	done   chan struct{}

	available atomic.Bool
	closed    atomic.Bool
	sent      atomic.Uint64
	dropped   atomic.Uint64
}

// Available returns true if the client is currently connected to the debugger.
func (c *Client) Available() bool {
	return c.available.Load()
}

// Sent returns the amount of frames written to the debugger.
func (c *Client) Sent() uint64 {
	return c.sent.Load()
}

// Dropped returns the amount of frames discarded because the queue was full.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

// Observe encodes the state of the step and queues it for the debugger. It never blocks.
func (c *Client) Observe(step uint64, bodies []*world.Body, events []contact.Event) {
	if c.closed.Load() {
		return
	}
	select {
	case c.frames <- EncodeFrame(step, bodies, events):
	default:
		c.dropped.Inc()
	}
}

// Close stops the client and closes the connection to the debugger. Queued frames are discarded.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()
	<-c.done
	return nil
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	initial := true
	for {
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.conf.Log.Debugf("unable to connect to debugger at %s: %v", c.conf.Address, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.conf.RetryInterval):
				continue
			}
		}

		if initial {
			c.conf.Log.Infof("connected to debugger at %s", c.conf.Address)
		} else {
			c.conf.Log.Info("re-established connection to debugger")
		}
		initial = false

		c.available.Store(true)
		err = c.stream(ctx, conn)
		c.available.Store(false)
		_ = conn.CloseWithError(0, "")
		if ctx.Err() != nil {
			return
		}
		c.conf.Log.Warnf("lost connection to debugger: %v", err)
	}
}

func (c *Client) connect(ctx context.Context) (quic.Connection, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.conf.RetryInterval)
	defer cancel()
	return quic.DialAddr(dialCtx, c.conf.Address, &tls.Config{
		ServerName:         c.conf.ServerName,
		InsecureSkipVerify: c.conf.Insecure,
		NextProtos:         []string{Protocol},
	}, &quic.Config{
		KeepAlivePeriod:       time.Second,
		MaxIdleTimeout:        time.Minute,
		MaxIncomingStreams:    -1,
		MaxIncomingUniStreams: -1,
	})
}

// stream writes the session ID followed by every queued frame, each prefixed by its length, until
// the context is cancelled or a write fails.
func (c *Client) stream(ctx context.Context, conn quic.Connection) error {
	s, err := conn.OpenUniStreamSync(ctx)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer s.Close()

	if _, err := s.Write(c.session[:]); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	var header [4]byte
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-conn.Context().Done():
			return context.Cause(conn.Context())
		case frame := <-c.frames:
			binary.LittleEndian.PutUint32(header[:], uint32(len(frame)))
			if _, err := s.Write(header[:]); err != nil {
				return fmt.Errorf("write frame header: %w", err)
			}
			if _, err := s.Write(frame); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
			c.sent.Inc()
		}
	}
}

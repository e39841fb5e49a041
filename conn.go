// Package logport implements a single-client TCP server that exchanges
// length-prefixed text frames with one peer at a time and forwards received
// messages into a structured log stream. It provides the wire codec, the
// connection primitives, cancellable background tasks for accepting,
// receiving and sending, and a controller that orchestrates them.
package logport

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Errors returned by connection operations.
var (
	// ErrBind is returned when the listening socket could not be bound,
	// for an invalid address as well as one already in use. Nothing is
	// left half-bound.
	ErrBind = errors.New("bind failed")
	// ErrNoPeer is returned when an operation requires a connected peer
	// and none is present.
	ErrNoPeer = errors.New("no peer connected")
	// ErrTimedOut is returned when a bounded read expires. It is a
	// control-flow signal for polling loops, not a failure: the caller
	// should retry.
	ErrTimedOut = errors.New("timed out")
	// ErrConnectionLost is returned when the peer disconnected
	// mid-operation. The caller must drop the peer.
	ErrConnectionLost = errors.New("connection lost")
	// ErrSendFailed is returned when a frame could not be fully written.
	// The caller must treat the peer as lost.
	ErrSendFailed = errors.New("send failed")
	// ErrBadFile is returned when a file payload is unreadable or not
	// valid JSON. Nothing is sent in that case.
	ErrBadFile = errors.New("invalid file payload")
)

// ErrNotListening is returned when accepting without a bound listener.
var ErrNotListening = errors.New("server not listening")

// writeTimeout bounds a frame write so a vanished peer surfaces as
// ErrSendFailed instead of blocking the send forever.
const writeTimeout = 30 * time.Second

// Conn owns one listening TCP socket and at most one accepted peer
// connection. It is not safe for unsynchronized concurrent use: it is
// designed for a single owner at a time, with the one exception that
// Send and Receive may run concurrently against the same peer because
// they use independent read and write paths.
type Conn struct {
	logger Logger

	listener *net.TCPListener
	peer     *net.TCPConn
	peerAddr net.Addr
	reader   *bufio.Reader
}

// NewConn returns a Conn logging through the given logger.
// A nil logger falls back to the slog default.
func NewConn(logger Logger) *Conn {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Conn{logger: logger}
}

// Create binds the listening socket to host:port and starts listening.
// On failure nothing is left bound. Creating over an existing listener
// is an error; Close first.
func (c *Conn) Create(host string, port int) error {
	if c.listener != nil {
		return errors.New("server already created")
	}

	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return errors.Wrapf(ErrBind, "resolve %s:%d: %v", host, port, err)
	}

	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return errors.Wrapf(ErrBind, "listen on %s: %v", addr, err)
	}

	c.listener = listener
	c.logger.Info("server created", "addr", listener.Addr())
	return nil
}

// Addr returns the listener address, or nil when not listening.
// Useful when binding to port 0.
func (c *Conn) Addr() net.Addr {
	if c.listener == nil {
		return nil
	}
	return c.listener.Addr()
}

// PeerAddr returns the connected peer's address, or nil when no peer is set.
func (c *Conn) PeerAddr() net.Addr {
	return c.peerAddr
}

// Connected reports whether a peer is currently accepted.
func (c *Conn) Connected() bool {
	return c.peer != nil
}

// Accept waits up to pollTimeout for an incoming connection. Expiry is not
// an error: it returns (false, nil) so the caller can observe a stop
// request between attempts. On success the peer and its address are set
// together.
func (c *Conn) Accept(pollTimeout time.Duration) (bool, error) {
	if c.listener == nil {
		return false, ErrNotListening
	}

	if err := c.listener.SetDeadline(time.Now().Add(pollTimeout)); err != nil {
		return false, errors.Wrap(err, "set accept deadline")
	}

	peer, err := c.listener.AcceptTCP()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return false, nil
		}
		return false, errors.Wrap(err, "accept")
	}

	_ = peer.SetNoDelay(true)
	c.peer = peer
	c.peerAddr = peer.RemoteAddr()
	c.reader = bufio.NewReader(peer)
	c.logger.Info("connection to peer accepted", "addr", c.peerAddr)
	return true, nil
}

// Send encodes payload as one frame and writes it to the peer in full.
// Fails with ErrNoPeer when no peer is connected and ErrSendFailed when
// the write does not complete; in the latter case the peer must be
// treated as lost.
func (c *Conn) Send(payload []byte) error {
	if c.peer == nil {
		return ErrNoPeer
	}

	frame := EncodeFrame(payload)
	if err := c.peer.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return errors.Wrapf(ErrSendFailed, "set write deadline: %v", err)
	}
	if _, err := c.peer.Write(frame); err != nil {
		return errors.Wrapf(ErrSendFailed, "write frame to %s: %v", c.peerAddr, err)
	}

	c.logger.Debug("sent frame", "addr", c.peerAddr, "length", len(payload))
	return nil
}

// SendFile reads the file at path, requires it to parse as JSON,
// re-serializes it canonically and sends the result as one frame.
// A read or parse failure yields ErrBadFile before any bytes hit the
// wire, so a truncated or invalid payload is never transmitted.
func (c *Conn) SendFile(path string) error {
	if c.peer == nil {
		return ErrNoPeer
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(ErrBadFile, "read %s: %v", path, err)
	}

	var doc any
	if err = json.Unmarshal(data, &doc); err != nil {
		return errors.Wrapf(ErrBadFile, "parse %s: %v", path, err)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrapf(ErrBadFile, "serialize %s: %v", path, err)
	}

	return c.Send(payload)
}

// Receive reads one complete frame from the peer, decoding the length
// header and then the body. Each underlying read is bounded by
// pollTimeout; expiry yields ErrTimedOut and the caller should retry.
// ErrConnectionLost means the peer disconnected and the caller must
// drop it.
func (c *Conn) Receive(pollTimeout time.Duration) (Frame, error) {
	if c.peer == nil {
		return nil, ErrNoPeer
	}

	r := &deadlineReader{conn: c.peer, reader: c.reader, timeout: pollTimeout}

	length, err := DecodeLength(r)
	if err != nil {
		return nil, classifyRead(err)
	}

	body, err := DecodeBody(r, length)
	if err != nil {
		return nil, classifyRead(err)
	}

	frame := Frame(body)
	c.logger.Debug("received frame", "addr", c.peerAddr, "length", frame.Length())
	return frame, nil
}

// DropPeer closes and clears the peer connection, leaving the listener
// intact. Safe to call with no peer.
func (c *Conn) DropPeer() {
	if c.peer == nil {
		return
	}

	_ = c.peer.Close()
	c.peer = nil
	c.peerAddr = nil
	c.reader = nil
	c.logger.Info("closed connection to peer")
}

// Close releases the peer socket (if any) and the listening socket
// (if any). Safe to call multiple times; the Conn ends up unbound
// either way.
func (c *Conn) Close() error {
	c.DropPeer()

	if c.listener == nil {
		return nil
	}

	err := c.listener.Close()
	c.listener = nil
	c.logger.Info("closed listening socket")
	return errors.Wrap(err, "close listener")
}

// deadlineReader bounds every read with a fresh deadline so blocked
// reads wake up within one poll interval.
type deadlineReader struct {
	conn    net.Conn
	reader  io.Reader
	timeout time.Duration
}

func (d *deadlineReader) Read(p []byte) (int, error) {
	if err := d.conn.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.reader.Read(p)
}

// classifyRead translates socket-level read errors into the package
// taxonomy. Raw net errors never cross this boundary.
func classifyRead(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimedOut
	}
	return errors.Wrapf(ErrConnectionLost, "%v", err)
}

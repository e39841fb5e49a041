package logport

import (
	"net"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ControllerState is the lifecycle state of a Controller.
type ControllerState int

const (
	// StateStopped means no listener is bound.
	StateStopped ControllerState = iota
	// StateListening means the server is bound and waiting for a peer.
	StateListening
	// StateConnected means a peer is accepted.
	StateConnected
)

func (s ControllerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateListening:
		return "listening"
	case StateConnected:
		return "connected"
	}
	return "unknown"
}

// NotificationKind discriminates controller notifications.
type NotificationKind int

const (
	// NotePeerConnected reports a newly accepted peer.
	NotePeerConnected NotificationKind = iota
	// NotePeerLost reports that the peer disconnected and the server is
	// listening again.
	NotePeerLost
	// NoteLogRecord carries one received message routed into the log
	// stream.
	NoteLogRecord
)

// Notification is a lifecycle or log event delivered to the UI layer.
// Notifications from one task arrive in the order the underlying events
// occurred; no ordering holds across task kinds.
type Notification struct {
	Kind NotificationKind

	Addr   string // NotePeerConnected
	Level  Level  // NoteLogRecord
	Source string // NoteLogRecord
	Text   string // NoteLogRecord
}

// Controller orchestrates the accept, receive and send tasks against one
// Conn, enforcing the legal state transitions: a peer must be accepted
// before anything is sent or received, and a lost peer automatically
// puts the server back into listening.
//
// All methods are safe for concurrent use. Notifications are consumed
// from the channel returned by Notifications.
type Controller struct {
	logger Logger
	opts   options

	conn    *Conn
	accept  *acceptTask
	receive *receiveTask
	send    *sendTask

	events chan event
	notes  chan Notification

	mu       sync.Mutex
	state    ControllerState
	gen      uint64 // current accept cycle; stale task events are dropped
	pumpStop chan struct{}
	pumpDone chan struct{}
}

// NewController creates a stopped controller with the given options.
func NewController(opt ...Option) *Controller {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)

	conn := NewConn(opts.logger)
	events := make(chan event, opts.bufferSize)

	return &Controller{
		logger:  opts.logger,
		opts:    opts,
		conn:    conn,
		accept:  newAcceptTask(conn, opts.logger, events, opts.pollTimeout),
		receive: newReceiveTask(conn, opts.logger, events, opts.pollTimeout, opts.receiveInterval),
		send:    newSendTask(conn, opts.logger, events),
		events:  events,
		notes:   make(chan Notification, opts.bufferSize),
	}
}

// Notifications returns the channel on which lifecycle events and log
// records are delivered to the UI layer.
func (c *Controller) Notifications() <-chan Notification {
	return c.notes
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Addr returns the bound listener address, or nil when stopped.
func (c *Controller) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Addr()
}

// Start binds the server to host:port and begins accepting. On failure
// the controller remains stopped and the error is both logged and
// returned.
func (c *Controller) Start(host string, port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStopped {
		return errors.New("server already started")
	}

	if err := c.conn.Create(host, port); err != nil {
		c.logger.Error("server could not be started", "error", err)
		return errors.WithMessage(err, "start server")
	}

	c.state = StateListening
	c.pumpStop = make(chan struct{})
	c.pumpDone = make(chan struct{})
	go c.pump(c.pumpStop, c.pumpDone)

	c.startAcceptLocked()
	c.logger.Info("listening for connections")
	return nil
}

// Stop cancels and joins the accept and receive tasks, awaits any
// in-flight send, then closes the connection. Safe to call on an
// already stopped controller.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	c.state = StateStopped
	c.gen++ // invalidate events still in flight
	pumpStop, pumpDone := c.pumpStop, c.pumpDone
	c.mu.Unlock()

	var group errgroup.Group
	group.Go(func() error {
		c.accept.StopAndJoin()
		return nil
	})
	group.Go(func() error {
		c.receive.StopAndJoin()
		return nil
	})
	group.Go(func() error {
		// The send task never observes cancellation; wait it out.
		c.send.Join()
		return nil
	})
	_ = group.Wait()

	close(pumpStop)
	<-pumpDone

	// Tasks and pump are down, but Addr and Start may still be called
	// concurrently; the connection is only touched under the mutex.
	c.mu.Lock()
	err := c.conn.Close()
	c.mu.Unlock()
	if err != nil {
		c.logger.Error("error closing server socket", "error", err)
	}
	c.logger.Info("server stopped")
}

// Send transmits text as one frame to the connected peer on a one-shot
// background task. Only one send may be in flight at a time, and only
// while a peer is connected: a send never overlaps an in-progress
// accept.
func (c *Controller) Send(text string) error {
	return c.startSend([]byte(text), "")
}

// SendFile transmits the JSON document in the file at path as one frame.
// An unreadable or invalid file aborts the send before any network I/O.
func (c *Controller) SendFile(path string) error {
	return c.startSend(nil, path)
}

func (c *Controller) startSend(payload []byte, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStopped {
		return errors.New("server not started")
	}
	if c.state != StateConnected {
		c.logger.Error("can not send message, no peer is connected")
		return ErrNoPeer
	}
	if c.send.Running() {
		return errors.New("send already in progress")
	}
	return c.send.Start(c.gen, payload, path)
}

// StartReceiving resumes the receive loop after a manual stop. Receiving
// begins automatically when a peer connects.
func (c *Controller) StartReceiving() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConnected {
		return ErrNoPeer
	}
	if c.receive.Running() {
		return nil
	}
	c.startReceiveLocked()
	return nil
}

// StopReceiving pauses the receive loop without dropping the peer.
func (c *Controller) StopReceiving() {
	c.receive.StopAndJoin()
	c.logger.Info("stop receiving messages")
}

// startAcceptLocked begins a new accept cycle. Callers hold c.mu.
func (c *Controller) startAcceptLocked() {
	c.gen++
	if err := c.accept.Start(c.gen); err != nil {
		c.logger.Error("could not start accept task", "error", err)
	}
}

// startReceiveLocked starts the receive loop for the current accept
// cycle. Callers hold c.mu.
func (c *Controller) startReceiveLocked() {
	if err := c.receive.Start(c.gen); err != nil {
		c.logger.Error("could not start receive task", "error", err)
		return
	}
	c.logger.Info("start receiving messages")
}

// pump is the controller's foreground event loop: it serializes task
// events and turns them into state transitions and notifications.
func (c *Controller) pump(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case ev := <-c.events:
			c.handleEvent(ev)
		}
	}
}

func (c *Controller) handleEvent(ev event) {
	c.mu.Lock()

	if ev.gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("ignoring event from stale accept cycle", "generation", ev.gen)
		return
	}

	switch ev.kind {
	case eventPeerConnected:
		if c.state != StateListening {
			c.mu.Unlock()
			return
		}
		c.state = StateConnected
		addr := ev.addr
		c.startReceiveLocked()
		c.mu.Unlock()
		c.notify(Notification{Kind: NotePeerConnected, Addr: addr.String()})

	case eventPeerLost:
		if c.state != StateConnected {
			c.mu.Unlock()
			return
		}
		c.state = StateListening
		c.mu.Unlock()

		// The reporter may be the send task while the receive loop is
		// still up, or vice versa; quiesce both before touching the peer.
		c.receive.StopAndJoin()
		c.send.Join()

		c.mu.Lock()
		if c.state != StateListening {
			// Stop ran while we were joining.
			c.mu.Unlock()
			return
		}
		c.conn.DropPeer()
		c.startAcceptLocked()
		c.mu.Unlock()

		c.logger.Info("listening for connections")
		c.notify(Notification{Kind: NotePeerLost})

	case eventLogRecord:
		c.mu.Unlock()
		c.notify(Notification{
			Kind:   NoteLogRecord,
			Level:  ev.level,
			Source: ev.source,
			Text:   ev.text,
		})

	default:
		c.mu.Unlock()
	}
}

// notify delivers n to the UI layer without blocking the event pump.
// A full channel drops the notification; the log stream already carries
// the same information.
func (c *Controller) notify(n Notification) {
	select {
	case c.notes <- n:
	default:
		c.logger.Debug("notification dropped, channel full", "kind", n.Kind)
	}
}

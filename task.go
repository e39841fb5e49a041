package logport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// TaskState describes the lifecycle of a background task.
type TaskState int

const (
	// TaskIdle means the task has never been started.
	TaskIdle TaskState = iota
	// TaskRunning means the task goroutine is active.
	TaskRunning
	// TaskStopRequested means a cooperative stop was requested and the
	// task will exit at its next poll boundary.
	TaskStopRequested
	// TaskCompleted means the task goroutine has exited. A completed
	// task may be started again.
	TaskCompleted
)

func (s TaskState) String() string {
	switch s {
	case TaskIdle:
		return "idle"
	case TaskRunning:
		return "running"
	case TaskStopRequested:
		return "stop requested"
	case TaskCompleted:
		return "completed"
	}
	return "unknown"
}

// task is the shared harness for the accept, receive and send tasks:
// one goroutine at a time, a cancellation context for cooperative stops
// and a done channel for joining. A completed task can be restarted.
type task struct {
	name string

	mu     sync.Mutex
	state  TaskState
	cancel context.CancelFunc
	done   chan struct{}
}

// Start launches run on a new goroutine. It fails if the task is
// already running.
func (t *task) Start(run func(ctx context.Context)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == TaskRunning || t.state == TaskStopRequested {
		return errors.Errorf("%s task already running", t.name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	t.state = TaskRunning

	go func() {
		defer func() {
			t.mu.Lock()
			t.state = TaskCompleted
			t.mu.Unlock()
			cancel()
			close(done)
		}()
		run(ctx)
	}()

	return nil
}

// RequestStop asks the task to exit at its next poll boundary. It is
// idempotent and safe to call on a task that is not running.
func (t *task) RequestStop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == TaskRunning {
		t.state = TaskStopRequested
		t.cancel()
	}
}

// Join blocks until the current run exits. Joining a task that never
// started returns immediately.
func (t *task) Join() {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done == nil {
		return
	}
	<-done
}

// StopAndJoin requests a stop and waits for the task to exit.
func (t *task) StopAndJoin() {
	t.RequestStop()
	t.Join()
}

// State returns the task's current lifecycle state.
func (t *task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Running reports whether the task goroutine is still alive.
func (t *task) Running() bool {
	s := t.State()
	return s == TaskRunning || s == TaskStopRequested
}

// eventKind discriminates task events.
type eventKind int

const (
	eventPeerConnected eventKind = iota
	eventPeerLost
	eventLogRecord
)

// event is what tasks report back to the controller. gen identifies the
// accept cycle the reporting task belongs to, so stale events from an
// earlier cycle can be discarded.
type event struct {
	kind eventKind
	gen  uint64

	addr   net.Addr // eventPeerConnected
	level  Level    // eventLogRecord
	source string   // eventLogRecord
	text   string   // eventLogRecord
}

// sendEvent delivers ev unless the task was cancelled first.
func sendEvent(ctx context.Context, events chan<- event, ev event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// acceptTask repeatedly polls for an incoming connection until one is
// accepted or a stop is requested. On success it reports the peer; on a
// stop with no success it exits silently.
type acceptTask struct {
	task

	conn   *Conn
	logger Logger
	events chan<- event
	poll   time.Duration
}

func newAcceptTask(conn *Conn, logger Logger, events chan<- event, poll time.Duration) *acceptTask {
	return &acceptTask{
		task:   task{name: "accept"},
		conn:   conn,
		logger: logger,
		events: events,
		poll:   poll,
	}
}

func (t *acceptTask) Start(gen uint64) error {
	return t.task.Start(func(ctx context.Context) {
		t.loop(ctx, gen)
	})
}

func (t *acceptTask) loop(ctx context.Context, gen uint64) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		accepted, err := t.conn.Accept(t.poll)
		if err != nil {
			if ctx.Err() == nil {
				t.logger.Error("accept failed", "error", err)
			}
			return
		}
		if !accepted {
			continue
		}

		// A stop that raced with the accept wins: no notification.
		if ctx.Err() != nil {
			return
		}
		sendEvent(ctx, t.events, event{
			kind: eventPeerConnected,
			gen:  gen,
			addr: t.conn.PeerAddr(),
		})
		return
	}
}

// receiveTask repeatedly fetches frames from the peer, pausing a fixed
// interval between attempts. Structured log records are routed to the
// logger under their client's identity; anything else is logged verbatim
// under a generic label. Losing the peer is reported; a stop exits
// silently.
type receiveTask struct {
	task

	conn     *Conn
	logger   Logger
	events   chan<- event
	poll     time.Duration
	interval time.Duration
}

func newReceiveTask(conn *Conn, logger Logger, events chan<- event, poll, interval time.Duration) *receiveTask {
	return &receiveTask{
		task:     task{name: "receive"},
		conn:     conn,
		logger:   logger,
		events:   events,
		poll:     poll,
		interval: interval,
	}
}

func (t *receiveTask) Start(gen uint64) error {
	return t.task.Start(func(ctx context.Context) {
		t.loop(ctx, gen)
	})
}

func (t *receiveTask) loop(ctx context.Context, gen uint64) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(t.interval):
		}

		frame, err := t.conn.Receive(t.poll)
		switch {
		case err == nil:
			t.route(ctx, gen, frame)
		case errors.Is(err, ErrTimedOut):
			continue
		default:
			if ctx.Err() != nil {
				return
			}
			t.logger.Info("peer disconnected", "error", err)
			sendEvent(ctx, t.events, event{kind: eventPeerLost, gen: gen})
			return
		}
	}
}

func (t *receiveTask) route(ctx context.Context, gen uint64, frame Frame) {
	text := frame.Text()

	record, ok := ParseRecord(text)
	if !ok {
		if text == "" {
			text = emptyText
		}
		record = Record{Client: rawLabel, Level: LevelInfo, Msg: text}
	}

	logAt(t.logger, record.Level, record.Msg, "client", record.Client)
	sendEvent(ctx, t.events, event{
		kind:   eventLogRecord,
		gen:    gen,
		level:  record.Level,
		source: record.Client,
		text:   record.Msg,
	})
}

// sendTask performs a single send of either a string payload or a JSON
// file. It does not observe cancellation: it runs to completion or
// failure. A failed write or a missing peer is reported as peer loss;
// a rejected file only produces an error log line.
type sendTask struct {
	task

	conn   *Conn
	logger Logger
	events chan<- event
}

func newSendTask(conn *Conn, logger Logger, events chan<- event) *sendTask {
	return &sendTask{
		task:   task{name: "send"},
		conn:   conn,
		logger: logger,
		events: events,
	}
}

func (t *sendTask) Start(gen uint64, payload []byte, path string) error {
	return t.task.Start(func(ctx context.Context) {
		t.run(ctx, gen, payload, path)
	})
}

func (t *sendTask) run(ctx context.Context, gen uint64, payload []byte, path string) {
	var err error
	if path != "" {
		err = t.conn.SendFile(path)
	} else {
		err = t.conn.Send(payload)
	}

	switch {
	case err == nil:
		t.logger.Info("message sent")
	case errors.Is(err, ErrBadFile):
		t.logger.Error("could not send file", "error", err)
	default:
		t.logger.Error("could not send message", "error", err)
		sendEvent(ctx, t.events, event{kind: eventPeerLost, gen: gen})
	}
}

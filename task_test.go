package logport

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"
)

// waitEvent receives the next event or fails the test.
func waitEvent(t *testing.T, events <-chan event) event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for task event")
	}
	return event{}
}

func TestTask_Lifecycle(t *testing.T) {
	tk := &task{name: "test"}

	if tk.State() != TaskIdle {
		t.Fatalf("state = %v, want idle", tk.State())
	}

	release := make(chan struct{})
	if err := tk.Start(func(ctx context.Context) { <-release }); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if tk.State() != TaskRunning {
		t.Errorf("state = %v, want running", tk.State())
	}

	// A second start while running must fail.
	if err := tk.Start(func(ctx context.Context) {}); err == nil {
		t.Error("expected error starting a running task")
	}

	close(release)
	tk.Join()
	if tk.State() != TaskCompleted {
		t.Errorf("state = %v, want completed", tk.State())
	}

	// A completed task is restartable.
	if err := tk.Start(func(ctx context.Context) {}); err != nil {
		t.Errorf("restart failed: %v", err)
	}
	tk.Join()
}

func TestTask_JoinBeforeStart(t *testing.T) {
	tk := &task{name: "test"}

	done := make(chan struct{})
	go func() {
		tk.Join()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Join on a never-started task did not return immediately")
	}
}

func TestTask_RequestStop(t *testing.T) {
	tk := &task{name: "test"}

	// Safe before the task ever started.
	tk.RequestStop()
	if tk.State() != TaskIdle {
		t.Errorf("state = %v, want idle", tk.State())
	}

	if err := tk.Start(func(ctx context.Context) { <-ctx.Done() }); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	tk.RequestStop()
	tk.RequestStop() // idempotent
	tk.Join()

	if tk.State() != TaskCompleted {
		t.Errorf("state = %v, want completed", tk.State())
	}

	// Safe after completion too.
	tk.RequestStop()
}

// Stopping an accept task blocked in a poll makes it exit within one poll
// interval and without reporting a peer.
func TestAcceptTask_CancelledWithinPoll(t *testing.T) {
	conn, _ := newTestConn(t)
	events := make(chan event, 1)
	accept := newAcceptTask(conn, &mockLogger{}, events, 100*time.Millisecond)

	if err := accept.Start(1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond) // let it enter the poll
	start := time.Now()
	accept.StopAndJoin()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("stop took %v, want within one poll interval", elapsed)
	}

	select {
	case ev := <-events:
		t.Errorf("unexpected event after cancelled accept: %+v", ev)
	default:
	}
}

func TestAcceptTask_ReportsPeer(t *testing.T) {
	conn, _ := newTestConn(t)
	events := make(chan event, 1)
	accept := newAcceptTask(conn, &mockLogger{}, events, 100*time.Millisecond)

	if err := accept.Start(7); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	client, err := net.Dial("tcp", conn.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	ev := waitEvent(t, events)
	if ev.kind != eventPeerConnected {
		t.Fatalf("event kind = %d, want peer connected", ev.kind)
	}
	if ev.gen != 7 {
		t.Errorf("event generation = %d, want 7", ev.gen)
	}
	if ev.addr == nil {
		t.Error("event carries no peer address")
	}

	accept.Join()
	if accept.State() != TaskCompleted {
		t.Errorf("state = %v, want completed", accept.State())
	}
}

func TestReceiveTask_RoutesMessages(t *testing.T) {
	conn, client := acceptedPair(t)
	logger := &mockLogger{}
	events := make(chan event, 8)
	receive := newReceiveTask(conn, logger, events, 200*time.Millisecond, 10*time.Millisecond)

	if err := receive.Start(1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer receive.StopAndJoin()

	// A structured record is attributed to its client at its severity.
	payload := `{"client":"c1","level":30,"msg":"disk almost full"}`
	if _, err := client.Write(EncodeFrame([]byte(payload))); err != nil {
		t.Fatalf("client write failed: %v", err)
	}
	ev := waitEvent(t, events)
	if ev.kind != eventLogRecord {
		t.Fatalf("event kind = %d, want log record", ev.kind)
	}
	if ev.source != "c1" || ev.level != LevelWarn || ev.text != "disk almost full" {
		t.Errorf("event = %+v", ev)
	}
	if entry := logger.last("warn"); entry == nil || entry.msg != "disk almost full" {
		t.Errorf("warn log entry = %+v", entry)
	}

	// Anything else is logged verbatim under the generic label.
	if _, err := client.Write(EncodeFrame([]byte("plain text"))); err != nil {
		t.Fatalf("client write failed: %v", err)
	}
	ev = waitEvent(t, events)
	if ev.source != rawLabel || ev.level != LevelInfo || ev.text != "plain text" {
		t.Errorf("event = %+v", ev)
	}

	// An empty payload is made visible.
	if _, err := client.Write(EncodeFrame(nil)); err != nil {
		t.Fatalf("client write failed: %v", err)
	}
	ev = waitEvent(t, events)
	if ev.text != emptyText {
		t.Errorf("event text = %q, want %q", ev.text, emptyText)
	}
}

func TestReceiveTask_ReportsPeerLost(t *testing.T) {
	conn, client := acceptedPair(t)
	events := make(chan event, 1)
	receive := newReceiveTask(conn, &mockLogger{}, events, 200*time.Millisecond, 10*time.Millisecond)

	if err := receive.Start(3); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_ = client.Close()

	ev := waitEvent(t, events)
	if ev.kind != eventPeerLost {
		t.Fatalf("event kind = %d, want peer lost", ev.kind)
	}
	if ev.gen != 3 {
		t.Errorf("event generation = %d, want 3", ev.gen)
	}
	receive.Join()
}

func TestReceiveTask_StopsSilently(t *testing.T) {
	conn, _ := acceptedPair(t)
	events := make(chan event, 1)
	receive := newReceiveTask(conn, &mockLogger{}, events, 100*time.Millisecond, 10*time.Millisecond)

	if err := receive.Start(1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	receive.StopAndJoin()

	select {
	case ev := <-events:
		t.Errorf("unexpected event after stop: %+v", ev)
	default:
	}
}

func TestSendTask_NoPeerReportsLoss(t *testing.T) {
	conn, _ := newTestConn(t)
	logger := &mockLogger{}
	events := make(chan event, 1)
	send := newSendTask(conn, logger, events)

	if err := send.Start(2, []byte("hello"), ""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	send.Join()

	ev := waitEvent(t, events)
	if ev.kind != eventPeerLost {
		t.Fatalf("event kind = %d, want peer lost", ev.kind)
	}
	if logger.last("error") == nil {
		t.Error("failed send produced no error log line")
	}
}

func TestSendTask_Success(t *testing.T) {
	conn, client := acceptedPair(t)
	events := make(chan event, 1)
	send := newSendTask(conn, &mockLogger{}, events)

	if err := send.Start(1, []byte("hello"), ""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	send.Join()

	if got := readClientFrame(t, client); got != "hello" {
		t.Errorf("client read %q, want hello", got)
	}
	select {
	case ev := <-events:
		t.Errorf("unexpected event after successful send: %+v", ev)
	default:
	}
}

func TestSendTask_BadFileIsNotPeerLoss(t *testing.T) {
	conn, _ := acceptedPair(t)
	logger := &mockLogger{}
	events := make(chan event, 1)
	send := newSendTask(conn, logger, events)

	if err := send.Start(1, nil, "/nonexistent/file.json"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	send.Join()

	select {
	case ev := <-events:
		t.Errorf("unexpected event for rejected file: %+v", ev)
	default:
	}
	if logger.last("error") == nil {
		t.Error("rejected file produced no error log line")
	}
}

func TestTaskState_String(t *testing.T) {
	states := map[TaskState]string{
		TaskIdle:          "idle",
		TaskRunning:       "running",
		TaskStopRequested: "stop requested",
		TaskCompleted:     "completed",
		TaskState(99):     "unknown",
	}
	for state, want := range states {
		if got := fmt.Sprint(state); got != want {
			t.Errorf("String(%d) = %q, want %q", state, got, want)
		}
	}
}

package logport

import (
	"testing"
	"time"
)

func TestCheckOptions_Defaults(t *testing.T) {
	var opts options
	checkOptions(&opts)

	if opts.logger == nil {
		t.Error("logger default not applied")
	}
	if opts.pollTimeout != defaultPollTimeout {
		t.Errorf("pollTimeout = %v, want %v", opts.pollTimeout, defaultPollTimeout)
	}
	if opts.receiveInterval != defaultReceiveInterval {
		t.Errorf("receiveInterval = %v, want %v", opts.receiveInterval, defaultReceiveInterval)
	}
	if opts.bufferSize != defaultBufferSize {
		t.Errorf("bufferSize = %d, want %d", opts.bufferSize, defaultBufferSize)
	}
}

func TestCheckOptions_InvalidValuesFallBack(t *testing.T) {
	opts := options{
		pollTimeout:     -time.Second,
		receiveInterval: 0,
		bufferSize:      -1,
	}
	checkOptions(&opts)

	if opts.pollTimeout != defaultPollTimeout {
		t.Errorf("pollTimeout = %v, want default", opts.pollTimeout)
	}
	if opts.receiveInterval != defaultReceiveInterval {
		t.Errorf("receiveInterval = %v, want default", opts.receiveInterval)
	}
	if opts.bufferSize != defaultBufferSize {
		t.Errorf("bufferSize = %d, want default", opts.bufferSize)
	}
}

func TestOptions_Apply(t *testing.T) {
	mock := &mockLogger{}

	var opts options
	for _, o := range []Option{
		LoggerOption(mock),
		PollTimeoutOption(250 * time.Millisecond),
		ReceiveIntervalOption(10 * time.Millisecond),
		NotificationBufferOption(4),
	} {
		o(&opts)
	}
	checkOptions(&opts)

	if opts.logger != mock {
		t.Error("LoggerOption not applied")
	}
	if opts.pollTimeout != 250*time.Millisecond {
		t.Errorf("pollTimeout = %v", opts.pollTimeout)
	}
	if opts.receiveInterval != 10*time.Millisecond {
		t.Errorf("receiveInterval = %v", opts.receiveInterval)
	}
	if opts.bufferSize != 4 {
		t.Errorf("bufferSize = %d", opts.bufferSize)
	}
}

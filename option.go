package logport

import (
	"time"
)

// Default configuration values.
const (
	// defaultPollTimeout bounds each blocking accept or read so a stop
	// request is observed within one interval.
	defaultPollTimeout = time.Second
	// defaultReceiveInterval is the pause between two consecutive
	// receive attempts.
	defaultReceiveInterval = 500 * time.Millisecond
	// defaultBufferSize is the capacity of the task event and
	// notification channels.
	defaultBufferSize = 16
)

// options holds the configuration for a controller and its connection.
type options struct {
	logger Logger

	pollTimeout     time.Duration // bound on each blocking accept/read
	receiveInterval time.Duration // pause between two consecutive receives
	bufferSize      int           // capacity of event/notification channels
}

// Option is a function that configures controller options.
type Option func(*options)

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// PollTimeoutOption returns an Option that sets the poll timeout used by
// blocking accept and receive calls. Cancellation is cooperative and is
// observed within one poll interval, so a smaller value means faster
// shutdown at the cost of more wakeups.
func PollTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.pollTimeout = timeout
	}
}

// ReceiveIntervalOption returns an Option that sets the pause between two
// consecutive receive attempts.
func ReceiveIntervalOption(interval time.Duration) Option {
	return func(o *options) {
		o.receiveInterval = interval
	}
}

// NotificationBufferOption returns an Option that sets the capacity of the
// notification channel delivered to the UI layer.
func NotificationBufferOption(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// checkOptions validates and sets default values for controller options.
func checkOptions(opts *options) {
	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	if opts.pollTimeout <= 0 {
		opts.pollTimeout = defaultPollTimeout
	}

	if opts.receiveInterval <= 0 {
		opts.receiveInterval = defaultReceiveInterval
	}

	if opts.bufferSize <= 0 {
		opts.bufferSize = defaultBufferSize
	}
}

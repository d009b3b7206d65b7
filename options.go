package courier

import "log/slog"

// Option configures a Bus at construction.
type Option func(*busOptions)

type busOptions struct {
	logger *slog.Logger
}

func defaultOptions() busOptions {
	return busOptions{logger: slog.Default()}
}

// WithLogger sets the logger used for bus lifecycle events (handler start
// and exit, close). These are emitted at debug level. If logger is nil the
// default logger is kept.
func WithLogger(logger *slog.Logger) Option {
	return func(o *busOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Wildcard is the target id that matches any receiver. It is the default
// for both sends and receives.
const Wildcard uint64 = 0

// MsgOption tunes a single Send, Receive or Poll call.
type MsgOption func(*msgOptions)

type msgOptions struct {
	limit  int
	target uint64
}

func applyMsgOptions(opts []MsgOption) msgOptions {
	var o msgOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithTarget tags a sent entry with a target id, or restricts a receive to
// entries tagged Wildcard or the given id. Target ids are caller-defined;
// zero is the wildcard.
func WithTarget(id uint64) MsgOption {
	return func(o *msgOptions) {
		o.target = id
	}
}

// WithLimit bounds the destination queue for a Send: the call blocks while
// the queue already holds at least n entries. Zero (the default) means
// unbounded. Receives ignore this option.
func WithLimit(n int) MsgOption {
	return func(o *msgOptions) {
		o.limit = n
	}
}

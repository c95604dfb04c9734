// Package dispatch carries normalized actions from input sources to the
// UI loop.
package dispatch

import (
	"log/slog"

	"github.com/verte-zerg/runtally/internal/model"
)

// Queue is a bounded, thread-safe command queue. Input sources push from
// their own goroutines; the UI loop drains it once per tick and applies
// actions to the tracker one at a time, which keeps the tracker itself
// single-threaded. Arrival order is preserved across sources.
type Queue struct {
	commands chan model.Command
	logger   *slog.Logger
}

// New returns a Queue holding at most capacity pending commands.
func New(capacity int, logger *slog.Logger) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		commands: make(chan model.Command, capacity),
		logger:   logger.With("component", "dispatch"),
	}
}

// Push enqueues a command without blocking. A full queue drops the
// command; input bursts must never stall a native callback.
func (q *Queue) Push(source string, action model.Action) {
	select {
	case q.commands <- model.Command{Source: source, Action: action}:
	default:
		q.logger.Warn("dispatch queue full, dropping action",
			"source", source, "action", action)
	}
}

// Drain returns every queued command without blocking, oldest first.
func (q *Queue) Drain() []model.Command {
	var out []model.Command
	for {
		select {
		case cmd := <-q.commands:
			out = append(out, cmd)
		default:
			return out
		}
	}
}

// Emitter returns a push callback bound to one source tag.
func (q *Queue) Emitter(source string) func(model.Action) {
	return func(action model.Action) {
		q.Push(source, action)
	}
}
